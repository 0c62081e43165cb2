package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/clambin/go-common/slackbot"
	"github.com/clambin/thermostat-control/internal/controller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBot_Commands(t *testing.T) {
	s := fakeSlackBot{Commands: make(slackbot.Commands)}
	c := fakeController{status: controller.Status{State: controller.State{Power: true}, Unit: "°C"}}
	New(&s, &c, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, []string{"power", "setpoint", "status", "wakeups", "zones"}, s.GetCommands())
	ctx := context.Background()

	tests := []struct {
		name    string
		command string
		args    []string
		color   string
		title   string
		text    string
	}{
		{name: "no setpoint", command: "status", color: "good", title: "heating:", text: "no setpoint resolved yet\npresence: unknown"},
		{name: "no zones", command: "zones", color: "bad", text: "no zones resolved yet"},
		{name: "no wakeups", command: "wakeups", color: "good", text: "no re-evaluations scheduled"},
		{name: "set level", command: "setpoint", args: []string{"21.5"}, color: "good", text: "setpoint set to 21.5°C"},
		{name: "status", command: "status", color: "good", title: "heating:", text: "setpoint: 21.5°C (set manually. schedule: 20.0°C)\npresence: unknown"},
		{name: "invalid level", command: "setpoint", args: []string{"warm"}, color: "bad", text: `invalid temperature: "warm"`},
		{name: "missing level", command: "setpoint", color: "bad", text: "missing parameters\nUsage: setpoint <temperature>"},
		{name: "power off", command: "power", args: []string{"off"}, color: "good", text: "heating switched off"},
		{name: "status off", command: "status", color: "warning", title: "heating:", text: "heating is switched off\nsetpoint: 21.5°C (set manually. schedule: 20.0°C)\npresence: unknown"},
		{name: "invalid power", command: "power", args: []string{"maybe"}, color: "bad", text: `invalid power state: "maybe"`},
	}

	// commands change the controller's state: run them in sequence
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attachments := s.Handle(ctx, append([]string{tt.command}, tt.args...)...)
			require.Len(t, attachments, 1)
			assert.Equal(t, tt.color, attachments[0].Color)
			assert.Equal(t, tt.title, attachments[0].Title)
			assert.Equal(t, tt.text, attachments[0].Text)
		})
	}
}

func TestBot_Reports(t *testing.T) {
	s := fakeSlackBot{Commands: make(slackbot.Commands)}
	c := fakeController{status: controller.Status{
		Unit:    "°C",
		Zones:   map[string]float64{"bedroom": 18, "bathroom": 22.5},
		Wakeups: []controller.Wakeup{{Source: controller.SourceGlobal, At: time.Date(2024, time.March, 4, 22, 0, 0, 0, time.UTC)}},
	}}
	b := New(&s, &c, slog.New(slog.NewTextHandler(io.Discard, nil)))

	attachments := b.ReportZones(context.Background())
	require.Len(t, attachments, 1)
	assert.Equal(t, "bathroom: 22.5°C\nbedroom: 18.0°C", attachments[0].Text)

	attachments = b.ReportWakeups(context.Background())
	require.Len(t, attachments, 1)
	assert.Equal(t, "global: Mon 22:00", attachments[0].Text)
}

func TestBot_ReportStatus_NotResolved(t *testing.T) {
	level := 23.0
	s := fakeSlackBot{Commands: make(slackbot.Commands)}
	c := fakeController{status: controller.Status{State: controller.State{Level: &level, Power: true}, Unit: "°C", Presence: "home"}}
	b := New(&s, &c, slog.New(slog.NewTextHandler(io.Discard, nil)))

	attachments := b.ReportStatus(context.Background())
	require.Len(t, attachments, 1)
	assert.Equal(t, "setpoint: 23.0°C (set manually)\npresence: home", attachments[0].Text)
}

func TestBot_UnknownCommand(t *testing.T) {
	s := fakeSlackBot{Commands: make(slackbot.Commands)}
	New(&s, &fakeController{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	attachments := s.Handle(context.Background(), "boost")
	require.Len(t, attachments, 1)
	assert.Equal(t, "invalid command", attachments[0].Title)
	assert.Equal(t, "supported commands: power, setpoint, status, wakeups, zones", attachments[0].Text)
}

func TestBot_Run(t *testing.T) {
	s := fakeSlackBot{Commands: make(slackbot.Commands)}
	b := New(&s, &fakeController{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- b.Run(ctx) }()
	cancel()
	assert.NoError(t, <-errCh)
}

var _ SlackBot = &fakeSlackBot{}

type fakeSlackBot struct {
	slackbot.Commands
}

func (f *fakeSlackBot) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

var _ Controller = &fakeController{}

type fakeController struct {
	status controller.Status
}

func (f *fakeController) Status() controller.Status {
	return f.status
}

func (f *fakeController) SetLevel(_ context.Context, level float64) error {
	calculated := 20.0
	f.status.Level = &level
	f.status.Calculated = &calculated
	return nil
}

func (f *fakeController) SetPower(_ context.Context, on bool) error {
	f.status.Power = on
	return nil
}
