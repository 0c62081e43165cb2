package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clambin/thermostat-control/internal/configuration"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const heatingConfig = `
defaultTemperature: 20
globalLimit:
  minTemperature: 15
  maxTemperature: 25
globalSchedules:
  - timeFrom: "06:00"
    timeTo: "22:00"
    mode: absolute
    setpoint: 21
zones:
  - name: office
    devices: [ "mqtt:office", "tado:1" ]
`

func Test_makeApp(t *testing.T) {
	testCases := []struct {
		name    string
		config  string
		tasks   int
		closers int
	}{
		{
			name: "minimal",
			config: `
api:
  addr: :8081
`,
			tasks: 4,
		},
		{
			name: "slackbot",
			config: `
slackbot:
  token: 1234
`,
			tasks: 5,
		},
		{
			name: "all",
			config: `
slack:
  token: 1234
slackbot:
  token: 1234
kafka:
  brokers: [ "localhost:9092" ]
  topic: heating
reload:
  enabled: true
`,
			tasks:   6,
			closers: 1,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := viper.New()
			cfg.SetConfigType("yaml")
			require.NoError(t, cfg.ReadConfig(bytes.NewBufferString(tt.config)))

			h, err := configuration.Load(strings.NewReader(heatingConfig), slog.New(slog.NewTextHandler(io.Discard, nil)))
			require.NoError(t, err)

			a := makeApp(cfg, h, dependencies{}, "1.0", prometheus.NewPedanticRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))
			assert.Len(t, a.tasks, tt.tasks)
			assert.Len(t, a.closers, tt.closers)
			assert.NotNil(t, a.Controller)
		})
	}
}

func TestSchedulePath(t *testing.T) {
	testCases := []struct {
		name       string
		configFile string
		schedule   string
		want       string
	}{
		{name: "default", want: "heating.yaml"},
		{name: "next to config file", configFile: "/etc/thermostat/config.yaml", want: "/etc/thermostat/heating.yaml"},
		{name: "relative", configFile: "/etc/thermostat/config.yaml", schedule: "rules/home.yaml", want: "/etc/thermostat/rules/home.yaml"},
		{name: "absolute", configFile: "/etc/thermostat/config.yaml", schedule: "/var/lib/heating.yaml", want: "/var/lib/heating.yaml"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := viper.New()
			if tt.configFile != "" {
				cfg.SetConfigFile(tt.configFile)
			}
			if tt.schedule != "" {
				cfg.Set("schedule", tt.schedule)
			}
			assert.Equal(t, tt.want, SchedulePath(cfg))
		})
	}
}

func TestLoadHeating(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	valid := filepath.Join(dir, "heating.yaml")
	require.NoError(t, os.WriteFile(valid, []byte(heatingConfig), 0o644))
	h, err := LoadHeating(valid, logger)
	require.NoError(t, err)
	assert.Len(t, h.Zones, 1)
	assert.Equal(t, []string{"mqtt:office", "tado:1"}, h.Zones[0].Devices)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("defaultTemperature: 20\n"), 0o644))
	_, err = LoadHeating(invalid, logger)
	var cfgErr *configuration.ConfigError
	assert.ErrorAs(t, err, &cfgErr)

	_, err = LoadHeating(filepath.Join(dir, "missing.yaml"), logger)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHTTPServer(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s := httpServer{
		name: "test",
		server: &http.Server{Addr: addr, Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error)
	go func() { errCh <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestHTTPServer_Fail(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })

	s := httpServer{
		name:   "test",
		server: &http.Server{Addr: l.Addr().String()},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	assert.Error(t, s.Run(context.Background()))
}
