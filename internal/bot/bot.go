// Package bot lets the user inspect and control the heating through Slack.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/clambin/go-common/slackbot"
	"github.com/clambin/thermostat-control/internal/controller"
	"github.com/slack-go/slack"
)

type SlackBot interface {
	Add(commands slackbot.Commands)
	Run(ctx context.Context) error
}

var _ SlackBot = &slackbot.SlackBot{}

type Controller interface {
	Status() controller.Status
	SetLevel(ctx context.Context, level float64) error
	SetPower(ctx context.Context, on bool) error
}

type Bot struct {
	slack      SlackBot
	controller Controller
	logger     *slog.Logger
}

func New(slackBot SlackBot, c Controller, logger *slog.Logger) *Bot {
	b := Bot{
		slack:      slackBot,
		controller: c,
		logger:     logger,
	}
	slackBot.Add(slackbot.Commands{
		"status":   slackbot.HandlerFunc(b.ReportStatus),
		"zones":    slackbot.HandlerFunc(b.ReportZones),
		"wakeups":  slackbot.HandlerFunc(b.ReportWakeups),
		"setpoint": slackbot.HandlerFunc(b.SetLevel),
		"power":    slackbot.HandlerFunc(b.SetPower),
	})
	return &b
}

// Run the bot
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Debug("started")
	defer b.logger.Debug("stopped")
	return b.slack.Run(ctx)
}

func (b *Bot) ReportStatus(_ context.Context, _ ...string) []slack.Attachment {
	status := b.controller.Status()

	var text []string
	if !status.Power {
		text = append(text, "heating is switched off")
	}
	switch {
	case status.Level == nil:
		text = append(text, "no setpoint resolved yet")
	case status.Overridden() && status.Calculated != nil:
		text = append(text, fmt.Sprintf("setpoint: %.1f%s (set manually. schedule: %.1f%s)", *status.Level, status.Unit, *status.Calculated, status.Unit))
	case status.Overridden():
		text = append(text, fmt.Sprintf("setpoint: %.1f%s (set manually)", *status.Level, status.Unit))
	default:
		text = append(text, fmt.Sprintf("setpoint: %.1f%s", *status.Level, status.Unit))
	}
	presence := status.Presence
	if presence == "" {
		presence = "unknown"
	}
	text = append(text, "presence: "+presence)

	return []slack.Attachment{{
		Color: color(status.Power),
		Title: "heating:",
		Text:  strings.Join(text, "\n"),
	}}
}

func (b *Bot) ReportZones(_ context.Context, _ ...string) []slack.Attachment {
	status := b.controller.Status()
	if len(status.Zones) == 0 {
		return []slack.Attachment{{Color: "bad", Text: "no zones resolved yet"}}
	}

	text := make([]string, 0, len(status.Zones))
	for name, level := range status.Zones {
		text = append(text, fmt.Sprintf("%s: %.1f%s", name, level, status.Unit))
	}
	slices.Sort(text)

	return []slack.Attachment{{
		Color: "good",
		Title: "zones:",
		Text:  strings.Join(text, "\n"),
	}}
}

func (b *Bot) ReportWakeups(_ context.Context, _ ...string) []slack.Attachment {
	status := b.controller.Status()
	if len(status.Wakeups) == 0 {
		return []slack.Attachment{{Color: "good", Text: "no re-evaluations scheduled"}}
	}

	text := make([]string, 0, len(status.Wakeups))
	for _, wakeup := range status.Wakeups {
		text = append(text, fmt.Sprintf("%s: %s", wakeup.Source, wakeup.At.Format("Mon 15:04")))
	}
	return []slack.Attachment{{
		Color: "good",
		Title: "scheduled re-evaluations:",
		Text:  strings.Join(text, "\n"),
	}}
}

func (b *Bot) SetLevel(ctx context.Context, args ...string) []slack.Attachment {
	level, err := parseSetLevel(args...)
	if err == nil {
		err = b.controller.SetLevel(ctx, level)
	}
	if err != nil {
		return []slack.Attachment{{Color: "bad", Text: err.Error()}}
	}
	status := b.controller.Status()
	return []slack.Attachment{{
		Color: "good",
		Text:  fmt.Sprintf("setpoint set to %.1f%s", *status.Level, status.Unit),
	}}
}

func (b *Bot) SetPower(ctx context.Context, args ...string) []slack.Attachment {
	on, err := parseSetPower(args...)
	if err == nil {
		err = b.controller.SetPower(ctx, on)
	}
	if err != nil {
		return []slack.Attachment{{Color: "bad", Text: err.Error()}}
	}
	text := "heating switched off"
	if on {
		text = "heating switched on"
	}
	return []slack.Attachment{{Color: "good", Text: text}}
}

func color(ok bool) string {
	if ok {
		return "good"
	}
	return "warning"
}
