// Package eval implements the eval command: it shows the setpoints the controller would calculate at a given time.
package eval

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/clambin/go-common/charmer"
	"github.com/clambin/thermostat-control/internal/app"
	"github.com/clambin/thermostat-control/internal/configuration"
	"github.com/clambin/thermostat-control/internal/controller"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	Cmd = cobra.Command{
		Use:   "eval [heating.yaml]",
		Short: "evaluate the heating configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  evaluate(os.Stdout, viper.GetViper()),
	}

	args = charmer.Arguments{
		"time":     {Default: "", Help: "time to evaluate (2006-01-02T15:04). default: now"},
		"presence": {Default: "home", Help: "presence mode"},
		"scope":    {Default: "", Help: "only show this scope (global or zone.<index>)"},
	}
)

func init() {
	_ = charmer.SetPersistentFlags(&Cmd, viper.GetViper(), args)
}

func evaluate(w io.Writer, v *viper.Viper) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path := app.SchedulePath(v)
		if len(args) > 0 {
			path = args[0]
		}
		h, err := app.LoadHeating(path, slog.Default())
		if err != nil {
			return err
		}
		now, err := parseTime(v.GetString("time"))
		if err != nil {
			return err
		}
		var scope *controller.Source
		if s := v.GetString("scope"); s != "" {
			source, err := controller.ParseSource(s)
			if err != nil {
				return err
			}
			scope = &source
		}
		return evalHeating(w, h, now, v.GetString("presence"), scope)
	}
}

var layouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

const formatString = "%-20s %-10s %s\n"

func evalHeating(w io.Writer, h configuration.Heating, now time.Time, presence string, scope *controller.Source) error {
	wakeups := make(map[controller.Source]time.Time)
	for _, wakeup := range controller.Plan(h, now) {
		wakeups[wakeup.Source] = wakeup.At
	}

	_, _ = fmt.Fprintf(w, formatString, "SCOPE", "SETPOINT", "NEXT WAKE-UP")

	global := controller.GlobalSetpoint(h, now, presence)
	if show(scope, controller.SourceGlobal) {
		_, _ = fmt.Fprintf(w, formatString, "global", formatLevel(global, h.Unit), formatWakeup(wakeups, controller.SourceGlobal))
	}
	for _, zone := range h.Zones {
		source := controller.SourceZone(zone.Index)
		if !show(scope, source) {
			continue
		}
		level := controller.ZoneSetpoint(h, zone, now, presence, global)
		_, _ = fmt.Fprintf(w, formatString, zone.Name, formatLevel(level, h.Unit), formatWakeup(wakeups, source))
	}
	return nil
}

// show reports whether the source's line is printed. Any source other than global or a zone shows every scope.
func show(scope *controller.Source, source controller.Source) bool {
	if scope == nil {
		return true
	}
	switch scope.Kind {
	case controller.GlobalWakeup, controller.ZoneWakeup:
		return *scope == source
	default:
		return true
	}
}

func formatLevel(level float64, unit configuration.Unit) string {
	return fmt.Sprintf("%.1f%s", level, unit.Symbol())
}

func formatWakeup(wakeups map[controller.Source]time.Time, source controller.Source) string {
	if at, ok := wakeups[source]; ok {
		return at.Format("Mon 2006-01-02 15:04")
	}
	return "-"
}
