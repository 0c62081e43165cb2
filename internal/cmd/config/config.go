// Package config implements the config command: it shows the heating configuration as the controller understands it.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/clambin/go-common/charmer"
	"github.com/clambin/thermostat-control/internal/app"
	"github.com/clambin/thermostat-control/internal/configuration"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	Cmd = cobra.Command{
		Use:   "config [heating.yaml]",
		Short: "show the validated heating configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showConfig(os.Stdout, viper.GetViper()),
	}

	args = charmer.Arguments{
		"format": {Default: "yaml", Help: "output format (yaml or json)"},
	}
)

func init() {
	_ = charmer.SetPersistentFlags(&Cmd, viper.GetViper(), args)
}

type Encoder interface {
	Encode(any) error
}

type zone struct {
	Index   int      `yaml:"index" json:"index"`
	Name    string   `yaml:"name" json:"name"`
	Limit   string   `yaml:"limit" json:"limit"`
	Rules   int      `yaml:"rules" json:"rules"`
	Devices []string `yaml:"devices" json:"devices"`
}

type report struct {
	Unit               string  `yaml:"unit" json:"unit"`
	DefaultTemperature float64 `yaml:"defaultTemperature" json:"defaultTemperature"`
	GlobalLimit        string  `yaml:"globalLimit" json:"globalLimit"`
	Rules              int     `yaml:"rules" json:"rules"`
	Zones              []zone  `yaml:"zones" json:"zones"`
}

func ShowConfig(h configuration.Heating, e Encoder) error {
	r := report{
		Unit:               h.Unit.String(),
		DefaultTemperature: h.DefaultTemperature,
		GlobalLimit:        h.GlobalLimit.String(),
		Rules:              len(h.GlobalSchedules),
		Zones:              make([]zone, 0, len(h.Zones)),
	}
	for _, z := range h.Zones {
		r.Zones = append(r.Zones, zone{
			Index:   z.Index,
			Name:    z.Name,
			Limit:   z.Limit.String(),
			Rules:   len(z.Schedules),
			Devices: z.Devices,
		})
	}
	return e.Encode(r)
}

func showConfig(w io.Writer, v *viper.Viper) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path := app.SchedulePath(v)
		if len(args) > 0 {
			path = args[0]
		}
		h, err := app.LoadHeating(path, slog.Default())
		if err != nil {
			return err
		}
		var e Encoder
		switch format := v.GetString("format"); format {
		case "yaml":
			e = yaml.NewEncoder(w)
		case "json":
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			e = enc
		default:
			return fmt.Errorf("invalid format %q", format)
		}
		return ShowConfig(h, e)
	}
}
