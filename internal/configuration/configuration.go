// Package configuration loads the heating configuration: the global scope, its zones and their schedules.
package configuration

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/clambin/go-common/set"
	"github.com/clambin/thermostat-control/internal/limits"
	"github.com/clambin/thermostat-control/internal/schedule"
	"gopkg.in/yaml.v3"
)

// Configuration is the heating configuration, as stored in the configuration file.
type Configuration struct {
	Unit               string         `yaml:"unit"`
	DefaultTemperature *float64       `yaml:"defaultTemperature"`
	GlobalLimit        *Limit         `yaml:"globalLimit"`
	GlobalSchedules    []ScheduleRule `yaml:"globalSchedules"`
	Zones              []ZoneConfig   `yaml:"zones"`
}

type Limit struct {
	MinTemperature *float64 `yaml:"minTemperature,omitempty"`
	MaxTemperature *float64 `yaml:"maxTemperature,omitempty"`
}

type ScheduleRule struct {
	PresenceMode []string           `yaml:"presenceMode,omitempty"`
	DayOfWeek    []int              `yaml:"dayofweek,omitempty"`
	TimeFrom     schedule.TimeOfDay `yaml:"timeFrom,omitempty"`
	TimeTo       schedule.TimeOfDay `yaml:"timeTo,omitempty"`
	Mode         string             `yaml:"mode"`
	Setpoint     float64            `yaml:"setpoint"`
}

type ZoneConfig struct {
	Name      string         `yaml:"name,omitempty"`
	Schedules []ScheduleRule `yaml:"schedules"`
	Limit     *Limit         `yaml:"limit,omitempty"`
	Devices   []string       `yaml:"devices"`
}

var (
	// ErrMissingLimit indicates the global limit does not have both a minimum and maximum temperature.
	ErrMissingLimit = errors.New("global limit requires minTemperature and maxTemperature")
	// ErrInvalidLimit indicates a limit's minimum temperature is higher than its maximum temperature.
	ErrInvalidLimit = errors.New("minTemperature is higher than maxTemperature")
	// ErrDuplicateZone indicates a zone's name is already used by another zone, or by the global scope.
	ErrDuplicateZone = errors.New("zone name already in use")
)

// GlobalScope names the global setpoint wherever zone names are reported.
const GlobalScope = "global"

// A ConfigError reports an invalid entry in the configuration, identified by its path.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load reads the heating configuration and validates it. Malformed times of day do not cause an error:
// the rule then has no constraint on that bound. Load logs a warning for each of them.
func Load(r io.Reader, logger *slog.Logger) (Heating, error) {
	var cfg Configuration
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return Heating{}, fmt.Errorf("decode: %w", err)
	}
	return cfg.Heating(logger)
}

// Heating validates the configuration and returns the resulting Heating configuration.
func (c Configuration) Heating(logger *slog.Logger) (Heating, error) {
	var h Heating
	var err error

	if h.Unit, err = ParseUnit(c.Unit); err != nil {
		return Heating{}, &ConfigError{Field: "unit", Err: err}
	}
	if c.GlobalLimit == nil {
		return Heating{}, &ConfigError{Field: "globalLimit", Err: ErrMissingLimit}
	}
	if h.GlobalLimit, err = c.GlobalLimit.limit(); err != nil {
		return Heating{}, &ConfigError{Field: "globalLimit", Err: err}
	}
	if !h.GlobalLimit.Complete() {
		return Heating{}, &ConfigError{Field: "globalLimit", Err: ErrMissingLimit}
	}
	if c.DefaultTemperature == nil {
		return Heating{}, &ConfigError{Field: "defaultTemperature", Err: errors.New("missing")}
	}
	h.DefaultTemperature = *c.DefaultTemperature

	if h.GlobalSchedules, err = buildRules("globalSchedules", c.GlobalSchedules, logger); err != nil {
		return Heating{}, err
	}

	h.Zones = make([]Zone, len(c.Zones))
	names := set.New(GlobalScope)
	for i, zoneCfg := range c.Zones {
		field := "zones[" + strconv.Itoa(i) + "]"
		zone := Zone{Index: i, Name: zoneCfg.Name, Devices: zoneCfg.Devices}
		if zone.Name == "" {
			zone.Name = "zone." + strconv.Itoa(i)
		}
		if names.Contains(zone.Name) {
			return Heating{}, &ConfigError{Field: field + ".name", Err: fmt.Errorf("%w: %q", ErrDuplicateZone, zone.Name)}
		}
		names.Add(zone.Name)
		if zoneCfg.Limit != nil {
			if zone.Limit, err = zoneCfg.Limit.limit(); err != nil {
				return Heating{}, &ConfigError{Field: field + ".limit", Err: err}
			}
		}
		if zone.Schedules, err = buildRules(field+".schedules", zoneCfg.Schedules, logger); err != nil {
			return Heating{}, err
		}
		if len(zone.Devices) == 0 {
			logger.Warn("zone has no devices", "zone", zone.Name)
		}
		h.Zones[i] = zone
	}
	return h, nil
}

func (l Limit) limit() (limits.Limit, error) {
	if l.MinTemperature != nil && l.MaxTemperature != nil && *l.MinTemperature > *l.MaxTemperature {
		return limits.Limit{}, ErrInvalidLimit
	}
	return limits.Limit{Min: l.MinTemperature, Max: l.MaxTemperature}, nil
}

func buildRules(field string, cfg []ScheduleRule, logger *slog.Logger) (schedule.Rules, error) {
	rules := make(schedule.Rules, len(cfg))
	for i, ruleCfg := range cfg {
		ruleField := field + "[" + strconv.Itoa(i) + "]"
		rule, err := ruleCfg.rule()
		if err != nil {
			return nil, &ConfigError{Field: ruleField, Err: err}
		}
		if ruleCfg.TimeFrom.Malformed() {
			logger.Warn("invalid time of day ignored", "rule", ruleField, "field", "timeFrom", "value", ruleCfg.TimeFrom.Raw)
		}
		if ruleCfg.TimeTo.Malformed() {
			logger.Warn("invalid time of day ignored", "rule", ruleField, "field", "timeTo", "value", ruleCfg.TimeTo.Raw)
		}
		rules[i] = rule
	}
	return rules, nil
}

func (r ScheduleRule) rule() (schedule.Rule, error) {
	mode, err := schedule.ParseMode(r.Mode)
	if err != nil {
		return schedule.Rule{}, err
	}
	rule := schedule.Rule{
		From:     r.TimeFrom,
		To:       r.TimeTo,
		Mode:     mode,
		Setpoint: r.Setpoint,
	}
	if len(r.PresenceMode) > 0 {
		for _, presenceMode := range r.PresenceMode {
			if presenceMode == "" {
				return schedule.Rule{}, errors.New("empty presence mode")
			}
		}
		rule.PresenceModes = set.New(r.PresenceMode...)
	}
	if len(r.DayOfWeek) > 0 {
		days := make([]time.Weekday, len(r.DayOfWeek))
		for i, day := range r.DayOfWeek {
			if day < int(time.Sunday) || day > int(time.Saturday) {
				return schedule.Rule{}, fmt.Errorf("invalid day of week %d", day)
			}
			days[i] = time.Weekday(day)
		}
		rule.Days = set.New(days...)
	}
	return rule, nil
}
