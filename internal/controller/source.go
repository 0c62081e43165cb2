package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Kind identifies what triggered a resolution.
type Kind int

const (
	Init Kind = iota
	Setpoint
	Presence
	GlobalWakeup
	ZoneWakeup
)

var kindNames = map[Kind]string{
	Init:         "init",
	Setpoint:     "setpoint",
	Presence:     "presence",
	GlobalWakeup: "global",
	ZoneWakeup:   "zone",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// A Source identifies why setpoints are resolved. For ZoneWakeup, Zone is the index of the zone whose schedule
// reached a boundary.
type Source struct {
	Kind Kind
	Zone int
}

var (
	SourceInit     = Source{Kind: Init}
	SourceSetpoint = Source{Kind: Setpoint}
	SourcePresence = Source{Kind: Presence}
	SourceGlobal   = Source{Kind: GlobalWakeup}
)

// SourceZone returns the Source of a wake-up for the zone with the given index.
func SourceZone(index int) Source {
	return Source{Kind: ZoneWakeup, Zone: index}
}

var ErrInvalidSource = errors.New("invalid source")

// ParseSource parses the textual form of a Source: init, setpoint, presence, global or zone.<index>.
func ParseSource(s string) (Source, error) {
	if index, ok := strings.CutPrefix(s, "zone."); ok {
		i, err := strconv.Atoi(index)
		if err != nil || i < 0 {
			return Source{}, fmt.Errorf("%w: %q", ErrInvalidSource, s)
		}
		return SourceZone(i), nil
	}
	for kind, name := range kindNames {
		if kind != ZoneWakeup && name == s {
			return Source{Kind: kind}, nil
		}
	}
	return Source{}, fmt.Errorf("%w: %q", ErrInvalidSource, s)
}

func (s Source) String() string {
	if s.Kind == ZoneWakeup {
		return "zone." + strconv.Itoa(s.Zone)
	}
	return s.Kind.String()
}

func (s Source) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// ZoneScoped returns the zone index if the Source only concerns a single zone.
func (s Source) ZoneScoped() (int, bool) {
	return s.Zone, s.Kind == ZoneWakeup
}
