// Package api exposes the controller's virtual devices over HTTP: the global thermostat and the heating's power switch.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/clambin/thermostat-control/internal/controller"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type Controller interface {
	Status() controller.Status
	Thermostat(ctx context.Context, cmd controller.Command) error
	Switch(ctx context.Context, cmd controller.Command) error
}

type Server struct {
	controller Controller
	logger     *slog.Logger
}

// New returns the API's http.Handler. If health is not nil, it is served on /health.
func New(c Controller, health http.Handler, logger *slog.Logger) http.Handler {
	s := Server{controller: c, logger: logger}

	r := mux.NewRouter()
	r.HandleFunc("/api/thermostat", s.getThermostat).Methods(http.MethodGet)
	r.HandleFunc("/api/thermostat", s.postThermostat).Methods(http.MethodPost)
	r.HandleFunc("/api/switch", s.getSwitch).Methods(http.MethodGet)
	r.HandleFunc("/api/switch", s.postSwitch).Methods(http.MethodPost)
	if health != nil {
		r.Handle("/health", health).Methods(http.MethodGet)
	}

	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{logger: logger}))(
		handlers.LoggingHandler(accessLogger{logger: logger}, r),
	)
}

// Thermostat is the global thermostat, as reported by the API.
type Thermostat struct {
	Level           *float64 `json:"level"`
	CalculatedLevel *float64 `json:"calculatedLevel"`
	Manual          bool     `json:"manual"`
	Power           bool     `json:"power"`
	Presence        string   `json:"presence,omitempty"`
	Unit            string   `json:"unit"`
	Min             float64  `json:"min"`
	Max             float64  `json:"max"`
	Step            float64  `json:"step"`
	Zones           []Zone   `json:"zones,omitempty"`
	Wakeups         []Wakeup `json:"wakeups,omitempty"`
}

type Zone struct {
	Name  string  `json:"name"`
	Level float64 `json:"level"`
}

type Wakeup struct {
	Source string    `json:"source"`
	At     time.Time `json:"at"`
}

type Switch struct {
	Power string `json:"power"`
}

func (s Server) getThermostat(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, thermostat(s.controller.Status()))
}

func (s Server) postThermostat(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.decode(w, r)
	if !ok {
		return
	}
	if err := s.controller.Thermostat(r.Context(), cmd); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, thermostat(s.controller.Status()))
}

func (s Server) getSwitch(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, powerSwitch(s.controller.Status()))
}

func (s Server) postSwitch(w http.ResponseWriter, r *http.Request) {
	cmd, ok := s.decode(w, r)
	if !ok {
		return
	}
	if err := s.controller.Switch(r.Context(), cmd); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, powerSwitch(s.controller.Status()))
}

func (s Server) decode(w http.ResponseWriter, r *http.Request) (controller.Command, bool) {
	var cmd controller.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return cmd, false
	}
	return cmd, true
}

func (s Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, controller.ErrInvalidCommand) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Error("command failed", "err", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", "err", err)
	}
}

func thermostat(status controller.Status) Thermostat {
	t := Thermostat{
		Level:           status.Level,
		CalculatedLevel: status.Calculated,
		Manual:          status.Overridden(),
		Power:           status.Power,
		Presence:        status.Presence,
		Unit:            status.Unit,
		Min:             status.Min,
		Max:             status.Max,
		Step:            0.5,
	}
	for name, level := range status.Zones {
		t.Zones = append(t.Zones, Zone{Name: name, Level: level})
	}
	slices.SortFunc(t.Zones, func(a, b Zone) int { return strings.Compare(a.Name, b.Name) })
	for _, wakeup := range status.Wakeups {
		t.Wakeups = append(t.Wakeups, Wakeup{Source: wakeup.Source.String(), At: wakeup.At})
	}
	return t
}

func powerSwitch(status controller.Status) Switch {
	if status.Power {
		return Switch{Power: "on"}
	}
	return Switch{Power: "off"}
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (r recoveryLogger) Println(args ...interface{}) {
	r.logger.Error("recovered from panic", "panic", args)
}

// accessLogger writes the access log at debug level.
type accessLogger struct {
	logger *slog.Logger
}

func (a accessLogger) Write(p []byte) (int, error) {
	a.logger.Debug("request", "log", string(bytes.TrimRight(p, "\n")))
	return len(p), nil
}
