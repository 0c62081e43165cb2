// Package health reports whether the controller is operational.
package health

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/clambin/thermostat-control/internal/controller"
)

type StatusReporter interface {
	Status() controller.Status
}

type Health struct {
	Controller StatusReporter
	logger     *slog.Logger
}

func New(c StatusReporter, logger *slog.Logger) *Health {
	return &Health{
		Controller: c,
		logger:     logger,
	}
}

type report struct {
	Status   string   `json:"status"`
	Power    bool     `json:"power"`
	Level    *float64 `json:"level,omitempty"`
	Presence string   `json:"presence,omitempty"`
	Wakeups  int      `json:"wakeups"`
}

// ServeHTTP reports the controller's status. Until the controller has resolved the setpoints once, it returns
// http.StatusServiceUnavailable.
func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	status := h.Controller.Status()
	if status.Power && status.Level == nil {
		http.Error(w, "no setpoint resolved yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(report{
		Status:   "ok",
		Power:    status.Power,
		Level:    status.Level,
		Presence: status.Presence,
		Wakeups:  len(status.Wakeups),
	})
	if err != nil {
		h.logger.Error("failed to encode health report", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
