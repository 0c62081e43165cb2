package health

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clambin/thermostat-control/internal/controller"
	"github.com/stretchr/testify/assert"
)

type fakeController struct {
	status controller.Status
}

func (f fakeController) Status() controller.Status {
	return f.status
}

func TestHealth_ServeHTTP(t *testing.T) {
	level := 21.0
	tests := []struct {
		name   string
		status controller.Status
		code   int
		body   string
	}{
		{
			name:   "not resolved",
			status: controller.Status{State: controller.State{Power: true}},
			code:   http.StatusServiceUnavailable,
		},
		{
			name:   "resolved",
			status: controller.Status{State: controller.State{Power: true, Level: &level}, Presence: "home", Wakeups: make([]controller.Wakeup, 2)},
			code:   http.StatusOK,
			body:   `{"status":"ok","power":true,"level":21,"presence":"home","wakeups":2}`,
		},
		{
			name:   "switched off",
			status: controller.Status{State: controller.State{Power: false}},
			code:   http.StatusOK,
			body:   `{"status":"ok","power":false,"wakeups":0}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := New(fakeController{status: tt.status}, slog.New(slog.NewTextHandler(io.Discard, nil)))
			resp := httptest.NewRecorder()
			h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.code, resp.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, resp.Body.String())
			}
		})
	}
}
