package devices

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/clambin/go-common/http/metrics"
	"github.com/clambin/go-common/http/roundtripper"
	"github.com/clambin/tado"
	"github.com/prometheus/client_golang/prometheus"
)

type TadoSetter interface {
	SetZoneOverlay(ctx context.Context, zoneID int, temperature float64) error
}

// TadoDispatcher sets a permanent overlay on a Tadoº zone. The device id is the zone's id. Tadoº expects
// temperatures in celsius: if Fahrenheit is set, the level is converted first.
type TadoDispatcher struct {
	Client     TadoSetter
	Fahrenheit bool
}

func (t TadoDispatcher) Dispatch(ctx context.Context, device string, level float64) error {
	zoneID, err := strconv.Atoi(device)
	if err != nil {
		return fmt.Errorf("invalid zone id %q", device)
	}
	if t.Fahrenheit {
		level = (level - 32) * 5 / 9
	}
	return t.Client.SetZoneOverlay(ctx, zoneID, level)
}

// NewTadoClient returns a Tadoº client that records its API calls in metrics.
func NewTadoClient(username, password, secret string, metrics metrics.RequestMetrics) (*tado.APIClient, error) {
	c, err := tado.New(username, password, secret)
	if err != nil {
		return nil, fmt.Errorf("tado: %w", err)
	}
	c.HTTPClient = &http.Client{Transport: instrumentedRoundTripper(c.HTTPClient.Transport, metrics)}
	return c, nil
}

func instrumentedRoundTripper(next http.RoundTripper, m metrics.RequestMetrics) http.RoundTripper {
	return roundtripper.New(
		roundtripper.WithRequestMetrics(m),
		roundtripper.WithRoundTripper(next),
	)
}

// NewTadoMetrics returns the metrics for calls to the Tadoº API: thermostat_tado_http_requests_total and
// thermostat_tado_http_request_duration_seconds. Home and zone ids are replaced by ":id" in the path label,
// so each overlay call of every zone is counted under the same path.
func NewTadoMetrics(labels prometheus.Labels) metrics.RequestMetrics {
	return metrics.NewRequestMetrics(metrics.Options{
		Namespace:   "thermostat",
		Subsystem:   "tado",
		ConstLabels: labels,
		LabelValues: func(request *http.Request, code int) (string, string, string) {
			return request.Method, tadoPath(request.URL.Path), strconv.Itoa(code)
		},
	})
}

func tadoPath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
