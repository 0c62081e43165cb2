// Package collector exports the controller's setpoints and activity as Prometheus metrics.
package collector

import (
	"sort"

	"github.com/clambin/thermostat-control/internal/controller"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalSetpoint = prometheus.NewDesc(
		prometheus.BuildFQName("thermostat", "global", "setpoint"),
		"Displayed global setpoint",
		nil,
		nil,
	)
	globalCalculatedSetpoint = prometheus.NewDesc(
		prometheus.BuildFQName("thermostat", "global", "calculated_setpoint"),
		"Global setpoint last calculated from the schedule",
		nil,
		nil,
	)
	globalManual = prometheus.NewDesc(
		prometheus.BuildFQName("thermostat", "global", "manual"),
		"1 if the global setpoint was set manually",
		nil,
		nil,
	)
	zoneSetpoint = prometheus.NewDesc(
		prometheus.BuildFQName("thermostat", "zone", "setpoint"),
		"Setpoint last sent to the zone's devices",
		[]string{"zone"},
		nil,
	)
	powerState = prometheus.NewDesc(
		prometheus.BuildFQName("thermostat", "", "power_state"),
		"1 if the heating is switched on",
		nil,
		nil,
	)
	nextWakeup = prometheus.NewDesc(
		prometheus.BuildFQName("thermostat", "wakeup", "next_timestamp_seconds"),
		"Time of the next scheduled re-evaluation",
		[]string{"source"},
		nil,
	)
)

type StatusReporter interface {
	Status() controller.Status
}

// Collector reports the controller's status when scraped. It also implements controller.Metrics to count
// the controller's activity.
type Collector struct {
	Controller      StatusReporter
	resolutions     *prometheus.CounterVec
	setpointChanges *prometheus.CounterVec
	dispatchErrors  *prometheus.CounterVec
	powerChanges    *prometheus.CounterVec
	wakeups         prometheus.Gauge
}

var _ controller.Metrics = &Collector{}

func New() *Collector {
	return &Collector{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName("thermostat", "controller", "resolutions_total"),
			Help: "Number of setpoint resolutions, by source",
		}, []string{"source"}),
		setpointChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName("thermostat", "controller", "setpoint_changes_total"),
			Help: "Number of setpoint changes, by scope",
		}, []string{"scope"}),
		dispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName("thermostat", "controller", "dispatch_errors_total"),
			Help: "Number of failed attempts to set a device's setpoint",
		}, []string{"device"}),
		powerChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName("thermostat", "controller", "power_changes_total"),
			Help: "Number of times the heating was switched on or off",
		}, []string{"state"}),
		wakeups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName("thermostat", "controller", "scheduled_wakeups"),
			Help: "Number of scheduled re-evaluations",
		}),
	}
}

func (c *Collector) Resolved(source string) {
	c.resolutions.WithLabelValues(source).Inc()
}

func (c *Collector) SetpointChanged(scope string, _ float64) {
	c.setpointChanges.WithLabelValues(scope).Inc()
}

func (c *Collector) DispatchFailed(device string) {
	c.dispatchErrors.WithLabelValues(device).Inc()
}

func (c *Collector) PowerChanged(on bool) {
	state := "off"
	if on {
		state = "on"
	}
	c.powerChanges.WithLabelValues(state).Inc()
}

func (c *Collector) WakeupsScheduled(wakeups int) {
	c.wakeups.Set(float64(wakeups))
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- globalSetpoint
	ch <- globalCalculatedSetpoint
	ch <- globalManual
	ch <- zoneSetpoint
	ch <- powerState
	ch <- nextWakeup
	c.resolutions.Describe(ch)
	c.setpointChanges.Describe(ch)
	c.dispatchErrors.Describe(ch)
	c.powerChanges.Describe(ch)
	c.wakeups.Describe(ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.resolutions.Collect(ch)
	c.setpointChanges.Collect(ch)
	c.dispatchErrors.Collect(ch)
	c.powerChanges.Collect(ch)
	c.wakeups.Collect(ch)

	if c.Controller == nil {
		return
	}
	status := c.Controller.Status()
	if status.Level != nil {
		ch <- prometheus.MustNewConstMetric(globalSetpoint, prometheus.GaugeValue, *status.Level)
	}
	if status.Calculated != nil {
		ch <- prometheus.MustNewConstMetric(globalCalculatedSetpoint, prometheus.GaugeValue, *status.Calculated)
	}
	ch <- prometheus.MustNewConstMetric(globalManual, prometheus.GaugeValue, boolValue(status.Overridden()))
	ch <- prometheus.MustNewConstMetric(powerState, prometheus.GaugeValue, boolValue(status.Power))

	zones := make([]string, 0, len(status.Zones))
	for zone := range status.Zones {
		zones = append(zones, zone)
	}
	sort.Strings(zones)
	for _, zone := range zones {
		ch <- prometheus.MustNewConstMetric(zoneSetpoint, prometheus.GaugeValue, status.Zones[zone], zone)
	}
	for _, wakeup := range status.Wakeups {
		ch <- prometheus.MustNewConstMetric(nextWakeup, prometheus.GaugeValue, float64(wakeup.At.Unix()), wakeup.Source.String())
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
