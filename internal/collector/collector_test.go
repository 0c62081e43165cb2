package collector

import (
	"strings"
	"testing"
	"time"

	"github.com/clambin/thermostat-control/internal/controller"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type fakeController controller.Status

func (f fakeController) Status() controller.Status {
	return controller.Status(f)
}

func TestCollector(t *testing.T) {
	level, calculated := 22.0, 21.0
	c := New()
	c.Controller = fakeController{
		State: controller.State{Level: &level, Calculated: &calculated, Power: true},
		Zones: map[string]float64{"bathroom": 23, "bedroom": 18.5},
		Wakeups: []controller.Wakeup{
			{Source: controller.SourceGlobal, At: time.Date(2024, time.March, 4, 22, 0, 0, 0, time.UTC)},
		},
	}

	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(`
# HELP thermostat_global_calculated_setpoint Global setpoint last calculated from the schedule
# TYPE thermostat_global_calculated_setpoint gauge
thermostat_global_calculated_setpoint 21
# HELP thermostat_global_manual 1 if the global setpoint was set manually
# TYPE thermostat_global_manual gauge
thermostat_global_manual 1
# HELP thermostat_global_setpoint Displayed global setpoint
# TYPE thermostat_global_setpoint gauge
thermostat_global_setpoint 22
# HELP thermostat_power_state 1 if the heating is switched on
# TYPE thermostat_power_state gauge
thermostat_power_state 1
# HELP thermostat_wakeup_next_timestamp_seconds Time of the next scheduled re-evaluation
# TYPE thermostat_wakeup_next_timestamp_seconds gauge
thermostat_wakeup_next_timestamp_seconds{source="global"} 1.7095896e+09
# HELP thermostat_zone_setpoint Setpoint last sent to the zone's devices
# TYPE thermostat_zone_setpoint gauge
thermostat_zone_setpoint{zone="bathroom"} 23
thermostat_zone_setpoint{zone="bedroom"} 18.5
`),
		"thermostat_global_setpoint",
		"thermostat_global_calculated_setpoint",
		"thermostat_global_manual",
		"thermostat_power_state",
		"thermostat_zone_setpoint",
		"thermostat_wakeup_next_timestamp_seconds",
	))
}

func TestCollector_Metrics(t *testing.T) {
	c := New()
	c.Resolved("init")
	c.Resolved("zone.1")
	c.Resolved("zone.1")
	c.SetpointChanged("global", 21)
	c.DispatchFailed("mqtt:hall")
	c.PowerChanged(false)
	c.WakeupsScheduled(3)

	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(`
# HELP thermostat_controller_dispatch_errors_total Number of failed attempts to set a device's setpoint
# TYPE thermostat_controller_dispatch_errors_total counter
thermostat_controller_dispatch_errors_total{device="mqtt:hall"} 1
# HELP thermostat_controller_power_changes_total Number of times the heating was switched on or off
# TYPE thermostat_controller_power_changes_total counter
thermostat_controller_power_changes_total{state="off"} 1
# HELP thermostat_controller_resolutions_total Number of setpoint resolutions, by source
# TYPE thermostat_controller_resolutions_total counter
thermostat_controller_resolutions_total{source="init"} 1
thermostat_controller_resolutions_total{source="zone.1"} 2
# HELP thermostat_controller_scheduled_wakeups Number of scheduled re-evaluations
# TYPE thermostat_controller_scheduled_wakeups gauge
thermostat_controller_scheduled_wakeups 3
# HELP thermostat_controller_setpoint_changes_total Number of setpoint changes, by scope
# TYPE thermostat_controller_setpoint_changes_total counter
thermostat_controller_setpoint_changes_total{scope="global"} 1
`),
		"thermostat_controller_resolutions_total",
		"thermostat_controller_setpoint_changes_total",
		"thermostat_controller_dispatch_errors_total",
		"thermostat_controller_power_changes_total",
		"thermostat_controller_scheduled_wakeups",
	))
}
