package config

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clambin/thermostat-control/internal/configuration"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const heatingConfig = `
defaultTemperature: 20
globalLimit:
  minTemperature: 15
  maxTemperature: 25
globalSchedules:
  - timeFrom: "06:00"
    timeTo: "22:00"
    mode: absolute
    setpoint: 21
zones:
  - name: office
    limit:
      maxTemperature: 22
    devices: [ "mqtt:office", "tado:1" ]
`

func TestShowConfig(t *testing.T) {
	h, err := configuration.Load(strings.NewReader(heatingConfig), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, ShowConfig(h, json.NewEncoder(&out)))
	assert.Equal(t, `{"unit":"celsius","defaultTemperature":20,"globalLimit":"[15.0, 25.0]","rules":1,"zones":[{"index":0,"name":"office","limit":"[-, 22.0]","rules":0,"devices":["mqtt:office","tado:1"]}]}
`, out.String())

	out.Reset()
	require.NoError(t, ShowConfig(h, yaml.NewEncoder(&out)))
	var r report
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &r))
	assert.Equal(t, "[15.0, 25.0]", r.GlobalLimit)
	require.Len(t, r.Zones, 1)
	assert.Equal(t, []string{"mqtt:office", "tado:1"}, r.Zones[0].Devices)
}

func Test_showConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heating.yaml")
	require.NoError(t, os.WriteFile(path, []byte(heatingConfig), 0o644))

	testCases := []struct {
		name    string
		format  string
		wantErr assert.ErrorAssertionFunc
		want    string
	}{
		{name: "yaml", format: "yaml", wantErr: assert.NoError, want: "name: office"},
		{name: "json", format: "json", wantErr: assert.NoError, want: `"name": "office"`},
		{name: "invalid", format: "xml", wantErr: assert.Error},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := viper.New()
			v.Set("format", tt.format)
			var out bytes.Buffer
			tt.wantErr(t, showConfig(&out, v)(nil, []string{path}))
			assert.Contains(t, out.String(), tt.want)
		})
	}
}
