package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ecodispatch/core/compiler"
	"github.com/kilianp07/ecodispatch/core/model"
	"github.com/kilianp07/ecodispatch/pkg/export"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `compiler:
  strategy: price_taker
  ramp_frequency: 2
solver:
  tolerance: 1e-6
  time_limit: 5s
logging:
  level: debug
metrics:
  sinks:
    - type: prometheus
      conf:
        push_url: http://localhost:9091
output:
  format: json
  precision: 3
mqtt:
  broker: "tcp://localhost:1883"
  topic: "plant/dispatch"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, compiler.PriceTaker, cfg.Compiler.StrategyID())
	assert.Equal(t, 2, cfg.Compiler.RampFrequency)
	assert.Equal(t, 1e-6, cfg.Solver.Tolerance)
	assert.Equal(t, 5*time.Second, cfg.Solver.TimeLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
	require.Len(t, cfg.Metrics.Sinks, 1)
	assert.Equal(t, "prometheus", cfg.Metrics.Sinks[0].Type)
	assert.Equal(t, "http://localhost:9091", cfg.Metrics.Sinks[0].Conf["push_url"])
	assert.Equal(t, export.FormatJSON, export.Format(cfg.Output.Format))
	assert.Equal(t, 3, cfg.Output.Digits())
	assert.Equal(t, "plant/dispatch", cfg.MQTT.Topic)
	assert.Equal(t, "ecodispatch", cfg.MQTT.ClientID)

	opts := cfg.Solver.Options()
	assert.Equal(t, 5*time.Second, opts.TimeLimit)
	assert.Equal(t, 2, cfg.Compiler.Options(nil).RampFrequency)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "price_taker", cfg.Compiler.Strategy)
	assert.Equal(t, 1, cfg.Compiler.RampFrequency)
	assert.Equal(t, 1e-7, cfg.Solver.Tolerance)
	assert.Equal(t, DefaultSolveTimeLimit, cfg.Solver.TimeLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, export.Lossless, cfg.Output.Digits())
	assert.Empty(t, cfg.MQTT.ClientID)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ECO_SOLVER__TOLERANCE", "0.001")
	t.Setenv("ECO_OUTPUT__FORMAT", "json")
	path := writeFile(t, "config.json", `{"solver": {"tolerance": 1e-5}, "output": {"format": "csv"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.001, cfg.Solver.Tolerance)
	assert.Equal(t, "json", cfg.Output.Format)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"strategy":  "compiler:\n  strategy: market_maker\n",
		"frequency": "compiler:\n  ramp_frequency: -1\n",
		"tolerance": "solver:\n  tolerance: 2\n",
		"format":    "output:\n  format: xml\n",
		"precision": "output:\n  precision: -2\n",
		"level":     "logging:\n  level: chatty\n",
		"mqtt qos":  "mqtt:\n  broker: tcp://x:1883\n  qos: 3\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", data))
			assert.Error(t, err)
		})
	}

	_, err := Load(writeFile(t, "config.toml", "x = 1"))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadScenario_Reference(t *testing.T) {
	sys, err := LoadScenario("testdata/reference.yaml")
	require.NoError(t, err)
	require.NoError(t, sys.Validate())

	assert.Equal(t, []int{0, 1}, sys.Horizon.Labels())
	assert.Equal(t, []model.Resource{{Name: "steam", Unit: "MW"}, {Name: "electricity", Unit: "MW"}}, sys.Resources)
	require.Len(t, sys.Components, 5)

	src, ok := sys.Components[0].(*model.Source)
	require.True(t, ok)
	assert.Equal(t, "steam", src.Produces.Name)
	assert.Equal(t, model.Profile{3, 3}, src.Capacity.Max)

	conv, ok := sys.Components[1].(*model.Converter)
	require.True(t, ok)
	assert.Equal(t, "steam", conv.CapacityResource.Name)
	m, err := conv.Transfer.Multipliers(conv.CapacityResource, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m[model.Resource{Name: "electricity", Unit: "MW"}], 1e-12)

	st, ok := sys.Components[3].(*model.Storage)
	require.True(t, ok)
	assert.Equal(t, 0.9, st.RoundTripEfficiency)
	assert.Equal(t, model.Profile{1, 1}, st.Capacity)

	sink, ok := sys.Components[4].(*model.Sink)
	require.True(t, ok)
	require.Len(t, sink.Cashflows, 1)
	assert.Equal(t, model.Revenue, sink.Cashflows[0].Kind)
	assert.Equal(t, 1.0, sink.Cashflows[0].Alpha)

	p, err := compiler.Compile(compiler.PriceTaker, sys, compiler.DefaultOptions())
	require.NoError(t, err)
	assert.Positive(t, p.NumVariables())
}

func TestLoadScenario_JSONWithRamp(t *testing.T) {
	sys, err := LoadScenario("testdata/ramped.json")
	require.NoError(t, err)
	require.NoError(t, sys.Validate())
	assert.Equal(t, []int{10, 20, 30}, sys.Horizon.Labels())

	plant := sys.Components[0].(*model.Source)
	require.NotNil(t, plant.Ramp)
	assert.Equal(t, 2.0, plant.Ramp.Up)
	assert.True(t, math.IsInf(plant.Ramp.Down, 1))
	require.NotNil(t, plant.Ramp.InitialFlow)
	assert.Equal(t, 1.0, *plant.Ramp.InitialFlow)
	require.Len(t, plant.Cashflows, 1)
	assert.Equal(t, model.Cost, plant.Cashflows[0].Kind)
	assert.Equal(t, model.Profile{1, 2, 3}, plant.Cashflows[0].Prices)
	assert.Equal(t, -1.0, plant.Cashflows[0].Coefficient(1))

	load := sys.Components[1].(*model.Sink)
	assert.True(t, load.Fixed)
	assert.Equal(t, "electricity", load.Consumes.Name)
}

func TestLoadScenario_Errors(t *testing.T) {
	var ce *model.ConfigurationError

	_, err := LoadScenario(writeFile(t, "s.yaml", "steps: 1\ncomponents:\n  - name: x\n    kind: teleporter\n"))
	require.Error(t, err)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "kind", ce.Field)

	_, err = LoadScenario(writeFile(t, "s.yaml", "steps: 1\ncomponents:\n  - name: x\n    kind: source\n    produces: [a, b]\n"))
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "produces", ce.Field)

	_, err = LoadScenario(writeFile(t, "s.yaml", "steps: 1\ncomponents:\n  - name: x\n    kind: sink\n    consumes: a\n    cashflows:\n      - name: c\n        kind: tax\n"))
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "cashflow c", ce.Field)

	_, err = LoadScenario(writeFile(t, "s.txt", ""))
	assert.Error(t, err)
}

func TestLoadScenario_UndeclaredResourceFailsValidation(t *testing.T) {
	sys, err := LoadScenario(writeFile(t, "s.yaml", "steps: 1\nresources: [{name: a}]\ncomponents:\n  - name: x\n    kind: source\n    produces: gas\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, sys.Validate(), model.ErrConfiguration)
}

func TestLoadScenario_StorageRates(t *testing.T) {
	sys, err := LoadScenario(writeFile(t, "s.yaml", `steps: 1
resources: [{name: electricity}]
components:
  - name: tank
    kind: storage
    resource: electricity
    round_trip_efficiency: 1
    max_charge_rate: 0
    capacity:
      max: [4]
`))
	require.NoError(t, err)
	st := sys.Components[0].(*model.Storage)
	require.NotNil(t, st.MaxChargeRate)
	assert.Zero(t, st.ChargeLimit(0))
	assert.Nil(t, st.MaxDischargeRate)
	assert.Equal(t, 4.0, st.DischargeLimit(0))
}
