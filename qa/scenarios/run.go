package scenarios

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/ecodispatch/app"
	"github.com/kilianp07/ecodispatch/core/compiler"
	"github.com/kilianp07/ecodispatch/core/logger"
	"github.com/kilianp07/ecodispatch/core/solver"
	"github.com/kilianp07/ecodispatch/infra/metrics"
	"github.com/kilianp07/ecodispatch/infra/solver/simplex"
)

const tolerance = 1e-6

func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	sys, err := sc.LoadSystem()
	if err != nil {
		t.Fatalf("load system: %v", err)
	}

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	runner := app.NewRunner(compiler.PriceTaker, compiler.DefaultOptions(), simplex.New(logger.Nop{}), solver.Options{}, sink, logger.Nop{})

	run, err := runner.Run(context.Background(), sys)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := run.Solution.Status.String(); got != sc.Expected.Status {
		t.Fatalf("scenario %s expected status %s, got %s (%s)", sc.Name, sc.Expected.Status, got, run.Solution.Detail)
	}
	if n, err := testutil.GatherAndCount(reg, "dispatch_runs_total"); err != nil || n != 1 {
		t.Errorf("expected one run series, got %d (%v)", n, err)
	}
	if run.Results == nil {
		return
	}

	if want := sc.Expected.Objective; want != nil && !near(run.Results.Objective, *want) {
		t.Errorf("scenario %s expected objective %v, got %v", sc.Name, *want, run.Results.Objective)
	}
	for name, want := range sc.Expected.Columns {
		got, ok := run.Results.Column(name)
		if !ok {
			t.Errorf("scenario %s: missing column %s", sc.Name, name)
			continue
		}
		if len(got) != len(want) {
			t.Errorf("scenario %s: column %s has %d steps, want %d", sc.Name, name, len(got), len(want))
			continue
		}
		for i := range want {
			if !near(got[i], want[i]) {
				t.Errorf("scenario %s: %s[%d] = %v, want %v", sc.Name, name, i, got[i], want[i])
			}
		}
	}
}

func near(a, b float64) bool {
	d := a - b
	return d < tolerance && d > -tolerance
}
