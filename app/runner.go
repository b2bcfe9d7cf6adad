// Package app wires compilation, solving, result extraction and the metrics
// sinks into a single dispatch run.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/ecodispatch/config"
	"github.com/kilianp07/ecodispatch/core/compiler"
	"github.com/kilianp07/ecodispatch/core/logger"
	coremetrics "github.com/kilianp07/ecodispatch/core/metrics"
	"github.com/kilianp07/ecodispatch/core/model"
	"github.com/kilianp07/ecodispatch/core/program"
	"github.com/kilianp07/ecodispatch/core/results"
	"github.com/kilianp07/ecodispatch/core/solver"
	infralogger "github.com/kilianp07/ecodispatch/infra/logger"
	_ "github.com/kilianp07/ecodispatch/infra/metrics" // registers built-in sinks
	"github.com/kilianp07/ecodispatch/infra/mqtt"
	"github.com/kilianp07/ecodispatch/infra/solver/simplex"
)

// Run statuses reported to sinks in addition to the solver statuses.
const (
	StatusConfigurationError = "configuration_error"
	StatusCompileError       = "compile_error"
)

// Run is the outcome of one dispatch run.
type Run struct {
	ID       string
	Program  *program.Program
	Solution *solver.Solution
	// Results is nil unless the solution is optimal.
	Results *results.Results
}

// Runner compiles a system, solves the program and reports the run.
type Runner struct {
	Strategy     compiler.StrategyID
	CompilerOpts compiler.Options
	Solver       solver.Solver
	SolverOpts   solver.Options
	Sink         coremetrics.Sink
	log          logger.Logger
	closers      []func()
	newID        func() string
	now          func() time.Time
}

// NewRunner returns a Runner using the given collaborators. A nil sink
// discards run events.
func NewRunner(id compiler.StrategyID, copts compiler.Options, s solver.Solver, sopts solver.Options, sink coremetrics.Sink, log logger.Logger) *Runner {
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	return &Runner{
		Strategy:     id,
		CompilerOpts: copts,
		Solver:       s,
		SolverOpts:   sopts,
		Sink:         sink,
		log:          logger.OrNop(log),
		newID:        uuid.NewString,
		now:          time.Now,
	}
}

// New builds a Runner from the configuration: the simplex solver, the
// configured metrics sinks and the MQTT publisher when a broker is set.
func New(cfg *config.Config) (*Runner, error) {
	if err := infralogger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	log := infralogger.New("runner")

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	closers := closersOf(sink)
	if cfg.MQTT.Broker != "" {
		pub, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		closers = append(closers, pub.Disconnect)
		sink = coremetrics.NewMultiSink(sink, pub)
	}

	r := NewRunner(
		cfg.Compiler.StrategyID(),
		cfg.Compiler.Options(infralogger.New("compiler")),
		simplex.New(infralogger.New("simplex")),
		cfg.Solver.Options(),
		sink,
		log,
	)
	r.closers = closers
	return r, nil
}

// Run compiles sys, solves it and extracts the dispatch table. Compilation
// and configuration errors are returned as errors; a non-optimal solve is
// not an error and yields a Run without Results. Sink failures are logged.
func (r *Runner) Run(ctx context.Context, sys *model.System) (*Run, error) {
	run := &Run{ID: r.newID()}
	ev := coremetrics.RunEvent{RunID: run.ID, Strategy: r.Strategy.String(), Time: r.now()}
	if sys != nil {
		ev.Steps = sys.Horizon.Len()
	}

	start := time.Now()
	p, err := compiler.Compile(r.Strategy, sys, r.CompilerOpts)
	ev.CompileDuration = time.Since(start)
	if err != nil {
		ev.Status = StatusCompileError
		if errors.Is(err, model.ErrConfiguration) {
			ev.Status = StatusConfigurationError
		}
		r.record(ev)
		return nil, err
	}
	run.Program = p
	ev.Variables = p.NumVariables()
	ev.Constraints = p.NumConstraints()

	sol, err := r.Solver.Solve(ctx, p, r.SolverOpts)
	if err != nil {
		ev.Status = solver.StatusError.String()
		r.record(ev)
		return nil, fmt.Errorf("solve: %w", err)
	}
	run.Solution = sol
	ev.Status = sol.Status.String()
	ev.SolveDuration = sol.Duration
	ev.Objective = sol.Objective

	if sol.IsOptimal() {
		res, err := results.Extract(p, sol)
		if err != nil {
			ev.Status = solver.StatusError.String()
			r.record(ev)
			return nil, err
		}
		run.Results = res
	} else {
		r.log.Warnf("run %s: %s: %s", run.ID, sol.Status, sol.Detail)
	}
	r.record(ev)
	if run.Results != nil {
		if rec, ok := r.Sink.(coremetrics.ResultsRecorder); ok {
			if err := rec.RecordResults(run.ID, run.Results); err != nil {
				r.log.Errorf("record results: %v", err)
			}
		}
	}
	r.log.Infof("run %s: %s objective=%g vars=%d cons=%d", run.ID, ev.Status, ev.Objective, ev.Variables, ev.Constraints)
	return run, nil
}

func (r *Runner) record(ev coremetrics.RunEvent) {
	if err := r.Sink.RecordRun(ev); err != nil {
		r.log.Errorf("record run: %v", err)
	}
}

func closersOf(sink coremetrics.Sink) []func() {
	if m, ok := sink.(*coremetrics.MultiSink); ok {
		var out []func()
		for _, s := range m.Sinks {
			out = append(out, closersOf(s)...)
		}
		return out
	}
	switch c := sink.(type) {
	case interface{ Close() }:
		return []func(){c.Close}
	case interface{ Disconnect() }:
		return []func(){c.Disconnect}
	}
	return nil
}

// Close releases the sinks' connections.
func (r *Runner) Close() {
	for _, c := range r.closers {
		c()
	}
}
