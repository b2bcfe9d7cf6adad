package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/ecodispatch/core/metrics"
)

// PushConfig points a PromSink at a Prometheus Pushgateway. Short-lived CLI
// runs push their metrics instead of being scraped.
type PushConfig struct {
	URL string `json:"push_url"`
	Job string `json:"job"`
}

// PromSink records compile and solve runs in Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	compileTime *prometheus.HistogramVec
	solveTime   *prometheus.HistogramVec
	size        *prometheus.GaugeVec
	objective   *prometheus.GaugeVec
	pusher      *push.Pusher
}

// NewPromSinkWithRegistry registers run metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_runs_total",
		Help: "Total number of compile and solve runs by outcome",
	}, []string{"strategy", "status"})); err != nil {
		return nil, err
	}
	if s.compileTime, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_compile_seconds",
		Help:    "Time spent compiling a system into a program",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})); err != nil {
		return nil, err
	}
	if s.solveTime, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_solve_seconds",
		Help:    "Time spent solving a compiled program",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy", "status"})); err != nil {
		return nil, err
	}
	if s.size, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dispatch_program_size",
		Help: "Dimensions of the last compiled program",
	}, []string{"strategy", "dimension"})); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dispatch_objective_value",
		Help: "Objective value of the last optimal run",
	}, []string{"strategy"})); err != nil {
		return nil, err
	}
	return s, nil
}

// NewPushSink returns a PromSink on its own registry that pushes to the
// configured gateway after every run.
func NewPushSink(cfg PushConfig) (*PromSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("prometheus push sink requires push_url")
	}
	if cfg.Job == "" {
		cfg.Job = "ecodispatch"
	}
	reg := prometheus.NewRegistry()
	s, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		return nil, err
	}
	s.pusher = push.New(cfg.URL, cfg.Job).Gatherer(reg)
	return s, nil
}

// register adds c to reg, reusing the collector already registered under the
// same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates the run counters, durations and program size. Runs that
// never reached the solver only count towards compile time.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.Strategy, ev.Status).Inc()
	s.compileTime.WithLabelValues(ev.Strategy).Observe(ev.CompileDuration.Seconds())
	if ev.SolveDuration > 0 {
		s.solveTime.WithLabelValues(ev.Strategy, ev.Status).Observe(ev.SolveDuration.Seconds())
	}
	s.size.WithLabelValues(ev.Strategy, "variables").Set(float64(ev.Variables))
	s.size.WithLabelValues(ev.Strategy, "constraints").Set(float64(ev.Constraints))
	if ev.Status == "optimal" {
		s.objective.WithLabelValues(ev.Strategy).Set(ev.Objective)
	}
	if s.pusher != nil {
		return s.pusher.Push()
	}
	return nil
}
