package metrics

import (
	"time"

	"github.com/kilianp07/ecodispatch/core/results"
)

// RunEvent summarises one compile and solve run.
type RunEvent struct {
	RunID           string
	Strategy        string
	Status          string
	Steps           int
	Variables       int
	Constraints     int
	Objective       float64
	CompileDuration time.Duration
	SolveDuration   time.Duration
	Time            time.Time
}

// Sink records run events for observability purposes.
type Sink interface {
	RecordRun(ev RunEvent) error
}

// ResultsRecorder is implemented by sinks able to store the dispatch table of
// an optimal run.
type ResultsRecorder interface {
	RecordResults(runID string, res *results.Results) error
}

// NopSink implements Sink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error                     { return nil }
func (NopSink) RecordResults(string, *results.Results) error { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordResults forwards the table to the sinks that store tables.
func (m *MultiSink) RecordResults(runID string, res *results.Results) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ResultsRecorder); ok {
			if err := rec.RecordResults(runID, res); err != nil {
				return err
			}
		}
	}
	return nil
}
