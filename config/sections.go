package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/ecodispatch/core/compiler"
	"github.com/kilianp07/ecodispatch/core/logger"
	"github.com/kilianp07/ecodispatch/core/solver"
	"github.com/kilianp07/ecodispatch/pkg/export"
)

// CompilerConfig selects the strategy and its ambient defaults.
type CompilerConfig struct {
	Strategy string `json:"strategy"`
	// RampFrequency applies to ramp limits without their own frequency.
	RampFrequency int `json:"ramp_frequency"`
}

// SetDefaults applies sane defaults.
func (c *CompilerConfig) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = compiler.PriceTaker.String()
	}
	if c.RampFrequency == 0 {
		c.RampFrequency = 1
	}
}

// Validate checks the strategy name and ramp frequency.
func (c CompilerConfig) Validate() error {
	if _, err := compiler.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if c.RampFrequency < 1 {
		return fmt.Errorf("ramp_frequency must be at least 1, got %d", c.RampFrequency)
	}
	return nil
}

// StrategyID returns the configured strategy. Validate must have passed.
func (c CompilerConfig) StrategyID() compiler.StrategyID {
	id, _ := compiler.ParseStrategy(c.Strategy)
	return id
}

// Options returns the compiler options for this configuration.
func (c CompilerConfig) Options(log logger.Logger) compiler.Options {
	return compiler.Options{RampFrequency: c.RampFrequency, Logger: log}
}

// DefaultSolveTimeLimit bounds a solve when the configuration sets no limit.
// The dense simplex needs tens of seconds around 100 steps.
const DefaultSolveTimeLimit = 2 * time.Minute

// SolverConfig is passed through to the solver.
type SolverConfig struct {
	Tolerance float64       `json:"tolerance"`
	TimeLimit time.Duration `json:"time_limit"`
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.Tolerance == 0 {
		c.Tolerance = 1e-7
	}
	if c.TimeLimit == 0 {
		c.TimeLimit = DefaultSolveTimeLimit
	}
}

// Validate checks the tolerance and time limit ranges.
func (c SolverConfig) Validate() error {
	if c.Tolerance <= 0 || c.Tolerance >= 1 {
		return fmt.Errorf("tolerance must lie in (0, 1), got %v", c.Tolerance)
	}
	if c.TimeLimit < 0 {
		return fmt.Errorf("time_limit must not be negative, got %s", c.TimeLimit)
	}
	return nil
}

// Options returns the solver options for this configuration.
func (c SolverConfig) Options() solver.Options {
	return solver.Options{Tolerance: c.Tolerance, TimeLimit: c.TimeLimit}
}

// OutputConfig controls how results are rendered.
type OutputConfig struct {
	Format string `json:"format"`
	// Path is the output file. Empty writes to stdout.
	Path string `json:"path"`
	// Precision is the number of digits after the point. Unset renders
	// floats losslessly.
	Precision *int `json:"precision"`
}

// SetDefaults applies sane defaults.
func (c *OutputConfig) SetDefaults() {
	if c.Format == "" {
		c.Format = string(export.FormatCSV)
	}
}

// Validate checks the format and precision.
func (c OutputConfig) Validate() error {
	switch export.Format(c.Format) {
	case export.FormatCSV, export.FormatJSON:
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if c.Precision != nil && *c.Precision < 0 {
		return fmt.Errorf("precision must not be negative, got %d", *c.Precision)
	}
	return nil
}

// Digits returns the precision to pass to the exporter.
func (c OutputConfig) Digits() int {
	if c.Precision == nil {
		return export.Lossless
	}
	return *c.Precision
}
