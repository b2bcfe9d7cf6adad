// Package compiler turns a model.System into a program.Program through one of
// a closed set of named strategies.
package compiler

import (
	"errors"
	"fmt"

	"github.com/kilianp07/ecodispatch/core/logger"
	"github.com/kilianp07/ecodispatch/core/model"
	"github.com/kilianp07/ecodispatch/core/program"
)

// ErrUnknownStrategy is returned for identifiers outside the enumeration.
var ErrUnknownStrategy = errors.New("unknown strategy")

// StrategyID enumerates the available compilation strategies.
type StrategyID int

const (
	// PriceTaker maximises profit at exogenous prices.
	PriceTaker StrategyID = iota + 1
)

// Strategies lists every strategy in declaration order.
func Strategies() []StrategyID { return []StrategyID{PriceTaker} }

// String returns the configuration name of the strategy.
func (id StrategyID) String() string {
	switch id {
	case PriceTaker:
		return "price_taker"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a configuration name to its identifier.
func ParseStrategy(name string) (StrategyID, error) {
	for _, id := range Strategies() {
		if id.String() == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// Strategy compiles a system into a program. Implementations must not retain
// or mutate the system.
type Strategy interface {
	Compile(sys *model.System, opts Options) (*program.Program, error)
}

// Strategy returns the implementation behind id.
func (id StrategyID) Strategy() (Strategy, error) {
	switch id {
	case PriceTaker:
		return priceTaker{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(id))
	}
}

// Compile validates sys and compiles it with the strategy id.
func Compile(id StrategyID, sys *model.System, opts Options) (*program.Program, error) {
	s, err := id.Strategy()
	if err != nil {
		return nil, err
	}
	return s.Compile(sys, opts)
}

// Options carries the ambient defaults of a compilation. The zero value is
// usable.
type Options struct {
	// RampFrequency applies to ramp limits that do not set their own.
	RampFrequency int
	Logger        logger.Logger
}

// DefaultOptions checks ramp limits at every step.
func DefaultOptions() Options { return Options{RampFrequency: 1} }

func (o Options) withDefaults() Options {
	if o.RampFrequency <= 0 {
		o.RampFrequency = 1
	}
	o.Logger = logger.OrNop(o.Logger)
	return o
}
