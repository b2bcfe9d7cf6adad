package compiler

import (
	"errors"
	"fmt"
)

// ErrCompilation matches every *CompilationError with errors.Is.
var ErrCompilation = errors.New("compilation error")

// CompilationError means the compiler could not express valid input. It is a
// defect in the compiler, not a problem with the system description.
type CompilationError struct {
	Strategy string
	Reason   string
	Err      error
}

func (e *CompilationError) Error() string {
	msg := fmt.Sprintf("compilation error (%s): %s", e.Strategy, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrCompilation.
func (e *CompilationError) Is(target error) bool { return target == ErrCompilation }

func (e *CompilationError) Unwrap() error { return e.Err }
