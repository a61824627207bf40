package model

import "fmt"

// InvariantViolation marks an internal bookkeeping bug. It aborts the run;
// provider failures never produce one.
type InvariantViolation struct {
	msg string
}

func (e *InvariantViolation) Error() string { return "invariant violation: " + e.msg }

func invariantErrorf(format string, args ...any) error {
	return &InvariantViolation{msg: fmt.Sprintf(format, args...)}
}
