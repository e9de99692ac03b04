package verification

import "errors"

var (
	// A requirement of the run was not met before any state was mutated
	ErrPrecondition error = errors.New("precondition violated")

	// An accounting invariant broke during the run; external state may be left inconsistent
	ErrInvariant error = errors.New("invariant violated")

	// The run completed but the depositor did not end up with more than it started with
	ErrNoProfit error = errors.New("run produced no profit")
)
