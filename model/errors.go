package model

import (
	"fmt"

	"github.com/pkg/errors"
)

// The failure taxonomy for a model run. Callers need to tell apart a
// misconfigured run (fix the inputs), a structurally non-identifiable model
// (fix the map), and a sampling failure (rerun the chain). All three are
// created through the helpers below so stack traces come along for free.

// ConfigError indicates malformed run inputs: bad adjacency, area count
// mismatch, non-positive iteration counts. Always raised before sampling
// starts.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

// Configf creates a wrapped ConfigError
func Configf(format string, args ...interface{}) error {
	return errors.WithStack(&ConfigError{Msg: fmt.Sprintf(format, args...)})
}

// IsConfigError returns true if err is (or wraps) a ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// NonIdentifiableError indicates a model whose posterior is not proper:
// an isolated area gives a CAR conditional with a zero-length neighbor sum.
// Caught at model-build time, never during sampling.
type NonIdentifiableError struct {
	Area int // offending area index, -1 if not area-specific
	Msg  string
}

func (e *NonIdentifiableError) Error() string {
	if e.Area >= 0 {
		return fmt.Sprintf("%s (area %d)", e.Msg, e.Area)
	}
	return e.Msg
}

// NonIdentifiablef creates a wrapped NonIdentifiableError for the given area
func NonIdentifiablef(area int, format string, args ...interface{}) error {
	return errors.WithStack(&NonIdentifiableError{Area: area, Msg: fmt.Sprintf(format, args...)})
}

// IsNonIdentifiable returns true if err is (or wraps) a NonIdentifiableError
func IsNonIdentifiable(err error) bool {
	var ne *NonIdentifiableError
	return errors.As(err, &ne)
}

// DegenerateSampleError indicates a chain produced a non-finite draw. The
// run must fail loudly naming the chain and sweep; a failed chain is rerun
// in full, never resumed.
type DegenerateSampleError struct {
	Chain int
	Sweep int
	What  string
}

func (e *DegenerateSampleError) Error() string {
	return fmt.Sprintf("degenerate sample in chain %d at sweep %d: %s", e.Chain, e.Sweep, e.What)
}

// Degeneratef creates a wrapped DegenerateSampleError
func Degeneratef(chain int, sweep int, format string, args ...interface{}) error {
	return errors.WithStack(&DegenerateSampleError{Chain: chain, Sweep: sweep, What: fmt.Sprintf(format, args...)})
}

// IsDegenerateSample returns true if err is (or wraps) a DegenerateSampleError
func IsDegenerateSample(err error) bool {
	var de *DegenerateSampleError
	return errors.As(err, &de)
}

// NumericError indicates a diagnostic computation blew up (CPO harmonic
// mean, non-finite deviance component). Reported per disease so the rest of
// a comparison table still comes out.
type NumericError struct {
	What string
}

func (e *NumericError) Error() string {
	return e.What
}

// Numericf creates a wrapped NumericError
func Numericf(format string, args ...interface{}) error {
	return errors.WithStack(&NumericError{What: fmt.Sprintf(format, args...)})
}

// IsNumericError returns true if err is (or wraps) a NumericError
func IsNumericError(err error) bool {
	var ne *NumericError
	return errors.As(err, &ne)
}
