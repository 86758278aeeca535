package routing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStepInput marks structural problems in a submitted step set:
	// an empty area code, the same area declared twice, or a predecessor
	// referencing an area that is not part of the set. These are rejected
	// before validation runs.
	ErrInvalidStepInput = errors.New("invalid step input")

	// ErrCyclicOrder is an invariant violation: the orderer was invoked on a
	// graph that contains a cycle. Persisted routings pass validation at
	// write time, so hitting this means corrupted data or a bypassed write
	// path. It is not a recoverable validation outcome.
	ErrCyclicOrder = errors.New("topological order requested for cyclic graph")
)

// Structural fault kinds carried by StepInputError.
const (
	FaultEmptyArea           = "empty_area_code"
	FaultDuplicateArea       = "duplicate_area_code"
	FaultDanglingPredecessor = "dangling_predecessor"
)

// StepInputError describes why a step set could not form a graph.
// It unwraps to ErrInvalidStepInput so callers can match the class.
type StepInputError struct {
	Fault       string
	AreaCode    string
	Predecessor string
}

func (e *StepInputError) Error() string {
	switch e.Fault {
	case FaultEmptyArea:
		return "invalid step input: empty area code"
	case FaultDuplicateArea:
		return fmt.Sprintf("invalid step input: duplicate area code %q", e.AreaCode)
	case FaultDanglingPredecessor:
		return fmt.Sprintf("invalid step input: area %q lists unknown predecessor %q", e.AreaCode, e.Predecessor)
	}
	return fmt.Sprintf("invalid step input: area %q", e.AreaCode)
}

func (e *StepInputError) Unwrap() error {
	return ErrInvalidStepInput
}

// IsInvalidInput reports whether err is a structural input error.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidStepInput)
}
