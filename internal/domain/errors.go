package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every component.
var (
	// ErrMalformedRecord marks an incoming payload whose fields cannot be
	// normalized. It is never swallowed by the reconciler.
	ErrMalformedRecord = errors.New("malformed draw record")

	// ErrGenerationExhausted is returned when the combination generator cannot
	// collect enough distinct combinations within its retry bound.
	ErrGenerationExhausted = errors.New("combination generation exhausted")

	// ErrTrainingFailed is returned by a classifier trainer that cannot fit the
	// supplied samples.
	ErrTrainingFailed = errors.New("classifier training failed")

	// ErrInvalidFixedNumbers rejects fixed number sets that are out of range,
	// duplicated or leave no room for a varying number.
	ErrInvalidFixedNumbers = errors.New("invalid fixed numbers")

	// ErrStoreUnavailable is logged by store adapters when the backing store
	// cannot be reached. Adapters degrade instead of returning it to callers.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// MalformedRecordError describes which field of which payload failed to normalize.
type MalformedRecordError struct {
	DrawID int
	Field  string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed draw record %d: field %s: %v", e.DrawID, e.Field, e.Err)
}

// Unwrap returns the underlying parse failure.
func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrMalformedRecord) hold for every MalformedRecordError.
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
