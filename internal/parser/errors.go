package parser

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Sentinel parse errors. All of them satisfy IsParseError and are surfaced
// to the caller without retry.
var (
	// ErrNoIntent means the query resolves to neither a region nor a main
	// activity, so there is nothing to search around.
	ErrNoIntent = eris.New("parser: no location or main activity in query")

	// ErrDaysConflict means the text contains contradictory duration
	// phrases that cannot be reconciled.
	ErrDaysConflict = eris.New("parser: conflicting day specifications")

	// ErrDaysOutOfRange means the resolved duration exceeds MaxDays.
	ErrDaysOutOfRange = eris.New("parser: days exceed maximum")
)

// IsParseError reports whether err belongs to the parse-error class that
// should be surfaced to the caller rather than retried or degraded.
func IsParseError(err error) bool {
	return errors.Is(err, ErrNoIntent) ||
		errors.Is(err, ErrDaysConflict) ||
		errors.Is(err, ErrDaysOutOfRange)
}
