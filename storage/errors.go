package storage

import (
	"errors"
	"fmt"
	"math"
)

// MinRating and MaxRating bound every stored rating.
const (
	MinRating = 0.0
	MaxRating = 10.0
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// ParseError reports a malformed record in a backing file.
type ParseError struct {
	Path  string
	Line  int // 0 when the format has no meaningful line numbers
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s line %d field %q: %v", e.Path, e.Line, e.Field, e.Err)
	}
	if e.Field != "" {
		return fmt.Sprintf("parse %s field %q: %v", e.Path, e.Field, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// errRatingRange is wrapped by checkRating.
var errRatingRange = errors.New("rating out of range")

// checkRating rejects NaN, infinities and values outside [MinRating, MaxRating].
func checkRating(r float64) error {
	if math.IsNaN(r) || r < MinRating || r > MaxRating {
		return fmt.Errorf("%w: %v", errRatingRange, r)
	}
	return nil
}
