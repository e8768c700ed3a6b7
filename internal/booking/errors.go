// Package booking owns seat state for screenings: it arbitrates
// concurrent hold, release and reserve requests, expires stale holds
// and announces every committed change to live subscribers.
package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrValidation marks a malformed or empty request.  It is a caller bug
// and is never retried automatically.
var ErrValidation = errors.New("validation error")

// ErrNotFound is returned for unknown screenings or seat ids.
var ErrNotFound = errors.New("not found")

// ErrSeatUnavailable is returned when a requested seat is reserved or
// held by another token.  Callers may retry with a different selection.
var ErrSeatUnavailable = errors.New("seat unavailable")

// UnavailableError carries the exact seats that could not be claimed.
// It matches ErrSeatUnavailable with errors.Is.
type UnavailableError struct {
	SeatIDs []uint64
}

func (e *UnavailableError) Error() string {
	ids := make([]string, 0, len(e.SeatIDs))
	for _, id := range e.SeatIDs {
		ids = append(ids, strconv.FormatUint(id, 10))
	}
	return fmt.Sprintf("%s: %s", ErrSeatUnavailable, strings.Join(ids, ","))
}

func (e *UnavailableError) Is(target error) bool { return target == ErrSeatUnavailable }

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
