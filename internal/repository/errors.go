// Package repository holds the MySQL data access for the catalog
// (screenings, halls, seats) and the durable reservation ledger.
package repository

import "errors"

// ErrConflict is returned when a write collides with existing rows,
// such as a second reservation for an already reserved seat.  Handlers
// should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
