// Package repository persists what the booking service must remember across
// sessions and restarts: the ledger of confirmed bookings (MySQL) and the
// short-lived per-payment confirmation locks (Redis).
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.  Handlers translate
// it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a payment id is already recorded for a
// different booking.  A payment backs exactly one booking.
var ErrConflict = errors.New("conflict")
