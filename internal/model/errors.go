// Package model holds the data types shared by the booking core together with
// the error taxonomy every component reports through.  Callers inspect errors
// with errors.Is / errors.As; Kind maps any of them to a stable string that
// the view boundary can surface.
package model

import (
	"errors"
	"fmt"
)

// ErrPaymentCancelled is returned when the user dismisses the payment
// widget.  No charge exists and the selection is kept.
var ErrPaymentCancelled = errors.New("payment cancelled")

// ErrStaleResponse marks a result that belongs to a superseded attempt.  It
// is expected and never surfaced to the user.
var ErrStaleResponse = errors.New("stale response")

// ErrNotCancellable is returned when cancel is requested after the booking
// confirmation was sent; a charge may already exist.
var ErrNotCancellable = errors.New("transaction can no longer be cancelled")

// ErrInvalidPhase is returned when an operation is attempted in a phase that
// does not allow it (e.g. toggling seats while paying).
var ErrInvalidPhase = errors.New("operation not allowed in current phase")

// TransportError reports a network or HTTP level failure talking to the
// inventory backend.  Status is zero when no response was received.
type TransportError struct {
	Op      string
	Status  int
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError reports an empty or invalid selection or missing user
// details.  It is recoverable locally.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// QuoteError reports that the backend rejected the price quote or that the
// quote could not be obtained.
type QuoteError struct {
	Reason string
	Err    error
}

func (e *QuoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("quote: %s: %v", e.Reason, e.Err)
	}
	return "quote: " + e.Reason
}

func (e *QuoteError) Unwrap() error { return e.Err }

// PaymentFailed reports a widget error or a widget that failed to load.
type PaymentFailed struct {
	Reason string
	Err    error
}

func (e *PaymentFailed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment failed: %s: %v", e.Reason, e.Err)
	}
	return "payment failed: " + e.Reason
}

func (e *PaymentFailed) Unwrap() error { return e.Err }

// ConfirmRaceLost reports that one or more seats were booked by another
// party before the confirmation landed.  SeatIDs is empty when the backend
// did not name the lost seats; a catalog refresh resolves them.
type ConfirmRaceLost struct {
	SeatIDs []uint64
	Message string
}

func (e *ConfirmRaceLost) Error() string {
	if len(e.SeatIDs) > 0 {
		return fmt.Sprintf("seat no longer available: %v", e.SeatIDs)
	}
	return "seat no longer available"
}

// ConfirmError reports any other rejection of the booking confirmation,
// such as an invalid payment signature.
type ConfirmError struct {
	Reason string
	Status int
	Err    error
}

func (e *ConfirmError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("confirm: %s: %v", e.Reason, e.Err)
	}
	return "confirm: " + e.Reason
}

func (e *ConfirmError) Unwrap() error { return e.Err }

// Error kinds returned by Kind.
const (
	KindNone             = ""
	KindTransport        = "transport_error"
	KindValidation       = "validation_error"
	KindQuote            = "quote_error"
	KindPaymentCancelled = "payment_cancelled"
	KindPaymentFailed    = "payment_failed"
	KindConfirmRaceLost  = "confirm_race_lost"
	KindConfirm          = "confirm_error"
	KindStale            = "stale_response"
	KindNotCancellable   = "not_cancellable"
	KindInvalidPhase     = "invalid_phase"
	KindUnknown          = "unknown"
)

// Kind classifies err.  The most specific wrapper wins, so a QuoteError
// caused by a TransportError is reported as a quote error.
func Kind(err error) string {
	if err == nil {
		return KindNone
	}
	var (
		vErr *ValidationError
		qErr *QuoteError
		pErr *PaymentFailed
		rErr *ConfirmRaceLost
		cErr *ConfirmError
		tErr *TransportError
	)
	switch {
	case errors.Is(err, ErrStaleResponse):
		return KindStale
	case errors.Is(err, ErrPaymentCancelled):
		return KindPaymentCancelled
	case errors.Is(err, ErrNotCancellable):
		return KindNotCancellable
	case errors.Is(err, ErrInvalidPhase):
		return KindInvalidPhase
	case errors.As(err, &vErr):
		return KindValidation
	case errors.As(err, &qErr):
		return KindQuote
	case errors.As(err, &pErr):
		return KindPaymentFailed
	case errors.As(err, &rErr):
		return KindConfirmRaceLost
	case errors.As(err, &cErr):
		return KindConfirm
	case errors.As(err, &tErr):
		return KindTransport
	}
	return KindUnknown
}
