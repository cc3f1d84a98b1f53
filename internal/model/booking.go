package model

import "time"

// Quote is a server-issued, time-bounded price commitment for a specific
// seat selection.  ID is the payment order id created by the backend; it is
// the only link between a payment callback and the quote that started it.
type Quote struct {
	ID        string    `json:"id"`
	BusID     uint64    `json:"bus_id"`
	SeatIDs   []uint64  `json:"seat_ids"`
	Amount    int64     `json:"amount"` // minor currency units
	Currency  string    `json:"currency"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the quote is no longer usable at now.
func (q Quote) Expired(now time.Time) bool {
	return !q.ExpiresAt.IsZero() && !now.Before(q.ExpiresAt)
}

// PaymentProof is the evidence of a completed payment.  It is opaque beyond
// its identifiers and is consumed exactly once by the booking confirmer.
type PaymentProof struct {
	QuoteID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// BookingResult is a confirmed booking.
type BookingResult struct {
	BusID       uint64    `json:"bus_id"`
	SeatIDs     []uint64  `json:"seat_ids"`
	UserName    string    `json:"user_name"`
	OrderID     string    `json:"order_id"`
	PaymentID   string    `json:"payment_id"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Message     string    `json:"message"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}
