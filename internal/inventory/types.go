package inventory

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// SeatRecord is one entry of GET /buses/{id}/seats.  The backend has shipped
// both seat_number and seat_label over time, and seat_number is sometimes a
// JSON number, so both are decoded leniently.
type SeatRecord struct {
	ID         uint64      `json:"id"`
	SeatNumber LooseString `json:"seat_number"`
	SeatLabel  string      `json:"seat_label"`
	Deck       string      `json:"deck"`
	IsBooked   bool        `json:"is_booked"`
	SeatType   string      `json:"seat_type,omitempty"`
	Position   string      `json:"position,omitempty"`
	PairKey    string      `json:"pair_key,omitempty"`
}

// Label returns the printed seat label, preferring seat_label.
func (r SeatRecord) Label() string {
	if r.SeatLabel != "" {
		return r.SeatLabel
	}
	return string(r.SeatNumber)
}

// LooseString decodes a JSON string or number into a string.
type LooseString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *LooseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = LooseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = LooseString(n.String())
	return nil
}

// CreateOrderRequest is the body of POST /create-order.  BusID and SeatIDs
// are extra context for backends that price per seat; the original surface
// only reads amount.
type CreateOrderRequest struct {
	Amount  int64    `json:"amount"`
	BusID   uint64   `json:"bus_id,omitempty"`
	SeatIDs []uint64 `json:"seat_ids,omitempty"`
}

// CreateOrderResponse is the body returned by POST /create-order.
type CreateOrderResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Order   struct {
		ID       string      `json:"id"`
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
	} `json:"order"`
}

// OrderAmount returns the order amount in minor units.  Fractional amounts
// are truncated.
func (r CreateOrderResponse) OrderAmount() (int64, bool) {
	if r.Order.Amount == "" {
		return 0, false
	}
	if n, err := r.Order.Amount.Int64(); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(r.Order.Amount.String(), 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

// BookRequest is the body of POST /book.  SeatID is set for single-seat
// bookings so older backends that only read seat_id keep working.
type BookRequest struct {
	UserName          string   `json:"user_name"`
	BusID             uint64   `json:"bus_id"`
	SeatID            uint64   `json:"seat_id,omitempty"`
	SeatIDs           []uint64 `json:"seat_ids"`
	RazorpayOrderID   string   `json:"razorpay_order_id"`
	RazorpayPaymentID string   `json:"razorpay_payment_id"`
	RazorpaySignature string   `json:"razorpay_signature"`
}

// BookResponse is the decoded body of POST /book.  Success and
// BookedSeatIDs are optional structured fields; Message is always present on
// the original surface.  Status and Raw are filled by the client.
type BookResponse struct {
	Message       string   `json:"message"`
	Error         string   `json:"error,omitempty"`
	Success       *bool    `json:"success,omitempty"`
	BookedSeatIDs []uint64 `json:"booked_seat_ids,omitempty"`
	Unavailable   []uint64 `json:"unavailable,omitempty"`

	Status int    `json:"-"`
	Raw    string `json:"-"`
}
