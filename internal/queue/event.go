// Package queue carries booking events over RabbitMQ: the server publishes
// one event per confirmed booking and the booking consumer appends them to
// logs/booking.log.
package queue

import (
	"time"

	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

// BookingQueueName is the durable queue booking events are routed to.
const BookingQueueName = "bus.booking.confirmed"

// BookingConfirmedEvent is published when a bus booking is confirmed.  It
// carries enough for consumers to log or notify without calling the
// inventory backend.
type BookingConfirmedEvent struct {
	PaymentID   string   `json:"payment_id"`
	OrderID     string   `json:"order_id"`
	BusID       uint64   `json:"bus_id"`
	SeatIDs     []uint64 `json:"seat_ids"`
	UserName    string   `json:"user_name"`
	Amount      int64    `json:"amount"`
	Currency    string   `json:"currency"`
	Message     string   `json:"message,omitempty"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// EventFromBooking builds the event for res.
func EventFromBooking(res model.BookingResult) BookingConfirmedEvent {
	at := res.ConfirmedAt
	if at.IsZero() {
		at = time.Now()
	}
	return BookingConfirmedEvent{
		PaymentID:   res.PaymentID,
		OrderID:     res.OrderID,
		BusID:       res.BusID,
		SeatIDs:     append([]uint64(nil), res.SeatIDs...),
		UserName:    res.UserName,
		Amount:      res.Amount,
		Currency:    res.Currency,
		Message:     res.Message,
		ConfirmedAt: at.UTC().Format(time.RFC3339),
	}
}
