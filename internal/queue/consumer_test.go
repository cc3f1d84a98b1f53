package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

func TestConsumer_HandleAppendsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")
	c := NewConsumer("", path, nil)

	ev := EventFromBooking(model.BookingResult{
		PaymentID: "pay_1", OrderID: "order_1", BusID: 7, SeatIDs: []uint64{11, 12},
		UserName: "Asha", Amount: 100000, Currency: "INR",
		ConfirmedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	body, _ := json.Marshal(ev)
	for i := 0; i < 2; i++ {
		if err := c.Handle(body); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	want := `[2026-03-01T10:00:00Z] Booking confirmed | payment_id=pay_1 | order_id=order_1 | bus_id=7 | user="Asha" | total=100000 INR | seats=[11,12]`
	if lines[0] != want {
		t.Fatalf("unexpected line\n got: %s\nwant: %s", lines[0], want)
	}
}

func TestConsumer_HandleRejectsBadEvents(t *testing.T) {
	c := NewConsumer("", filepath.Join(t.TempDir(), "booking.log"), nil)
	if err := c.Handle([]byte("not json")); err == nil {
		t.Fatalf("expected error for malformed body")
	}
	if err := c.Handle([]byte(`{"bus_id":7}`)); err == nil {
		t.Fatalf("expected error for event without payment id")
	}
}
