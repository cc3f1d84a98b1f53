package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Yusuf8760/bus-booking-frontend/internal/clock"
	"github.com/Yusuf8760/bus-booking-frontend/internal/inventory"
	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

// fakeBooker replays scripted outcomes and records the keys it was called with.
type fakeBooker struct {
	mu      sync.Mutex
	results []bookResult
	keys    []string
	reqs    []inventory.BookRequest
}

type bookResult struct {
	resp inventory.BookResponse
	err  error
}

func (f *fakeBooker) Book(_ context.Context, req inventory.BookRequest, key string) (inventory.BookResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	f.reqs = append(f.reqs, req)
	if len(f.results) == 0 {
		return inventory.BookResponse{Status: 200, Message: "Seat booked successfully"}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.resp, r.err
}

type memLedger struct {
	byPayment map[string]model.BookingResult
	findErr   error
	recordErr error
}

func newMemLedger() *memLedger { return &memLedger{byPayment: map[string]model.BookingResult{}} }

func (l *memLedger) FindByPaymentID(_ context.Context, id string) (model.BookingResult, bool, error) {
	if l.findErr != nil {
		return model.BookingResult{}, false, l.findErr
	}
	r, ok := l.byPayment[id]
	return r, ok, nil
}

func (l *memLedger) Record(_ context.Context, res model.BookingResult) error {
	if l.recordErr != nil {
		return l.recordErr
	}
	l.byPayment[res.PaymentID] = res
	return nil
}

type fakeLocker struct {
	held     map[string]bool
	err      error
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func() { delete(l.held, key); l.released++ }, true, nil
}

type countingRefresher struct {
	calls int
	err   error
}

func (r *countingRefresher) Load(context.Context, uint64) ([]model.Seat, error) {
	r.calls++
	return nil, r.err
}

func paidRequest() Request {
	q := model.Quote{ID: "order_1", BusID: 7, SeatIDs: []uint64{11, 12}, Amount: 100000, Currency: "INR"}
	return Request{
		UserName: "Asha",
		BusID:    7,
		SeatIDs:  []uint64{11, 12},
		Quote:    q,
		Proof:    model.PaymentProof{QuoteID: "order_1", PaymentID: "pay_1", Signature: "sig"},
	}
}

func TestConfirm_Success(t *testing.T) {
	booker := &fakeBooker{}
	ledger := newMemLedger()
	ref := &countingRefresher{}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := NewConfirmer(booker, Options{Ledger: ledger, Refresher: ref, Clock: clock.NewFixed(now)})

	res, err := c.Confirm(context.Background(), paidRequest())
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.PaymentID != "pay_1" || res.OrderID != "order_1" || res.Amount != 100000 || !res.ConfirmedAt.Equal(now) {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(booker.keys) != 1 || booker.keys[0] != "pay_1" {
		t.Fatalf("expected one call keyed by payment id, got %v", booker.keys)
	}
	req := booker.reqs[0]
	if req.UserName != "Asha" || req.RazorpayOrderID != "order_1" || req.RazorpaySignature != "sig" || len(req.SeatIDs) != 2 || req.SeatID != 0 {
		t.Fatalf("unexpected book request %+v", req)
	}
	if _, ok := ledger.byPayment["pay_1"]; !ok {
		t.Fatalf("expected booking recorded in ledger")
	}
	if ref.calls != 1 {
		t.Fatalf("expected catalog refresh, got %d", ref.calls)
	}
}

func TestConfirm_SingleSeatSetsSeatID(t *testing.T) {
	booker := &fakeBooker{}
	c := NewConfirmer(booker, Options{})
	req := paidRequest()
	req.SeatIDs = []uint64{11}
	if _, err := c.Confirm(context.Background(), req); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if booker.reqs[0].SeatID != 11 {
		t.Fatalf("expected seat_id set for single seat, got %+v", booker.reqs[0])
	}
}

func TestConfirm_RetriesOnceOnTimeout(t *testing.T) {
	timeout := &model.TransportError{Op: "book", Timeout: true, Err: context.DeadlineExceeded}

	t.Run("second attempt succeeds with the same key", func(t *testing.T) {
		booker := &fakeBooker{results: []bookResult{
			{err: timeout},
			{resp: inventory.BookResponse{Status: 200, Message: "Seats booked successfully"}},
		}}
		ledger := newMemLedger()
		c := NewConfirmer(booker, Options{Ledger: ledger})
		if _, err := c.Confirm(context.Background(), paidRequest()); err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if len(booker.keys) != 2 || booker.keys[0] != booker.keys[1] {
			t.Fatalf("expected two calls with one key, got %v", booker.keys)
		}
		if len(ledger.byPayment) != 1 {
			t.Fatalf("expected exactly one booking recorded, got %d", len(ledger.byPayment))
		}
	})

	t.Run("two timeouts surface the transport error", func(t *testing.T) {
		booker := &fakeBooker{results: []bookResult{{err: timeout}, {err: timeout}, {}}}
		c := NewConfirmer(booker, Options{})
		_, err := c.Confirm(context.Background(), paidRequest())
		var tErr *model.TransportError
		if !errors.As(err, &tErr) {
			t.Fatalf("expected transport error, got %v", err)
		}
		if len(booker.keys) != 2 {
			t.Fatalf("expected exactly one retry, got %d calls", len(booker.keys))
		}
	})

	t.Run("non-timeout transport errors are not retried", func(t *testing.T) {
		booker := &fakeBooker{results: []bookResult{{err: &model.TransportError{Op: "book", Status: 502}}}}
		c := NewConfirmer(booker, Options{})
		if _, err := c.Confirm(context.Background(), paidRequest()); err == nil {
			t.Fatalf("expected error")
		}
		if len(booker.keys) != 1 {
			t.Fatalf("expected no retry, got %d calls", len(booker.keys))
		}
	})
}

func TestConfirm_LedgerShortCircuits(t *testing.T) {
	booker := &fakeBooker{}
	ledger := newMemLedger()
	ledger.byPayment["pay_1"] = model.BookingResult{PaymentID: "pay_1", BusID: 7, SeatIDs: []uint64{11, 12}}
	c := NewConfirmer(booker, Options{Ledger: ledger})

	res, err := c.Confirm(context.Background(), paidRequest())
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.PaymentID != "pay_1" {
		t.Fatalf("expected recorded booking, got %+v", res)
	}
	if len(booker.keys) != 0 {
		t.Fatalf("already confirmed payment must not be resubmitted")
	}
}

func TestConfirm_Outcomes(t *testing.T) {
	t.Run("race lost", func(t *testing.T) {
		booker := &fakeBooker{results: []bookResult{{resp: inventory.BookResponse{Status: 409, Message: "Seat already booked", Unavailable: []uint64{12}}}}}
		ref := &countingRefresher{}
		c := NewConfirmer(booker, Options{Refresher: ref})
		_, err := c.Confirm(context.Background(), paidRequest())
		var race *model.ConfirmRaceLost
		if !errors.As(err, &race) {
			t.Fatalf("expected race lost, got %v", err)
		}
		if len(race.SeatIDs) != 1 || race.SeatIDs[0] != 12 {
			t.Fatalf("expected lost seat 12, got %v", race.SeatIDs)
		}
		if model.Kind(err) != model.KindConfirmRaceLost {
			t.Fatalf("unexpected kind %q", model.Kind(err))
		}
	})

	t.Run("verification rejected", func(t *testing.T) {
		f := false
		booker := &fakeBooker{results: []bookResult{{resp: inventory.BookResponse{Status: 400, Success: &f, Error: "Invalid signature"}}}}
		ledger := newMemLedger()
		c := NewConfirmer(booker, Options{Ledger: ledger})
		_, err := c.Confirm(context.Background(), paidRequest())
		var cErr *model.ConfirmError
		if !errors.As(err, &cErr) || cErr.Status != 400 {
			t.Fatalf("expected confirm error with status, got %v", err)
		}
		if len(ledger.byPayment) != 0 {
			t.Fatalf("rejected booking must not be recorded")
		}
	})

	t.Run("stale proof", func(t *testing.T) {
		booker := &fakeBooker{}
		c := NewConfirmer(booker, Options{})
		req := paidRequest()
		req.Proof.QuoteID = "order_0"
		if _, err := c.Confirm(context.Background(), req); !errors.Is(err, model.ErrStaleResponse) {
			t.Fatalf("expected stale, got %v", err)
		}
		if len(booker.keys) != 0 {
			t.Fatalf("stale proof must never reach the backend")
		}
	})

	t.Run("ledger write failure keeps the booking", func(t *testing.T) {
		ledger := newMemLedger()
		ledger.recordErr = errors.New("db down")
		c := NewConfirmer(&fakeBooker{}, Options{Ledger: ledger})
		if _, err := c.Confirm(context.Background(), paidRequest()); err != nil {
			t.Fatalf("expected success despite ledger failure, got %v", err)
		}
	})
}

func TestConfirm_Lock(t *testing.T) {
	t.Run("held elsewhere", func(t *testing.T) {
		locker := &fakeLocker{held: map[string]bool{"pay_1": true}}
		booker := &fakeBooker{}
		c := NewConfirmer(booker, Options{Locker: locker})
		_, err := c.Confirm(context.Background(), paidRequest())
		var cErr *model.ConfirmError
		if !errors.As(err, &cErr) {
			t.Fatalf("expected confirm error, got %v", err)
		}
		if len(booker.keys) != 0 {
			t.Fatalf("booking must not be sent without the lock")
		}
	})

	t.Run("released after confirm", func(t *testing.T) {
		locker := &fakeLocker{held: map[string]bool{}}
		c := NewConfirmer(&fakeBooker{}, Options{Locker: locker})
		if _, err := c.Confirm(context.Background(), paidRequest()); err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if locker.released != 1 || len(locker.held) != 0 {
			t.Fatalf("expected lock released")
		}
	})

	t.Run("lock backend down", func(t *testing.T) {
		locker := &fakeLocker{err: errors.New("redis down")}
		booker := &fakeBooker{}
		c := NewConfirmer(booker, Options{Locker: locker})
		if _, err := c.Confirm(context.Background(), paidRequest()); err != nil {
			t.Fatalf("expected confirm to proceed, got %v", err)
		}
		if len(booker.keys) != 1 {
			t.Fatalf("expected one book call")
		}
	})
}
