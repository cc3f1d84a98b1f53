package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

type fakeLoader struct {
	loadErr error
	openErr error
	loads   int
	opened  []CheckoutOptions
	closed  int
}

func (f *fakeLoader) Load(context.Context) error {
	f.loads++
	return f.loadErr
}

func (f *fakeLoader) Open(_ context.Context, opts CheckoutOptions) error {
	f.opened = append(f.opened, opts)
	return f.openErr
}

func (f *fakeLoader) Close() { f.closed++ }

func quote(id string) model.Quote {
	return model.Quote{ID: id, Amount: 50000, Currency: "INR", SeatIDs: []uint64{1}}
}

func awaitAsync(c *Coordinator) <-chan struct {
	proof model.PaymentProof
	err   error
} {
	ch := make(chan struct {
		proof model.PaymentProof
		err   error
	}, 1)
	go func() {
		p, err := c.Await(context.Background())
		ch <- struct {
			proof model.PaymentProof
			err   error
		}{p, err}
	}()
	return ch
}

func TestCoordinator_Success(t *testing.T) {
	loader := &fakeLoader{}
	c := NewCoordinator(loader, Settings{Key: "rzp_test"}, nil)

	if err := c.Begin(context.Background(), quote("order_1"), Prefill{Name: "Asha"}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if c.State() != StateAwaitingProof {
		t.Fatalf("expected awaiting proof, got %s", c.State())
	}
	if len(loader.opened) != 1 {
		t.Fatalf("expected widget opened once")
	}
	opts := loader.opened[0]
	if opts.OrderID != "order_1" || opts.Amount != 50000 || opts.Key != "rzp_test" || opts.Name != "Bus Ticket Booking" || opts.Theme.Color != "#F37254" || opts.Prefill.Name != "Asha" {
		t.Fatalf("unexpected checkout options %+v", opts)
	}

	res := awaitAsync(c)
	if err := c.Deliver(Event{Kind: EventSuccess, OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	select {
	case r := <-res:
		if r.err != nil {
			t.Fatalf("await: %v", r.err)
		}
		if r.proof.QuoteID != "order_1" || r.proof.PaymentID != "pay_1" || r.proof.Signature != "sig" {
			t.Fatalf("unexpected proof %+v", r.proof)
		}
	case <-time.After(time.Second):
		t.Fatalf("await did not return")
	}
	if c.State() != StateResolved {
		t.Fatalf("expected resolved, got %s", c.State())
	}
	if loader.closed != 1 {
		t.Fatalf("expected widget closed on terminal event")
	}

	// Only the first terminal event counts.
	if err := c.Deliver(Event{Kind: EventError, OrderID: "order_1"}); !errors.Is(err, model.ErrStaleResponse) {
		t.Fatalf("second terminal event must be stale, got %v", err)
	}
}

func TestCoordinator_StaleProofDiscarded(t *testing.T) {
	c := NewCoordinator(&fakeLoader{}, Settings{Key: "k"}, nil)
	if err := c.Begin(context.Background(), quote("order_2"), Prefill{}); err != nil {
		t.Fatalf("begin: %v", err)
	}
	err := c.Deliver(Event{Kind: EventSuccess, OrderID: "order_1", PaymentID: "pay_old"})
	if !errors.Is(err, model.ErrStaleResponse) {
		t.Fatalf("expected stale response, got %v", err)
	}
	if c.State() != StateAwaitingProof {
		t.Fatalf("stale proof must not end the attempt, got %s", c.State())
	}
}

func TestCoordinator_DismissAndError(t *testing.T) {
	t.Run("dismissed", func(t *testing.T) {
		c := NewCoordinator(&fakeLoader{}, Settings{Key: "k"}, nil)
		_ = c.Begin(context.Background(), quote("order_1"), Prefill{})
		if err := c.Deliver(Event{Kind: EventDismissed}); err != nil {
			t.Fatalf("deliver: %v", err)
		}
		_, err := c.Await(context.Background())
		if !errors.Is(err, model.ErrPaymentCancelled) {
			t.Fatalf("expected cancelled, got %v", err)
		}
		if c.State() != StateCancelled {
			t.Fatalf("expected cancelled state, got %s", c.State())
		}
	})

	t.Run("widget error", func(t *testing.T) {
		c := NewCoordinator(&fakeLoader{}, Settings{Key: "k"}, nil)
		_ = c.Begin(context.Background(), quote("order_1"), Prefill{})
		_ = c.Deliver(Event{Kind: EventError, OrderID: "order_1", Reason: "card declined"})
		_, err := c.Await(context.Background())
		var pErr *model.PaymentFailed
		if !errors.As(err, &pErr) || pErr.Reason != "card declined" {
			t.Fatalf("expected PaymentFailed, got %v", err)
		}
	})
}

func TestCoordinator_LoadOncePerSession(t *testing.T) {
	loader := &fakeLoader{}
	c := NewCoordinator(loader, Settings{Key: "k"}, nil)
	for i, id := range []string{"order_1", "order_2"} {
		if err := c.Begin(context.Background(), quote(id), Prefill{}); err != nil {
			t.Fatalf("begin %d: %v", i, err)
		}
		c.Reset()
	}
	if loader.loads != 1 {
		t.Fatalf("expected one load, got %d", loader.loads)
	}
}

func TestCoordinator_LoadFailure(t *testing.T) {
	loader := &fakeLoader{loadErr: errors.New("script blocked")}
	c := NewCoordinator(loader, Settings{Key: "k"}, nil)
	err := c.Begin(context.Background(), quote("order_1"), Prefill{})
	var pErr *model.PaymentFailed
	if !errors.As(err, &pErr) {
		t.Fatalf("expected PaymentFailed, got %v", err)
	}
	if c.State() != StateFailed {
		t.Fatalf("expected failed state, got %s", c.State())
	}
	if len(loader.opened) != 0 {
		t.Fatalf("widget must not open after load failure")
	}

	// A retry loads again.
	c.Reset()
	loader.loadErr = nil
	if err := c.Begin(context.Background(), quote("order_2"), Prefill{}); err != nil {
		t.Fatalf("retry begin: %v", err)
	}
}

func TestCoordinator_BeginOnlyFromIdle(t *testing.T) {
	c := NewCoordinator(&fakeLoader{}, Settings{Key: "k"}, nil)
	_ = c.Begin(context.Background(), quote("order_1"), Prefill{})
	if err := c.Begin(context.Background(), quote("order_2"), Prefill{}); !errors.Is(err, model.ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
}

func TestCoordinator_ResetWakesWaiter(t *testing.T) {
	c := NewCoordinator(&fakeLoader{}, Settings{Key: "k"}, nil)
	_ = c.Begin(context.Background(), quote("order_1"), Prefill{})
	res := awaitAsync(c)
	c.Reset()
	select {
	case r := <-res:
		if !errors.Is(r.err, model.ErrPaymentCancelled) {
			t.Fatalf("expected cancelled, got %v", r.err)
		}
	case <-time.After(time.Second):
		t.Fatalf("reset must wake the waiter")
	}
	if c.State() != StateIdle {
		t.Fatalf("expected idle after reset, got %s", c.State())
	}
	if err := c.Deliver(Event{Kind: EventSuccess, OrderID: "order_1", PaymentID: "pay_late"}); !errors.Is(err, model.ErrStaleResponse) {
		t.Fatalf("late callback must be stale, got %v", err)
	}
}

func TestCoordinator_AwaitHonoursContext(t *testing.T) {
	c := NewCoordinator(&fakeLoader{}, Settings{Key: "k"}, nil)
	_ = c.Begin(context.Background(), quote("order_1"), Prefill{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestSessionWidget(t *testing.T) {
	w := NewSessionWidget("", "")
	if err := w.Load(context.Background()); err == nil {
		t.Fatalf("expected error without key")
	}
	w = NewSessionWidget("not a url", "rzp")
	if err := w.Load(context.Background()); err == nil {
		t.Fatalf("expected error for bad script url")
	}
	w = NewSessionWidget("", "rzp")
	if err := w.Open(context.Background(), CheckoutOptions{}); err == nil {
		t.Fatalf("open before load must fail")
	}
	if err := w.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := w.Open(context.Background(), CheckoutOptions{OrderID: "order_1"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if opts, ok := w.Pending(); !ok || opts.OrderID != "order_1" {
		t.Fatalf("expected pending options, got %+v", opts)
	}
	w.Close()
	if _, ok := w.Pending(); ok {
		t.Fatalf("close must clear pending options")
	}
}
