// Package payment drives the external checkout widget through one payment
// attempt.  The widget reports exactly one terminal event (success,
// dismissal or error) at a user-paced time; the coordinator turns that
// callback into a single-shot result the orchestrator waits on.
package payment

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

// State is the coordinator's lifecycle state.
type State string

const (
	StateIdle          State = "idle"
	StateAwaitingProof State = "awaiting_proof"
	StateResolved      State = "resolved"
	StateFailed        State = "failed"
	StateCancelled     State = "cancelled"
)

// EventKind is the kind of terminal callback the widget reported.
type EventKind string

const (
	EventSuccess   EventKind = "success"
	EventDismissed EventKind = "dismissed"
	EventError     EventKind = "error"
)

// Event is a widget callback.  OrderID is the order the widget was opened
// for; on success it must match the active quote.
type Event struct {
	Kind      EventKind `json:"status"`
	OrderID   string    `json:"razorpay_order_id"`
	PaymentID string    `json:"razorpay_payment_id"`
	Signature string    `json:"razorpay_signature"`
	Reason    string    `json:"reason"`
}

// Prefill carries customer details shown in the widget.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Theme styles the widget.
type Theme struct {
	Color string `json:"color"`
}

// CheckoutOptions is what the widget is opened with.
type CheckoutOptions struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	OrderID     string  `json:"order_id"`
	Prefill     Prefill `json:"prefill"`
	Theme       Theme   `json:"theme"`
}

// WidgetLoader is the external payment widget: Load makes it available
// (once per session), Open shows it for one order.
type WidgetLoader interface {
	Load(ctx context.Context) error
	Open(ctx context.Context, opts CheckoutOptions) error
}

// Settings holds the merchant-facing widget options.
type Settings struct {
	Key         string
	Name        string
	Description string
	ThemeColor  string
	Email       string
	Contact     string
}

// Coordinator runs one payment attempt at a time.
type Coordinator struct {
	loader WidgetLoader
	cfg    Settings
	log    *zap.Logger

	mu     sync.Mutex
	loaded bool
	cur    *attempt
}

// attempt is one Begin..terminal cycle.  Its fields are guarded by the
// coordinator's mutex; done is closed exactly once, on the terminal event.
type attempt struct {
	quote model.Quote
	state State
	proof model.PaymentProof
	err   error
	done  chan struct{}
}

// NewCoordinator returns an idle Coordinator.
func NewCoordinator(loader WidgetLoader, cfg Settings, log *zap.Logger) *Coordinator {
	if cfg.Name == "" {
		cfg.Name = "Bus Ticket Booking"
	}
	if cfg.Description == "" {
		cfg.Description = "Seat Booking Payment"
	}
	if cfg.ThemeColor == "" {
		cfg.ThemeColor = "#F37254"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{loader: loader, cfg: cfg, log: log}
}

// Begin opens the widget for quote.  It is only valid from StateIdle.  A
// widget that fails to load or open fails this attempt with PaymentFailed.
func (c *Coordinator) Begin(ctx context.Context, quote model.Quote, prefill Prefill) error {
	c.mu.Lock()
	if c.cur != nil {
		c.mu.Unlock()
		return model.ErrInvalidPhase
	}
	a := &attempt{quote: quote, state: StateAwaitingProof, done: make(chan struct{})}
	c.cur = a
	needLoad := !c.loaded
	c.mu.Unlock()

	if needLoad {
		if err := c.loader.Load(ctx); err != nil {
			c.log.Warn("payment widget failed to load", zap.Error(err))
			c.finish(a, StateFailed, model.PaymentProof{}, &model.PaymentFailed{Reason: "payment widget failed to load", Err: err})
			return c.errOf(a)
		}
		c.mu.Lock()
		c.loaded = true
		c.mu.Unlock()
	}

	if prefill.Email == "" {
		prefill.Email = c.cfg.Email
	}
	if prefill.Contact == "" {
		prefill.Contact = c.cfg.Contact
	}
	opts := CheckoutOptions{
		Key:         c.cfg.Key,
		Amount:      quote.Amount,
		Currency:    quote.Currency,
		Name:        c.cfg.Name,
		Description: c.cfg.Description,
		OrderID:     quote.ID,
		Prefill:     prefill,
		Theme:       Theme{Color: c.cfg.ThemeColor},
	}
	if err := c.loader.Open(ctx, opts); err != nil {
		c.log.Warn("payment widget failed to open", zap.String("order_id", quote.ID), zap.Error(err))
		c.finish(a, StateFailed, model.PaymentProof{}, &model.PaymentFailed{Reason: "payment widget failed to open", Err: err})
		return c.errOf(a)
	}
	c.log.Info("payment widget opened", zap.String("order_id", quote.ID), zap.Int64("amount", quote.Amount))
	return nil
}

// Deliver hands the widget's terminal callback to the coordinator.  Events
// for another order, or arriving after the attempt already ended, are
// discarded with ErrStaleResponse.
func (c *Coordinator) Deliver(ev Event) error {
	c.mu.Lock()
	a := c.cur
	waiting := a != nil && a.state == StateAwaitingProof
	c.mu.Unlock()

	if !waiting {
		c.log.Debug("payment event after attempt ended", zap.String("kind", string(ev.Kind)), zap.String("order_id", ev.OrderID))
		return model.ErrStaleResponse
	}
	active := a.quote.ID
	switch ev.Kind {
	case EventSuccess:
		if ev.OrderID != active {
			c.log.Warn("discarding payment proof for inactive order",
				zap.String("order_id", ev.OrderID), zap.String("active_order_id", active))
			return model.ErrStaleResponse
		}
		if ev.PaymentID == "" {
			return c.finish(a, StateFailed, model.PaymentProof{}, &model.PaymentFailed{Reason: "payment id missing"})
		}
		proof := model.PaymentProof{QuoteID: ev.OrderID, PaymentID: ev.PaymentID, Signature: ev.Signature}
		return c.finish(a, StateResolved, proof, nil)
	case EventDismissed:
		if ev.OrderID != "" && ev.OrderID != active {
			return model.ErrStaleResponse
		}
		return c.finish(a, StateCancelled, model.PaymentProof{}, model.ErrPaymentCancelled)
	default:
		if ev.OrderID != "" && ev.OrderID != active {
			return model.ErrStaleResponse
		}
		reason := ev.Reason
		if reason == "" {
			reason = "payment widget reported an error"
		}
		return c.finish(a, StateFailed, model.PaymentProof{}, &model.PaymentFailed{Reason: reason})
	}
}

// Await blocks until the current attempt ends or ctx is done.  The proof of
// a resolved attempt is returned once per attempt; callers Reset afterwards.
func (c *Coordinator) Await(ctx context.Context) (model.PaymentProof, error) {
	c.mu.Lock()
	a := c.cur
	c.mu.Unlock()
	if a == nil {
		return model.PaymentProof{}, model.ErrInvalidPhase
	}
	select {
	case <-a.done:
	case <-ctx.Done():
		return model.PaymentProof{}, ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if a.state != StateResolved {
		return model.PaymentProof{}, a.err
	}
	return a.proof, nil
}

// Abandon ends an attempt that is still waiting as cancelled.
func (c *Coordinator) Abandon() {
	c.mu.Lock()
	a := c.cur
	c.mu.Unlock()
	if a != nil {
		_ = c.finish(a, StateCancelled, model.PaymentProof{}, model.ErrPaymentCancelled)
	}
}

// Reset abandons any waiting attempt and returns to StateIdle.  The widget
// stays loaded.
func (c *Coordinator) Reset() {
	c.Abandon()
	c.mu.Lock()
	c.cur = nil
	c.mu.Unlock()
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return StateIdle
	}
	return c.cur.state
}

// finish moves a to a terminal state.  It returns ErrStaleResponse when a
// already ended.
func (c *Coordinator) finish(a *attempt, state State, proof model.PaymentProof, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a.state != StateAwaitingProof {
		return model.ErrStaleResponse
	}
	a.state = state
	a.proof = proof
	a.err = err
	close(a.done)
	if cl, ok := c.loader.(interface{ Close() }); ok {
		cl.Close()
	}
	return nil
}

func (c *Coordinator) errOf(a *attempt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return a.err
}
