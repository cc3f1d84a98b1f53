// Package pricing obtains server-side price quotes (payment orders) for a
// seat selection.  At most one quote is live at a time: requesting a new one
// discards the previous one, even when the new request fails.
package pricing

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Yusuf8760/bus-booking-frontend/internal/clock"
	"github.com/Yusuf8760/bus-booking-frontend/internal/inventory"
	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

// OrderCreator creates payment orders on the backend.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req inventory.CreateOrderRequest) (inventory.CreateOrderResponse, error)
}

// Settings configures a Quoter.
type Settings struct {
	FarePerSeat int64         // request amount per seat, in the backend's order units
	Currency    string        // currency assumed when the order omits one
	TTL         time.Duration // validity window of a quote
	Timeout     time.Duration // bound on one create-order call
}

// Quoter requests quotes for selections.
type Quoter struct {
	orders OrderCreator
	cfg    Settings
	clock  clock.Clock
	log    *zap.Logger

	mu     sync.Mutex
	gen    uint64
	active *model.Quote
}

// NewQuoter returns a Quoter.  Zero settings fall back to a 500 per-seat
// fare in INR, a 15 minute quote window and a 10 second call timeout.
func NewQuoter(orders OrderCreator, cfg Settings, clk clock.Clock, log *zap.Logger) *Quoter {
	if cfg.FarePerSeat <= 0 {
		cfg.FarePerSeat = 500
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Quoter{orders: orders, cfg: cfg, clock: clk, log: log}
}

// RequestAmount is the amount sent to create-order for n seats.  It is for
// the request and for display only; the order amount returned by the backend
// is authoritative.
func (q *Quoter) RequestAmount(n int) int64 {
	return int64(n) * q.cfg.FarePerSeat
}

// Quote creates a payment order for seatIDs on busID.  It never retries: a
// quote carries a price validity window, so a failed call is reported and the
// user decides whether to ask again.
func (q *Quoter) Quote(ctx context.Context, busID uint64, seatIDs []uint64) (model.Quote, error) {
	q.mu.Lock()
	q.gen++
	gen := q.gen
	q.active = nil
	q.mu.Unlock()

	if len(seatIDs) == 0 {
		return model.Quote{}, &model.QuoteError{Reason: "no seats selected"}
	}

	callCtx, cancel := context.WithTimeout(ctx, q.cfg.Timeout)
	defer cancel()
	resp, err := q.orders.CreateOrder(callCtx, inventory.CreateOrderRequest{
		Amount:  q.RequestAmount(len(seatIDs)),
		BusID:   busID,
		SeatIDs: append([]uint64(nil), seatIDs...),
	})
	if err != nil {
		q.log.Warn("create order failed", zap.Uint64("bus_id", busID), zap.Error(err))
		return model.Quote{}, &model.QuoteError{Reason: "order creation failed", Err: err}
	}
	if !resp.Success {
		reason := firstNonEmpty(resp.Error, resp.Message, "order creation failed")
		return model.Quote{}, &model.QuoteError{Reason: reason}
	}
	if strings.TrimSpace(resp.Order.ID) == "" {
		return model.Quote{}, &model.QuoteError{Reason: "order id missing"}
	}
	amount, ok := resp.OrderAmount()
	if !ok || amount <= 0 {
		return model.Quote{}, &model.QuoteError{Reason: "order amount missing"}
	}

	quote := model.Quote{
		ID:        resp.Order.ID,
		BusID:     busID,
		SeatIDs:   append([]uint64(nil), seatIDs...),
		Amount:    amount,
		Currency:  firstNonEmpty(resp.Order.Currency, q.cfg.Currency),
		ExpiresAt: q.clock.Now().Add(q.cfg.TTL),
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if gen != q.gen {
		// Superseded while in flight.
		return model.Quote{}, model.ErrStaleResponse
	}
	q.active = &quote
	q.log.Info("quote created",
		zap.String("order_id", quote.ID), zap.Uint64("bus_id", busID),
		zap.Int("seats", len(seatIDs)), zap.Int64("amount", quote.Amount), zap.String("currency", quote.Currency))
	return quote, nil
}

// Active returns the live quote, if any.  An expired quote is not live.
func (q *Quoter) Active() (model.Quote, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.active == nil || q.active.Expired(q.clock.Now()) {
		return model.Quote{}, false
	}
	return *q.active, true
}

// Invalidate discards the live quote and any quote still in flight.
func (q *Quoter) Invalidate() {
	q.mu.Lock()
	q.gen++
	q.active = nil
	q.mu.Unlock()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
