// Package booking submits a paid selection to the backend for final
// confirmation and interprets the outcome.  A confirmation is keyed by the
// payment identifier: it is retried once on a transport timeout with the same
// key, recorded in a local ledger, and never sent twice for a payment the
// ledger already holds.
package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Yusuf8760/bus-booking-frontend/internal/clock"
	"github.com/Yusuf8760/bus-booking-frontend/internal/inventory"
	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

// Booker submits bookings to the backend.
type Booker interface {
	Book(ctx context.Context, req inventory.BookRequest, idempotencyKey string) (inventory.BookResponse, error)
}

// Ledger remembers confirmed bookings by payment id.
type Ledger interface {
	FindByPaymentID(ctx context.Context, paymentID string) (model.BookingResult, bool, error)
	Record(ctx context.Context, res model.BookingResult) error
}

// Locker serializes confirmations of the same payment across sessions.
// Acquire returns ok=false when another holder owns key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// Refresher reloads the seat catalog after a booking.
type Refresher interface {
	Load(ctx context.Context, busID uint64) ([]model.Seat, error)
}

// Request is one confirmation.
type Request struct {
	UserName string
	BusID    uint64
	SeatIDs  []uint64
	Quote    model.Quote
	Proof    model.PaymentProof
}

// Options wires the optional collaborators of a Confirmer.
type Options struct {
	Ledger    Ledger
	Locker    Locker
	Refresher Refresher
	Policy    SuccessPolicy
	Timeout   time.Duration // bound on one /book call
	LockTTL   time.Duration
	Clock     clock.Clock
	Log       *zap.Logger
}

// Confirmer confirms bookings.
type Confirmer struct {
	booker  Booker
	ledger  Ledger
	locker  Locker
	refresh Refresher
	policy  SuccessPolicy
	timeout time.Duration
	lockTTL time.Duration
	clock   clock.Clock
	log     *zap.Logger
}

// NewConfirmer returns a Confirmer.  Nil collaborators are skipped.
func NewConfirmer(booker Booker, opts Options) *Confirmer {
	c := &Confirmer{
		booker:  booker,
		ledger:  opts.Ledger,
		locker:  opts.Locker,
		refresh: opts.Refresher,
		policy:  opts.Policy,
		timeout: opts.Timeout,
		lockTTL: opts.LockTTL,
		clock:   opts.Clock,
		log:     opts.Log,
	}
	if c.policy == nil {
		c.policy = DefaultPolicy()
	}
	if c.timeout <= 0 {
		c.timeout = 15 * time.Second
	}
	if c.lockTTL <= 0 {
		c.lockTTL = 2 * time.Minute
	}
	if c.clock == nil {
		c.clock = clock.NewSystem()
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Confirm books req.SeatIDs with req.Proof.  On success the booking is
// recorded and the catalog refreshed; refresh and ledger failures are logged
// but do not turn a confirmed booking into an error.  Failures are
// *model.ConfirmRaceLost, *model.ConfirmError or *model.TransportError.
func (c *Confirmer) Confirm(ctx context.Context, req Request) (model.BookingResult, error) {
	log := c.log.With(zap.String("payment_id", req.Proof.PaymentID), zap.String("order_id", req.Proof.QuoteID), zap.Uint64("bus_id", req.BusID))

	if req.Proof.QuoteID != req.Quote.ID {
		log.Warn("refusing proof for a different quote", zap.String("quote_id", req.Quote.ID))
		return model.BookingResult{}, model.ErrStaleResponse
	}
	if req.Proof.PaymentID == "" {
		return model.BookingResult{}, &model.ConfirmError{Reason: "payment id missing"}
	}
	if len(req.SeatIDs) == 0 {
		return model.BookingResult{}, &model.ConfirmError{Reason: "no seats to book"}
	}

	if c.ledger != nil {
		prev, found, err := c.ledger.FindByPaymentID(ctx, req.Proof.PaymentID)
		if err != nil {
			log.Warn("ledger lookup failed", zap.Error(err))
		} else if found {
			log.Info("payment already confirmed; returning recorded booking")
			c.refreshCatalog(ctx, req.BusID, log)
			return prev, nil
		}
	}

	if c.locker != nil {
		release, ok, err := c.locker.Acquire(ctx, req.Proof.PaymentID, c.lockTTL)
		switch {
		case err != nil:
			log.Warn("confirm lock unavailable; continuing without it", zap.Error(err))
		case !ok:
			return model.BookingResult{}, &model.ConfirmError{Reason: "confirmation already in progress for this payment"}
		default:
			defer release()
		}
	}

	bookReq := inventory.BookRequest{
		UserName:          req.UserName,
		BusID:             req.BusID,
		SeatIDs:           append([]uint64(nil), req.SeatIDs...),
		RazorpayOrderID:   req.Proof.QuoteID,
		RazorpayPaymentID: req.Proof.PaymentID,
		RazorpaySignature: req.Proof.Signature,
	}
	if len(req.SeatIDs) == 1 {
		bookReq.SeatID = req.SeatIDs[0]
	}

	resp, err := c.send(ctx, bookReq, req.Proof.PaymentID, log)
	if err != nil {
		return model.BookingResult{}, err
	}

	d := c.policy.Decide(resp, len(req.SeatIDs))
	switch d.Verdict {
	case VerdictSuccess:
		res := model.BookingResult{
			BusID:       req.BusID,
			SeatIDs:     append([]uint64(nil), req.SeatIDs...),
			UserName:    req.UserName,
			OrderID:     req.Proof.QuoteID,
			PaymentID:   req.Proof.PaymentID,
			Amount:      req.Quote.Amount,
			Currency:    req.Quote.Currency,
			Message:     d.Reason,
			ConfirmedAt: c.clock.Now(),
		}
		if c.ledger != nil {
			if err := c.ledger.Record(ctx, res); err != nil {
				log.Error("booking confirmed but ledger write failed", zap.Error(err))
			}
		}
		log.Info("booking confirmed", zap.Uint64s("seat_ids", req.SeatIDs))
		c.refreshCatalog(ctx, req.BusID, log)
		return res, nil
	case VerdictRaceLost:
		log.Info("booking lost a race", zap.Uint64s("lost_seat_ids", d.LostSeatIDs), zap.String("reason", d.Reason))
		return model.BookingResult{}, &model.ConfirmRaceLost{SeatIDs: d.LostSeatIDs, Message: d.Reason}
	default:
		log.Warn("booking rejected", zap.Int("status", resp.Status), zap.String("reason", d.Reason))
		return model.BookingResult{}, &model.ConfirmError{Reason: d.Reason, Status: resp.Status}
	}
}

// send posts the booking, retrying exactly once with the same idempotency
// key when the first call timed out without an answer.
func (c *Confirmer) send(ctx context.Context, req inventory.BookRequest, key string, log *zap.Logger) (inventory.BookResponse, error) {
	resp, err := c.sendOnce(ctx, req, key)
	if err == nil {
		return resp, nil
	}
	var tErr *model.TransportError
	if !errors.As(err, &tErr) || !tErr.Timeout || ctx.Err() != nil {
		return resp, err
	}
	log.Warn("book call timed out; retrying with the same idempotency key", zap.Error(err))
	return c.sendOnce(ctx, req, key)
}

func (c *Confirmer) sendOnce(ctx context.Context, req inventory.BookRequest, key string) (inventory.BookResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.booker.Book(callCtx, req, key)
}

func (c *Confirmer) refreshCatalog(ctx context.Context, busID uint64, log *zap.Logger) {
	if c.refresh == nil {
		return
	}
	if _, err := c.refresh.Load(ctx, busID); err != nil {
		log.Warn("catalog refresh after booking failed", zap.Error(err))
	}
}
