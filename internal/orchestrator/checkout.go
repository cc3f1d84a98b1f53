package orchestrator

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Yusuf8760/bus-booking-frontend/internal/booking"
	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
	"github.com/Yusuf8760/bus-booking-frontend/internal/payment"
)

// checkoutRun is the frozen input of one checkout attempt.
type checkoutRun struct {
	attempt  uint64
	busID    uint64
	seatIDs  []uint64
	userName string
}

// run drives one attempt from quote to a terminal outcome.  Every step
// re-checks the attempt under the lock before touching shared state.
func (o *Orchestrator) run(ctx context.Context, r checkoutRun) Result {
	log := o.log.With(zap.Uint64("attempt", r.attempt), zap.Uint64("bus_id", r.busID))

	// Quoting.
	quote, err := o.quoter.Quote(ctx, r.busID, r.seatIDs)

	o.mu.Lock()
	if r.attempt != o.attempt {
		o.mu.Unlock()
		return Result{Attempt: r.attempt, Err: model.ErrStaleResponse}
	}
	if err == nil {
		if active, ok := o.quoter.Active(); !ok || active.ID != quote.ID {
			err = &model.QuoteError{Reason: "quote expired before payment"}
		}
	}
	if err != nil {
		o.quoter.Invalidate()
		o.phase = PhaseAborted
		o.fail(err)
		o.pruneLocked()
		o.cancelRun = nil
		o.mu.Unlock()
		log.Warn("quote failed", zap.Error(err))
		return Result{Attempt: r.attempt, Err: err}
	}
	o.quote = &quote
	o.phase = PhasePaying
	if err := o.payments.Begin(ctx, quote, payment.Prefill{Name: r.userName}); err != nil {
		o.backToSelectingLocked(err)
		o.mu.Unlock()
		log.Warn("payment could not start", zap.String("order_id", quote.ID), zap.Error(err))
		return Result{Attempt: r.attempt, Err: err}
	}
	o.mu.Unlock()

	// Paying: user-paced, ends on the widget callback or a cancel.
	proof, err := o.payments.Await(ctx)

	o.mu.Lock()
	if r.attempt != o.attempt {
		o.mu.Unlock()
		return Result{Attempt: r.attempt, Err: model.ErrStaleResponse}
	}
	if err == nil && proof.QuoteID != quote.ID {
		// Never hand a proof for another quote to the confirmer.
		err = model.ErrStaleResponse
	}
	if err != nil {
		if errors.Is(err, model.ErrStaleResponse) || errors.Is(err, context.Canceled) {
			err = model.ErrPaymentCancelled
		}
		o.backToSelectingLocked(err)
		o.mu.Unlock()
		log.Info("payment did not complete", zap.String("order_id", quote.ID), zap.Error(err))
		return Result{Attempt: r.attempt, Err: err}
	}
	o.proof = &proof
	o.phase = PhaseConfirming
	o.mu.Unlock()

	// Confirming: not cancellable, a charge exists.
	confirmCtx := context.WithoutCancel(ctx)
	res, err := o.confirmer.Confirm(confirmCtx, booking.Request{
		UserName: r.userName,
		BusID:    r.busID,
		SeatIDs:  r.seatIDs,
		Quote:    quote,
		Proof:    proof,
	})

	var race *model.ConfirmRaceLost
	if errors.As(err, &race) {
		return o.reconcileRaceLost(confirmCtx, r, race, log)
	}

	o.mu.Lock()
	o.cancelRun = nil
	o.quoter.Invalidate()
	o.payments.Reset()
	if err != nil {
		o.phase = PhaseAborted
		o.fail(err)
		o.mu.Unlock()
		log.Warn("booking confirmation failed", zap.String("payment_id", proof.PaymentID), zap.Error(err))
		return Result{Attempt: r.attempt, Err: err}
	}
	o.phase = PhaseSettled
	o.sel.Clear()
	o.quote, o.proof = nil, nil
	o.last = &res
	o.message, o.errKind = "booking confirmed", model.KindNone
	o.mu.Unlock()

	if o.notifier != nil {
		if nErr := o.notifier.BookingConfirmed(confirmCtx, res); nErr != nil {
			log.Warn("booking confirmed event not published", zap.String("payment_id", res.PaymentID), zap.Error(nErr))
		}
	}
	return Result{Attempt: r.attempt, Booking: res}
}

// reconcileRaceLost force-refreshes the catalog, drops the lost seats and
// their partners from the selection and returns to PhaseSelecting.
func (o *Orchestrator) reconcileRaceLost(ctx context.Context, r checkoutRun, race *model.ConfirmRaceLost, log *zap.Logger) Result {
	snap, fErr := o.catalog.Fetch(ctx, r.busID)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelRun = nil
	o.quoter.Invalidate()
	o.payments.Reset()
	o.quote, o.proof = nil, nil
	if fErr != nil {
		log.Warn("catalog refresh after lost race failed", zap.Error(fErr))
	} else {
		o.catalog.Swap(snap)
	}
	removed := o.sel.Prune(o.catalog.Snapshot(), race.SeatIDs...)
	o.phase = PhaseSelecting
	o.fail(race)
	log.Info("seats lost to a concurrent booking", zap.Uint64s("removed", removed))
	return Result{Attempt: r.attempt, Err: race}
}

// backToSelectingLocked ends a payment that produced no charge.  The
// selection is kept, minus seats the last refresh saw booked, and the next
// checkout needs a fresh quote.
func (o *Orchestrator) backToSelectingLocked(err error) {
	o.cancelRun = nil
	o.quoter.Invalidate()
	o.payments.Reset()
	o.quote = nil
	o.phase = PhaseSelecting
	o.fail(err)
	o.pruneLocked()
}
