// Package orchestrator runs the booking transaction of one user session:
// pick a bus, pick seats, quote, pay, confirm, reconcile.  It is the only
// holder of cross-phase state and the only owner of the selection.
//
// Every checkout is tagged with an attempt number.  Bus changes and
// cancellations bump the attempt, so results of a superseded attempt are
// discarded with model.ErrStaleResponse instead of being applied.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Yusuf8760/bus-booking-frontend/internal/booking"
	"github.com/Yusuf8760/bus-booking-frontend/internal/catalog"
	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
	"github.com/Yusuf8760/bus-booking-frontend/internal/payment"
	"github.com/Yusuf8760/bus-booking-frontend/internal/selection"
)

// BusLister lists the buses on offer.
type BusLister interface {
	ListBuses(ctx context.Context) ([]model.Bus, error)
}

// Quoter obtains price quotes.
type Quoter interface {
	Quote(ctx context.Context, busID uint64, seatIDs []uint64) (model.Quote, error)
	// Active returns the current quote while it is unexpired.
	Active() (model.Quote, bool)
	Invalidate()
}

// Payments drives the payment widget.  Begin and Reset are called with the
// orchestrator's lock held and must not block on the network.
type Payments interface {
	Begin(ctx context.Context, quote model.Quote, prefill payment.Prefill) error
	Deliver(ev payment.Event) error
	Await(ctx context.Context) (model.PaymentProof, error)
	Reset()
	State() payment.State
}

// Confirmer confirms paid bookings.
type Confirmer interface {
	Confirm(ctx context.Context, req booking.Request) (model.BookingResult, error)
}

// Notifier is told about confirmed bookings.
type Notifier interface {
	BookingConfirmed(ctx context.Context, res model.BookingResult) error
}

// Deps are the collaborators of an Orchestrator.  Notifier may be nil.
type Deps struct {
	Buses     BusLister
	Catalog   *catalog.Catalog
	Quoter    Quoter
	Payments  Payments
	Confirmer Confirmer
	Notifier  Notifier
	Log       *zap.Logger
}

// Orchestrator is the transaction state machine of one session.
type Orchestrator struct {
	buses     BusLister
	catalog   *catalog.Catalog
	quoter    Quoter
	payments  Payments
	confirmer Confirmer
	notifier  Notifier
	log       *zap.Logger

	mu        sync.Mutex
	phase     Phase
	busID     uint64
	busGen    uint64
	attempt   uint64
	userName  string
	sel       selection.Set
	quote     *model.Quote
	proof     *model.PaymentProof
	message   string
	errKind   string
	last      *model.BookingResult
	cancelRun context.CancelFunc
}

// New returns an Orchestrator in PhaseBrowsing.
func New(d Deps) *Orchestrator {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		buses:     d.Buses,
		catalog:   d.Catalog,
		quoter:    d.Quoter,
		payments:  d.Payments,
		confirmer: d.Confirmer,
		notifier:  d.Notifier,
		log:       log,
		phase:     PhaseBrowsing,
	}
}

// ListBuses lists the buses on offer.
func (o *Orchestrator) ListBuses(ctx context.Context) ([]model.Bus, error) {
	return o.buses.ListBuses(ctx)
}

// SelectBus switches the session to busID: the transaction is reset, the
// selection cleared and the seat catalog loaded.  Any checkout still waiting
// on a quote or a payment is abandoned.  It is refused while a confirmation
// is in flight.
func (o *Orchestrator) SelectBus(ctx context.Context, busID uint64) ([]model.Seat, error) {
	if busID == 0 {
		return nil, &model.ValidationError{Reason: "bus id required"}
	}
	o.mu.Lock()
	if o.phase == PhaseConfirming {
		o.mu.Unlock()
		return nil, model.ErrInvalidPhase
	}
	o.abandonLocked()
	o.busGen++
	gen := o.busGen
	o.busID = busID
	o.phase = PhaseBrowsing
	o.sel.Clear()
	o.quote, o.proof = nil, nil
	o.message, o.errKind = "", model.KindNone
	o.catalog.Reset()
	o.mu.Unlock()

	snap, err := o.catalog.Fetch(ctx, busID)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.busGen {
		return nil, model.ErrStaleResponse
	}
	if err != nil {
		o.fail(err)
		return nil, err
	}
	o.catalog.Swap(snap)
	o.phase = PhaseSelecting
	o.log.Info("bus selected", zap.Uint64("bus_id", busID), zap.Int("seats", snap.Len()))
	return snap.Seats(), nil
}

// ToggleSeat flips seatID (or its whole pairing group) in the selection.  It
// reports false when the toggle was rejected because the seat is unknown or
// booked.
func (o *Orchestrator) ToggleSeat(seatID uint64) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.phase.editable() {
		return false, model.ErrInvalidPhase
	}
	if !o.sel.Toggle(o.catalog.Snapshot(), seatID) {
		return false, nil
	}
	if o.phase != PhaseSelecting {
		o.phase = PhaseSelecting
		o.message, o.errKind = "", model.KindNone
	}
	return true, nil
}

// Refresh reloads the seat catalog of the current bus.  Outside a checkout,
// selected seats that became unavailable are dropped together with their
// pairing partners.
func (o *Orchestrator) Refresh(ctx context.Context) ([]model.Seat, error) {
	o.mu.Lock()
	busID, gen := o.busID, o.busGen
	o.mu.Unlock()
	if busID == 0 {
		return nil, model.ErrInvalidPhase
	}

	snap, err := o.catalog.Fetch(ctx, busID)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.busGen {
		return nil, model.ErrStaleResponse
	}
	if err != nil {
		return nil, err
	}
	o.catalog.Swap(snap)
	if o.phase == PhaseBrowsing {
		o.phase = PhaseSelecting
		o.message, o.errKind = "", model.KindNone
	}
	if o.phase.editable() {
		o.pruneLocked()
	}
	return snap.Seats(), nil
}

// pruneLocked drops selected seats the current catalog shows as unavailable.
func (o *Orchestrator) pruneLocked() {
	if removed := o.sel.Prune(o.catalog.Snapshot()); len(removed) > 0 {
		o.log.Info("pruned unavailable seats from selection", zap.Uint64s("seat_ids", removed))
		o.message = "seat no longer available"
	}
}

// Seats lists the seats of deck ("" for all) with their selection state.
func (o *Orchestrator) Seats(deck model.Deck) []SeatView {
	o.mu.Lock()
	defer o.mu.Unlock()
	snap := o.catalog.Snapshot()
	seats := snap.Seats()
	if deck != "" {
		seats = snap.ByDeck(deck)
	}
	out := make([]SeatView, 0, len(seats))
	for _, s := range seats {
		out = append(out, SeatView{Seat: s, Selected: o.sel.Contains(s.ID)})
	}
	return out
}

// StartCheckout validates the selection and starts quote, payment and
// confirmation in the background.  Validation errors are returned
// synchronously; everything else arrives on the returned channel, which
// receives exactly one Result.  The run is detached from ctx's cancellation:
// use Cancel to abandon it.
func (o *Orchestrator) StartCheckout(ctx context.Context, userName string) (<-chan Result, error) {
	userName = strings.TrimSpace(userName)

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.phase.editable() {
		return nil, model.ErrInvalidPhase
	}
	var vErr error
	switch {
	case userName == "":
		vErr = &model.ValidationError{Reason: "user name required"}
	case o.sel.Len() == 0:
		vErr = &model.ValidationError{Reason: "no seats selected"}
	case !o.sel.IsValid(o.catalog.Snapshot()):
		vErr = &model.ValidationError{Reason: "selection contains unavailable seats"}
	}
	if vErr != nil {
		o.message, o.errKind = messageFor(vErr), model.Kind(vErr)
		return nil, vErr
	}

	o.abandonLocked()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.cancelRun = cancel
	o.phase = PhaseQuoting
	o.userName = userName
	o.quote, o.proof = nil, nil
	o.message, o.errKind = "", model.KindNone

	run := checkoutRun{
		attempt:  o.attempt,
		busID:    o.busID,
		seatIDs:  o.sel.IDs(),
		userName: userName,
	}
	ch := make(chan Result, 1)
	o.log.Info("checkout started",
		zap.Uint64("attempt", run.attempt), zap.Uint64("bus_id", run.busID), zap.Uint64s("seat_ids", run.seatIDs))
	go func() {
		defer cancel()
		ch <- o.run(runCtx, run)
	}()
	return ch, nil
}

// Checkout runs a checkout and waits for its outcome.  If ctx ends before a
// confirmation was sent the checkout is cancelled; after that point it runs
// to completion regardless.
func (o *Orchestrator) Checkout(ctx context.Context, userName string) (model.BookingResult, error) {
	ch, err := o.StartCheckout(ctx, userName)
	if err != nil {
		return model.BookingResult{}, err
	}
	select {
	case res := <-ch:
		return res.Booking, res.Err
	case <-ctx.Done():
	}
	if err := o.Cancel(); errors.Is(err, model.ErrNotCancellable) {
		res := <-ch
		return res.Booking, res.Err
	}
	return model.BookingResult{}, ctx.Err()
}

// DeliverPayment hands a payment widget callback to the current attempt.
func (o *Orchestrator) DeliverPayment(ev payment.Event) error {
	return o.payments.Deliver(ev)
}

// Cancel abandons a checkout that has not reached confirmation.  Once the
// confirmation is sent a charge may exist, so it returns
// model.ErrNotCancellable instead.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.phase {
	case PhaseConfirming:
		return model.ErrNotCancellable
	case PhaseQuoting, PhasePaying:
		o.log.Info("checkout cancelled", zap.Uint64("attempt", o.attempt), zap.String("phase", string(o.phase)))
		o.abandonLocked()
		o.phase = PhaseSelecting
		o.quote, o.proof = nil, nil
		o.message, o.errKind = messageFor(model.ErrPaymentCancelled), model.KindPaymentCancelled
	}
	return nil
}

// State returns a snapshot of the transaction.
func (o *Orchestrator) State() TransactionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := TransactionState{
		Phase:        o.phase,
		BusID:        o.busID,
		UserName:     o.userName,
		Attempt:      o.attempt,
		Selection:    o.sel.IDs(),
		Message:      o.message,
		ErrorKind:    o.errKind,
		PaymentState: o.payments.State(),
	}
	if st.Selection == nil {
		st.Selection = []uint64{}
	}
	if o.quote != nil {
		q := *o.quote
		st.Quote = &q
	}
	if o.proof != nil {
		p := *o.proof
		st.Proof = &p
	}
	if o.last != nil {
		b := *o.last
		st.LastBooking = &b
	}
	return st
}

// abandonLocked supersedes the running attempt, if any.  o.mu must be held.
func (o *Orchestrator) abandonLocked() {
	o.attempt++
	if o.cancelRun != nil {
		o.cancelRun()
		o.cancelRun = nil
	}
	o.quoter.Invalidate()
	o.payments.Reset()
}

// fail records err as the user-facing outcome.  o.mu must be held.
func (o *Orchestrator) fail(err error) {
	o.errKind = model.Kind(err)
	o.message = messageFor(err)
}

func messageFor(err error) string {
	var (
		vErr *model.ValidationError
		qErr *model.QuoteError
		pErr *model.PaymentFailed
		rErr *model.ConfirmRaceLost
		cErr *model.ConfirmError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, model.ErrPaymentCancelled):
		return "payment cancelled"
	case errors.As(err, &vErr):
		return vErr.Reason
	case errors.As(err, &qErr):
		return "could not create payment order: " + qErr.Reason
	case errors.As(err, &pErr):
		return "payment failed: " + pErr.Reason
	case errors.As(err, &rErr):
		return "seat no longer available"
	case errors.As(err, &cErr):
		return "booking failed: " + cErr.Reason
	}
	var tErr *model.TransportError
	if errors.As(err, &tErr) {
		return "booking service unavailable, please try again"
	}
	return err.Error()
}
