package orchestrator

import (
	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
	"github.com/Yusuf8760/bus-booking-frontend/internal/payment"
)

// Phase is the transaction phase of a session.
type Phase string

const (
	PhaseBrowsing   Phase = "browsing"
	PhaseSelecting  Phase = "selecting"
	PhaseQuoting    Phase = "quoting"
	PhasePaying     Phase = "paying"
	PhaseConfirming Phase = "confirming"
	PhaseSettled    Phase = "settled"
	PhaseAborted    Phase = "aborted"
)

// editable reports whether the selection may change in p.
func (p Phase) editable() bool {
	return p == PhaseSelecting || p == PhaseAborted || p == PhaseSettled
}

// inFlight reports whether a checkout is running in p.
func (p Phase) inFlight() bool {
	return p == PhaseQuoting || p == PhasePaying || p == PhaseConfirming
}

// TransactionState is a read-only snapshot of a session's transaction.
type TransactionState struct {
	Phase        Phase                `json:"phase"`
	BusID        uint64               `json:"bus_id,omitempty"`
	UserName     string               `json:"user_name,omitempty"`
	Attempt      uint64               `json:"attempt"`
	Selection    []uint64             `json:"selection"`
	Quote        *model.Quote         `json:"quote,omitempty"`
	Proof        *model.PaymentProof  `json:"proof,omitempty"`
	Message      string               `json:"message,omitempty"`
	ErrorKind    string               `json:"error_kind,omitempty"`
	LastBooking  *model.BookingResult `json:"last_booking,omitempty"`
	PaymentState payment.State        `json:"payment_state"`
}

// SeatView is a seat annotated with its selection state.
type SeatView struct {
	model.Seat
	Selected bool `json:"selected"`
}

// Result is the outcome of one checkout.
type Result struct {
	Attempt uint64
	Booking model.BookingResult
	Err     error
}
