package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Yusuf8760/bus-booking-frontend/internal/middleware"
	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
	"github.com/Yusuf8760/bus-booking-frontend/internal/orchestrator"
	"github.com/Yusuf8760/bus-booking-frontend/internal/payment"
	"github.com/Yusuf8760/bus-booking-frontend/internal/session"
	"github.com/Yusuf8760/bus-booking-frontend/internal/utils"
)

// BookingLister lists past bookings of a traveller.
type BookingLister interface {
	ListByUser(ctx context.Context, userName string, limit int) ([]model.BookingResult, error)
}

// SessionHandler exposes one booking transaction per session token.  Every
// method except CreateSession and ListBuses assumes SessionAuth ran.
type SessionHandler struct {
	Registry *session.Registry
	Buses    orchestrator.BusLister
	Ledger   BookingLister // nil when the ledger is disabled
	Secret   string
	TokenTTL time.Duration
	Log      *zap.Logger
}

// NewSessionHandler returns a SessionHandler.  bookings may be nil.
func NewSessionHandler(reg *session.Registry, buses orchestrator.BusLister, bookings BookingLister, secret string, ttl time.Duration, log *zap.Logger) *SessionHandler {
	if reg == nil || buses == nil {
		panic("nil dependency passed to NewSessionHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{Registry: reg, Buses: buses, Ledger: bookings, Secret: secret, TokenTTL: ttl, Log: log}
}

// CreateSession handles POST /v1/sessions.  It starts a session for the
// traveller named in the body and returns its bearer token.
func (h *SessionHandler) CreateSession(c echo.Context) error {
	var body struct {
		UserName string `json:"user_name"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.UserName)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_name is required"})
	}
	s := h.Registry.Create(name)
	tok, err := utils.NewSessionToken(h.Secret, s.ID, name, h.TokenTTL)
	if err != nil {
		h.Registry.Delete(s.ID)
		h.Log.Error("sign session token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create session"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"token":      tok.Token,
		"session_id": s.ID,
		"expires_at": tok.Exp,
	})
}

// EndSession handles DELETE /v1/session.  A session whose confirmation is
// in flight cannot be ended.
func (h *SessionHandler) EndSession(c echo.Context) error {
	if !h.Registry.Delete(middleware.SessionID(c)) {
		if _, ok := h.Registry.Get(middleware.SessionID(c)); ok {
			return writeError(c, model.ErrNotCancellable)
		}
		return sessionNotFound(c)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBuses handles GET /v1/buses.
func (h *SessionHandler) ListBuses(c echo.Context) error {
	buses, err := h.Buses.ListBuses(c.Request().Context())
	if err != nil {
		h.Log.Warn("list buses", zap.Error(err))
		return writeError(c, err)
	}
	if buses == nil {
		buses = []model.Bus{}
	}
	return c.JSON(http.StatusOK, buses)
}

// State handles GET /v1/session.
func (h *SessionHandler) State(c echo.Context) error {
	s, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}
	return c.JSON(http.StatusOK, s.Orch.State())
}

// SelectBus handles POST /v1/session/bus.
func (h *SessionHandler) SelectBus(c echo.Context) error {
	s, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}
	var body struct {
		BusID uint64 `json:"bus_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if _, err := s.Orch.SelectBus(c.Request().Context(), body.BusID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"state": s.Orch.State(),
		"seats": s.Orch.Seats(""),
	})
}

// Seats handles GET /v1/session/seats.  The optional deck query parameter
// restricts the list to "lower" or "upper".
func (h *SessionHandler) Seats(c echo.Context) error {
	s, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}
	var deck model.Deck
	if d := strings.ToLower(strings.TrimSpace(c.QueryParam("deck"))); d != "" {
		if d != string(model.DeckLower) && d != string(model.DeckUpper) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "deck must be lower or upper"})
		}
		deck = model.ParseDeck(d)
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": s.Orch.Seats(deck)})
}

// RefreshSeats handles POST /v1/session/seats/refresh.
func (h *SessionHandler) RefreshSeats(c echo.Context) error {
	s, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}
	if _, err := s.Orch.Refresh(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"state": s.Orch.State(),
		"seats": s.Orch.Seats(""),
	})
}

// ToggleSeat handles POST /v1/session/seats/:id/toggle.  A rejected toggle
// (unknown or booked seat) is not an error: toggled is false and the
// selection is unchanged.
func (h *SessionHandler) ToggleSeat(c echo.Context) error {
	s, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}
	seatID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || seatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	toggled, err := s.Orch.ToggleSeat(seatID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"toggled": toggled, "state": s.Orch.State()})
}

// Checkout handles POST /v1/session/checkout.  It validates the selection
// and starts the checkout in the background, answering 202 with the state.
// The view then polls the state and fetches the checkout options.
func (h *SessionHandler) Checkout(c echo.Context) error {
	s, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}
	var body struct {
		UserName string `json:"user_name"`
	}
	_ = c.Bind(&body) // body is optional
	name := strings.TrimSpace(body.UserName)
	if name == "" {
		name = s.UserName
	}

	ch, err := s.Orch.StartCheckout(context.WithoutCancel(c.Request().Context()), name)
	if err != nil {
		return writeError(c, err)
	}
	log := h.Log.With(zap.String("session_id", s.ID))
	go func() {
		res := <-ch
		switch {
		case res.Err == nil:
			log.Info("checkout finished", zap.Uint64("attempt", res.Attempt), zap.String("payment_id", res.Booking.PaymentID))
		case model.Kind(res.Err) == model.KindStale:
		default:
			log.Info("checkout ended", zap.Uint64("attempt", res.Attempt), zap.String("kind", model.Kind(res.Err)), zap.Error(res.Err))
		}
	}()
	return c.JSON(http.StatusAccepted, s.Orch.State())
}

// CheckoutOptions handles GET /v1/session/checkout-options.  It returns what
// the view opens the payment widget with while a payment is pending.
func (h *SessionHandler) CheckoutOptions(c echo.Context) error {
	s, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}
	opts, ok := s.Widget.Pending()
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no payment pending"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"script_url": s.Widget.ScriptURL,
		"options":    opts,
	})
}

// PaymentCallback handles POST /v1/session/payment/callback.  The body is
// the widget's terminal event.  Events for another order are answered with
// 410 and change nothing.
func (h *SessionHandler) PaymentCallback(c echo.Context) error {
	s, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}
	var ev payment.Event
	if err := c.Bind(&ev); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	switch ev.Kind {
	case payment.EventSuccess, payment.EventDismissed, payment.EventError:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be success, dismissed or error"})
	}
	if err := s.Orch.DeliverPayment(ev); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusAccepted, s.Orch.State())
}

// Cancel handles POST /v1/session/cancel.
func (h *SessionHandler) Cancel(c echo.Context) error {
	s, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}
	if err := s.Orch.Cancel(); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Orch.State())
}

// Bookings handles GET /v1/session/bookings.  It lists the traveller's
// recorded bookings, newest first; limit defaults to 20 and is capped at 100.
func (h *SessionHandler) Bookings(c echo.Context) error {
	s, ok := h.session(c)
	if !ok {
		return sessionNotFound(c)
	}
	if h.Ledger == nil {
		return c.JSON(http.StatusOK, []model.BookingResult{})
	}
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = min(n, 100)
	}
	list, err := h.Ledger.ListByUser(c.Request().Context(), s.UserName, limit)
	if err != nil {
		h.Log.Error("list bookings", zap.String("session_id", s.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if list == nil {
		list = []model.BookingResult{}
	}
	return c.JSON(http.StatusOK, list)
}

// session resolves the caller's session.
func (h *SessionHandler) session(c echo.Context) (*session.Session, bool) {
	return h.Registry.Get(middleware.SessionID(c))
}

func sessionNotFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
}
