package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

// statusFor maps an error kind to the HTTP status returned to the view.
func statusFor(kind string) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindInvalidPhase, model.KindNotCancellable, model.KindConfirmRaceLost:
		return http.StatusConflict
	case model.KindStale:
		return http.StatusGone
	case model.KindPaymentCancelled, model.KindPaymentFailed:
		return http.StatusPaymentRequired
	case model.KindQuote, model.KindConfirm, model.KindTransport:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError writes err as {"error", "kind"} with the matching status.
// Validation and race errors carry their detail; anything unclassified is
// reported generically.
func writeError(c echo.Context, err error) error {
	kind := model.Kind(err)
	body := echo.Map{"error": err.Error(), "kind": kind}
	var race *model.ConfirmRaceLost
	switch {
	case errors.As(err, &race):
		body["seat_ids"] = race.SeatIDs
	case kind == model.KindUnknown:
		body["error"] = "internal error"
	}
	return c.JSON(statusFor(kind), body)
}
