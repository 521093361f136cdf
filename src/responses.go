package main

import (
	"encoding/json"
	"errors"
	"eventhub/src/events"
	"eventhub/src/types"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var statusByError = []struct {
	err    error
	status int
}{
	{types.ErrInvalidQuantity, http.StatusBadRequest},
	{types.ErrNoTicketsSelected, http.StatusBadRequest},
	{types.ErrInsufficientInventory, http.StatusBadRequest},
	{types.ErrEventNotBookable, http.StatusBadRequest},
	{types.ErrPaymentDenied, http.StatusBadRequest},
	{types.ErrOrderMismatch, http.StatusBadRequest},
	{types.ErrEmailTaken, http.StatusBadRequest},
	{events.ErrUnsupportedImage, http.StatusBadRequest},
	{types.ErrInvalidCredentials, http.StatusUnauthorized},
	{types.ErrForbidden, http.StatusForbidden},
	{types.ErrAdminRequired, http.StatusForbidden},
	{types.ErrEventNotFound, http.StatusNotFound},
	{types.ErrBookingNotFound, http.StatusNotFound},
	{types.ErrUserNotFound, http.StatusNotFound},
	{types.ErrReservationExpired, http.StatusConflict},
	{types.ErrEventHasBookings, http.StatusConflict},
	{types.ErrInvalidStatusTransition, http.StatusConflict},
	{types.ErrAlreadyPaid, http.StatusConflict},
	{types.ErrBookingBusy, http.StatusConflict},
	{types.ErrTicketUnavailable, http.StatusConflict},
	{events.ErrImagesDisabled, http.StatusServiceUnavailable},
	{types.ErrPaymentProvider, http.StatusBadGateway},
	{types.ErrPaymentProviderTimeout, http.StatusGatewayTimeout},
}

func errorStatus(err error) int {
	var verr *types.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes the domain error as {"error": message}. Unexpected
// errors are attached to the context for the request log and hidden from
// the client.
func respondError(ctx *gin.Context, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		ctx.Error(err)
		ctx.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

// bindError turns a failed ShouldBind into a 400. Malformed ticket
// quantities get the same message as negative ones.
func bindError(ctx *gin.Context, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && strings.HasPrefix(typeErr.Field, "tickets") {
		err = types.ErrInvalidQuantity
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "tiercounts" && strings.Contains(fe.Namespace(), ".Tickets") {
				err = types.ErrInvalidQuantity
				break
			}
		}
	}
	ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// respondStatus is for controllers that already decided the status code.
func respondStatus(ctx *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		ctx.Error(err)
		ctx.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
