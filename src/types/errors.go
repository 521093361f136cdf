package types

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound           = errors.New("event not found")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrEventNotBookable        = errors.New("event is not available for booking")
	ErrNoTicketsSelected       = errors.New("please select at least one ticket")
	ErrInvalidQuantity         = errors.New("ticket quantities must be non-negative whole numbers")
	ErrInsufficientInventory   = errors.New("not enough tickets available")
	ErrForbidden               = errors.New("access denied")
	ErrAdminRequired           = errors.New("Access denied. Admin privileges required.")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrEmailTaken              = errors.New("user already exists")
	ErrPaymentDenied           = errors.New("payment failed")
	ErrPaymentProvider         = errors.New("payment service is unavailable, please try again later")
	ErrPaymentProviderTimeout  = errors.New("payment service timed out, please try again later")
	ErrOrderMismatch           = errors.New("order does not belong to this booking")
	ErrAlreadyPaid             = errors.New("booking is already paid")
	ErrReservationExpired      = errors.New("reservation has expired")
	ErrBookingBusy             = errors.New("booking is being processed, please retry")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrEventHasBookings        = errors.New("event has active bookings")
	ErrReferenceExhausted      = errors.New("could not allocate a unique booking reference")
	ErrTicketUnavailable       = errors.New("ticket is available once the booking is paid")
)

// InsufficientInventoryError names the first tier that could not be served.
type InsufficientInventoryError struct {
	Tier Tier
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("Not enough %s tickets available", e.Tier.Label())
}

func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

// ValidationError wraps malformed input detected past the binding layer.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Err.Error())
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewValidationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}
