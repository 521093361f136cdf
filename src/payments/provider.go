// Package payments reconciles PayPal orders with bookings.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

type OrderRequest struct {
	ReferenceID string
	Description string
	Amount      decimal.Decimal
	Currency    string
}

type Order struct {
	ID          string
	Status      string
	ApprovalURL string
}

type Capture struct {
	OrderID   string
	Status    string
	CaptureID string
}

type Refund struct {
	ID     string
	Status string
}

// Provider is the slice of the PayPal Orders API the reconciler needs.
type Provider interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	// CaptureOrder is replay-safe for a fixed requestID: PayPal answers a
	// repeated request with the original capture.
	CaptureOrder(ctx context.Context, orderID, requestID string) (*Capture, error)
	// GetOrder reports the order's current state, including any capture.
	GetOrder(ctx context.Context, orderID string) (*Capture, error)
	RefundCapture(ctx context.Context, captureID string, amount decimal.Decimal, currency string) (*Refund, error)
}

// issueAlreadyCaptured is the 422 detail PayPal returns for a second capture
// of the same order.
const issueAlreadyCaptured = "ORDER_ALREADY_CAPTURED"

// ProviderError is a non-2xx answer from the provider. Issue holds the first
// detail code, when PayPal sends one.
type ProviderError struct {
	StatusCode int
	Name       string
	Issue      string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Issue != "" {
		return fmt.Sprintf("paypal responded %d %s (%s): %s", e.StatusCode, e.Name, e.Issue, e.Message)
	}
	return fmt.Sprintf("paypal responded %d %s: %s", e.StatusCode, e.Name, e.Message)
}

func alreadyCaptured(err error) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Issue == issueAlreadyCaptured
}
