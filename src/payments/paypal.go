package payments

import (
	"context"
	"errors"
	"eventhub/src/config"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
)

const captureCompleted = "COMPLETED"

type PayPalProvider struct {
	client *paypal.Client
	cfg    config.PayPalConfig
}

func NewPayPalProvider(client *paypal.Client, cfg config.PayPalConfig) *PayPalProvider {
	return &PayPalProvider{client: client, cfg: cfg}
}

func (p *PayPalProvider) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	units := []paypal.PurchaseUnitRequest{
		{
			ReferenceID: req.ReferenceID,
			Description: req.Description,
			Amount: &paypal.PurchaseUnitAmount{
				Currency: req.Currency,
				Value:    req.Amount.StringFixed(2),
			},
		},
	}
	appCtx := &paypal.ApplicationContext{
		BrandName: p.cfg.BrandName,
		ReturnURL: p.cfg.ReturnURL,
		CancelURL: p.cfg.CancelURL,
	}
	order, err := p.client.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return nil, translate(err)
	}
	out := &Order{ID: order.ID, Status: order.Status}
	for _, link := range order.Links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			out.ApprovalURL = link.Href
			break
		}
	}
	return out, nil
}

func (p *PayPalProvider) CaptureOrder(ctx context.Context, orderID, requestID string) (*Capture, error) {
	resp, err := p.client.CaptureOrderWithPaypalRequestId(ctx, orderID, paypal.CaptureOrderRequest{}, requestID, nil)
	if err != nil {
		return nil, translate(err)
	}
	out := &Capture{OrderID: resp.ID, Status: resp.Status}
	for _, unit := range resp.PurchaseUnits {
		if id := firstCapture(unit.Payments); id != "" {
			out.CaptureID = id
			break
		}
	}
	return out, nil
}

func (p *PayPalProvider) GetOrder(ctx context.Context, orderID string) (*Capture, error) {
	order, err := p.client.GetOrder(ctx, orderID)
	if err != nil {
		return nil, translate(err)
	}
	out := &Capture{OrderID: order.ID, Status: order.Status}
	for _, unit := range order.PurchaseUnits {
		if id := firstCapture(unit.Payments); id != "" {
			out.CaptureID = id
			break
		}
	}
	return out, nil
}

func firstCapture(captured *paypal.CapturedPayments) string {
	if captured == nil {
		return ""
	}
	for _, c := range captured.Captures {
		if c.ID != "" {
			return c.ID
		}
	}
	return ""
}

func (p *PayPalProvider) RefundCapture(ctx context.Context, captureID string, amount decimal.Decimal, currency string) (*Refund, error) {
	resp, err := p.client.RefundCapture(ctx, captureID, paypal.RefundCaptureRequest{
		Amount: &paypal.Money{Currency: currency, Value: amount.StringFixed(2)},
	})
	if err != nil {
		return nil, translate(err)
	}
	return &Refund{ID: resp.ID, Status: resp.Status}, nil
}

func translate(err error) error {
	var resp *paypal.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil {
		perr := &ProviderError{
			StatusCode: resp.Response.StatusCode,
			Name:       resp.Name,
			Message:    resp.Message,
		}
		if len(resp.Details) > 0 {
			perr.Issue = resp.Details[0].Issue
		}
		return perr
	}
	return err
}
