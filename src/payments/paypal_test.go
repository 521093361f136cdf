package payments

import (
	"context"
	"encoding/json"
	"errors"
	"eventhub/src/config"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/plutov/paypal/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newPayPalServer(t *testing.T, routes map[string]http.HandlerFunc) *PayPalProvider {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`)
	})
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := paypal.NewClient("client-id", "secret", srv.URL)
	require.NoError(t, err)
	return NewPayPalProvider(client, config.PayPalConfig{
		BrandName: "EventHub",
		ReturnURL: "http://localhost:3000/payment/success",
		CancelURL: "http://localhost:3000/payment/cancel",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestPayPalCreateOrder(t *testing.T) {
	var sent string
	provider := newPayPalServer(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders": func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			sent = string(raw)
			writeJSON(w, http.StatusCreated, map[string]any{
				"id":     "5O190127TN364715T",
				"status": "CREATED",
				"links": []map[string]string{
					{"href": "https://api.sandbox.paypal.com/v2/checkout/orders/5O190127TN364715T", "rel": "self", "method": "GET"},
					{"href": "https://www.sandbox.paypal.com/checkoutnow?token=5O190127TN364715T", "rel": "approve", "method": "GET"},
				},
			})
		},
	})

	order, err := provider.CreateOrder(context.Background(), OrderRequest{
		ReferenceID: "BK1893146400000AB12C",
		Description: "Harbour Lights",
		Amount:      decimal.NewFromInt(200),
		Currency:    "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "5O190127TN364715T", order.ID)
	assert.Equal(t, "https://www.sandbox.paypal.com/checkoutnow?token=5O190127TN364715T", order.ApprovalURL)

	assert.Equal(t, "CAPTURE", gjson.Get(sent, "intent").String())
	assert.Equal(t, "BK1893146400000AB12C", gjson.Get(sent, "purchase_units.0.reference_id").String())
	assert.Equal(t, "200.00", gjson.Get(sent, "purchase_units.0.amount.value").String())
	assert.Equal(t, "USD", gjson.Get(sent, "purchase_units.0.amount.currency_code").String())
	assert.Equal(t, "EventHub", gjson.Get(sent, "application_context.brand_name").String())
}

func TestPayPalCaptureOrder(t *testing.T) {
	var requestID string
	provider := newPayPalServer(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders/5O190127TN364715T/capture": func(w http.ResponseWriter, r *http.Request) {
			requestID = r.Header.Get("PayPal-Request-Id")
			writeJSON(w, http.StatusCreated, map[string]any{
				"id":     "5O190127TN364715T",
				"status": "COMPLETED",
				"purchase_units": []map[string]any{
					{
						"reference_id": "BK1893146400000AB12C",
						"payments": map[string]any{
							"captures": []map[string]any{
								{"id": "3C679366HH908993F", "status": "COMPLETED"},
							},
						},
					},
				},
			})
		},
	})

	capture, err := provider.CaptureOrder(context.Background(), "5O190127TN364715T", "BK1893146400000AB12C-5O190127TN364715T")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", capture.Status)
	assert.Equal(t, "3C679366HH908993F", capture.CaptureID)
	assert.Equal(t, "BK1893146400000AB12C-5O190127TN364715T", requestID)
}

func TestPayPalGetOrder(t *testing.T) {
	provider := newPayPalServer(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders/5O190127TN364715T": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"id":     "5O190127TN364715T",
				"status": "COMPLETED",
				"purchase_units": []map[string]any{
					{
						"reference_id": "BK1893146400000AB12C",
						"payments": map[string]any{
							"captures": []map[string]any{
								{"id": "3C679366HH908993F", "status": "COMPLETED"},
							},
						},
					},
				},
			})
		},
	})

	order, err := provider.GetOrder(context.Background(), "5O190127TN364715T")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", order.Status)
	assert.Equal(t, "3C679366HH908993F", order.CaptureID)
}

func TestPayPalAlreadyCapturedIssue(t *testing.T) {
	provider := newPayPalServer(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders/DONE/capture": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"name":    "UNPROCESSABLE_ENTITY",
				"message": "The requested action could not be performed.",
				"details": []map[string]any{
					{"issue": "ORDER_ALREADY_CAPTURED", "description": "Order already captured."},
				},
			})
		},
	})

	_, err := provider.CaptureOrder(context.Background(), "DONE", "BK1893146400000AB12C-DONE")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "ORDER_ALREADY_CAPTURED", perr.Issue)
	assert.True(t, alreadyCaptured(err))
}

func TestPayPalErrorsCarryStatus(t *testing.T) {
	provider := newPayPalServer(t, map[string]http.HandlerFunc{
		"/v2/checkout/orders/DECLINED/capture": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"name":    "UNPROCESSABLE_ENTITY",
				"message": "The requested action could not be performed.",
			})
		},
	})

	_, err := provider.CaptureOrder(context.Background(), "DECLINED", "")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusUnprocessableEntity, perr.StatusCode)
	assert.Equal(t, "UNPROCESSABLE_ENTITY", perr.Name)
	assert.Equal(t, denied, classify(err))
	assert.False(t, alreadyCaptured(err))
}
