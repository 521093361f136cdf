package lib

import (
	"eventhub/src/config"
	"fmt"
	"net/http"

	"github.com/plutov/paypal/v4"
)

func NewPayPalClient(cfg config.PayPalConfig) (*paypal.Client, error) {
	base := paypal.APIBaseSandBox
	if cfg.IsLive() {
		base = paypal.APIBaseLive
	}
	c, err := paypal.NewClient(cfg.ClientID, cfg.ClientSecret, base)
	if err != nil {
		return nil, fmt.Errorf("initializing paypal client: %w", err)
	}
	c.Client = &http.Client{Timeout: cfg.Timeout}
	return c, nil
}
