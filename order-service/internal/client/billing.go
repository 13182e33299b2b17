package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/sony/gobreaker"

	"restaurant-backend/pkg/apperror"
	"restaurant-backend/pkg/breaker"
)

// BillingClient triggers bill generation after order closure. The caller
// treats failures as non-fatal, so this client only reports them.
type BillingClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

func NewBillingClient(baseURL string) *BillingClient {
	return &BillingClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cb:         breaker.New("billing-service"),
	}
}

func (c *BillingClient) GenerateBill(ctx context.Context, orderID uuid.UUID) error {
	_, err := breaker.Do(c.cb, func() (struct{}, error) {
		return struct{}{}, c.generateBill(ctx, orderID)
	})
	if err != nil {
		if appErr, ok := apperror.As(err); ok {
			return appErr
		}
		return apperror.Unavailable("billing-service", "generateBill", err)
	}
	return nil
}

func (c *BillingClient) generateBill(ctx context.Context, orderID uuid.UUID) error {
	url := fmt.Sprintf("%s/bills/generate/%s", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("client: failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: billing request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		return nil
	case http.StatusConflict:
		// A bill already exists for this order; re-closing must stay quiet.
		return apperror.Conflict("bill already exists", fmt.Sprintf("order: %s", orderID))
	default:
		return fmt.Errorf("client: billing returned status %d", resp.StatusCode)
	}
}
