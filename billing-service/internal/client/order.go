package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"restaurant-backend/billing-service/internal/billing"
	"restaurant-backend/pkg/apperror"
	"restaurant-backend/pkg/breaker"
)

// OrderClient fetches the order snapshot a bill is based on. Fail-closed: a
// bill with a guessed total is worse than no bill, so an open breaker or a
// failed call aborts generation.
type OrderClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

func NewOrderClient(baseURL string) *OrderClient {
	return &OrderClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cb:         breaker.New("order-service"),
	}
}

func (c *OrderClient) GetOrder(ctx context.Context, id uuid.UUID) (*billing.OrderSnapshot, error) {
	snapshot, err := breaker.Do(c.cb, func() (*billing.OrderSnapshot, error) {
		return c.getOrder(ctx, id)
	})
	if err != nil {
		if appErr, ok := apperror.As(err); ok {
			return nil, appErr
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("Order service call failed")
		return nil, apperror.Unavailable("order-service", "getOrder", err)
	}
	return snapshot, nil
}

func (c *OrderClient) getOrder(ctx context.Context, id uuid.UUID) (*billing.OrderSnapshot, error) {
	url := fmt.Sprintf("%s/orders/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: order request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, apperror.NotFound("order", id)
	default:
		return nil, fmt.Errorf("client: order returned status %d", resp.StatusCode)
	}

	var snapshot billing.OrderSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, fmt.Errorf("client: failed to decode order: %w", err)
	}

	return &snapshot, nil
}
