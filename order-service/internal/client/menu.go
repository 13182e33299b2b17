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

	"restaurant-backend/order-service/internal/order"
	"restaurant-backend/pkg/apperror"
	"restaurant-backend/pkg/breaker"
)

// MenuClient resolves dishes from menu-service. Fail-closed: an open breaker
// or a failed call surfaces as ServiceUnavailable, the item cannot be priced.
type MenuClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

func NewMenuClient(baseURL string) *MenuClient {
	return &MenuClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cb:         breaker.New("menu-service"),
	}
}

func (c *MenuClient) GetDish(ctx context.Context, dishID uuid.UUID) (*order.Dish, error) {
	dish, err := breaker.Do(c.cb, func() (*order.Dish, error) {
		return c.getDish(ctx, dishID)
	})
	if err != nil {
		if appErr, ok := apperror.As(err); ok {
			return nil, appErr
		}
		log.Error().Err(err).Stringer("dish_id", dishID).Msg("Menu service call failed")
		return nil, apperror.Unavailable("menu-service", "getDish", err)
	}
	return dish, nil
}

func (c *MenuClient) getDish(ctx context.Context, dishID uuid.UUID) (*order.Dish, error) {
	url := fmt.Sprintf("%s/dishes/%s", c.baseURL, dishID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: menu request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		// A missing dish is the caller's problem, not an outage. Keep the
		// breaker counts clean by not treating it as a failure.
		return nil, apperror.NotFound("dish", dishID)
	default:
		return nil, fmt.Errorf("client: menu returned status %d", resp.StatusCode)
	}

	var dish order.Dish
	if err := json.NewDecoder(resp.Body).Decode(&dish); err != nil {
		return nil, fmt.Errorf("client: failed to decode dish: %w", err)
	}
	if dish.Price.IsZero() && dish.Name == "" {
		return nil, fmt.Errorf("client: menu returned invalid data for dish %s", dishID)
	}

	return &dish, nil
}
