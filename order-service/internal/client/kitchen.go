package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"restaurant-backend/order-service/internal/order"
	"restaurant-backend/pkg/apperror"
	"restaurant-backend/pkg/breaker"
)

// KitchenClient pushes order items to the kitchen queue. Fail-closed: the
// order cannot legitimately proceed to IN_KITCHEN without the kitchen
// acknowledging, so the fallback is ServiceUnavailable, never a silent skip.
type KitchenClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

func NewKitchenClient(baseURL string) *KitchenClient {
	return &KitchenClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cb:         breaker.New("kitchen-service"),
	}
}

func (c *KitchenClient) AddToQueue(ctx context.Context, push order.KitchenPush) error {
	_, err := breaker.Do(c.cb, func() (struct{}, error) {
		return struct{}{}, c.addToQueue(ctx, push)
	})
	if err != nil {
		log.Error().Err(err).Stringer("order_id", push.OrderID).Msg("Kitchen push failed")
		return apperror.Unavailable("kitchen-service", "addToQueue", err)
	}
	return nil
}

func (c *KitchenClient) addToQueue(ctx context.Context, push order.KitchenPush) error {
	body, err := json.Marshal(push)
	if err != nil {
		return fmt.Errorf("client: failed to marshal kitchen push: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/kitchen/queue", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("client: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: kitchen request failed: %w", err)
	}
	defer resp.Body.Close()

	// The kitchen answers as soon as the item is queued; 200 covers the
	// idempotent already-queued case.
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("client: kitchen returned status %d", resp.StatusCode)
	}
	return nil
}
