package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"restaurant-backend/pkg/breaker"
)

// inventoryItem is one stock record as inventory-service reports it.
type inventoryItem struct {
	IngredientID uuid.UUID       `json:"ingredientId"`
	Quantity     decimal.Decimal `json:"quantity"`
	MinQuantity  decimal.Decimal `json:"minQuantity"`
}

// InventoryClient reads the stock list from inventory-service and derives
// ingredient availability from it: an ingredient is available when its
// quantity is above the minimum threshold. Fail-open: when the call fails or
// the breaker is open, everything is assumed available. A missed stock-out
// only delays the kitchen; refusing every order while inventory is down would
// stop the restaurant.
type InventoryClient struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

func NewInventoryClient(baseURL string) *InventoryClient {
	return &InventoryClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 3 * time.Second},
		cb:         breaker.New("inventory-service"),
	}
}

func (c *InventoryClient) AllAvailable(ctx context.Context, ingredientIDs []uuid.UUID) bool {
	if len(ingredientIDs) == 0 {
		return true
	}

	items, err := breaker.Do(c.cb, func() ([]inventoryItem, error) {
		return c.fetchInventory(ctx)
	})
	if err != nil {
		log.Warn().Err(err).Msg("Inventory check failed, assuming ingredients available")
		return true
	}

	stock := make(map[uuid.UUID]inventoryItem, len(items))
	for _, item := range items {
		stock[item.IngredientID] = item
	}

	for _, id := range ingredientIDs {
		item, ok := stock[id]
		if !ok || !item.Quantity.GreaterThan(item.MinQuantity) {
			log.Warn().Stringer("ingredient_id", id).Msg("Ingredient missing or below minimum stock")
			return false
		}
	}

	return true
}

func (c *InventoryClient) fetchInventory(ctx context.Context) ([]inventoryItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/inventory", nil)
	if err != nil {
		return nil, fmt.Errorf("client: failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: inventory request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("client: inventory returned status %d", resp.StatusCode)
	}

	var items []inventoryItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("client: failed to decode inventory response: %w", err)
	}

	return items, nil
}
