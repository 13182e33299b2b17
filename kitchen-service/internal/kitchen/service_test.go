package kitchen_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-backend/kitchen-service/internal/kitchen"
	"restaurant-backend/pkg/apperror"
	"restaurant-backend/pkg/events"
)

type mockRepository struct {
	insertFunc           func(ctx context.Context, item *kitchen.QueueItem) (bool, error)
	getByIDFunc          func(ctx context.Context, id uuid.UUID) (*kitchen.QueueItem, error)
	getByOrderItemIDFunc func(ctx context.Context, orderItemID uuid.UUID) (*kitchen.QueueItem, error)
	listActiveFunc       func(ctx context.Context) ([]kitchen.QueueItem, error)
	listAllFunc          func(ctx context.Context) ([]kitchen.QueueItem, error)
	listByOrderIDFunc    func(ctx context.Context, orderID uuid.UUID) ([]kitchen.QueueItem, error)
	updateStatusFunc     func(ctx context.Context, id uuid.UUID, from, next kitchen.DishStatus) (bool, error)
}

func (m *mockRepository) Insert(ctx context.Context, item *kitchen.QueueItem) (bool, error) {
	return m.insertFunc(ctx, item)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*kitchen.QueueItem, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) GetByOrderItemID(ctx context.Context, orderItemID uuid.UUID) (*kitchen.QueueItem, error) {
	return m.getByOrderItemIDFunc(ctx, orderItemID)
}

func (m *mockRepository) ListActive(ctx context.Context) ([]kitchen.QueueItem, error) {
	return m.listActiveFunc(ctx)
}

func (m *mockRepository) ListAll(ctx context.Context) ([]kitchen.QueueItem, error) {
	return m.listAllFunc(ctx)
}

func (m *mockRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]kitchen.QueueItem, error) {
	return m.listByOrderIDFunc(ctx, orderID)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, next kitchen.DishStatus) (bool, error) {
	return m.updateStatusFunc(ctx, id, from, next)
}

type mockPublisher struct {
	published []events.Envelope
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, env events.Envelope) error {
	m.published = append(m.published, env)
	return nil
}

func TestService_AddToQueue(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())
	orderItemID := uuid.Must(uuid.NewV4())

	validInput := kitchen.AddToQueueInput{
		OrderID:     orderID,
		OrderItemID: orderItemID,
		DishName:    "Borscht",
		Quantity:    2,
	}

	t.Run("missing_ids_rejected", func(t *testing.T) {
		svc := kitchen.NewService(&mockRepository{}, &mockPublisher{})
		_, _, err := svc.AddToQueue(context.Background(), kitchen.AddToQueueInput{DishName: "Borscht"})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("queues_new_dish", func(t *testing.T) {
		repo := &mockRepository{
			insertFunc: func(ctx context.Context, item *kitchen.QueueItem) (bool, error) {
				assert.Equal(t, kitchen.StatusPending, item.Status)
				return true, nil
			},
		}
		svc := kitchen.NewService(repo, &mockPublisher{})

		item, created, err := svc.AddToQueue(context.Background(), validInput)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "Borscht", item.DishName)
	})

	t.Run("duplicate_push_is_a_noop", func(t *testing.T) {
		existing := &kitchen.QueueItem{
			ID:          uuid.Must(uuid.NewV4()),
			OrderID:     orderID,
			OrderItemID: orderItemID,
			DishName:    "Borscht",
			Status:      kitchen.StatusInProgress,
		}
		repo := &mockRepository{
			insertFunc: func(ctx context.Context, item *kitchen.QueueItem) (bool, error) {
				return false, nil
			},
			getByOrderItemIDFunc: func(ctx context.Context, id uuid.UUID) (*kitchen.QueueItem, error) {
				return existing, nil
			},
		}
		svc := kitchen.NewService(repo, &mockPublisher{})

		item, created, err := svc.AddToQueue(context.Background(), validInput)
		require.NoError(t, err)
		assert.False(t, created)
		// существующий статус не сбрасывается
		assert.Equal(t, kitchen.StatusInProgress, item.Status)
	})
}

func TestService_Ingest(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())
	items := []events.KitchenItem{
		{OrderItemID: uuid.Must(uuid.NewV4()), DishName: "Borscht", Quantity: 1},
		{OrderItemID: uuid.Must(uuid.NewV4()), DishName: "Pelmeni", Quantity: 2},
	}

	t.Run("queues_all_items", func(t *testing.T) {
		var inserted []kitchen.QueueItem
		repo := &mockRepository{
			insertFunc: func(ctx context.Context, item *kitchen.QueueItem) (bool, error) {
				inserted = append(inserted, *item)
				return true, nil
			},
		}
		svc := kitchen.NewService(repo, &mockPublisher{})

		require.NoError(t, svc.Ingest(context.Background(), orderID, items))
		require.Len(t, inserted, 2)
		assert.Equal(t, orderID, inserted[0].OrderID)
		assert.Equal(t, items[0].OrderItemID, inserted[0].OrderItemID)
	})

	t.Run("redelivery_skips_existing_rows", func(t *testing.T) {
		inserts := 0
		repo := &mockRepository{
			insertFunc: func(ctx context.Context, item *kitchen.QueueItem) (bool, error) {
				inserts++
				return false, nil // already there
			},
		}
		svc := kitchen.NewService(repo, &mockPublisher{})

		require.NoError(t, svc.Ingest(context.Background(), orderID, items))
		require.NoError(t, svc.Ingest(context.Background(), orderID, items))
		assert.Equal(t, 4, inserts)
	})
}

func TestService_UpdateStatus(t *testing.T) {
	itemID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	newItem := func(status kitchen.DishStatus) *kitchen.QueueItem {
		return &kitchen.QueueItem{
			ID:          itemID,
			OrderID:     orderID,
			OrderItemID: uuid.Must(uuid.NewV4()),
			DishName:    "Borscht",
			Quantity:    1,
			Status:      status,
			CreatedAt:   time.Now().UTC(),
		}
	}

	t.Run("advances_one_step", func(t *testing.T) {
		current := newItem(kitchen.StatusPending)
		repo := &mockRepository{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*kitchen.QueueItem, error) {
				return current, nil
			},
			updateStatusFunc: func(ctx context.Context, id uuid.UUID, from, next kitchen.DishStatus) (bool, error) {
				assert.Equal(t, kitchen.StatusPending, from)
				assert.Equal(t, kitchen.StatusInProgress, next)
				current = newItem(kitchen.StatusInProgress)
				return true, nil
			},
		}
		pub := &mockPublisher{}
		svc := kitchen.NewService(repo, pub)

		item, err := svc.UpdateStatus(context.Background(), itemID, kitchen.StatusInProgress)
		require.NoError(t, err)
		assert.Equal(t, kitchen.StatusInProgress, item.Status)
		assert.Empty(t, pub.published, "no event before READY")
	})

	t.Run("skipping_a_step_conflicts", func(t *testing.T) {
		repo := &mockRepository{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*kitchen.QueueItem, error) {
				return newItem(kitchen.StatusPending), nil
			},
		}
		svc := kitchen.NewService(repo, &mockPublisher{})

		_, err := svc.UpdateStatus(context.Background(), itemID, kitchen.StatusReady)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	})

	t.Run("ready_publishes_dish_ready_once", func(t *testing.T) {
		current := newItem(kitchen.StatusInProgress)
		repo := &mockRepository{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*kitchen.QueueItem, error) {
				return current, nil
			},
			updateStatusFunc: func(ctx context.Context, id uuid.UUID, from, next kitchen.DishStatus) (bool, error) {
				current = newItem(kitchen.StatusReady)
				return true, nil
			},
		}
		pub := &mockPublisher{}
		svc := kitchen.NewService(repo, pub)

		item, err := svc.UpdateStatus(context.Background(), itemID, kitchen.StatusReady)
		require.NoError(t, err)
		assert.Equal(t, kitchen.StatusReady, item.Status)

		require.Len(t, pub.published, 1)
		assert.Equal(t, events.TypeDishReady, pub.published[0].EventType)

		var payload events.DishReady
		require.NoError(t, pub.published[0].Decode(&payload))
		assert.Equal(t, orderID, payload.OrderID)
		assert.Equal(t, "Borscht", payload.DishName)
	})

	t.Run("repeating_ready_does_not_republish", func(t *testing.T) {
		repo := &mockRepository{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*kitchen.QueueItem, error) {
				return newItem(kitchen.StatusReady), nil
			},
		}
		pub := &mockPublisher{}
		svc := kitchen.NewService(repo, pub)

		item, err := svc.UpdateStatus(context.Background(), itemID, kitchen.StatusReady)
		require.NoError(t, err)
		assert.Equal(t, kitchen.StatusReady, item.Status)
		assert.Empty(t, pub.published, "idempotent repeat must not re-publish DISH_READY")
	})

	t.Run("lost_race_conflicts", func(t *testing.T) {
		repo := &mockRepository{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*kitchen.QueueItem, error) {
				return newItem(kitchen.StatusPending), nil
			},
			updateStatusFunc: func(ctx context.Context, id uuid.UUID, from, next kitchen.DishStatus) (bool, error) {
				return false, nil // someone else moved it first
			},
		}
		pub := &mockPublisher{}
		svc := kitchen.NewService(repo, pub)

		_, err := svc.UpdateStatus(context.Background(), itemID, kitchen.StatusInProgress)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
		assert.Empty(t, pub.published)
	})

	t.Run("unknown_item", func(t *testing.T) {
		repo := &mockRepository{
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*kitchen.QueueItem, error) {
				return nil, kitchen.ErrQueueItemNotFound
			},
		}
		svc := kitchen.NewService(repo, &mockPublisher{})

		_, err := svc.UpdateStatus(context.Background(), itemID, kitchen.StatusInProgress)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})
}
