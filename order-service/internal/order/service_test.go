package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-backend/order-service/internal/order"
	"restaurant-backend/order-service/internal/registry"
	"restaurant-backend/pkg/apperror"
	"restaurant-backend/pkg/events"
)

type mockRepository struct {
	createFunc       func(ctx context.Context, o *order.Order) error
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	listFunc         func(ctx context.Context) ([]order.Order, error)
	insertItemFunc   func(ctx context.Context, item *order.OrderItem, newTotal decimal.Decimal, version int64) error
	deleteItemFunc   func(ctx context.Context, orderID, itemID uuid.UUID, newTotal decimal.Decimal, version int64) error
	getItemFunc      func(ctx context.Context, orderID, itemID uuid.UUID) (*order.OrderItem, error)
	updateStatusFunc func(ctx context.Context, id uuid.UUID, next order.OrderStatus, allowedFrom []order.OrderStatus, closedAt *time.Time) (bool, error)
}

func (m *mockRepository) Create(ctx context.Context, o *order.Order) error {
	return m.createFunc(ctx, o)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) List(ctx context.Context) ([]order.Order, error) {
	return m.listFunc(ctx)
}

func (m *mockRepository) InsertItem(ctx context.Context, item *order.OrderItem, newTotal decimal.Decimal, version int64) error {
	return m.insertItemFunc(ctx, item, newTotal, version)
}

func (m *mockRepository) DeleteItem(ctx context.Context, orderID, itemID uuid.UUID, newTotal decimal.Decimal, version int64) error {
	return m.deleteItemFunc(ctx, orderID, itemID, newTotal, version)
}

func (m *mockRepository) GetItem(ctx context.Context, orderID, itemID uuid.UUID) (*order.OrderItem, error) {
	return m.getItemFunc(ctx, orderID, itemID)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, next order.OrderStatus, allowedFrom []order.OrderStatus, closedAt *time.Time) (bool, error) {
	return m.updateStatusFunc(ctx, id, next, allowedFrom, closedAt)
}

type mockRegistry struct {
	createTableFunc    func(ctx context.Context, t *registry.RestaurantTable) error
	getTableFunc       func(ctx context.Context, id uuid.UUID) (*registry.RestaurantTable, error)
	listTablesFunc     func(ctx context.Context) ([]registry.RestaurantTable, error)
	occupyTableFunc    func(ctx context.Context, id uuid.UUID) (bool, error)
	freeTableFunc      func(ctx context.Context, id uuid.UUID) error
	createEmployeeFunc func(ctx context.Context, e *registry.Employee) error
	getEmployeeFunc    func(ctx context.Context, id uuid.UUID) (*registry.Employee, error)
	listEmployeesFunc  func(ctx context.Context) ([]registry.Employee, error)
}

func (m *mockRegistry) CreateTable(ctx context.Context, t *registry.RestaurantTable) error {
	return m.createTableFunc(ctx, t)
}

func (m *mockRegistry) GetTable(ctx context.Context, id uuid.UUID) (*registry.RestaurantTable, error) {
	return m.getTableFunc(ctx, id)
}

func (m *mockRegistry) ListTables(ctx context.Context) ([]registry.RestaurantTable, error) {
	return m.listTablesFunc(ctx)
}

func (m *mockRegistry) OccupyTable(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.occupyTableFunc(ctx, id)
}

func (m *mockRegistry) FreeTable(ctx context.Context, id uuid.UUID) error {
	return m.freeTableFunc(ctx, id)
}

func (m *mockRegistry) CreateEmployee(ctx context.Context, e *registry.Employee) error {
	return m.createEmployeeFunc(ctx, e)
}

func (m *mockRegistry) GetEmployee(ctx context.Context, id uuid.UUID) (*registry.Employee, error) {
	return m.getEmployeeFunc(ctx, id)
}

func (m *mockRegistry) ListEmployees(ctx context.Context) ([]registry.Employee, error) {
	return m.listEmployeesFunc(ctx)
}

type mockMenu struct {
	getDishFunc func(ctx context.Context, dishID uuid.UUID) (*order.Dish, error)
}

func (m *mockMenu) GetDish(ctx context.Context, dishID uuid.UUID) (*order.Dish, error) {
	return m.getDishFunc(ctx, dishID)
}

type mockKitchen struct {
	addToQueueFunc func(ctx context.Context, push order.KitchenPush) error
	pushes         []order.KitchenPush
}

func (m *mockKitchen) AddToQueue(ctx context.Context, push order.KitchenPush) error {
	m.pushes = append(m.pushes, push)
	if m.addToQueueFunc != nil {
		return m.addToQueueFunc(ctx, push)
	}
	return nil
}

type mockBilling struct {
	generateBillFunc func(ctx context.Context, orderID uuid.UUID) error
	calls            int
}

func (m *mockBilling) GenerateBill(ctx context.Context, orderID uuid.UUID) error {
	m.calls++
	if m.generateBillFunc != nil {
		return m.generateBillFunc(ctx, orderID)
	}
	return nil
}

type mockPublisher struct {
	published []publishedEvent
}

type publishedEvent struct {
	topic string
	env   events.Envelope
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, env events.Envelope) error {
	m.published = append(m.published, publishedEvent{topic: routingKey, env: env})
	return nil
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}

type testDeps struct {
	repo      *mockRepository
	registry  *mockRegistry
	menu      *mockMenu
	kitchen   *mockKitchen
	billing   *mockBilling
	publisher *mockPublisher
}

func newTestService(t *testing.T) (order.Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		repo:      &mockRepository{},
		registry:  &mockRegistry{},
		menu:      &mockMenu{},
		kitchen:   &mockKitchen{},
		billing:   &mockBilling{},
		publisher: &mockPublisher{},
	}
	svc := order.NewService(deps.repo, deps.registry, deps.menu, deps.kitchen, deps.billing, deps.publisher)
	return svc, deps
}

func TestService_CreateOrder(t *testing.T) {
	tableID := uuid.Must(uuid.FromString("550e8400-e29b-41d4-a716-446655440000"))
	waiterID := uuid.Must(uuid.FromString("123e4567-e89b-12d3-a456-426614174000"))

	tests := []struct {
		name            string
		getTableFunc    func(ctx context.Context, id uuid.UUID) (*registry.RestaurantTable, error)
		getEmployeeFunc func(ctx context.Context, id uuid.UUID) (*registry.Employee, error)
		occupyTableFunc func(ctx context.Context, id uuid.UUID) (bool, error)
		createFunc      func(ctx context.Context, o *order.Order) error
		wantKind        apperror.Kind
		wantErr         bool
	}{
		{
			name: "table_not_found",
			getTableFunc: func(ctx context.Context, id uuid.UUID) (*registry.RestaurantTable, error) {
				return nil, registry.ErrTableNotFound
			},
			wantErr:  true,
			wantKind: apperror.KindNotFound,
		},
		{
			name: "employee_not_found",
			getTableFunc: func(ctx context.Context, id uuid.UUID) (*registry.RestaurantTable, error) {
				return &registry.RestaurantTable{ID: tableID, Status: registry.TableFree}, nil
			},
			getEmployeeFunc: func(ctx context.Context, id uuid.UUID) (*registry.Employee, error) {
				return nil, registry.ErrEmployeeNotFound
			},
			wantErr:  true,
			wantKind: apperror.KindNotFound,
		},
		{
			name: "table_already_occupied",
			getTableFunc: func(ctx context.Context, id uuid.UUID) (*registry.RestaurantTable, error) {
				return &registry.RestaurantTable{ID: tableID, Status: registry.TableFree}, nil
			},
			getEmployeeFunc: func(ctx context.Context, id uuid.UUID) (*registry.Employee, error) {
				return &registry.Employee{ID: waiterID}, nil
			},
			occupyTableFunc: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return false, nil
			},
			wantErr:  true,
			wantKind: apperror.KindConflict,
		},
		{
			name: "successful_creation",
			getTableFunc: func(ctx context.Context, id uuid.UUID) (*registry.RestaurantTable, error) {
				return &registry.RestaurantTable{ID: tableID, Status: registry.TableFree}, nil
			},
			getEmployeeFunc: func(ctx context.Context, id uuid.UUID) (*registry.Employee, error) {
				return &registry.Employee{ID: waiterID}, nil
			},
			occupyTableFunc: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return true, nil
			},
			createFunc: func(ctx context.Context, o *order.Order) error {
				o.ID = uuid.Must(uuid.NewV4())
				return nil
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService(t)
			deps.registry.getTableFunc = tt.getTableFunc
			deps.registry.getEmployeeFunc = tt.getEmployeeFunc
			deps.registry.occupyTableFunc = tt.occupyTableFunc
			deps.repo.createFunc = tt.createFunc

			o, err := svc.CreateOrder(context.Background(), order.CreateOrderInput{
				TableID:  tableID,
				WaiterID: waiterID,
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.IsKind(err, tt.wantKind))
				assert.Empty(t, deps.publisher.published)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, order.StatusCreated, o.Status)
			assert.True(t, o.TotalAmount.IsZero())
			require.Len(t, deps.publisher.published, 1)
			assert.Equal(t, events.TopicOrderCreated, deps.publisher.published[0].topic)
			assert.Equal(t, events.TypeOrderCreated, deps.publisher.published[0].env.EventType)
		})
	}
}

func TestService_CreateOrder_FreesTableWhenInsertFails(t *testing.T) {
	svc, deps := newTestService(t)
	tableID := mustUUID(t)

	freed := false
	deps.registry.getTableFunc = func(ctx context.Context, id uuid.UUID) (*registry.RestaurantTable, error) {
		return &registry.RestaurantTable{ID: tableID, Status: registry.TableFree}, nil
	}
	deps.registry.getEmployeeFunc = func(ctx context.Context, id uuid.UUID) (*registry.Employee, error) {
		return &registry.Employee{ID: id}, nil
	}
	deps.registry.occupyTableFunc = func(ctx context.Context, id uuid.UUID) (bool, error) {
		return true, nil
	}
	deps.registry.freeTableFunc = func(ctx context.Context, id uuid.UUID) error {
		freed = true
		assert.Equal(t, tableID, id)
		return nil
	}
	deps.repo.createFunc = func(ctx context.Context, o *order.Order) error {
		return errors.New("insert failed")
	}

	_, err := svc.CreateOrder(context.Background(), order.CreateOrderInput{
		TableID:  tableID,
		WaiterID: mustUUID(t),
	})

	require.Error(t, err)
	assert.True(t, freed, "table must be freed when order insert fails")
}

func TestService_AddItem(t *testing.T) {
	orderID := mustUUID(t)
	dishID := mustUUID(t)
	dish := &order.Dish{
		ID:       dishID,
		Name:     "Borscht",
		Price:    decimal.NewFromFloat(12.50),
		IsActive: true,
	}

	t.Run("quantity_below_one", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.AddItem(context.Background(), orderID, order.AddItemInput{DishID: dishID, Quantity: 0})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("dish_lookup_fails_closed", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.menu.getDishFunc = func(ctx context.Context, id uuid.UUID) (*order.Dish, error) {
			return nil, apperror.Unavailable("menu-service", "getDish", errors.New("breaker open"))
		}
		_, err := svc.AddItem(context.Background(), orderID, order.AddItemInput{DishID: dishID, Quantity: 1})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindUnavailable))
	})

	t.Run("snapshots_dish_and_updates_total", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.menu.getDishFunc = func(ctx context.Context, id uuid.UUID) (*order.Dish, error) {
			return dish, nil
		}

		var inserted *order.OrderItem
		var insertedTotal decimal.Decimal
		existing := order.OrderItem{
			ID:        mustUUID(t),
			OrderID:   orderID,
			Quantity:  1,
			UnitPrice: decimal.NewFromFloat(8.00),
		}

		deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{
				ID:          orderID,
				Status:      order.StatusCreated,
				TotalAmount: decimal.NewFromFloat(8.00),
				Version:     3,
				Items:       []order.OrderItem{existing},
			}, nil
		}
		deps.repo.insertItemFunc = func(ctx context.Context, item *order.OrderItem, newTotal decimal.Decimal, version int64) error {
			inserted = item
			insertedTotal = newTotal
			assert.Equal(t, int64(3), version)
			return nil
		}

		_, err := svc.AddItem(context.Background(), orderID, order.AddItemInput{DishID: dishID, Quantity: 2})
		require.NoError(t, err)

		require.NotNil(t, inserted)
		assert.Equal(t, "Borscht", inserted.DishName)
		assert.True(t, inserted.UnitPrice.Equal(decimal.NewFromFloat(12.50)))
		// 8.00 existing + 2 * 12.50
		assert.True(t, insertedTotal.Equal(decimal.NewFromFloat(33.00)), "got %s", insertedTotal)
	})

	t.Run("retries_on_version_conflict", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.menu.getDishFunc = func(ctx context.Context, id uuid.UUID) (*order.Dish, error) {
			return dish, nil
		}
		deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: orderID, Status: order.StatusCreated, Version: 1}, nil
		}

		attempts := 0
		deps.repo.insertItemFunc = func(ctx context.Context, item *order.OrderItem, newTotal decimal.Decimal, version int64) error {
			attempts++
			if attempts == 1 {
				return order.ErrVersionConflict
			}
			return nil
		}

		_, err := svc.AddItem(context.Background(), orderID, order.AddItemInput{DishID: dishID, Quantity: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, attempts)
	})

	t.Run("gives_up_after_bounded_retries", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.menu.getDishFunc = func(ctx context.Context, id uuid.UUID) (*order.Dish, error) {
			return dish, nil
		}
		deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: orderID, Status: order.StatusCreated, Version: 1}, nil
		}

		attempts := 0
		deps.repo.insertItemFunc = func(ctx context.Context, item *order.OrderItem, newTotal decimal.Decimal, version int64) error {
			attempts++
			return order.ErrVersionConflict
		}

		_, err := svc.AddItem(context.Background(), orderID, order.AddItemInput{DishID: dishID, Quantity: 1})
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
		assert.Equal(t, 3, attempts)
	})
}

func TestService_RemoveItem(t *testing.T) {
	orderID := mustUUID(t)
	itemID := mustUUID(t)
	item := order.OrderItem{
		ID:        itemID,
		OrderID:   orderID,
		Quantity:  2,
		UnitPrice: decimal.NewFromFloat(12.50),
	}

	svc, deps := newTestService(t)
	deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
		return &order.Order{
			ID:          orderID,
			Status:      order.StatusCreated,
			TotalAmount: decimal.NewFromFloat(25.00),
			Version:     2,
			Items:       []order.OrderItem{item},
		}, nil
	}
	deps.repo.getItemFunc = func(ctx context.Context, oID, iID uuid.UUID) (*order.OrderItem, error) {
		return &item, nil
	}

	var deletedTotal decimal.Decimal
	deps.repo.deleteItemFunc = func(ctx context.Context, oID, iID uuid.UUID, newTotal decimal.Decimal, version int64) error {
		deletedTotal = newTotal
		return nil
	}

	_, err := svc.RemoveItem(context.Background(), orderID, itemID)
	require.NoError(t, err)
	assert.True(t, deletedTotal.IsZero(), "total must drop to zero, got %s", deletedTotal)
}

func TestService_SendToKitchen(t *testing.T) {
	orderID := mustUUID(t)
	items := []order.OrderItem{
		{ID: mustUUID(t), OrderID: orderID, DishName: "Borscht", Quantity: 1, UnitPrice: decimal.NewFromFloat(12.50)},
		{ID: mustUUID(t), OrderID: orderID, DishName: "Pelmeni", Quantity: 2, UnitPrice: decimal.NewFromFloat(9.00)},
	}

	t.Run("rejects_non_created_order", func(t *testing.T) {
		for _, status := range []order.OrderStatus{order.StatusInKitchen, order.StatusReady, order.StatusClosed} {
			svc, deps := newTestService(t)
			deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
				return &order.Order{ID: orderID, Status: status, Items: items}, nil
			}

			_, err := svc.SendToKitchen(context.Background(), orderID)
			require.Error(t, err, "status %s", status)
			assert.True(t, apperror.IsKind(err, apperror.KindConflict))
			assert.Empty(t, deps.kitchen.pushes)
		}
	})

	t.Run("rejects_empty_order", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: orderID, Status: order.StatusCreated}, nil
		}

		_, err := svc.SendToKitchen(context.Background(), orderID)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
		assert.Empty(t, deps.kitchen.pushes)
	})

	t.Run("kitchen_failure_keeps_order_in_created", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: orderID, Status: order.StatusCreated, Items: items}, nil
		}
		deps.kitchen.addToQueueFunc = func(ctx context.Context, push order.KitchenPush) error {
			return apperror.Unavailable("kitchen-service", "addToQueue", errors.New("connection refused"))
		}

		statusUpdated := false
		deps.repo.updateStatusFunc = func(ctx context.Context, id uuid.UUID, next order.OrderStatus, allowedFrom []order.OrderStatus, closedAt *time.Time) (bool, error) {
			statusUpdated = true
			return true, nil
		}

		_, err := svc.SendToKitchen(context.Background(), orderID)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindUnavailable))
		assert.False(t, statusUpdated, "status must not change when the kitchen push fails")
		assert.Empty(t, deps.publisher.published)
	})

	t.Run("pushes_every_item_then_publishes", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: orderID, Status: order.StatusCreated, Items: items}, nil
		}
		deps.repo.updateStatusFunc = func(ctx context.Context, id uuid.UUID, next order.OrderStatus, allowedFrom []order.OrderStatus, closedAt *time.Time) (bool, error) {
			assert.Equal(t, order.StatusInKitchen, next)
			assert.Equal(t, []order.OrderStatus{order.StatusCreated}, allowedFrom)
			return true, nil
		}

		_, err := svc.SendToKitchen(context.Background(), orderID)
		require.NoError(t, err)

		require.Len(t, deps.kitchen.pushes, 2)
		assert.Equal(t, items[0].ID, deps.kitchen.pushes[0].OrderItemID)
		assert.Equal(t, items[1].ID, deps.kitchen.pushes[1].OrderItemID)

		require.Len(t, deps.publisher.published, 1)
		assert.Equal(t, events.TopicOrderSentToKitchen, deps.publisher.published[0].topic)

		var payload events.OrderSentToKitchen
		require.NoError(t, deps.publisher.published[0].env.Decode(&payload))
		assert.Len(t, payload.Items, 2)
	})

	t.Run("concurrent_transition_conflicts", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: orderID, Status: order.StatusCreated, Items: items}, nil
		}
		deps.repo.updateStatusFunc = func(ctx context.Context, id uuid.UUID, next order.OrderStatus, allowedFrom []order.OrderStatus, closedAt *time.Time) (bool, error) {
			return false, nil
		}

		_, err := svc.SendToKitchen(context.Background(), orderID)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
		assert.Empty(t, deps.publisher.published)
	})
}

func TestService_HandleDishReady(t *testing.T) {
	orderID := mustUUID(t)
	payload := events.DishReady{OrderID: orderID, DishName: "Borscht"}

	t.Run("advances_order_in_kitchen", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.repo.updateStatusFunc = func(ctx context.Context, id uuid.UUID, next order.OrderStatus, allowedFrom []order.OrderStatus, closedAt *time.Time) (bool, error) {
			assert.Equal(t, order.StatusReady, next)
			assert.Equal(t, []order.OrderStatus{order.StatusInKitchen}, allowedFrom)
			return true, nil
		}

		assert.NoError(t, svc.HandleDishReady(context.Background(), payload))
	})

	t.Run("replay_is_a_noop", func(t *testing.T) {
		svc, deps := newTestService(t)
		calls := 0
		deps.repo.updateStatusFunc = func(ctx context.Context, id uuid.UUID, next order.OrderStatus, allowedFrom []order.OrderStatus, closedAt *time.Time) (bool, error) {
			calls++
			return false, nil // already READY or CLOSED
		}

		assert.NoError(t, svc.HandleDishReady(context.Background(), payload))
		assert.NoError(t, svc.HandleDishReady(context.Background(), payload))
		assert.Equal(t, 2, calls)
	})
}

func TestService_CloseOrder(t *testing.T) {
	orderID := mustUUID(t)
	tableID := mustUUID(t)

	t.Run("rejects_order_still_in_created", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.repo.updateStatusFunc = func(ctx context.Context, id uuid.UUID, next order.OrderStatus, allowedFrom []order.OrderStatus, closedAt *time.Time) (bool, error) {
			return false, nil
		}
		deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: orderID, Status: order.StatusCreated}, nil
		}

		_, err := svc.CloseOrder(context.Background(), orderID)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
		assert.Equal(t, 0, deps.billing.calls)
	})

	t.Run("closes_frees_table_and_triggers_billing", func(t *testing.T) {
		svc, deps := newTestService(t)
		now := time.Now().UTC()

		deps.repo.updateStatusFunc = func(ctx context.Context, id uuid.UUID, next order.OrderStatus, allowedFrom []order.OrderStatus, closedAt *time.Time) (bool, error) {
			assert.Equal(t, order.StatusClosed, next)
			assert.ElementsMatch(t, []order.OrderStatus{order.StatusInKitchen, order.StatusReady}, allowedFrom)
			require.NotNil(t, closedAt)
			return true, nil
		}
		deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: orderID, TableID: tableID, Status: order.StatusClosed, ClosedAt: &now}, nil
		}

		freed := false
		deps.registry.freeTableFunc = func(ctx context.Context, id uuid.UUID) error {
			freed = true
			assert.Equal(t, tableID, id)
			return nil
		}

		o, err := svc.CloseOrder(context.Background(), orderID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusClosed, o.Status)
		assert.True(t, freed)
		assert.Equal(t, 1, deps.billing.calls)
	})

	t.Run("billing_failure_does_not_fail_close", func(t *testing.T) {
		svc, deps := newTestService(t)
		deps.repo.updateStatusFunc = func(ctx context.Context, id uuid.UUID, next order.OrderStatus, allowedFrom []order.OrderStatus, closedAt *time.Time) (bool, error) {
			return true, nil
		}
		deps.repo.getByIDFunc = func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
			return &order.Order{ID: orderID, TableID: tableID, Status: order.StatusClosed}, nil
		}
		deps.registry.freeTableFunc = func(ctx context.Context, id uuid.UUID) error { return nil }
		deps.billing.generateBillFunc = func(ctx context.Context, id uuid.UUID) error {
			return apperror.Unavailable("billing-service", "generateBill", errors.New("down"))
		}

		_, err := svc.CloseOrder(context.Background(), orderID)
		assert.NoError(t, err)
	})
}
