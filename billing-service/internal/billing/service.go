package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"restaurant-backend/pkg/apperror"
	"restaurant-backend/pkg/events"
)

// OrderSnapshot is the slice of an order the billing math needs.
type OrderSnapshot struct {
	ID          uuid.UUID       `json:"id"`
	TableID     uuid.UUID       `json:"table_id"`
	WaiterID    uuid.UUID       `json:"waiter_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// OrderPort fetches the order a bill is generated for.
type OrderPort interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderSnapshot, error)
}

// EventPublisher sends envelopes to the bus, fire-and-forget.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, env events.Envelope) error
}

type Service interface {
	GenerateBill(ctx context.Context, orderID uuid.UUID) (*Bill, error)
	PayBill(ctx context.Context, id uuid.UUID, method PaymentMethod) (*Bill, error)
	ApplyDiscount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*Bill, error)
	CancelBill(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetBillByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	GetBillByOrderID(ctx context.Context, orderID uuid.UUID) (*Bill, error)
	ListBills(ctx context.Context, status *BillStatus) ([]Bill, error)
	DeleteBill(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      Repository
	orders    OrderPort
	publisher EventPublisher
}

func NewService(repo Repository, orders OrderPort, publisher EventPublisher) Service {
	return &service{repo: repo, orders: orders, publisher: publisher}
}

// GenerateBill snapshots the order total and creates a PENDING bill. One bill
// per order; a second call answers with a conflict.
func (s *service) GenerateBill(ctx context.Context, orderID uuid.UUID) (*Bill, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate bill id: %w", err)
	}

	bill := &Bill{
		ID:             id,
		OrderID:        order.ID,
		TableID:        order.TableID,
		WaiterID:       order.WaiterID,
		Subtotal:       order.TotalAmount,
		DiscountAmount: decimal.Zero,
		Status:         StatusPending,
		IssuedAt:       time.Now().UTC(),
	}
	bill.Recalculate()

	if err := s.repo.Create(ctx, bill); err != nil {
		if errors.Is(err, ErrBillExists) {
			return nil, apperror.Conflict("bill already exists for order", orderID.String())
		}
		return nil, err
	}

	s.publish(ctx, events.TopicBillGenerated, events.TypeBillGenerated, bill.OrderID, events.BillGenerated{
		BillID:      bill.ID,
		OrderID:     bill.OrderID,
		FinalAmount: bill.FinalAmount,
	})

	log.Info().Stringer("bill_id", bill.ID).Stringer("order_id", bill.OrderID).
		Str("final_amount", bill.FinalAmount.String()).Msg("Bill generated")
	return bill, nil
}

func (s *service) PayBill(ctx context.Context, id uuid.UUID, method PaymentMethod) (*Bill, error) {
	if !method.Valid() {
		return nil, apperror.Validation("payment_method", method, "payment_method must be CASH, CARD or ONLINE")
	}

	bill, err := s.getBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill.Status != StatusPending {
		return nil, apperror.Conflict("only a pending bill can be paid", string(bill.Status))
	}

	now := time.Now().UTC()
	bill.Status = StatusPaid
	bill.PaymentMethod = &method
	bill.PaidAt = &now

	if err := s.repo.Update(ctx, bill); err != nil {
		return nil, fmt.Errorf("service: failed to pay bill: %w", err)
	}

	s.publish(ctx, events.TopicBillPaid, events.TypeBillPaid, bill.OrderID, events.BillPaid{
		BillID:        bill.ID,
		OrderID:       bill.OrderID,
		PaymentMethod: string(method),
	})

	log.Info().Stringer("bill_id", bill.ID).Str("method", string(method)).Msg("Bill paid")
	return bill, nil
}

// ApplyDiscount sets the absolute discount on a pending bill and recomputes
// the final amount.
func (s *service) ApplyDiscount(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*Bill, error) {
	if amount.IsNegative() {
		return nil, apperror.Validation("discount_amount", amount.String(), "discount must not be negative")
	}

	bill, err := s.getBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill.Status != StatusPending {
		return nil, apperror.Conflict("only a pending bill can be discounted", string(bill.Status))
	}

	bill.DiscountAmount = amount
	bill.Recalculate()
	if bill.FinalAmount.IsNegative() {
		return nil, apperror.Validation("discount_amount", amount.String(), "discount exceeds the billed amount")
	}

	if err := s.repo.Update(ctx, bill); err != nil {
		return nil, fmt.Errorf("service: failed to apply discount: %w", err)
	}

	return bill, nil
}

func (s *service) CancelBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	bill, err := s.getBill(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill.Status != StatusPending {
		return nil, apperror.Conflict("only a pending bill can be cancelled", string(bill.Status))
	}

	bill.Status = StatusCancelled
	if err := s.repo.Update(ctx, bill); err != nil {
		return nil, fmt.Errorf("service: failed to cancel bill: %w", err)
	}

	log.Info().Stringer("bill_id", bill.ID).Msg("Bill cancelled")
	return bill, nil
}

func (s *service) GetBillByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return s.getBill(ctx, id)
}

func (s *service) GetBillByOrderID(ctx context.Context, orderID uuid.UUID) (*Bill, error) {
	bill, err := s.repo.GetByOrderID(ctx, orderID)
	if errors.Is(err, ErrBillNotFound) {
		return nil, apperror.NotFound("bill for order", orderID.String())
	}
	if err != nil {
		return nil, err
	}
	return bill, nil
}

func (s *service) ListBills(ctx context.Context, status *BillStatus) ([]Bill, error) {
	return s.repo.List(ctx, status)
}

func (s *service) DeleteBill(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, ErrBillNotFound) {
		return apperror.NotFound("bill", id.String())
	}
	return err
}

func (s *service) getBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	bill, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrBillNotFound) {
		return nil, apperror.NotFound("bill", id.String())
	}
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// publish is fire-and-forget: the bill is already persisted, a bus hiccup
// must not fail the request.
func (s *service) publish(ctx context.Context, topic, eventType string, orderID uuid.UUID, payload any) {
	env, err := events.New(eventType, orderID, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to build event")
		return
	}
	if err := s.publisher.Publish(ctx, topic, env); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("Failed to publish event")
	}
}
