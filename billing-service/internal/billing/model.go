package billing

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type BillStatus string

const (
	StatusPending   BillStatus = "PENDING"
	StatusPaid      BillStatus = "PAID"
	StatusCancelled BillStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentOnline PaymentMethod = "ONLINE"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentOnline:
		return true
	}
	return false
}

// Bill is the financial record of one closed order. Subtotal is copied from
// the order at generation time; the derived amounts are recomputed whenever
// the discount changes.
type Bill struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	OrderID        uuid.UUID       `db:"order_id" json:"order_id"`
	TableID        uuid.UUID       `db:"table_id" json:"table_id"`
	WaiterID       uuid.UUID       `db:"waiter_id" json:"waiter_id"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxAmount      decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	ServiceCharge  decimal.Decimal `db:"service_charge" json:"service_charge"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	FinalAmount    decimal.Decimal `db:"final_amount" json:"final_amount"`
	Status         BillStatus      `db:"status" json:"status"`
	PaymentMethod  *PaymentMethod  `db:"payment_method" json:"payment_method,omitempty"`
	IssuedAt       time.Time       `db:"issued_at" json:"issued_at"`
	PaidAt         *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
}

var (
	taxRate     = decimal.NewFromFloat(0.10)
	serviceRate = decimal.NewFromFloat(0.05)
)

// Recalculate derives tax, service charge and the final amount from the
// subtotal and the current discount. Monetary values are rounded to cents.
func (b *Bill) Recalculate() {
	b.TaxAmount = b.Subtotal.Mul(taxRate).Round(2)
	b.ServiceCharge = b.Subtotal.Mul(serviceRate).Round(2)
	b.FinalAmount = b.Subtotal.Add(b.TaxAmount).Add(b.ServiceCharge).Sub(b.DiscountAmount).Round(2)
}
