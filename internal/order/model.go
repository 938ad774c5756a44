package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusNew            OrderStatus = "NEW"
	StatusPreparing      OrderStatus = "PREPARING"
	StatusReady          OrderStatus = "READY"
	StatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	StatusCompleted      OrderStatus = "COMPLETED"
	StatusCancelled      OrderStatus = "CANCELLED"
)

func (os OrderStatus) String() string {
	return string(os)
}

var knownStatuses = map[OrderStatus]bool{
	StatusNew:            true,
	StatusPreparing:      true,
	StatusReady:          true,
	StatusOutForDelivery: true,
	StatusCompleted:      true,
	StatusCancelled:      true,
}

// Valid reports whether os is one of the recognized status values. Any
// recognized status may be set from any other; there is no transition graph.
func (os OrderStatus) Valid() bool {
	return knownStatuses[os]
}

type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID *uuid.UUID      `json:"product_id,omitempty" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"` // price snapshot at order time, immutable
}

type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	CustomerID    *uuid.UUID      `json:"customer_id,omitempty" db:"customer_id"`
	AddressID     *uuid.UUID      `json:"address_id,omitempty" db:"address_id"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentMethod string          `json:"payment_method" db:"payment_method"`
	Status        OrderStatus     `json:"status" db:"status"`
	PlacedAt      time.Time       `json:"placed_at" db:"placed_at"` // set once at creation, never reset
	ScheduledFor  *time.Time      `json:"scheduled_for,omitempty" db:"scheduled_for"`
	Notes         string          `json:"notes,omitempty" db:"notes"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	Items         []OrderItem     `json:"items" db:"-"`
	Payments      []Payment       `json:"payments,omitempty" db:"-"`
}

// Payment is a passive ledger entry attached to an order. Nothing in this
// service reconciles it against a provider.
type Payment struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	OrderID           uuid.UUID       `json:"order_id" db:"order_id"`
	Provider          string          `json:"provider" db:"provider"`
	ProviderPaymentID string          `json:"provider_payment_id" db:"provider_payment_id"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Status            string          `json:"status" db:"status"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}
