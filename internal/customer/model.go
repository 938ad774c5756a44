package customer

import (
	"time"

	"github.com/gofrs/uuid"
)

// Customer is deduplicated by phone: the first order from a phone number
// creates the record, later orders reuse it.
type Customer struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name,omitempty" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Address struct {
	ID           uuid.UUID `json:"id" db:"id"`
	CustomerID   uuid.UUID `json:"customer_id" db:"customer_id"`
	Line1        string    `json:"line1" db:"line1"`
	City         string    `json:"city" db:"city"`
	Pincode      string    `json:"pincode" db:"pincode"`
	Instructions string    `json:"instructions,omitempty" db:"instructions"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
