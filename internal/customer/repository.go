package customer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vasiliy-maslov/grocery-shop/internal/db"
)

var ErrCustomerNotFound = errors.New("customer not found")

// Repository resolves customers and their delivery addresses. All methods run
// on the caller's Querier so they can participate in the order placement
// transaction.
type Repository interface {
	GetOrCreateByPhone(ctx context.Context, q db.Querier, phone, name, email string) (*Customer, error)
	CreateAddress(ctx context.Context, q db.Querier, customerID uuid.UUID, line1, city, pincode, instructions string) (*Address, error)
}

type postgresRepository struct{}

func NewRepository() Repository {
	return &postgresRepository{}
}

// GetOrCreateByPhone looks a customer up by phone and lazily creates the
// record on first contact. Identity fields are first-write-wins: an existing
// customer is returned unchanged even if the incoming name or email differ.
func (r *postgresRepository) GetOrCreateByPhone(ctx context.Context, q db.Querier, phone, name, email string) (*Customer, error) {
	existing, err := r.getByPhone(ctx, q, phone)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return nil, err
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate customer ID: %w", err)
	}

	now := time.Now().UTC()
	insert := `
		INSERT INTO customers (id, name, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (phone) DO NOTHING
	`

	tag, err := q.Exec(ctx, insert, id, name, phone, email, now, now)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to insert customer with phone %s: %w", phone, err)
	}

	// Lost a race against a concurrent insert for the same phone: the other
	// writer's record wins, fetch it.
	if tag.RowsAffected() == 0 {
		return r.getByPhone(ctx, q, phone)
	}

	return &Customer{
		ID:        id,
		Name:      name,
		Phone:     phone,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *postgresRepository) CreateAddress(ctx context.Context, q db.Querier, customerID uuid.UUID, line1, city, pincode, instructions string) (*Address, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate address ID: %w", err)
	}

	now := time.Now().UTC()
	insert := `
		INSERT INTO addresses (id, customer_id, line1, city, pincode, instructions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = q.Exec(ctx, insert, id, customerID, line1, city, pincode, instructions, now)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to insert address for customer %s: %w", customerID, err)
	}

	return &Address{
		ID:           id,
		CustomerID:   customerID,
		Line1:        line1,
		City:         city,
		Pincode:      pincode,
		Instructions: instructions,
		CreatedAt:    now,
	}, nil
}

func (r *postgresRepository) getByPhone(ctx context.Context, q db.Querier, phone string) (*Customer, error) {
	query := `
		SELECT id, name, phone, email, created_at, updated_at
		FROM customers
		WHERE phone = $1
	`

	var customer Customer
	err := q.QueryRow(ctx, query, phone).Scan(
		&customer.ID,
		&customer.Name,
		&customer.Phone,
		&customer.Email,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("repository: failed to select customer by phone %s: %w", phone, err)
	}

	return &customer, nil
}
