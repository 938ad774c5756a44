package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/grocery-shop/internal/catalog"
	"github.com/vasiliy-maslov/grocery-shop/internal/customer"
	"github.com/vasiliy-maslov/grocery-shop/internal/db"
	"github.com/vasiliy-maslov/grocery-shop/internal/notify"
)

var (
	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrPhoneRequired   = errors.New("customer phone is required")
	ErrInvalidStatus   = errors.New("invalid status")
)

type LineItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type AddressInput struct {
	Line1        string
	City         string
	Pincode      string
	Instructions string
}

type PlaceOrderInput struct {
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Address       *AddressInput
	Items         []LineItem
	PaymentMethod string
	Notes         string
	ScheduledFor  *time.Time
}

type PaymentInput struct {
	Provider          string
	ProviderPaymentID string
	Amount            decimal.Decimal
	Status            string
}

type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	ListOrdersByPhone(ctx context.Context, phone string) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error
	RecordPayment(ctx context.Context, orderID uuid.UUID, input PaymentInput) (*Payment, error)
}

type service struct {
	orders    Repository
	customers customer.Repository
	products  catalog.Repository
	events    notify.Publisher
}

func NewService(orders Repository, customers customer.Repository, products catalog.Repository, events notify.Publisher) Service {
	return &service{
		orders:    orders,
		customers: customers,
		products:  products,
		events:    events,
	}
}

// PlaceOrder runs the whole order placement as one transaction: resolve the
// customer, reserve stock per line, snapshot prices, persist header and items.
// Any reservation failure discards everything done in the same attempt. The
// order-created event goes out only after commit.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Order, error) {
	if len(input.Items) == 0 {
		log.Warn().Msg("service: attempt to place order with no items")
		return nil, fmt.Errorf("service: %w", ErrEmptyOrder)
	}
	for _, line := range input.Items {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("service: product %s: %w", line.ProductID, ErrInvalidQuantity)
		}
	}
	if input.CustomerPhone == "" {
		return nil, fmt.Errorf("service: %w", ErrPhoneRequired)
	}

	placed, err := s.placeOrderTx(ctx, input)
	if err != nil {
		if db.IsTransient(err) {
			log.Warn().Err(err).Msg("service: transient storage failure while placing order")
			return nil, fmt.Errorf("service: failed to place order: %w", db.ErrTransient)
		}
		if errors.Is(err, catalog.ErrStockConflict) {
			log.Warn().Err(err).Str("phone", input.CustomerPhone).Msg("service: order rejected, stock conflict")
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to place order")
		return nil, err
	}

	// Post-commit, fire-and-forget: a lost notification never fails the order.
	s.events.Publish(notify.OrderCreated{OrderID: placed.ID, CustomerPhone: input.CustomerPhone})

	log.Info().
		Stringer("order_id", placed.ID).
		Str("phone", input.CustomerPhone).
		Str("total_amount", placed.TotalAmount.String()).
		Int("items", len(placed.Items)).
		Msg("service: order placed successfully")

	return placed, nil
}

func (s *service) placeOrderTx(ctx context.Context, input PlaceOrderInput) (placed *Order, err error) {
	tx, err := s.orders.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to begin order transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("service: failed to rollback order transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("service: failed to rollback order transaction")
			}
		} else if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("service: failed to commit order transaction: %w", commitErr)
			placed = nil
		}
	}()

	cust, err := s.customers.GetOrCreateByPhone(ctx, tx, input.CustomerPhone, input.CustomerName, input.CustomerEmail)
	if err != nil {
		return nil, fmt.Errorf("service: failed to resolve customer: %w", err)
	}

	var addressID *uuid.UUID
	if input.Address != nil {
		address, addrErr := s.customers.CreateAddress(ctx, tx, cust.ID,
			input.Address.Line1, input.Address.City, input.Address.Pincode, input.Address.Instructions)
		if addrErr != nil {
			err = fmt.Errorf("service: failed to create address: %w", addrErr)
			return nil, err
		}
		addressID = &address.ID
	}

	paymentMethod := input.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "COD"
	}

	ord := &Order{
		CustomerID:    &cust.ID,
		AddressID:     addressID,
		TotalAmount:   decimal.Zero,
		PaymentMethod: paymentMethod,
		Status:        StatusNew,
		PlacedAt:      time.Now().UTC(),
		ScheduledFor:  input.ScheduledFor,
		Notes:         input.Notes,
	}
	if err = s.orders.InsertOrder(ctx, tx, ord); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, line := range input.Items {
		// Single conditional decrement; failure here aborts the whole order
		// and rolls back every reservation made above.
		unitPrice, reserveErr := s.products.ReserveStock(ctx, tx, line.ProductID, line.Quantity)
		if reserveErr != nil {
			err = reserveErr
			return nil, err
		}

		productID := line.ProductID
		item := &OrderItem{
			OrderID:   ord.ID,
			ProductID: &productID,
			Quantity:  line.Quantity,
			UnitPrice: unitPrice,
		}
		if err = s.orders.InsertItem(ctx, tx, item); err != nil {
			return nil, err
		}

		ord.Items = append(ord.Items, *item)
		total = total.Add(unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	ord.TotalAmount = total
	if err = s.orders.UpdateTotal(ctx, tx, ord.ID, total); err != nil {
		return nil, err
	}

	return ord, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	ord, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Stringer("order_id", id).Msg("service: order not found by id")
			return nil, ErrOrderNotFound
		}

		log.Error().Err(err).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	return ord, nil
}

func (s *service) ListOrdersByPhone(ctx context.Context, phone string) ([]Order, error) {
	if phone == "" {
		return nil, fmt.Errorf("service: %w", ErrPhoneRequired)
	}

	orders, err := s.orders.ListOrdersByPhone(ctx, phone)
	if err != nil {
		log.Error().Err(err).Str("phone", phone).Msg("service: failed to fetch orders by phone in repository")
		return nil, fmt.Errorf("service: failed to fetch orders by phone: %w", err)
	}

	return orders, nil
}

// UpdateOrderStatus accepts any recognized status value from any current
// status. Unrecognized values are rejected and the order stays unchanged.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) error {
	if !newStatus.Valid() {
		log.Warn().Stringer("order_id", orderID).Str("new_status", string(newStatus)).Msg("service: rejected unrecognized order status")
		return fmt.Errorf("service: status %q: %w", string(newStatus), ErrInvalidStatus)
	}

	err := s.orders.UpdateStatus(ctx, orderID, newStatus)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order status updated")
	return nil
}

func (s *service) RecordPayment(ctx context.Context, orderID uuid.UUID, input PaymentInput) (*Payment, error) {
	if _, err := s.GetOrderByID(ctx, orderID); err != nil {
		return nil, err
	}

	payment := &Payment{
		OrderID:           orderID,
		Provider:          input.Provider,
		ProviderPaymentID: input.ProviderPaymentID,
		Amount:            input.Amount,
		Status:            input.Status,
	}
	if err := s.orders.InsertPayment(ctx, payment); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to record payment in repository")
		return nil, fmt.Errorf("service: failed to record payment: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Str("amount", payment.Amount.String()).Msg("service: payment recorded")
	return payment, nil
}
