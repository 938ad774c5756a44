package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/grocery-shop/internal/catalog"
	"github.com/vasiliy-maslov/grocery-shop/internal/order"
)

type CustomerPayload struct {
	Name  string `json:"name" validate:"omitempty,max=150"`
	Phone string `json:"phone" validate:"required,max=20"`
	Email string `json:"email" validate:"omitempty,email"`
}

type AddressPayload struct {
	Line1        string `json:"line1" validate:"required,max=255"`
	City         string `json:"city" validate:"required,max=100"`
	Pincode      string `json:"pincode" validate:"required,max=20"`
	Instructions string `json:"instructions" validate:"omitempty"`
}

type OrderItemPayload struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CreateOrderRequest struct {
	Customer      CustomerPayload    `json:"customer" validate:"required"`
	Address       *AddressPayload    `json:"address" validate:"omitempty"`
	Items         []OrderItemPayload `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string             `json:"payment_method" validate:"omitempty,max=50"`
	Notes         string             `json:"notes"`
	ScheduledFor  *time.Time         `json:"scheduled_for"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type RecordPaymentRequest struct {
	Provider          string          `json:"provider" validate:"omitempty,max=50"`
	ProviderPaymentID string          `json:"provider_payment_id" validate:"omitempty,max=150"`
	Amount            decimal.Decimal `json:"amount" validate:"required"`
	Status            string          `json:"status" validate:"omitempty,max=50"`
}

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateOrderRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode order request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationErrors(w, err)
		return
	}

	input := order.PlaceOrderInput{
		CustomerName:  requestPayload.Customer.Name,
		CustomerPhone: requestPayload.Customer.Phone,
		CustomerEmail: requestPayload.Customer.Email,
		PaymentMethod: requestPayload.PaymentMethod,
		Notes:         requestPayload.Notes,
		ScheduledFor:  requestPayload.ScheduledFor,
	}

	if requestPayload.Address != nil {
		input.Address = &order.AddressInput{
			Line1:        requestPayload.Address.Line1,
			City:         requestPayload.Address.City,
			Pincode:      requestPayload.Address.Pincode,
			Instructions: requestPayload.Address.Instructions,
		}
	}

	for _, item := range requestPayload.Items {
		productID, err := uuid.FromString(item.ProductID)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid product_id: "+item.ProductID)
			return
		}
		input.Items = append(input.Items, order.LineItem{ProductID: productID, Quantity: item.Quantity})
	}

	placed, err := h.svc.PlaceOrder(r.Context(), input)
	if err != nil {
		var conflictErr *catalog.StockConflictError
		if errors.As(err, &conflictErr) {
			respondWithJSON(w, http.StatusConflict, map[string]string{
				"error":      "insufficient stock",
				"product_id": conflictErr.ProductID.String(),
			})
			return
		}

		log.Error().Err(err).Msg("Failed to place order via service")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, placed)
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if phone == "" {
		respondWithError(w, http.StatusBadRequest, "phone query param is required")
		return
	}

	orders, err := h.svc.ListOrdersByPhone(r.Context(), phone)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list orders via service")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromURL(w, r)
	if !ok {
		return
	}

	ord, err := h.svc.GetOrderByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}

		log.Error().Err(err).Msg("Failed to get order via service")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, ord)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromURL(w, r)
	if !ok {
		return
	}

	var requestPayload UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode status request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	newStatus := order.OrderStatus(requestPayload.Status)
	err := h.svc.UpdateOrderStatus(r.Context(), orderID, newStatus)
	if err != nil {
		if errors.Is(err, order.ErrInvalidStatus) {
			respondWithError(w, http.StatusBadRequest, "invalid status")
			return
		}
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}

		log.Error().Err(err).Msg("Failed to update order status via service")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to update order status")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"new_status": newStatus.String(),
	})
}

func (h *OrderHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromURL(w, r)
	if !ok {
		return
	}

	var requestPayload RecordPaymentRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode payment request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationErrors(w, err)
		return
	}

	payment, err := h.svc.RecordPayment(r.Context(), orderID, order.PaymentInput{
		Provider:          requestPayload.Provider,
		ProviderPaymentID: requestPayload.ProviderPaymentID,
		Amount:            requestPayload.Amount,
		Status:            requestPayload.Status,
	})
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}

		log.Error().Err(err).Msg("Failed to record payment via service")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to record payment")
		return
	}

	respondWithJSON(w, http.StatusCreated, payment)
}

func orderIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, "id")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str("order_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}
	return orderID, true
}
