package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/caphe-pos/storefront/internal/enum"
	"github.com/caphe-pos/storefront/internal/service"
	"github.com/caphe-pos/storefront/internal/upstream"
)

// CheckoutOps defines the checkout operation needed by this handler.
// Satisfied by *service.CheckoutService.
type CheckoutOps interface {
	Checkout(ctx context.Context, sessionID string, in service.CheckoutInput) (service.CheckoutResult, error)
}

// CheckoutHandler turns a session cart into a submitted order.
type CheckoutHandler struct {
	checkout CheckoutOps
}

func NewCheckoutHandler(checkout CheckoutOps) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// RegisterRoutes registers the checkout endpoint on the given Chi
// router. Expected to be mounted inside a session-scoped subrouter.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
}

// --- Request / Response types ---

type checkoutRequest struct {
	CustomerName    string `json:"customer_name"`
	OrderType       string `json:"order_type"`
	PaymentMethod   string `json:"payment_method"`
	TableNumber     string `json:"table_number"`
	NeedsAssistance bool   `json:"needs_assistance"`
	Note            string `json:"note"`
	CustomerEmail   string `json:"customer_email"`
	EmailReceipt    bool   `json:"email_receipt"`
}

type checkoutResponse struct {
	OrderID     int64                `json:"order_id"`
	TableNumber string               `json:"table_number,omitempty"`
	TotalPrice  decimal.Decimal      `json:"total_price"`
	Orders      []guestOrderResponse `json:"orders"`
}

// --- Handlers ---

// Checkout submits the cart as an order to the kitchen backend.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.OrderType == "" {
		req.OrderType = enum.OrderTypeDineIn
	}
	if !enum.IsValidOrderType(req.OrderType) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_type"})
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = enum.PaymentMethodCash
	}
	if !enum.IsValidPaymentMethod(req.PaymentMethod) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment_method"})
		return
	}
	if req.EmailReceipt && req.CustomerEmail == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "customer_email is required for email receipts"})
		return
	}

	res, err := h.checkout.Checkout(r.Context(), chi.URLParam(r, "sid"), service.CheckoutInput{
		CustomerName:    req.CustomerName,
		OrderType:       req.OrderType,
		PaymentMethod:   req.PaymentMethod,
		TableNumber:     req.TableNumber,
		NeedsAssistance: req.NeedsAssistance,
		Note:            req.Note,
		CustomerEmail:   req.CustomerEmail,
		EmailReceipt:    req.EmailReceipt,
	})
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	resp := checkoutResponse{
		OrderID:     res.OrderID,
		TableNumber: res.TableNumber,
		TotalPrice:  res.Total.TotalPrice,
		Orders:      toGuestOrderResponses(res.Orders),
	}
	writeJSON(w, http.StatusCreated, resp)
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart is empty"})
	case errors.Is(err, service.ErrCheckoutInFlight):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "checkout already in progress"})
	case errors.Is(err, upstream.ErrUnreachable):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": upstream.UnreachableMessage})
	case errors.As(err, &apiErr):
		// Pass through business rejections (table conflicts and the
		// like) with the backend's own message.
		writeJSON(w, apiErr.StatusCode, map[string]string{"error": apiErr.Message})
	default:
		log.Printf("ERROR: checkout: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
