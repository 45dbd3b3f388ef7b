package enum

import "strings"

// --- Order lifecycle (assigned by the kitchen backend) ---

const (
	OrderStatusPending       = "pending"
	OrderStatusConfirmed     = "confirmed"
	OrderStatusSentToKitchen = "sent_to_kitchen"
	OrderStatusServed        = "served"
	OrderStatusCancelled     = "cancelled"
)

// IsTerminalStatus reports whether an order can no longer change state.
// Terminal orders may be dismissed from local tracking.
func IsTerminalStatus(s string) bool {
	return s == OrderStatusServed || s == OrderStatusCancelled
}

// NormalizeStatus lowercases and trims a backend status string.
// Blank values fall back to pending, matching how the backend treats new orders.
func NormalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return OrderStatusPending
	}
	return s
}

// --- Order types ---

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"
)

func IsValidOrderType(s string) bool {
	switch s {
	case OrderTypeDineIn, OrderTypeTakeaway, OrderTypeDelivery:
		return true
	}
	return false
}

// --- Payment methods (labels only, never verified) ---

const (
	PaymentMethodCash     = "cash"
	PaymentMethodQRIS     = "qris"
	PaymentMethodTransfer = "transfer"
)

func IsValidPaymentMethod(s string) bool {
	switch s {
	case PaymentMethodCash, PaymentMethodQRIS, PaymentMethodTransfer:
		return true
	}
	return false
}

// --- Product categories ---

const (
	CategoryAll   = "all"
	CategoryCake  = "cake"
	CategoryDrink = "drink"
	CategoryFood  = "food"
)
