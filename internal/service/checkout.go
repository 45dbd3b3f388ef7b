package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/caphe-pos/storefront/internal/cart"
	"github.com/caphe-pos/storefront/internal/enum"
	"github.com/caphe-pos/storefront/internal/notify"
	"github.com/caphe-pos/storefront/internal/store"
	"github.com/caphe-pos/storefront/internal/upstream"
)

// GuestLabel names orders placed without a customer name.
const GuestLabel = "Khách lẻ"

var (
	// ErrEmptyCart rejects checkout of a cart with no lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCheckoutInFlight rejects a second checkout while one is running.
	ErrCheckoutInFlight = errors.New("checkout already in progress")
)

// OrderPlacer submits orders to the kitchen backend.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, payload upstream.CreateOrderPayload) (upstream.CreateOrderResult, error)
}

// GuestOrderStore records orders for session-local tracking.
type GuestOrderStore interface {
	AddGuestOrder(ctx context.Context, sessionID string, order store.GuestOrder) ([]store.GuestOrder, error)
}

// ReceiptSender emails order confirmations.
type ReceiptSender interface {
	SendReceipt(ctx context.Context, to string, r notify.Receipt) error
}

// CheckoutInput carries the customer's order form.
type CheckoutInput struct {
	CustomerName    string
	OrderType       string
	PaymentMethod   string
	TableNumber     string
	NeedsAssistance bool
	Note            string
	CustomerEmail   string
	EmailReceipt    bool
}

// CheckoutResult reports the placed order and the refreshed tracking set.
type CheckoutResult struct {
	OrderID     int64
	TableNumber string
	Total       cart.Totals
	Orders      []store.GuestOrder
}

// CheckoutService turns a session's cart into a kitchen order.
type CheckoutService struct {
	carts  CartStore
	orders OrderPlacer
	guest  GuestOrderStore
	bus    *notify.Bus
	mailer ReceiptSender

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewCheckoutService(carts CartStore, orders OrderPlacer, guest GuestOrderStore, bus *notify.Bus, mailer ReceiptSender) *CheckoutService {
	return &CheckoutService{
		carts:    carts,
		orders:   orders,
		guest:    guest,
		bus:      bus,
		mailer:   mailer,
		inFlight: make(map[string]bool),
	}
}

// Checkout submits the cart as an order. The cart is cleared and a
// tracking record is written only after the backend accepts the order;
// any failure leaves the cart intact for retry.
func (s *CheckoutService) Checkout(ctx context.Context, sessionID string, in CheckoutInput) (CheckoutResult, error) {
	if !s.begin(sessionID) {
		return CheckoutResult{}, ErrCheckoutInFlight
	}
	defer s.end(sessionID)

	c, err := s.carts.LoadCart(ctx, sessionID)
	if err != nil {
		return CheckoutResult{}, err
	}
	items := c.Items()
	if len(items) == 0 {
		return CheckoutResult{}, ErrEmptyCart
	}

	name := in.CustomerName
	if name == "" {
		name = GuestLabel
	}
	totals := c.Totals()

	payload := upstream.CreateOrderPayload{
		CustomerName:    name,
		Items:           orderItems(items),
		TotalPrice:      totals.TotalPrice.InexactFloat64(),
		OrderType:       in.OrderType,
		PaymentMethod:   in.PaymentMethod,
		TableNumber:     in.TableNumber,
		NeedsAssistance: in.NeedsAssistance,
		Note:            in.Note,
		CustomerEmail:   in.CustomerEmail,
		EmailReceipt:    in.EmailReceipt,
	}

	created, err := s.orders.CreateOrder(ctx, payload)
	if err != nil {
		return CheckoutResult{}, err
	}

	record := store.GuestOrder{
		ID:           created.OrderID,
		CreatedAt:    time.Now(),
		Status:       enum.OrderStatusPending,
		TotalPrice:   totals.TotalPrice.InexactFloat64(),
		CustomerName: name,
		TableNumber:  created.TableNumber,
		Items:        recordItems(items),
	}
	records, err := s.guest.AddGuestOrder(ctx, sessionID, record)
	if err != nil {
		// The order is already placed; losing the local record is
		// recoverable, failing the checkout now is not.
		log.Printf("ERROR: record guest order %d: %v", created.OrderID, err)
		records = []store.GuestOrder{record}
	}

	c.Clear()
	if err := s.carts.SaveCart(ctx, sessionID, c); err != nil {
		log.Printf("ERROR: clear cart after checkout: %v", err)
	}
	s.publish(sessionID, created.OrderID)
	s.sendReceipt(in, name, created, items, totals)

	return CheckoutResult{
		OrderID:     created.OrderID,
		TableNumber: created.TableNumber,
		Total:       totals,
		Orders:      records,
	}, nil
}

func (s *CheckoutService) begin(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[sessionID] {
		return false
	}
	s.inFlight[sessionID] = true
	return true
}

func (s *CheckoutService) end(sessionID string) {
	s.mu.Lock()
	delete(s.inFlight, sessionID)
	s.mu.Unlock()
}

func (s *CheckoutService) publish(sessionID string, orderID int64) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(notify.Event{
		Type:      notify.EventCartUpdated,
		SessionID: sessionID,
		Cart:      &notify.CartUpdate{},
	})
	s.bus.Publish(notify.Event{
		Type:      notify.EventOrderNotice,
		SessionID: sessionID,
		Order:     &notify.OrderNotice{OrderID: orderID, Status: enum.OrderStatusPending},
	})
}

func (s *CheckoutService) sendReceipt(in CheckoutInput, name string, created upstream.CreateOrderResult, items []cart.LineItem, totals cart.Totals) {
	if s.mailer == nil || !in.EmailReceipt || in.CustomerEmail == "" {
		return
	}
	receipt := notify.Receipt{
		OrderID:      created.OrderID,
		CustomerName: name,
		TableNumber:  created.TableNumber,
		Total:        totals.TotalPrice,
	}
	for _, item := range items {
		receipt.Lines = append(receipt.Lines, notify.ReceiptLine{
			Name:     item.Product.Name,
			Quantity: item.Quantity,
			Total:    item.Total(),
		})
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.mailer.SendReceipt(ctx, in.CustomerEmail, receipt); err != nil {
			log.Printf("ERROR: send receipt for order %d: %v", created.OrderID, err)
		}
	}()
}

func orderItems(items []cart.LineItem) []upstream.OrderItemPayload {
	out := make([]upstream.OrderItemPayload, 0, len(items))
	for _, item := range items {
		out = append(out, upstream.OrderItemPayload{
			ProductID:       item.Product.ID,
			Quantity:        item.Quantity,
			SelectedOptions: item.SelectedOptions,
		})
	}
	return out
}

func recordItems(items []cart.LineItem) []store.GuestOrderItem {
	out := make([]store.GuestOrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, store.GuestOrderItem{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
		})
	}
	return out
}
