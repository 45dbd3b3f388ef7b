// Package upstream is the REST client for the kitchen backend that owns
// products and orders. The storefront never trusts its payload types:
// ids, prices and table numbers arrive as numbers or strings depending
// on backend version.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caphe-pos/storefront/internal/cart"
	"github.com/caphe-pos/storefront/internal/catalog"
)

// UnreachableMessage is the localized message shown for connectivity
// failures, matching the storefront's existing copy.
const UnreachableMessage = "Không thể kết nối tới máy chủ. Vui lòng thử lại."

// ErrUnreachable marks network-level failures (DNS, refused connection,
// timeout). Handlers map it to 502 with UnreachableMessage.
var ErrUnreachable = errors.New("backend unreachable")

// APIError carries a non-2xx backend response. Message holds the
// server-provided error text when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Client talks to the kitchen backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// --- Products ---

// FetchProducts retrieves and normalizes the product catalog.
func (c *Client) FetchProducts(ctx context.Context) ([]catalog.Product, error) {
	body, err := c.do(ctx, http.MethodGet, "/products", nil)
	if err != nil {
		return nil, err
	}
	products, err := catalog.NormalizeProducts(body)
	if err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

// --- Orders ---

// OrderItemPayload is one line of an order submission.
type OrderItemPayload struct {
	ProductID       string                `json:"product_id"`
	Quantity        int                   `json:"quantity"`
	SelectedOptions []cart.SelectedOption `json:"selected_options,omitempty"`
}

// CreateOrderPayload is the POST /orders body.
type CreateOrderPayload struct {
	CustomerName    string             `json:"customer_name"`
	Items           []OrderItemPayload `json:"items"`
	TotalPrice      float64            `json:"total_price"`
	OrderType       string             `json:"order_type,omitempty"`
	PaymentMethod   string             `json:"payment_method,omitempty"`
	TableNumber     string             `json:"table_number,omitempty"`
	NeedsAssistance bool               `json:"needs_assistance,omitempty"`
	Note            string             `json:"note,omitempty"`
	CustomerEmail   string             `json:"customer_email,omitempty"`
	EmailReceipt    bool               `json:"email_receipt,omitempty"`
}

// CreateOrderResult is the backend's answer to a successful submission.
// TableNumber is set when the backend assigned a dine-in table itself.
type CreateOrderResult struct {
	OrderID     int64
	TableNumber string
}

// CreateOrder submits an order. There is no idempotency key: a retry
// after a timeout can duplicate the order on the backend side, which is
// why callers guard against concurrent submissions instead.
func (c *Client) CreateOrder(ctx context.Context, payload CreateOrderPayload) (CreateOrderResult, error) {
	body, err := c.do(ctx, http.MethodPost, "/orders", payload)
	if err != nil {
		return CreateOrderResult{}, err
	}

	var raw struct {
		OrderID     json.RawMessage `json:"order_id"`
		TableNumber json.RawMessage `json:"table_number"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return CreateOrderResult{}, fmt.Errorf("decode order response: %w", err)
	}

	id, ok := rawToInt(raw.OrderID)
	if !ok {
		return CreateOrderResult{}, fmt.Errorf("order response missing order_id")
	}
	return CreateOrderResult{
		OrderID:     id,
		TableNumber: rawToString(raw.TableNumber),
	}, nil
}

// OrderDetail is the tracked view of a backend order.
type OrderDetail struct {
	ID           int64
	Status       string
	TotalPrice   float64
	CustomerName string
	TableNumber  string
	Items        []OrderItemDetail
	CreatedAt    string
	UpdatedAt    string
}

// OrderItemDetail is one line of a fetched order.
type OrderItemDetail struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// GetOrder fetches a single order by id.
func (c *Client) GetOrder(ctx context.Context, id int64) (OrderDetail, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil)
	if err != nil {
		return OrderDetail{}, err
	}

	var raw struct {
		ID           json.RawMessage   `json:"id"`
		Status       string            `json:"status"`
		TotalPrice   json.RawMessage   `json:"total_price"`
		CustomerName string            `json:"customer_name"`
		TableNumber  json.RawMessage   `json:"table_number"`
		Items        []OrderItemDetail `json:"items"`
		CreatedAt    string            `json:"created_at"`
		UpdatedAt    string            `json:"updated_at"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return OrderDetail{}, fmt.Errorf("decode order %d: %w", id, err)
	}

	detail := OrderDetail{
		ID:           id,
		Status:       raw.Status,
		CustomerName: raw.CustomerName,
		TableNumber:  rawToString(raw.TableNumber),
		Items:        raw.Items,
		CreatedAt:    raw.CreatedAt,
		UpdatedAt:    raw.UpdatedAt,
	}
	if f, ok := rawToFloat(raw.TotalPrice); ok {
		detail.TotalPrice = f
	}
	return detail, nil
}

// UpdateOrderStatus sets an order's status via PUT /orders/{id}.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/orders/%d", id), map[string]string{"status": status})
	return err
}

// DeleteOrder removes an order via DELETE /orders/{id}.
func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/orders/%d", id), nil)
	return err
}

// --- Transport ---

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: UnreachableMessage}
		var errBody struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(data, &errBody); err == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
		}
		return nil, apiErr
	}
	return data, nil
}

// --- Loose scalar helpers ---

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func rawToInt(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return v, true
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var v int64
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &v); err == nil {
			return v, true
		}
	}
	return 0, false
}

func rawToFloat(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &v); err == nil {
			return v, true
		}
	}
	return 0, false
}
