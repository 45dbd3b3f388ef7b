// Package store persists session state in Redis: serialized carts,
// guest order tracking records, and the normalized catalog cache. It
// plays the role browser localStorage plays for the web storefront, so
// corrupt payloads degrade to empty values instead of failing.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caphe-pos/storefront/internal/cart"
	"github.com/caphe-pos/storefront/internal/catalog"
)

const (
	cartKeyPrefix       = "cart:"
	guestOrdersPrefix   = "guest_orders:"
	guestSessionsKey    = "guest_order_sessions"
	catalogKey          = "catalog:products"
	cartTTL             = 30 * 24 * time.Hour
	guestOrdersTTL      = 30 * 24 * time.Hour
	// MaxGuestOrders caps tracked orders per session; oldest are pruned.
	MaxGuestOrders = 20
)

// GuestOrderItem is a line summary kept with a tracking record.
type GuestOrderItem struct {
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
}

// GuestOrder is a client-local tracking record for an order this
// session created. It mirrors what the backend reported last.
type GuestOrder struct {
	ID           int64            `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	Status       string           `json:"status,omitempty"`
	TotalPrice   float64          `json:"total_price,omitempty"`
	CustomerName string           `json:"customer_name,omitempty"`
	LastUpdated  string           `json:"last_updated,omitempty"`
	TableNumber  string           `json:"table_number,omitempty"`
	Items        []GuestOrderItem `json:"items,omitempty"`
}

// Redis is the storefront's persistence layer.
type Redis struct {
	client     *redis.Client
	catalogTTL time.Duration
}

// NewRedis wraps an established client.
func NewRedis(client *redis.Client, catalogTTL time.Duration) *Redis {
	return &Redis{client: client, catalogTTL: catalogTTL}
}

// --- Carts ---

// LoadCart restores a session's cart. A missing key or corrupt payload
// yields an empty cart, never an error the caller must branch on.
func (r *Redis) LoadCart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, cartKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(nil), nil
	}
	if err != nil {
		return nil, err
	}
	return cart.New(decodeCartLines(data)), nil
}

// SaveCart persists the whole cart. An empty cart removes the key.
func (r *Redis) SaveCart(ctx context.Context, sessionID string, c *cart.Cart) error {
	key := cartKeyPrefix + sessionID
	items := c.Items()
	if len(items) == 0 {
		return r.client.Del(ctx, key).Err()
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, cartTTL).Err()
}

// DeleteCart drops the persisted cart outright.
func (r *Redis) DeleteCart(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, cartKeyPrefix+sessionID).Err()
}

// --- Guest order tracking ---

// GuestOrders returns the session's tracking records, newest first.
func (r *Redis) GuestOrders(ctx context.Context, sessionID string) ([]GuestOrder, error) {
	data, err := r.client.Get(ctx, guestOrdersPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeGuestOrders(data), nil
}

// AddGuestOrder prepends a record (replacing any with the same id),
// prunes beyond MaxGuestOrders, and indexes the session for the poller.
func (r *Redis) AddGuestOrder(ctx context.Context, sessionID string, order GuestOrder) ([]GuestOrder, error) {
	existing, err := r.GuestOrders(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	updated := make([]GuestOrder, 0, len(existing)+1)
	updated = append(updated, order)
	for _, o := range existing {
		if o.ID != order.ID {
			updated = append(updated, o)
		}
	}
	if len(updated) > MaxGuestOrders {
		updated = updated[:MaxGuestOrders]
	}

	if err := r.SaveGuestOrders(ctx, sessionID, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// SaveGuestOrders replaces the session's record set. Empty sets delete
// the key and unindex the session.
func (r *Redis) SaveGuestOrders(ctx context.Context, sessionID string, orders []GuestOrder) error {
	key := guestOrdersPrefix + sessionID
	if len(orders) == 0 {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return err
		}
		return r.client.SRem(ctx, guestSessionsKey, sessionID).Err()
	}

	data, err := json.Marshal(orders)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, data, guestOrdersTTL).Err(); err != nil {
		return err
	}
	return r.client.SAdd(ctx, guestSessionsKey, sessionID).Err()
}

// RemoveGuestOrder dismisses one record.
func (r *Redis) RemoveGuestOrder(ctx context.Context, sessionID string, orderID int64) ([]GuestOrder, error) {
	existing, err := r.GuestOrders(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	updated := existing[:0]
	for _, o := range existing {
		if o.ID != orderID {
			updated = append(updated, o)
		}
	}
	if err := r.SaveGuestOrders(ctx, sessionID, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// TrackedSessions lists sessions with at least one tracking record.
func (r *Redis) TrackedSessions(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, guestSessionsKey).Result()
}

// --- Catalog cache ---

// GetProducts returns the cached normalized catalog, if present.
func (r *Redis) GetProducts(ctx context.Context) ([]catalog.Product, bool) {
	data, err := r.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		return nil, false
	}
	var products []catalog.Product
	if err := json.Unmarshal(data, &products); err != nil {
		log.Printf("WARNING: corrupt catalog cache, refetching: %v", err)
		return nil, false
	}
	return products, true
}

// SetProducts caches the catalog for the configured TTL. Failures are
// logged and swallowed; the cache is best-effort.
func (r *Redis) SetProducts(ctx context.Context, products []catalog.Product) {
	data, err := json.Marshal(products)
	if err != nil {
		log.Printf("WARNING: encode catalog cache: %v", err)
		return
	}
	if err := r.client.Set(ctx, catalogKey, data, r.catalogTTL).Err(); err != nil {
		log.Printf("WARNING: write catalog cache: %v", err)
	}
}

// --- Decoding ---

// decodeCartLines tolerates corrupt persisted carts by treating them as
// empty, mirroring how the web client recovers from bad localStorage.
func decodeCartLines(data []byte) []cart.LineItem {
	var lines []cart.LineItem
	if err := json.Unmarshal(data, &lines); err != nil {
		log.Printf("WARNING: corrupt persisted cart, starting empty: %v", err)
		return nil
	}
	return lines
}

func decodeGuestOrders(data []byte) []GuestOrder {
	var orders []GuestOrder
	if err := json.Unmarshal(data, &orders); err != nil {
		log.Printf("WARNING: corrupt guest order records, starting empty: %v", err)
		return nil
	}
	// Records without a server-assigned id are useless for polling.
	valid := orders[:0]
	for _, o := range orders {
		if o.ID > 0 {
			valid = append(valid, o)
		}
	}
	return valid
}
