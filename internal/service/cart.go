// Package service implements the storefront's session-scoped business
// logic on top of the persistence and upstream layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/caphe-pos/storefront/internal/cart"
	"github.com/caphe-pos/storefront/internal/catalog"
	"github.com/caphe-pos/storefront/internal/notify"
)

// ErrProductNotFound signals an add for a product the catalog does not have.
var ErrProductNotFound = errors.New("product not found")

// CartStore persists carts between requests.
type CartStore interface {
	LoadCart(ctx context.Context, sessionID string) (*cart.Cart, error)
	SaveCart(ctx context.Context, sessionID string, c *cart.Cart) error
}

// ProductSource resolves products for cart snapshots.
type ProductSource interface {
	Product(ctx context.Context, id string) (catalog.Product, error)
}

// sessionLocks serializes cart mutations per session so concurrent
// requests against the same cart never interleave load and save.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (s *sessionLocks) lock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks == nil {
		s.locks = make(map[string]*sync.Mutex)
	}
	l, ok := s.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[sessionID] = l
	}
	return l
}

// CartService owns all cart reads and mutations.
type CartService struct {
	store    CartStore
	products ProductSource
	bus      *notify.Bus
	locks    sessionLocks
}

func NewCartService(store CartStore, products ProductSource, bus *notify.Bus) *CartService {
	return &CartService{store: store, products: products, bus: bus}
}

// Cart returns the session's current cart.
func (s *CartService) Cart(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return s.store.LoadCart(ctx, sessionID)
}

// AddItem adds a product to the cart, merging with an existing line
// when the product and option selection match.
func (s *CartService) AddItem(ctx context.Context, sessionID, productID string, quantity int, opts []cart.SelectedOption) (*cart.Cart, error) {
	p, err := s.products.Product(ctx, productID)
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, sessionID, func(c *cart.Cart) {
		c.AddItem(p, quantity, opts)
	})
}

// UpdateQuantity sets a line's quantity; zero or below removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, lineID string, quantity int) (*cart.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Cart) {
		c.UpdateQuantity(lineID, quantity)
	})
}

// RemoveItem deletes a line regardless of quantity.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, lineID string) (*cart.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Cart) {
		c.RemoveItem(lineID)
	})
}

// Clear empties the cart.
func (s *CartService) Clear(ctx context.Context, sessionID string) (*cart.Cart, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Cart) {
		c.Clear()
	})
}

func (s *CartService) mutate(ctx context.Context, sessionID string, fn func(*cart.Cart)) (*cart.Cart, error) {
	l := s.locks.lock(sessionID)
	l.Lock()
	defer l.Unlock()

	c, err := s.store.LoadCart(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	fn(c)
	if err := s.store.SaveCart(ctx, sessionID, c); err != nil {
		return nil, err
	}

	s.publishTotals(sessionID, c)
	return c, nil
}

func (s *CartService) publishTotals(sessionID string, c *cart.Cart) {
	if s.bus == nil {
		return
	}
	totals := c.Totals()
	s.bus.Publish(notify.Event{
		Type:      notify.EventCartUpdated,
		SessionID: sessionID,
		Cart:      &notify.CartUpdate{ItemCount: totals.ItemCount, TotalPrice: totals.TotalPrice},
	})
}
