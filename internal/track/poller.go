// Package track keeps guest order records in sync with the kitchen
// backend. A single poller goroutine refreshes every tracked session
// on an interval; handlers can also force a refresh for one session.
package track

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/caphe-pos/storefront/internal/enum"
	"github.com/caphe-pos/storefront/internal/notify"
	"github.com/caphe-pos/storefront/internal/store"
	"github.com/caphe-pos/storefront/internal/upstream"
)

// OrderFetcher pulls current order state from the kitchen backend.
type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID int64) (upstream.OrderDetail, error)
}

// RecordStore is the persisted tracking state the poller maintains.
type RecordStore interface {
	TrackedSessions(ctx context.Context) ([]string, error)
	GuestOrders(ctx context.Context, sessionID string) ([]store.GuestOrder, error)
	SaveGuestOrders(ctx context.Context, sessionID string, orders []store.GuestOrder) error
}

// Poller refreshes tracked orders on a fixed interval.
type Poller struct {
	fetcher  OrderFetcher
	records  RecordStore
	bus      *notify.Bus
	interval time.Duration

	running atomic.Bool
}

func NewPoller(fetcher OrderFetcher, records RecordStore, bus *notify.Bus, interval time.Duration) *Poller {
	return &Poller{fetcher: fetcher, records: records, bus: bus, interval: interval}
}

// Run polls until the context is cancelled. Cycles that would overlap
// a still-running one are skipped.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.running.CompareAndSwap(false, true) {
				continue
			}
			if err := p.pollAll(ctx); err != nil {
				log.Printf("ERROR: order status poll: %v", err)
			}
			p.running.Store(false)
		}
	}
}

func (p *Poller) pollAll(ctx context.Context) error {
	sessions, err := p.records.TrackedSessions(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, sessionID := range sessions {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := p.RefreshSession(ctx, sessionID); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", sessionID, err))
		}
	}
	return errors.Join(errs...)
}

// RefreshSession re-fetches every non-terminal record for one session
// and persists the merged set. Each order is fetched independently; a
// failure for one order never blocks updates for the rest, and the
// failures come back joined after the whole set is processed.
func (p *Poller) RefreshSession(ctx context.Context, sessionID string) ([]store.GuestOrder, error) {
	records, err := p.records.GuestOrders(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	var (
		errs    []error
		changed bool
	)
	for i := range records {
		if enum.IsTerminalStatus(records[i].Status) {
			continue
		}
		detail, err := p.fetcher.GetOrder(ctx, records[i].ID)
		if err != nil {
			var apiErr *upstream.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == 404 {
				// The kitchen deleted the order; close out the record.
				if records[i].Status != enum.OrderStatusCancelled {
					records[i].Status = enum.OrderStatusCancelled
					p.notice(sessionID, records[i].ID, enum.OrderStatusCancelled)
					changed = true
				}
				continue
			}
			errs = append(errs, fmt.Errorf("order %d: %w", records[i].ID, err))
			continue
		}
		if p.merge(sessionID, &records[i], detail) {
			changed = true
		}
	}

	if changed {
		if err := p.records.SaveGuestOrders(ctx, sessionID, records); err != nil {
			errs = append(errs, fmt.Errorf("persist records: %w", err))
		}
	}
	return records, errors.Join(errs...)
}

// merge folds fresh backend state into the local record and reports
// whether anything changed. A status transition also emits a notice.
func (p *Poller) merge(sessionID string, record *store.GuestOrder, detail upstream.OrderDetail) bool {
	changed := false

	status := enum.NormalizeStatus(detail.Status)
	if status != "" && status != record.Status {
		record.Status = status
		p.notice(sessionID, record.ID, status)
		changed = true
	}
	if detail.TotalPrice > 0 && detail.TotalPrice != record.TotalPrice {
		record.TotalPrice = detail.TotalPrice
		changed = true
	}
	if detail.TableNumber != "" && detail.TableNumber != record.TableNumber {
		record.TableNumber = detail.TableNumber
		changed = true
	}
	if detail.UpdatedAt != "" && detail.UpdatedAt != record.LastUpdated {
		record.LastUpdated = detail.UpdatedAt
		changed = true
	}
	if len(detail.Items) > 0 {
		items := make([]store.GuestOrderItem, 0, len(detail.Items))
		for _, item := range detail.Items {
			items = append(items, store.GuestOrderItem{
				ProductID: item.ProductID,
				Name:      item.Name,
				Quantity:  item.Quantity,
			})
		}
		if !sameItems(record.Items, items) {
			record.Items = items
			changed = true
		}
	}
	return changed
}

func (p *Poller) notice(sessionID string, orderID int64, status string) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(notify.Event{
		Type:      notify.EventOrderNotice,
		SessionID: sessionID,
		Order: &notify.OrderNotice{
			OrderID: orderID,
			Status:  status,
			Message: statusMessage(orderID, status),
		},
	})
}

func statusMessage(orderID int64, status string) string {
	switch status {
	case enum.OrderStatusConfirmed:
		return fmt.Sprintf("Đơn hàng #%d đã được xác nhận", orderID)
	case enum.OrderStatusSentToKitchen:
		return fmt.Sprintf("Đơn hàng #%d đang được chuẩn bị", orderID)
	case enum.OrderStatusServed:
		return fmt.Sprintf("Đơn hàng #%d đã được phục vụ", orderID)
	case enum.OrderStatusCancelled:
		return fmt.Sprintf("Đơn hàng #%d đã bị huỷ", orderID)
	default:
		return fmt.Sprintf("Đơn hàng #%d: %s", orderID, status)
	}
}

func sameItems(a, b []store.GuestOrderItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
