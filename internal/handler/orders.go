package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/caphe-pos/storefront/internal/store"
)

// OrderRecords defines the tracking record methods needed by order
// handlers. Satisfied by *store.Redis.
type OrderRecords interface {
	GuestOrders(ctx context.Context, sessionID string) ([]store.GuestOrder, error)
	RemoveGuestOrder(ctx context.Context, sessionID string, orderID int64) ([]store.GuestOrder, error)
}

// OrderRefresher re-fetches a session's orders from the backend.
// Satisfied by *track.Poller.
type OrderRefresher interface {
	RefreshSession(ctx context.Context, sessionID string) ([]store.GuestOrder, error)
}

// OrderHandler serves the session's order tracking endpoints.
type OrderHandler struct {
	records   OrderRecords
	refresher OrderRefresher
}

func NewOrderHandler(records OrderRecords, refresher OrderRefresher) *OrderHandler {
	return &OrderHandler{records: records, refresher: refresher}
}

// RegisterRoutes registers order tracking endpoints on the given Chi
// router. Expected to be mounted inside a session-scoped subrouter:
// /sessions/{sid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Delete("/{id}", h.Dismiss)
	r.Get("/{id}/qr", h.QR)
}

// --- Response types ---

type guestOrderItemResponse struct {
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
}

type guestOrderResponse struct {
	ID           int64                    `json:"id"`
	CreatedAt    time.Time                `json:"created_at"`
	Status       string                   `json:"status"`
	TotalPrice   float64                  `json:"total_price"`
	CustomerName string                   `json:"customer_name,omitempty"`
	LastUpdated  string                   `json:"last_updated,omitempty"`
	TableNumber  string                   `json:"table_number,omitempty"`
	Items        []guestOrderItemResponse `json:"items,omitempty"`
}

func toGuestOrderResponses(orders []store.GuestOrder) []guestOrderResponse {
	resp := make([]guestOrderResponse, 0, len(orders))
	for _, o := range orders {
		out := guestOrderResponse{
			ID:           o.ID,
			CreatedAt:    o.CreatedAt,
			Status:       o.Status,
			TotalPrice:   o.TotalPrice,
			CustomerName: o.CustomerName,
			LastUpdated:  o.LastUpdated,
			TableNumber:  o.TableNumber,
		}
		for _, item := range o.Items {
			out.Items = append(out.Items, guestOrderItemResponse(item))
		}
		resp = append(resp, out)
	}
	return resp
}

// --- Handlers ---

// List returns the session's tracked orders. ?refresh=1 re-fetches
// current status from the backend first; a partial refresh failure
// still returns whatever state is known.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")

	if r.URL.Query().Get("refresh") == "1" {
		orders, err := h.refresher.RefreshSession(r.Context(), sid)
		if err != nil {
			log.Printf("WARNING: refresh orders for session %s: %v", sid, err)
		}
		if orders != nil {
			writeJSON(w, http.StatusOK, toGuestOrderResponses(orders))
			return
		}
	}

	orders, err := h.records.GuestOrders(r.Context(), sid)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toGuestOrderResponses(orders))
}

// Dismiss removes one tracking record and returns the remainder.
func (h *OrderHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	orders, err := h.records.RemoveGuestOrder(r.Context(), chi.URLParam(r, "sid"), orderID)
	if err != nil {
		log.Printf("ERROR: dismiss order %d: %v", orderID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toGuestOrderResponses(orders))
}

// QR renders a PNG code holding the order reference, shown on the
// tracking screen for staff to scan at the counter.
func (h *OrderHandler) QR(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sid")
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	orders, err := h.records.GuestOrders(r.Context(), sid)
	if err != nil {
		log.Printf("ERROR: load orders for QR: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	var found *store.GuestOrder
	for i := range orders {
		if orders[i].ID == orderID {
			found = &orders[i]
			break
		}
	}
	if found == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}

	content := fmt.Sprintf("ORDER:%d|TOTAL:%.0f", found.ID, found.TotalPrice)
	if found.TableNumber != "" {
		content += "|TABLE:" + found.TableNumber
	}
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		log.Printf("ERROR: encode QR for order %d: %v", orderID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
