package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/caphe-pos/storefront/internal/config"
	"github.com/caphe-pos/storefront/internal/handler"
	mw "github.com/caphe-pos/storefront/internal/middleware"
	"github.com/caphe-pos/storefront/internal/service"
	"github.com/caphe-pos/storefront/internal/track"
	"github.com/caphe-pos/storefront/internal/ws"
)

// Deps carries everything the router wires together.
type Deps struct {
	Accounts handler.AccountStore
	Catalog  handler.ProductCatalog
	Carts    *service.CartService
	Checkout *service.CheckoutService
	Records  handler.OrderRecords
	Poller   *track.Poller
	Hub      *ws.Hub
}

// New creates a Chi router with all storefront routes wired up.
// Cart and order routes are session-scoped and anonymous; only the
// account endpoints carry authentication.
func New(cfg *config.Config, deps Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (registration optional; everything else is anonymous)
	authHandler := handler.NewAuthHandler(deps.Accounts, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// Catalog
	productHandler := handler.NewProductHandler(deps.Catalog)
	r.Route("/products", productHandler.RegisterRoutes)

	// Session-scoped routes
	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Use(mw.RequireSession)

		cartHandler := handler.NewCartHandler(deps.Carts)
		r.Route("/cart", cartHandler.RegisterRoutes)

		checkoutHandler := handler.NewCheckoutHandler(deps.Checkout)
		checkoutHandler.RegisterRoutes(r)

		orderHandler := handler.NewOrderHandler(deps.Records, deps.Poller)
		r.Route("/orders", orderHandler.RegisterRoutes)
	})

	// WebSocket route (validates the session id itself)
	r.Get("/ws/sessions/{sid}", func(w http.ResponseWriter, req *http.Request) {
		ws.ServeWS(deps.Hub, w, req)
	})

	return r
}
