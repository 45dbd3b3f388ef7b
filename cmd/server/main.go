package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/caphe-pos/storefront/internal/account"
	"github.com/caphe-pos/storefront/internal/catalog"
	"github.com/caphe-pos/storefront/internal/config"
	"github.com/caphe-pos/storefront/internal/notify"
	"github.com/caphe-pos/storefront/internal/router"
	"github.com/caphe-pos/storefront/internal/service"
	"github.com/caphe-pos/storefront/internal/store"
	"github.com/caphe-pos/storefront/internal/track"
	"github.com/caphe-pos/storefront/internal/upstream"
	"github.com/caphe-pos/storefront/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis holds carts, guest order records and the catalog cache.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer redisClient.Close()
	redisStore := store.NewRedis(redisClient, cfg.CatalogTTL)

	// Postgres holds customer accounts.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("create pgx pool: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}
	accounts := account.NewStore(pool)

	// Kitchen backend client and catalog service.
	backend := upstream.NewClient(cfg.BackendURL)
	catalogSvc := catalog.NewService(backend, redisStore)

	bus := notify.NewBus()
	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	if mailer == nil {
		log.Println("SMTP not configured, receipt email disabled")
	}

	carts := service.NewCartService(redisStore, catalogSvc, bus)
	var receipts service.ReceiptSender
	if mailer != nil {
		receipts = mailer
	}
	checkout := service.NewCheckoutService(redisStore, backend, redisStore, bus, receipts)

	poller := track.NewPoller(backend, redisStore, bus, cfg.PollInterval)
	go poller.Run(ctx)

	hub := ws.NewHub()
	go hub.Run()
	go hub.Bridge(ctx, bus)

	r := router.New(cfg, router.Deps{
		Accounts: accounts,
		Catalog:  catalogSvc,
		Carts:    carts,
		Checkout: checkout,
		Records:  redisStore,
		Poller:   poller,
		Hub:      hub,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: shutdown: %v", err)
	}
}
