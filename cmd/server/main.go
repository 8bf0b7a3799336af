package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/ticket-ledger/internal/clock"
	"github.com/iliyamo/ticket-ledger/internal/config"
	"github.com/iliyamo/ticket-ledger/internal/database"
	"github.com/iliyamo/ticket-ledger/internal/handler"
	"github.com/iliyamo/ticket-ledger/internal/market"
	"github.com/iliyamo/ticket-ledger/internal/middleware"
	"github.com/iliyamo/ticket-ledger/internal/model"
	"github.com/iliyamo/ticket-ledger/internal/payment"
	"github.com/iliyamo/ticket-ledger/internal/queue"
	"github.com/iliyamo/ticket-ledger/internal/relay"
	"github.com/iliyamo/ticket-ledger/internal/repository"
	"github.com/iliyamo/ticket-ledger/internal/router"
	"github.com/iliyamo/ticket-ledger/internal/service"
	"github.com/iliyamo/ticket-ledger/internal/wallet"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: %v", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeStore()

	var admin model.Identity
	if cfg.Admin != "" {
		if admin, err = wallet.Parse(cfg.Admin); err != nil {
			log.Fatalf("LEDGER_ADMIN: %v", err)
		}
	}

	records, err := store.Load(ctx)
	if err != nil {
		log.Fatalf("load journal: %v", err)
	}
	vault := payment.NewVault()
	vault.OnPay(func(_ context.Context, to model.Identity, amount uint64) {
		log.Printf("vault: credited %d to %s", amount, to)
	})
	m, err := market.Restore(records, market.Options{Clock: clock.NewSystem(), Admin: admin, Payments: vault})
	if err != nil {
		log.Fatalf("replay journal: %v", err)
	}
	log.Printf("ledger: replayed %d records (driver=%s)", len(records), cfg.Storage.Driver)

	var pub relay.Publisher
	if cfg.Relay.PublishEnabled {
		pub = service.NewPublisher(cfg.Relay.AMQPURL)
	}
	rl, err := relay.New(ctx, m, store, relay.Options{Publisher: pub, Interval: cfg.Relay.Interval})
	if err != nil {
		log.Fatalf("relay: %v", err)
	}
	relayDone := make(chan struct{})
	go func() {
		rl.Run(ctx)
		close(relayDone)
	}()

	if cfg.Relay.ConsumerEnabled {
		c := &queue.Consumer{URL: cfg.Relay.AMQPURL, LogDir: cfg.Relay.LogDir}
		go func() {
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("ledger-consumer: %v", err)
			}
		}()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis: unavailable, running without rate limiting and cache")
	} else {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestID())
	e.Use(echomw.Logger())

	h := handler.NewLedgerHandler(m, vault)
	if cfg.Relay.SyncWrites {
		h.Persister = rl
	}
	router.RegisterRoutes(e)
	router.RegisterPublic(e, h, middleware.NewRedisCache(config.LoadCacheConfig(), rdb, m.Head))
	router.RegisterLedger(e, h, cfg.JWTSecret, middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	<-relayDone
	stored, published := rl.Cursors()
	log.Printf("ledger: stopped at head=%d stored=%d published=%d", m.Head(), stored, published)
}

// openStore returns the journal store selected by STORAGE_DRIVER and a
// func releasing its connections.
func openStore(ctx context.Context, cfg config.Storage) (repository.JournalStore, func(), error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		db, err := database.OpenMySQL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, err
		}
		s := repository.NewMySQLJournal(db)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, func() { _ = db.Close() }, nil
	case config.DriverPostgres:
		pool, err := database.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		s := repository.NewPostgresJournal(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil
	}
	return repository.NewMemoryJournal(), func() {}, nil
}
