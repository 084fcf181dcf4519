// Package bootstrap assembles the order engine, catalog and checkout saga
// from a resolved config. Each backing store falls back to an in-process
// implementation when its address or path is left empty.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	catalogservice "github.com/jcmexdev/book-escrow/internal/catalog-service"
	"github.com/jcmexdev/book-escrow/internal/coordinator"
	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
	sagasqlite "github.com/jcmexdev/book-escrow/internal/coordinator/sagalog/sqlite"
	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/events"
	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/memory"
	"github.com/jcmexdev/book-escrow/internal/order-service/adapters/sqlite"
	"github.com/jcmexdev/book-escrow/internal/order-service/app"
	"github.com/jcmexdev/book-escrow/internal/order-service/ports"
	paymentservice "github.com/jcmexdev/book-escrow/internal/payment-service/app"
	"github.com/jcmexdev/book-escrow/internal/pkg/cache"
	"github.com/jcmexdev/book-escrow/internal/pkg/config"
)

type Services struct {
	Engine   *app.Engine
	Catalog  *catalogservice.Catalog
	Checkout *coordinator.Checkout

	closers []func() error
}

// Close releases every store opened by Build, in reverse order.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *Services, err error) {
	s := &Services{}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()
	now := time.Now().UTC()

	books, err := cfg.Seed.DomainBooks(now)
	if err != nil {
		return nil, err
	}
	s.Catalog = catalogservice.NewCatalog(books...)
	users := memory.NewUserDirectory(cfg.Seed.DomainUsers(now)...)

	var (
		orders ports.OrderRepository  = memory.NewOrderRepository()
		ledger ports.LedgerRepository = memory.NewLedgerRepository()
	)
	if path := cfg.Storage.OrdersPath; path != "" {
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: orders store: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		orders = sqlite.NewOrderRepository(db)
		ledger = sqlite.NewLedgerRepository(db)
		logger.Info("orders stored in sqlite", "path", path)
	}

	paymentCache := cache.NewMemoryCache("payment")
	if addr := cfg.Redis.Addr; addr != "" {
		rc, closeRedis, err := cache.NewRedisCache(ctx, addr, "payment")
		if err != nil {
			return nil, fmt.Errorf("bootstrap: redis: %w", err)
		}
		s.closers = append(s.closers, closeRedis)
		paymentCache = rc
		logger.Info("payment idempotency cache on redis", "addr", addr)
	}

	var publisher ports.EventPublisher = events.NewLoggingPublisher(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Topics)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: kafka: %w", err)
		}
		s.closers = append(s.closers, kp.Close)
		publisher = kp
		logger.Info("order events published to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	s.Engine = app.NewEngine(app.Dependencies{
		Config: app.Config{
			PaymentTimeout: cfg.Engine.PaymentTimeout,
			PendingTTL:     cfg.Engine.PendingTTL,
			SweepInterval:  cfg.Engine.SweepInterval,
			SweepBatchSize: cfg.Engine.SweepBatchSize,
		},
		Orders: orders,
		Ledger: ledger,
		Books:  s.Catalog,
		Users:  users,
		Payments: paymentservice.NewGateway(paymentservice.Config{
			Delay:        cfg.Payment.Delay,
			DeclineAbove: cfg.Payment.DeclineAbove,
		}, paymentCache),
		Events: publisher,
	})

	var sagaLog sagalog.Repository = sagalog.NewMemoryRepository()
	if path := cfg.Storage.SagaLogPath; path != "" {
		repo, err := sagasqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: saga log: %w", err)
		}
		s.closers = append(s.closers, repo.Close)
		sagaLog = repo
	}
	s.Checkout = coordinator.NewCheckout(s.Catalog, s.Engine, sagaLog)
	return s, nil
}
