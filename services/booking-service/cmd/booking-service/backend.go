package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/md-rashed-zaman/autobook/libs/config"
	"github.com/md-rashed-zaman/autobook/libs/db"
	"github.com/md-rashed-zaman/autobook/libs/kafkax"
	"github.com/md-rashed-zaman/autobook/libs/runtime"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/schedule"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/storage/memstore"
)

// backend bundles the storage ports the service runs on.
type backend struct {
	services     booking.ServiceRepository
	vehicles     booking.VehicleRepository
	users        booking.UserRepository
	appointments booking.AppointmentRepository
	tx           booking.TxRunner
	schedule     booking.ScheduleReader
	availability schedule.Repository

	checks []runtime.ReadyCheck
	close  func()
}

// openBackend connects to Postgres when DATABASE_URL is set and starts the
// outbox relay. Without it the service runs on the in-memory store, which
// forgets everything on restart.
func openBackend(ctx context.Context, logger *slog.Logger) (*backend, error) {
	dbURL := config.String("DATABASE_URL", "")
	if dbURL == "" {
		logger.Warn("DATABASE_URL not set; using in-memory store")
		store := memstore.New()
		if path := config.String("MEMSTORE_SEED_FILE", ""); path != "" {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			if err := store.LoadSeed(f); err != nil {
				return nil, err
			}
			logger.Info("in-memory store seeded", "file", path)
		}
		return memoryBackend(store), nil
	}

	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	pool, err := db.Open(ctx, dbURL, db.PoolOptions{MaxConns: int32(maxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		return nil, err
	}
	if config.Bool("DB_AUTO_MIGRATE", true) {
		if err := storage.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	lockTimeout, err := config.Duration("DB_LOCK_TIMEOUT", 5*time.Second, time.Millisecond)
	if err != nil {
		pool.Close()
		return nil, err
	}
	maxTries, err := config.Int("DB_TX_MAX_TRIES", 5)
	if err != nil {
		pool.Close()
		return nil, err
	}

	outboxRepo := outbox.NewRepository()
	catalog := storage.NewCatalogRepository(pool)
	avail := storage.NewAvailabilityRepository(pool)
	brokers := config.String("KAFKA_BROKERS", "")

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	return &backend{
		services:     catalog,
		vehicles:     catalog,
		users:        catalog,
		appointments: storage.NewAppointmentRepository(pool),
		tx: storage.NewTxRunner(pool, outboxRepo, logger, storage.TxOptions{
			LockTimeout: lockTimeout,
			MaxTries:    uint(maxTries),
		}),
		schedule:     avail,
		availability: avail,
		checks: []runtime.ReadyCheck{
			{Name: "db", Check: db.ReadyCheck(pool)},
			{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
		},
		close: pool.Close,
	}, nil
}

func memoryBackend(s *memstore.Store) *backend {
	return &backend{
		services:     s,
		vehicles:     s,
		users:        s,
		appointments: s,
		tx:           s,
		schedule:     s,
		availability: s,
		close:        func() {},
	}
}
