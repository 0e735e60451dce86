package bootstrap

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/repository/memory"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store bundles the repositories of one storage backend.
type Store struct {
	Tx       repository.TxManager
	Airports repository.AirportRepository
	Flights  repository.FlightRepository
	Bookings repository.BookingRepository
	Payments repository.PaymentRepository

	Ping  func(ctx context.Context) error
	Close func()
}

// OpenStore connects the backend selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		mem := memory.NewStore()
		return &Store{
			Tx:       mem,
			Airports: mem.Airports(),
			Flights:  mem.Flights(),
			Bookings: mem.Bookings(),
			Payments: mem.Payments(),
			Ping:     func(context.Context) error { return nil },
			Close:    func() {},
		}, nil
	case config.DriverPostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if cfg.ApplySchema {
		applied, err := repository.Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database migrations applied", zap.Int64s("versions", applied))
	}

	gormDB, err := repository.OpenGorm(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres", zap.String("host", cfg.Host), zap.String("database", cfg.Name))
	return &Store{
		Tx:       repository.NewTxManager(pool),
		Airports: repository.NewAirportRepository(gormDB),
		Flights:  repository.NewFlightRepository(pool),
		Bookings: repository.NewBookingRepository(pool),
		Payments: repository.NewPaymentRepository(pool),
		Ping:     pool.Ping,
		Close:    pool.Close,
	}, nil
}
