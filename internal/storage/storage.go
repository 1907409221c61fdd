package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ArowuTest/raffle-ledger-backend/internal/config"
	"github.com/ArowuTest/raffle-ledger-backend/internal/logger"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
	mongorepo "github.com/ArowuTest/raffle-ledger-backend/internal/repositories/mongodb"
	sqliterepo "github.com/ArowuTest/raffle-ledger-backend/internal/repositories/sqlite"
	"github.com/ArowuTest/raffle-ledger-backend/pkg/mongodb"
)

// Repositories bundles the repository implementations of one backend
type Repositories struct {
	Raffles repositories.RaffleRepository
	Events  repositories.EventRepository
	Payouts repositories.PayoutRepository

	// Close releases the underlying connection
	Close func(ctx context.Context) error
}

// Open connects to the backend selected by cfg.Driver
func Open(ctx context.Context, cfg config.StorageConfig) (*Repositories, error) {
	switch cfg.Driver {
	case config.DriverMongoDB:
		client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDB.Database)
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
		logger.Info("using mongodb storage", zap.String("database", cfg.MongoDB.Database))
		return &Repositories{
			Raffles: mongorepo.NewRaffleRepository(db),
			Events:  mongorepo.NewEventRepository(db),
			Payouts: mongorepo.NewPayoutRepository(db),
			Close:   client.Disconnect,
		}, nil

	case config.DriverSQLite:
		db, err := sqliterepo.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite storage", zap.String("path", cfg.SQLite.Path))
		return &Repositories{
			Raffles: sqliterepo.NewRaffleRepository(db),
			Events:  sqliterepo.NewEventRepository(db),
			Payouts: sqliterepo.NewPayoutRepository(db),
			Close: func(context.Context) error {
				return sqliterepo.Close(db)
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
