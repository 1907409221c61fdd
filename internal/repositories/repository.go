package repositories

import (
	"context"
	"errors"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
)

var (
	// ErrNotFound is returned instead of driver specific "no rows" errors
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a conditional write found the record already changed
	ErrConflict = errors.New("conflicting write")
)

// RaffleRepository persists raffles and their state transitions.
// It satisfies raffle.Store.
type RaffleRepository interface {
	Create(ctx context.Context, creation *models.RaffleCreation) error
	RecordPurchase(ctx context.Context, purchase *models.TicketPurchase) error
	RecordResolution(ctx context.Context, resolution *models.Resolution) error
	FindByAddress(ctx context.Context, address string) (*models.Raffle, error)
	FindAll(ctx context.Context) ([]*models.Raffle, error)
}

// EventRepository defines the interface for the ledger event log
type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindAll(ctx context.Context, page, limit int) ([]*models.Event, error)
	FindByRaffle(ctx context.Context, raffle string, page, limit int) ([]*models.Event, error)
	LastSequence(ctx context.Context) (uint64, error)
}

// PayoutRepository defines the read side of winner payouts
type PayoutRepository interface {
	FindByRecipient(ctx context.Context, recipient string, page, limit int) ([]*models.Payout, error)
	FindByRaffle(ctx context.Context, raffle string) (*models.Payout, error)
}
