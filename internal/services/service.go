package services

import (
	"context"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
)

// RaffleService defines the interface for raffle ledger operations.
// Accounts and raffle addresses are hex strings as received from clients.
type RaffleService interface {
	// CreateRaffle opens a raffle organized by organizer; the price is in ether
	CreateRaffle(ctx context.Context, organizer string, req *models.CreateRaffleRequest) (*models.Raffle, error)

	// ListRaffles returns every raffle address in creation order
	ListRaffles(ctx context.Context) []string

	GetRaffle(ctx context.Context, address string) (*models.Raffle, error)

	// ListCreated returns raffles organized by account
	ListCreated(ctx context.Context, account string) ([]*models.Raffle, error)

	// ListPurchased returns raffles organized by others in which account holds tickets
	ListPurchased(ctx context.Context, account string) ([]*models.Raffle, error)

	// ListOpen returns active raffles organized by someone other than account
	ListOpen(ctx context.Context, account string) ([]*models.Raffle, error)

	AvailableTickets(ctx context.Context, address string) ([]uint64, error)
	TicketOwner(ctx context.Context, address string, ticketNumber uint64) (*models.TicketOwner, error)
	MyTickets(ctx context.Context, address, account string) ([]uint64, error)

	BuyTicket(ctx context.Context, address, buyer string, req *models.BuyTicketRequest) (*models.Raffle, error)
	SetWinningTicket(ctx context.Context, address, caller string, ticketNumber uint64) (*models.Raffle, error)

	// DrawWinner resolves the raffle with a randomly chosen sold ticket
	DrawWinner(ctx context.Context, address, caller string) (*models.Raffle, error)
}

// AuthService defines the interface for wallet sign-in
type AuthService interface {
	RequestNonce(ctx context.Context, req *models.NonceRequest) (*models.NonceResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
}

// EventService exposes the ledger event log and the live feed
type EventService interface {
	History(ctx context.Context, raffle string, page, limit int) ([]*models.Event, error)
	Subscribe(buffer int) *raffle.Subscription
}

// PayoutService defines the interface for reading winner payouts
type PayoutService interface {
	ListByRecipient(ctx context.Context, recipient string, page, limit int) ([]*models.Payout, error)
	ForRaffle(ctx context.Context, raffle string) (*models.Payout, error)
}
