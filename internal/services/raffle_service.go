package services

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ArowuTest/raffle-ledger-backend/internal/logger"
	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
)

// Compile-time check to ensure RaffleServiceImpl implements RaffleService
var _ RaffleService = (*RaffleServiceImpl)(nil)

// RaffleServiceImpl adapts the in-memory ledger to request/response models
type RaffleServiceImpl struct {
	factory *raffle.Factory
}

func NewRaffleService(factory *raffle.Factory) *RaffleServiceImpl {
	return &RaffleServiceImpl{factory: factory}
}

func (s *RaffleServiceImpl) CreateRaffle(ctx context.Context, organizer string, req *models.CreateRaffleRequest) (*models.Raffle, error) {
	owner, err := raffle.ParseIdentity(organizer)
	if err != nil {
		return nil, err
	}
	if req.PercentageThreshold == nil {
		return nil, fmt.Errorf("percentage threshold is required: %w", raffle.ErrInvalidParameters)
	}
	price, err := raffle.ParseEther(req.TicketPrice)
	if err != nil {
		return nil, err
	}

	r, err := s.factory.CreateRaffle(ctx, owner, req.TotalTickets, price, *req.PercentageThreshold)
	if err != nil {
		logger.Warn("raffle creation rejected",
			zap.String("organizer", owner.Hex()),
			zap.String("reason", raffle.Kind(err)),
			zap.Error(err))
		return nil, err
	}
	return r.Snapshot(), nil
}

func (s *RaffleServiceImpl) ListRaffles(ctx context.Context) []string {
	addrs := s.factory.Raffles()
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}

func (s *RaffleServiceImpl) GetRaffle(ctx context.Context, address string) (*models.Raffle, error) {
	r, err := s.lookup(address)
	if err != nil {
		return nil, err
	}
	return r.Snapshot(), nil
}

func (s *RaffleServiceImpl) ListCreated(ctx context.Context, account string) ([]*models.Raffle, error) {
	me, err := raffle.ParseIdentity(account)
	if err != nil {
		return nil, err
	}
	return s.filter(func(r *raffle.Raffle) bool {
		return r.Organizer() == me
	}), nil
}

func (s *RaffleServiceImpl) ListPurchased(ctx context.Context, account string) ([]*models.Raffle, error) {
	me, err := raffle.ParseIdentity(account)
	if err != nil {
		return nil, err
	}
	return s.filter(func(r *raffle.Raffle) bool {
		return r.Organizer() != me && len(r.TicketsOf(me)) > 0
	}), nil
}

func (s *RaffleServiceImpl) ListOpen(ctx context.Context, account string) ([]*models.Raffle, error) {
	me, err := raffle.ParseIdentity(account)
	if err != nil {
		return nil, err
	}
	return s.filter(func(r *raffle.Raffle) bool {
		return r.Organizer() != me && r.IsActive()
	}), nil
}

func (s *RaffleServiceImpl) filter(keep func(r *raffle.Raffle) bool) []*models.Raffle {
	out := []*models.Raffle{}
	for _, r := range s.factory.All() {
		if keep(r) {
			out = append(out, r.Snapshot())
		}
	}
	return out
}

func (s *RaffleServiceImpl) AvailableTickets(ctx context.Context, address string) ([]uint64, error) {
	r, err := s.lookup(address)
	if err != nil {
		return nil, err
	}
	return r.AvailableTickets(), nil
}

func (s *RaffleServiceImpl) TicketOwner(ctx context.Context, address string, ticketNumber uint64) (*models.TicketOwner, error) {
	r, err := s.lookup(address)
	if err != nil {
		return nil, err
	}
	owner := &models.TicketOwner{TicketNumber: ticketNumber}
	if buyer, ok := r.TicketOwner(ticketNumber); ok {
		owner.Buyer = buyer.Hex()
	}
	return owner, nil
}

func (s *RaffleServiceImpl) MyTickets(ctx context.Context, address, account string) ([]uint64, error) {
	r, err := s.lookup(address)
	if err != nil {
		return nil, err
	}
	me, err := raffle.ParseIdentity(account)
	if err != nil {
		return nil, err
	}
	return r.TicketsOf(me), nil
}

func (s *RaffleServiceImpl) BuyTicket(ctx context.Context, address, buyer string, req *models.BuyTicketRequest) (*models.Raffle, error) {
	r, err := s.lookup(address)
	if err != nil {
		return nil, err
	}
	who, err := raffle.ParseIdentity(buyer)
	if err != nil {
		return nil, err
	}
	payment, err := raffle.ParseWei(req.Value)
	if err != nil {
		return nil, err
	}

	if err := r.BuyTicket(ctx, who, req.TicketNumber, payment); err != nil {
		logger.Debug("ticket purchase rejected",
			zap.String("raffle", r.Address().Hex()),
			zap.String("buyer", who.Hex()),
			zap.Uint64("ticket", req.TicketNumber),
			zap.String("reason", raffle.Kind(err)))
		return nil, err
	}
	return r.Snapshot(), nil
}

func (s *RaffleServiceImpl) SetWinningTicket(ctx context.Context, address, caller string, ticketNumber uint64) (*models.Raffle, error) {
	r, err := s.lookup(address)
	if err != nil {
		return nil, err
	}
	who, err := raffle.ParseIdentity(caller)
	if err != nil {
		return nil, err
	}
	if err := r.SetWinningTicket(ctx, who, ticketNumber); err != nil {
		return nil, err
	}
	return r.Snapshot(), nil
}

func (s *RaffleServiceImpl) DrawWinner(ctx context.Context, address, caller string) (*models.Raffle, error) {
	r, err := s.lookup(address)
	if err != nil {
		return nil, err
	}
	who, err := raffle.ParseIdentity(caller)
	if err != nil {
		return nil, err
	}
	if _, err := r.DrawWinningTicket(ctx, who); err != nil {
		return nil, err
	}
	return r.Snapshot(), nil
}

func (s *RaffleServiceImpl) lookup(address string) (*raffle.Raffle, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("raffle %q: %w", address, raffle.ErrRaffleNotFound)
	}
	return s.factory.Raffle(common.HexToAddress(address))
}
