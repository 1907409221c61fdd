package services

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
)

type eventService struct {
	eventRepo repositories.EventRepository
	bus       *raffle.EventBus
}

func NewEventService(eventRepo repositories.EventRepository, bus *raffle.EventBus) EventService {
	return &eventService{
		eventRepo: eventRepo,
		bus:       bus,
	}
}

// History pages through persisted events; an empty raffle lists all of them
func (s *eventService) History(ctx context.Context, raffleAddr string, page, limit int) ([]*models.Event, error) {
	if raffleAddr == "" {
		return s.eventRepo.FindAll(ctx, page, limit)
	}
	if !common.IsHexAddress(raffleAddr) {
		return nil, fmt.Errorf("raffle %q: %w", raffleAddr, raffle.ErrRaffleNotFound)
	}
	return s.eventRepo.FindByRaffle(ctx, common.HexToAddress(raffleAddr).Hex(), page, limit)
}

func (s *eventService) Subscribe(buffer int) *raffle.Subscription {
	return s.bus.Subscribe(buffer)
}
