package services

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
)

type payoutService struct {
	payoutRepo repositories.PayoutRepository
}

func NewPayoutService(payoutRepo repositories.PayoutRepository) PayoutService {
	return &payoutService{payoutRepo: payoutRepo}
}

func (s *payoutService) ListByRecipient(ctx context.Context, recipient string, page, limit int) ([]*models.Payout, error) {
	who, err := raffle.ParseIdentity(recipient)
	if err != nil {
		return nil, err
	}
	payouts, err := s.payoutRepo.FindByRecipient(ctx, who.Hex(), page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	for _, p := range payouts {
		fillEth(p)
	}
	return payouts, nil
}

// ForRaffle returns the payout of a resolved raffle. Unresolved raffles
// have none and yield repositories.ErrNotFound.
func (s *payoutService) ForRaffle(ctx context.Context, address string) (*models.Payout, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("raffle %q: %w", address, raffle.ErrRaffleNotFound)
	}
	p, err := s.payoutRepo.FindByRaffle(ctx, common.HexToAddress(address).Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to find payout: %w", err)
	}
	fillEth(p)
	return p, nil
}

func fillEth(p *models.Payout) {
	if wei, ok := new(big.Int).SetString(p.Amount, 10); ok {
		p.AmountEth = raffle.FormatEther(wei)
	}
}
