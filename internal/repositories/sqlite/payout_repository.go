package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
	"github.com/ArowuTest/raffle-ledger-backend/internal/utils"
)

type PayoutRepository struct {
	db *gorm.DB
}

func NewPayoutRepository(db *gorm.DB) repositories.PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) FindByRecipient(ctx context.Context, recipient string, page, limit int) ([]*models.Payout, error) {
	page, limit = utils.NormalizePage(page, limit)
	var rows []payoutRow
	err := r.db.WithContext(ctx).
		Where("recipient = ?", recipient).
		Order("created_at DESC").
		Offset(utils.Offset(page, limit)).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	payouts := make([]*models.Payout, 0, len(rows))
	for i := range rows {
		payouts = append(payouts, fromPayoutRow(&rows[i]))
	}
	return payouts, nil
}

func (r *PayoutRepository) FindByRaffle(ctx context.Context, raffle string) (*models.Payout, error) {
	var row payoutRow
	err := r.db.WithContext(ctx).Where("raffle_address = ?", raffle).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return fromPayoutRow(&row), nil
}

func fromPayoutRow(row *payoutRow) *models.Payout {
	return &models.Payout{
		Raffle:       row.RaffleAddress,
		Recipient:    row.Recipient,
		TicketNumber: row.TicketNumber,
		Amount:       row.Amount,
		CreatedAt:    row.CreatedAt,
	}
}
