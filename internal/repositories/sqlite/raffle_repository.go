package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
)

// RaffleRepository keeps raffles, sold tickets, payouts and events in one
// database so every state change and its event commit in one transaction.
type RaffleRepository struct {
	db *gorm.DB
}

func NewRaffleRepository(db *gorm.DB) repositories.RaffleRepository {
	return &RaffleRepository{db: db}
}

func (r *RaffleRepository) Create(ctx context.Context, creation *models.RaffleCreation) error {
	row := toRaffleRow(creation.Raffle)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("raffle %s: %w", row.Address, repositories.ErrConflict)
			}
			return err
		}
		return insertEvent(tx, creation.Event)
	})
}

func (r *RaffleRepository) RecordPurchase(ctx context.Context, purchase *models.TicketPurchase) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ticket := ticketRow{
			RaffleAddress: purchase.Raffle,
			Number:        purchase.TicketNumber,
			Buyer:         purchase.Buyer,
			Seq:           purchase.Seq,
			Amount:        purchase.Amount,
			PurchasedAt:   purchase.PurchasedAt,
		}
		if err := tx.Create(&ticket).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("ticket %d of %s: %w", purchase.TicketNumber, purchase.Raffle, repositories.ErrConflict)
			}
			return err
		}

		result := tx.Model(&raffleRow{}).
			Where("address = ? AND winning_ticket = 0", purchase.Raffle).
			Updates(map[string]interface{}{
				"tickets_sold": purchase.TicketsSold,
				"balance":      purchase.Balance,
				"status":       string(purchase.Status),
				"updated_at":   purchase.PurchasedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("raffle %s: %w", purchase.Raffle, repositories.ErrConflict)
		}
		return insertEvent(tx, purchase.Event)
	})
}

func (r *RaffleRepository) RecordResolution(ctx context.Context, resolution *models.Resolution) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resolvedAt := resolution.ResolvedAt
		result := tx.Model(&raffleRow{}).
			Where("address = ? AND winning_ticket = 0", resolution.Raffle).
			Updates(map[string]interface{}{
				"winning_ticket": resolution.WinningTicket,
				"winner":         resolution.Winner,
				"balance":        "0",
				"status":         string(models.RaffleStatusResolved),
				"resolved_at":    &resolvedAt,
				"updated_at":     resolvedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("resolve %s: %w", resolution.Raffle, repositories.ErrConflict)
		}

		if p := resolution.Payout; p != nil {
			row := payoutRow{
				RaffleAddress: p.Raffle,
				Recipient:     p.Recipient,
				TicketNumber:  p.TicketNumber,
				Amount:        p.Amount,
				CreatedAt:     p.CreatedAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return insertEvent(tx, resolution.Event)
	})
}

func (r *RaffleRepository) FindByAddress(ctx context.Context, address string) (*models.Raffle, error) {
	var row raffleRow
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}

	var tickets []ticketRow
	if err := r.db.WithContext(ctx).Where("raffle_address = ?", address).Order("seq").Find(&tickets).Error; err != nil {
		return nil, err
	}
	return fromRaffleRow(&row, tickets), nil
}

func (r *RaffleRepository) FindAll(ctx context.Context) ([]*models.Raffle, error) {
	var rows []raffleRow
	if err := r.db.WithContext(ctx).Order("sequence").Find(&rows).Error; err != nil {
		return nil, err
	}

	var tickets []ticketRow
	if err := r.db.WithContext(ctx).Order("seq").Find(&tickets).Error; err != nil {
		return nil, err
	}
	byRaffle := make(map[string][]ticketRow, len(rows))
	for _, t := range tickets {
		byRaffle[t.RaffleAddress] = append(byRaffle[t.RaffleAddress], t)
	}

	raffles := make([]*models.Raffle, 0, len(rows))
	for i := range rows {
		raffles = append(raffles, fromRaffleRow(&rows[i], byRaffle[rows[i].Address]))
	}
	return raffles, nil
}

// insertEvent ignores a replayed sequence number.
func insertEvent(tx *gorm.DB, event *models.Event) error {
	if event == nil {
		return nil
	}
	row := toEventRow(event)
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func toRaffleRow(m *models.Raffle) raffleRow {
	row := raffleRow{
		Address:             m.Address,
		Sequence:            m.Sequence,
		Organizer:           m.Organizer,
		TotalTickets:        m.TotalTickets,
		TicketPrice:         m.TicketPrice,
		PercentageThreshold: m.PercentageThreshold,
		TicketsSold:         m.TicketsSold,
		Balance:             m.Balance,
		WinningTicket:       m.WinningTicket,
		Winner:              m.Winner,
		Status:              string(m.Status),
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if !m.ResolvedAt.IsZero() {
		resolvedAt := m.ResolvedAt
		row.ResolvedAt = &resolvedAt
	}
	return row
}

func fromRaffleRow(row *raffleRow, tickets []ticketRow) *models.Raffle {
	m := &models.Raffle{
		Address:             row.Address,
		Sequence:            row.Sequence,
		Organizer:           row.Organizer,
		TotalTickets:        row.TotalTickets,
		TicketPrice:         row.TicketPrice,
		PercentageThreshold: row.PercentageThreshold,
		TicketsSold:         row.TicketsSold,
		Tickets:             make(map[string]models.TicketSlot, len(tickets)),
		Balance:             row.Balance,
		WinningTicket:       row.WinningTicket,
		Winner:              row.Winner,
		Status:              models.RaffleStatus(row.Status),
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
	if row.ResolvedAt != nil {
		m.ResolvedAt = *row.ResolvedAt
	}
	for _, t := range tickets {
		m.Tickets[strconv.FormatUint(t.Number, 10)] = models.TicketSlot{
			Buyer:       t.Buyer,
			Seq:         t.Seq,
			PurchasedAt: t.PurchasedAt,
		}
	}
	return m
}
