package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
	"github.com/ArowuTest/raffle-ledger-backend/internal/utils"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) repositories.EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	row := toEventRow(event)
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repositories.ErrConflict
	}
	return err
}

func (r *EventRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Event, error) {
	return r.find(r.db.WithContext(ctx), page, limit)
}

func (r *EventRepository) FindByRaffle(ctx context.Context, raffle string, page, limit int) ([]*models.Event, error) {
	return r.find(r.db.WithContext(ctx).Where("raffle_address = ?", raffle), page, limit)
}

func (r *EventRepository) find(q *gorm.DB, page, limit int) ([]*models.Event, error) {
	page, limit = utils.NormalizePage(page, limit)
	var rows []eventRow
	err := q.Order("seq").Offset(utils.Offset(page, limit)).Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	events := make([]*models.Event, 0, len(rows))
	for i := range rows {
		events = append(events, fromEventRow(&rows[i]))
	}
	return events, nil
}

func (r *EventRepository) LastSequence(ctx context.Context) (uint64, error) {
	var seq uint64
	err := r.db.WithContext(ctx).Model(&eventRow{}).Select("COALESCE(MAX(seq), 0)").Scan(&seq).Error
	return seq, err
}

func toEventRow(e *models.Event) eventRow {
	return eventRow{
		Seq:           e.Seq,
		Kind:          string(e.Kind),
		RaffleAddress: e.Raffle,
		Organizer:     e.Organizer,
		Buyer:         e.Buyer,
		TicketNumber:  e.TicketNumber,
		Winner:        e.Winner,
		Amount:        e.Amount,
		TxHash:        e.TxHash,
		Timestamp:     e.Timestamp,
	}
}

func fromEventRow(row *eventRow) *models.Event {
	return &models.Event{
		Seq:          row.Seq,
		Kind:         models.EventKind(row.Kind),
		Raffle:       row.RaffleAddress,
		Organizer:    row.Organizer,
		Buyer:        row.Buyer,
		TicketNumber: row.TicketNumber,
		Winner:       row.Winner,
		Amount:       row.Amount,
		TxHash:       row.TxHash,
		Timestamp:    row.Timestamp,
	}
}
