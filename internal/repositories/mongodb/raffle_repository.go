package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ArowuTest/raffle-ledger-backend/internal/logger"
	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
)

// RaffleRepository stores one document per raffle with its sold tickets
// embedded under "tickets.<number>". Payouts and events go to their own
// collections.
type RaffleRepository struct {
	collection *mongo.Collection
	payouts    *mongo.Collection
	events     repositories.EventRepository
}

func NewRaffleRepository(db *mongo.Database) repositories.RaffleRepository {
	return &RaffleRepository{
		collection: db.Collection("raffles"),
		payouts:    db.Collection("payouts"),
		events:     NewEventRepository(db),
	}
}

func (r *RaffleRepository) Create(ctx context.Context, creation *models.RaffleCreation) error {
	raffle := *creation.Raffle
	raffle.ID = primitive.NilObjectID
	if raffle.Tickets == nil {
		raffle.Tickets = map[string]models.TicketSlot{}
	}
	if _, err := r.collection.InsertOne(ctx, raffle); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("raffle %s: %w", raffle.Address, repositories.ErrConflict)
		}
		return err
	}
	r.appendEvent(ctx, creation.Event)
	return nil
}

// RecordPurchase only matches while the ticket slot is empty and the raffle
// is unresolved, so a concurrent writer can never overwrite a sale.
func (r *RaffleRepository) RecordPurchase(ctx context.Context, purchase *models.TicketPurchase) error {
	slot := "tickets." + strconv.FormatUint(purchase.TicketNumber, 10)
	filter := bson.M{
		"address":       purchase.Raffle,
		"winningTicket": 0,
		slot:            bson.M{"$exists": false},
	}
	update := bson.M{
		"$set": bson.M{
			slot: models.TicketSlot{
				Buyer:       purchase.Buyer,
				Seq:         purchase.Seq,
				PurchasedAt: purchase.PurchasedAt,
			},
			"ticketsSold": purchase.TicketsSold,
			"balance":     purchase.Balance,
			"status":      purchase.Status,
			"updatedAt":   purchase.PurchasedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("ticket %d of %s: %w", purchase.TicketNumber, purchase.Raffle, repositories.ErrConflict)
	}
	r.appendEvent(ctx, purchase.Event)
	return nil
}

// RecordResolution writes the payout first; the unique index on
// payouts.raffle rejects a second resolution before the raffle is touched.
func (r *RaffleRepository) RecordResolution(ctx context.Context, resolution *models.Resolution) error {
	if resolution.Payout != nil {
		if _, err := r.payouts.InsertOne(ctx, resolution.Payout); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("payout for %s: %w", resolution.Raffle, repositories.ErrConflict)
			}
			return err
		}
	}

	filter := bson.M{"address": resolution.Raffle, "winningTicket": 0}
	update := bson.M{
		"$set": bson.M{
			"winningTicket": resolution.WinningTicket,
			"winner":        resolution.Winner,
			"balance":       "0",
			"status":        models.RaffleStatusResolved,
			"resolvedAt":    resolution.ResolvedAt,
			"updatedAt":     resolution.ResolvedAt,
		},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err == nil && result.MatchedCount == 0 {
		err = fmt.Errorf("resolve %s: %w", resolution.Raffle, repositories.ErrConflict)
	}
	if err != nil {
		if resolution.Payout != nil {
			if _, delErr := r.payouts.DeleteOne(ctx, bson.M{"raffle": resolution.Raffle}); delErr != nil {
				logger.Error("failed to roll back payout",
					zap.String("raffle", resolution.Raffle), zap.Error(delErr))
			}
		}
		return err
	}
	r.appendEvent(ctx, resolution.Event)
	return nil
}

// appendEvent writes to the event log after the state change committed.
// A failure here is logged; the raffle document stays authoritative.
func (r *RaffleRepository) appendEvent(ctx context.Context, event *models.Event) {
	if event == nil {
		return
	}
	if err := r.events.Create(ctx, event); err != nil {
		logger.Error("failed to append ledger event",
			zap.Uint64("seq", event.Seq),
			zap.String("kind", string(event.Kind)),
			zap.String("raffle", event.Raffle),
			zap.Error(err))
	}
}

func (r *RaffleRepository) FindByAddress(ctx context.Context, address string) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.collection.FindOne(ctx, bson.M{"address": address}).Decode(&raffle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &raffle, nil
}

func (r *RaffleRepository) FindAll(ctx context.Context) ([]*models.Raffle, error) {
	opts := options.Find().SetSort(bson.M{"sequence": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raffles []*models.Raffle
	if err := cursor.All(ctx, &raffles); err != nil {
		return nil, err
	}
	if raffles == nil {
		raffles = []*models.Raffle{}
	}
	return raffles, nil
}

// EnsureIndexes creates the unique indexes the conditional writes rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		"raffles": {
			{Keys: bson.D{{Key: "address", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "sequence", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "organizer", Value: 1}}},
		},
		"events": {
			{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "raffle", Value: 1}, {Key: "seq", Value: 1}}},
		},
		"payouts": {
			{Keys: bson.D{{Key: "raffle", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}
