package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
	"github.com/ArowuTest/raffle-ledger-backend/internal/utils"
)

type EventRepository struct {
	collection *mongo.Collection
}

func NewEventRepository(db *mongo.Database) repositories.EventRepository {
	return &EventRepository{
		collection: db.Collection("events"),
	}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	_, err := r.collection.InsertOne(ctx, event)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrConflict
	}
	return err
}

func (r *EventRepository) FindAll(ctx context.Context, page, limit int) ([]*models.Event, error) {
	return r.find(ctx, bson.M{}, page, limit)
}

func (r *EventRepository) FindByRaffle(ctx context.Context, raffle string, page, limit int) ([]*models.Event, error) {
	return r.find(ctx, bson.M{"raffle": raffle}, page, limit)
}

func (r *EventRepository) find(ctx context.Context, filter bson.M, page, limit int) ([]*models.Event, error) {
	page, limit = utils.NormalizePage(page, limit)
	opts := options.Find().
		SetSkip(int64(utils.Offset(page, limit))).
		SetLimit(int64(limit)).
		SetSort(bson.M{"seq": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []*models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []*models.Event{}
	}
	return events, nil
}

func (r *EventRepository) LastSequence(ctx context.Context) (uint64, error) {
	opts := options.FindOne().SetSort(bson.M{"seq": -1})
	var last models.Event
	err := r.collection.FindOne(ctx, bson.M{}, opts).Decode(&last)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil
		}
		return 0, err
	}
	return last.Seq, nil
}
