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

type PayoutRepository struct {
	collection *mongo.Collection
}

func NewPayoutRepository(db *mongo.Database) repositories.PayoutRepository {
	return &PayoutRepository{
		collection: db.Collection("payouts"),
	}
}

func (r *PayoutRepository) FindByRecipient(ctx context.Context, recipient string, page, limit int) ([]*models.Payout, error) {
	page, limit = utils.NormalizePage(page, limit)
	opts := options.Find().
		SetSkip(int64(utils.Offset(page, limit))).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"recipient": recipient}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var payouts []*models.Payout
	if err := cursor.All(ctx, &payouts); err != nil {
		return nil, err
	}
	if payouts == nil {
		payouts = []*models.Payout{}
	}
	return payouts, nil
}

func (r *PayoutRepository) FindByRaffle(ctx context.Context, raffle string) (*models.Payout, error) {
	var payout models.Payout
	err := r.collection.FindOne(ctx, bson.M{"raffle": raffle}).Decode(&payout)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &payout, nil
}
