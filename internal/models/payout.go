package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payout records the transfer of a raffle's balance to its winner
type Payout struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Raffle       string             `bson:"raffle" json:"raffle"`
	Recipient    string             `bson:"recipient" json:"recipient"`
	TicketNumber uint64             `bson:"ticketNumber" json:"ticketNumber"`
	Amount       string             `bson:"amount" json:"amount"`
	AmountEth    string             `bson:"-" json:"amountEth,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}
