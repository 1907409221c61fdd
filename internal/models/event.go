package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EventKind string

const (
	EventRaffleCreated   EventKind = "RAFFLE_CREATED"
	EventTicketPurchased EventKind = "TICKET_PURCHASED"
	EventWinnerSelected  EventKind = "WINNER_SELECTED"
)

// Event is a ledger notification. Seq is global and strictly increasing;
// within one raffle events are stored in commit order.
type Event struct {
	ID           primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	Seq          uint64             `json:"seq" bson:"seq"`
	Kind         EventKind          `json:"kind" bson:"kind"`
	Raffle       string             `json:"raffle" bson:"raffle"`
	Organizer    string             `json:"organizer,omitempty" bson:"organizer,omitempty"`
	Buyer        string             `json:"buyer,omitempty" bson:"buyer,omitempty"`
	TicketNumber uint64             `json:"ticketNumber,omitempty" bson:"ticketNumber,omitempty"`
	Winner       string             `json:"winner,omitempty" bson:"winner,omitempty"`
	Amount       string             `json:"amount,omitempty" bson:"amount,omitempty"`
	TxHash       string             `json:"txHash" bson:"txHash"`
	Timestamp    time.Time          `json:"timestamp" bson:"timestamp"`
}
