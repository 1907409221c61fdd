package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RaffleStatus represents the lifecycle phase of a raffle
type RaffleStatus string

const (
	RaffleStatusSelling  RaffleStatus = "SELLING"
	RaffleStatusClosed   RaffleStatus = "CLOSED" // closed for sale, waiting for the organizer
	RaffleStatusResolved RaffleStatus = "RESOLVED"
)

// TicketSlot records who bought a ticket and in which order
type TicketSlot struct {
	Buyer       string    `bson:"buyer" json:"buyer"`
	Seq         uint64    `bson:"seq" json:"seq"`
	PurchasedAt time.Time `bson:"purchasedAt" json:"purchasedAt"`
}

// Raffle is the persisted and wire representation of a raffle.
// Amounts are decimal wei strings.
type Raffle struct {
	ID                  primitive.ObjectID    `bson:"_id,omitempty" json:"-"`
	Address             string                `bson:"address" json:"address"`
	Sequence            uint64                `bson:"sequence" json:"sequence"`
	Organizer           string                `bson:"organizer" json:"organizer"`
	TotalTickets        uint64                `bson:"totalTickets" json:"totalTickets"`
	TicketPrice         string                `bson:"ticketPrice" json:"ticketPrice"`
	TicketPriceEth      string                `bson:"-" json:"ticketPriceEth,omitempty"`
	PercentageThreshold uint8                 `bson:"percentageThreshold" json:"percentageThreshold"`
	TicketsSold         uint64                `bson:"ticketsSold" json:"ticketsSold"`
	Tickets             map[string]TicketSlot `bson:"tickets" json:"-"`
	Balance             string                `bson:"balance" json:"balance"`
	WinningTicket       uint64                `bson:"winningTicket" json:"winningTicket"`
	Winner              string                `bson:"winner,omitempty" json:"winner,omitempty"`
	IsActive            bool                  `bson:"-" json:"isActive"`
	Status              RaffleStatus          `bson:"status" json:"status"`
	CreatedAt           time.Time             `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time             `bson:"updatedAt" json:"updatedAt"`
	ResolvedAt          time.Time             `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// RaffleCreation is handed to the store when a new raffle is opened
type RaffleCreation struct {
	Raffle *Raffle
	Event  *Event
}

// TicketPurchase carries one sale together with the raffle counters after it
type TicketPurchase struct {
	Raffle       string
	Buyer        string
	TicketNumber uint64
	Amount       string
	Seq          uint64
	TicketsSold  uint64
	Balance      string
	Status       RaffleStatus
	PurchasedAt  time.Time
	Event        *Event
}

// Resolution carries the winner selection and the resulting payout
type Resolution struct {
	Raffle        string
	WinningTicket uint64
	Winner        string
	ResolvedAt    time.Time
	Payout        *Payout
	Event         *Event
}

// CreateRaffleRequest defines the body of POST /raffles
type CreateRaffleRequest struct {
	TotalTickets        uint64 `json:"totalTickets"`
	TicketPrice         string `json:"ticketPrice" binding:"required"` // ether, e.g. "0.01"
	PercentageThreshold *int   `json:"percentageThreshold" binding:"required"`
}

// BuyTicketRequest defines the body of POST /raffles/:address/tickets
type BuyTicketRequest struct {
	TicketNumber uint64 `json:"ticketNumber"`
	Value        string `json:"value"` // attached payment in wei
}

// WinningTicketRequest defines the body of POST /raffles/:address/winner
type WinningTicketRequest struct {
	TicketNumber uint64 `json:"ticketNumber"`
}

// TicketOwner answers a ticketToBuyer lookup
type TicketOwner struct {
	TicketNumber uint64 `json:"ticketNumber"`
	Buyer        string `json:"buyer"`
}
