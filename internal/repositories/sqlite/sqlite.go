package sqlite

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type raffleRow struct {
	Address             string `gorm:"primaryKey;size:42"`
	Sequence            uint64 `gorm:"uniqueIndex"`
	Organizer           string `gorm:"index;size:42"`
	TotalTickets        uint64
	TicketPrice         string
	PercentageThreshold uint8
	TicketsSold         uint64
	Balance             string
	WinningTicket       uint64
	Winner              string `gorm:"size:42"`
	Status              string `gorm:"size:16"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ResolvedAt          *time.Time
}

func (raffleRow) TableName() string { return "raffles" }

type ticketRow struct {
	ID            uint   `gorm:"primaryKey"`
	RaffleAddress string `gorm:"uniqueIndex:idx_raffle_ticket;size:42"`
	Number        uint64 `gorm:"uniqueIndex:idx_raffle_ticket"`
	Buyer         string `gorm:"index;size:42"`
	Seq           uint64
	Amount        string
	PurchasedAt   time.Time
}

func (ticketRow) TableName() string { return "tickets" }

type payoutRow struct {
	ID            uint   `gorm:"primaryKey"`
	RaffleAddress string `gorm:"uniqueIndex;size:42"`
	Recipient     string `gorm:"index;size:42"`
	TicketNumber  uint64
	Amount        string
	CreatedAt     time.Time
}

func (payoutRow) TableName() string { return "payouts" }

type eventRow struct {
	Seq           uint64 `gorm:"primaryKey;autoIncrement:false"`
	Kind          string `gorm:"size:32"`
	RaffleAddress string `gorm:"index;size:42"`
	Organizer     string
	Buyer         string
	TicketNumber  uint64
	Winner        string
	Amount        string
	TxHash        string `gorm:"size:66"`
	Timestamp     time.Time
}

func (eventRow) TableName() string { return "events" }

// Open connects to the database file at path and migrates the schema.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// a single connection serializes writers and keeps :memory: databases shared
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&raffleRow{}, &ticketRow{}, &payoutRow{}, &eventRow{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
