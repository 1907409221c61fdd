package sqlite

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
)

var (
	factoryAddr = common.HexToAddress("0xfac7000000000000000000000000000000000001")
	organizer   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice       = common.HexToAddress("0xa11ce00000000000000000000000000000000002")
	bob         = common.HexToAddress("0xb0b0000000000000000000000000000000000003")
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestLedgerRoundTripThroughSQLite(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	raffles := NewRaffleRepository(db)
	events := NewEventRepository(db)
	payouts := NewPayoutRepository(db)

	f := raffle.NewFactory(factoryAddr, raffles, nil)
	r, err := f.CreateRaffle(ctx, organizer, 4, big.NewInt(7), 50)
	require.NoError(t, err)
	require.NoError(t, r.BuyTicket(ctx, alice, 3, big.NewInt(7)))
	require.NoError(t, r.BuyTicket(ctx, bob, 1, big.NewInt(7)))
	require.NoError(t, r.SetWinningTicket(ctx, organizer, 3))

	stored, err := raffles.FindByAddress(ctx, r.Address().Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.TicketsSold)
	assert.Equal(t, "0", stored.Balance)
	assert.Equal(t, uint64(3), stored.WinningTicket)
	assert.Equal(t, alice.Hex(), stored.Winner)
	assert.Equal(t, models.RaffleStatusResolved, stored.Status)
	require.Len(t, stored.Tickets, 2)
	assert.Equal(t, bob.Hex(), stored.Tickets["1"].Buyer)
	assert.Equal(t, uint64(2), stored.Tickets["1"].Seq)

	log, err := events.FindByRaffle(ctx, r.Address().Hex(), 1, 10)
	require.NoError(t, err)
	require.Len(t, log, 4)
	assert.Equal(t, models.EventRaffleCreated, log[0].Kind)
	assert.Equal(t, models.EventWinnerSelected, log[3].Kind)

	last, err := events.LastSequence(ctx)
	require.NoError(t, err)
	assert.Equal(t, log[3].Seq, last)

	won, err := payouts.FindByRecipient(ctx, alice.Hex(), 1, 10)
	require.NoError(t, err)
	require.Len(t, won, 1)
	assert.Equal(t, "14", won[0].Amount)
	assert.Equal(t, uint64(3), won[0].TicketNumber)

	_, err = payouts.FindByRaffle(ctx, "0x0000000000000000000000000000000000000bad")
	require.ErrorIs(t, err, repositories.ErrNotFound)

	// a fresh factory rebuilt from the database sees the same ledger
	all, err := raffles.FindAll(ctx)
	require.NoError(t, err)
	restored := raffle.NewFactory(factoryAddr, raffles, nil)
	require.NoError(t, restored.Restore(all))

	again, err := restored.Raffle(r.Address())
	require.NoError(t, err)
	winner, ok := again.Winner()
	require.True(t, ok)
	assert.Equal(t, alice, winner)
	assert.Equal(t, []uint64{1}, again.TicketsOf(bob))
}

func TestConditionalWrites(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	raffles := NewRaffleRepository(db)

	f := raffle.NewFactory(factoryAddr, raffles, nil)
	r, err := f.CreateRaffle(ctx, organizer, 10, big.NewInt(0), 100)
	require.NoError(t, err)
	require.NoError(t, r.BuyTicket(ctx, alice, 5, nil))

	// a second writer racing for the same slot is refused by the unique index
	err = raffles.RecordPurchase(ctx, &models.TicketPurchase{
		Raffle:       r.Address().Hex(),
		Buyer:        bob.Hex(),
		TicketNumber: 5,
		Amount:       "0",
		Seq:          2,
		TicketsSold:  2,
		Balance:      "0",
		Status:       models.RaffleStatusSelling,
	})
	require.ErrorIs(t, err, repositories.ErrConflict)

	stored, err := raffles.FindByAddress(ctx, r.Address().Hex())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stored.TicketsSold)
	assert.Equal(t, alice.Hex(), stored.Tickets["5"].Buyer)

	err = raffles.RecordResolution(ctx, &models.Resolution{Raffle: "0x0000000000000000000000000000000000000bad", WinningTicket: 1})
	require.ErrorIs(t, err, repositories.ErrConflict)

	_, err = raffles.FindByAddress(ctx, "0x0000000000000000000000000000000000000bad")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestEventPaging(t *testing.T) {
	ctx := context.Background()
	events := NewEventRepository(openTestDB(t))

	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, events.Create(ctx, &models.Event{Seq: seq, Kind: models.EventTicketPurchased, Raffle: "r"}))
	}
	require.ErrorIs(t, events.Create(ctx, &models.Event{Seq: 3}), repositories.ErrConflict)

	page, err := events.FindAll(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(3), page[0].Seq)
	assert.Equal(t, uint64(4), page[1].Seq)

	empty, err := events.FindByRaffle(ctx, "other", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
