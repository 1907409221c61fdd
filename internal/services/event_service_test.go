package services

import (
	"context"
	"math/big"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
	"github.com/ArowuTest/raffle-ledger-backend/internal/raffle"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories"
	"github.com/ArowuTest/raffle-ledger-backend/internal/repositories/sqlite"
)

func TestEventHistoryAndPayouts(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close(db) })

	bus := raffle.NewEventBus()
	f := raffle.NewFactory(factoryAddr, sqlite.NewRaffleRepository(db), bus)
	events := NewEventService(sqlite.NewEventRepository(db), bus)
	payouts := NewPayoutService(sqlite.NewPayoutRepository(db))

	sub := events.Subscribe(8)
	defer sub.Close()

	s := NewRaffleService(f)
	r, err := s.CreateRaffle(ctx, organizer, &models.CreateRaffleRequest{TotalTickets: 2, TicketPrice: "1.5", PercentageThreshold: threshold(50)})
	require.NoError(t, err)
	_, err = s.BuyTicket(ctx, r.Address, alice, &models.BuyTicketRequest{TicketNumber: 1, Value: big.NewInt(15e17).String()})
	require.NoError(t, err)
	_, err = payouts.ForRaffle(ctx, r.Address)
	require.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = s.SetWinningTicket(ctx, r.Address, organizer, 1)
	require.NoError(t, err)

	for _, want := range []models.EventKind{models.EventRaffleCreated, models.EventTicketPurchased, models.EventWinnerSelected} {
		select {
		case ev := <-sub.C():
			assert.Equal(t, want, ev.Kind)
		case <-time.After(time.Second):
			t.Fatalf("no %s event delivered", want)
		}
	}

	history, err := events.History(ctx, r.Address, 1, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, uint64(1), history[0].Seq)

	all, err := events.History(ctx, "", 1, 2)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = events.History(ctx, "garbage", 1, 10)
	require.ErrorIs(t, err, raffle.ErrRaffleNotFound)

	paid, err := payouts.ListByRecipient(ctx, alice, 1, 10)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.Equal(t, r.Address, paid[0].Raffle)
	assert.Equal(t, "1500000000000000000", paid[0].Amount)
	assert.Equal(t, "1.5", paid[0].AmountEth)

	none, err := payouts.ListByRecipient(ctx, bob, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	won, err := payouts.ForRaffle(ctx, strings.ToLower(r.Address))
	require.NoError(t, err)
	assert.Equal(t, alice, won.Recipient)
	assert.Equal(t, uint64(1), won.TicketNumber)
	assert.Equal(t, "1.5", won.AmountEth)

	_, err = payouts.ForRaffle(ctx, "garbage")
	require.ErrorIs(t, err, raffle.ErrRaffleNotFound)
}
