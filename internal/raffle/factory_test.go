package raffle

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
)

func TestCreateRaffleValidation(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(factoryAddr, nil, nil)

	tests := []struct {
		name      string
		organizer common.Address
		total     uint64
		price     *big.Int
		threshold int
		want      error
	}{
		{"zero tickets", organizer, 0, big.NewInt(1), 50, ErrInvalidParameters},
		{"too many tickets", organizer, MaxTotalTickets + 1, big.NewInt(1), 50, ErrInvalidParameters},
		{"negative threshold", organizer, 10, big.NewInt(1), -1, ErrInvalidParameters},
		{"threshold above 100", organizer, 10, big.NewInt(1), 101, ErrInvalidParameters},
		{"negative price", organizer, 10, big.NewInt(-1), 50, ErrInvalidParameters},
		{"missing price", organizer, 10, nil, 50, ErrInvalidParameters},
		{"zero organizer", common.Address{}, 10, big.NewInt(1), 50, ErrInvalidIdentity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.CreateRaffle(ctx, tt.organizer, tt.total, tt.price, tt.threshold)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.Raffles())
}

func TestRafflesKeepCreationOrder(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(factoryAddr, nil, nil)

	var created []common.Address
	for i := 0; i < 3; i++ {
		r, err := f.CreateRaffle(ctx, organizer, 10, big.NewInt(0), 50)
		require.NoError(t, err)
		assert.Equal(t, crypto.CreateAddress(factoryAddr, uint64(i)), r.Address())
		created = append(created, r.Address())
	}
	assert.Equal(t, created, f.Raffles())

	got, err := f.Raffle(created[1])
	require.NoError(t, err)
	assert.Equal(t, created[1], got.Address())

	_, err = f.Raffle(alice)
	require.ErrorIs(t, err, ErrRaffleNotFound)
}

func TestCreateRaffleEmitsEvent(t *testing.T) {
	f := NewFactory(factoryAddr, nil, nil)
	sub := f.Bus().Subscribe(1)
	defer sub.Close()

	r, err := f.CreateRaffle(context.Background(), organizer, 10, big.NewInt(5), 20)
	require.NoError(t, err)

	ev := <-sub.C()
	assert.Equal(t, models.EventRaffleCreated, ev.Kind)
	assert.Equal(t, r.Address().Hex(), ev.Raffle)
	assert.Equal(t, organizer.Hex(), ev.Organizer)
	assert.Equal(t, uint64(1), ev.Seq)
	assert.Len(t, ev.TxHash, 66)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	src := NewFactory(factoryAddr, nil, nil)

	open, err := src.CreateRaffle(ctx, organizer, 10, big.NewInt(3), 50)
	require.NoError(t, err)
	require.NoError(t, open.BuyTicket(ctx, alice, 7, big.NewInt(3)))
	require.NoError(t, open.BuyTicket(ctx, bob, 2, big.NewInt(3)))
	require.NoError(t, open.BuyTicket(ctx, alice, 1, big.NewInt(3)))

	done, err := src.CreateRaffle(ctx, organizer, 2, big.NewInt(0), 50)
	require.NoError(t, err)
	require.NoError(t, done.BuyTicket(ctx, bob, 2, nil))
	require.NoError(t, done.SetWinningTicket(ctx, organizer, 2))

	// hand the records over out of order
	records := []*models.Raffle{done.Snapshot(), open.Snapshot()}

	dst := NewFactory(factoryAddr, nil, nil)
	require.NoError(t, dst.Restore(records))
	assert.Equal(t, src.Raffles(), dst.Raffles())

	restored, err := dst.Raffle(open.Address())
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 1}, restored.TicketsOf(alice))
	assert.Equal(t, []uint64{2}, restored.TicketsOf(bob))
	assert.Equal(t, "9", restored.Snapshot().Balance)
	assert.True(t, restored.IsActive())
	require.ErrorIs(t, restored.BuyTicket(ctx, bob, 7, big.NewInt(3)), ErrTicketAlreadySold)

	resolved, err := dst.Raffle(done.Address())
	require.NoError(t, err)
	winner, ok := resolved.Winner()
	require.True(t, ok)
	assert.Equal(t, bob, winner)

	// the sequence continues after restored raffles
	next, err := dst.CreateRaffle(ctx, organizer, 1, big.NewInt(0), 100)
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress(factoryAddr, 2), next.Address())

	require.Error(t, dst.Restore(records))
}

func TestRestoreRejectsForeignRecords(t *testing.T) {
	src := NewFactory(factoryAddr, nil, nil)
	r, err := src.CreateRaffle(context.Background(), organizer, 10, big.NewInt(0), 50)
	require.NoError(t, err)

	other := NewFactory(common.HexToAddress("0x00000000000000000000000000000000000000ff"), nil, nil)
	require.Error(t, other.Restore([]*models.Raffle{r.Snapshot()}))

	gap := r.Snapshot()
	gap.Sequence = 4
	require.Error(t, NewFactory(factoryAddr, nil, nil).Restore([]*models.Raffle{gap}))
}
