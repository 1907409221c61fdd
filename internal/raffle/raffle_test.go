package raffle

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
)

var (
	factoryAddr = common.HexToAddress("0xfac7000000000000000000000000000000000001")
	organizer   = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice       = common.HexToAddress("0xa11ce00000000000000000000000000000000002")
	bob         = common.HexToAddress("0xb0b0000000000000000000000000000000000003")
)

type fakeStore struct {
	mu          sync.Mutex
	creations   []*models.RaffleCreation
	purchases   []*models.TicketPurchase
	resolutions []*models.Resolution
	failWith    error
}

func (s *fakeStore) Create(_ context.Context, c *models.RaffleCreation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.creations = append(s.creations, c)
	return nil
}

func (s *fakeStore) RecordPurchase(_ context.Context, p *models.TicketPurchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.purchases = append(s.purchases, p)
	return nil
}

func (s *fakeStore) RecordResolution(_ context.Context, r *models.Resolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.resolutions = append(s.resolutions, r)
	return nil
}

func ether(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := ParseEther(s)
	require.NoError(t, err)
	return v
}

func newTestRaffle(t *testing.T, total uint64, price string, threshold int) (*Factory, *Raffle) {
	t.Helper()
	f := NewFactory(factoryAddr, nil, nil)
	r, err := f.CreateRaffle(context.Background(), organizer, total, ether(t, price), threshold)
	require.NoError(t, err)
	return f, r
}

func TestThresholdClosesSales(t *testing.T) {
	ctx := context.Background()
	_, r := newTestRaffle(t, 10, "0.01", 50)
	price := ether(t, "0.01")

	for n := uint64(1); n <= 4; n++ {
		require.NoError(t, r.BuyTicket(ctx, alice, n, price))
		assert.True(t, r.IsActive(), "still active after %d tickets", n)
	}

	require.NoError(t, r.BuyTicket(ctx, alice, 5, price))
	assert.False(t, r.IsActive())
	assert.Equal(t, models.RaffleStatusClosed, r.Status())

	err := r.BuyTicket(ctx, bob, 6, price)
	require.ErrorIs(t, err, ErrRaffleInactive)
	assert.Equal(t, uint64(5), r.Snapshot().TicketsSold)
}

func TestDoubleBuyRejected(t *testing.T) {
	ctx := context.Background()
	_, r := newTestRaffle(t, 10, "0.01", 50)
	price := ether(t, "0.01")

	require.NoError(t, r.BuyTicket(ctx, alice, 3, price))
	err := r.BuyTicket(ctx, bob, 3, price)
	require.ErrorIs(t, err, ErrTicketAlreadySold)

	owner, ok := r.TicketOwner(3)
	require.True(t, ok)
	assert.Equal(t, alice, owner)
	assert.Empty(t, r.TicketsOf(bob))
}

func TestResolution(t *testing.T) {
	ctx := context.Background()
	price := ether(t, "0.01")

	setup := func(t *testing.T) *Raffle {
		_, r := newTestRaffle(t, 10, "0.01", 50)
		for n := uint64(1); n <= 4; n++ {
			require.NoError(t, r.BuyTicket(ctx, alice, n, price))
		}
		require.NoError(t, r.BuyTicket(ctx, bob, 5, price))
		return r
	}

	t.Run("non organizer", func(t *testing.T) {
		r := setup(t)
		err := r.SetWinningTicket(ctx, alice, 5)
		require.ErrorIs(t, err, ErrNotOrganizer)
		_, resolved := r.Winner()
		assert.False(t, resolved)
	})

	t.Run("organizer pays winner once", func(t *testing.T) {
		r := setup(t)
		require.Equal(t, ether(t, "0.05").String(), r.Snapshot().Balance)

		require.NoError(t, r.SetWinningTicket(ctx, organizer, 5))
		winner, ok := r.Winner()
		require.True(t, ok)
		assert.Equal(t, bob, winner)

		snap := r.Snapshot()
		assert.Equal(t, "0", snap.Balance)
		assert.Equal(t, uint64(5), snap.WinningTicket)
		assert.Equal(t, bob.Hex(), snap.Winner)
		assert.Equal(t, models.RaffleStatusResolved, snap.Status)
		assert.False(t, snap.IsActive)

		err := r.SetWinningTicket(ctx, organizer, 5)
		require.ErrorIs(t, err, ErrWinnerAlreadySet)
	})

	t.Run("unsold ticket", func(t *testing.T) {
		r := setup(t)
		require.ErrorIs(t, r.SetWinningTicket(ctx, organizer, 9), ErrTicketNotSold)
		require.ErrorIs(t, r.SetWinningTicket(ctx, organizer, 0), ErrTicketNotSold)
		require.ErrorIs(t, r.SetWinningTicket(ctx, organizer, 11), ErrTicketNotSold)
	})

	t.Run("still active", func(t *testing.T) {
		_, r := newTestRaffle(t, 10, "0.01", 50)
		require.NoError(t, r.BuyTicket(ctx, alice, 1, price))
		require.ErrorIs(t, r.SetWinningTicket(ctx, organizer, 1), ErrRaffleStillActive)
		require.ErrorIs(t, r.SetWinningTicket(ctx, bob, 1), ErrNotOrganizer)
	})
}

func TestBuyTicketCheckOrder(t *testing.T) {
	ctx := context.Background()
	price := ether(t, "0.01")
	wrong := ether(t, "0.02")

	t.Run("inactive before range", func(t *testing.T) {
		_, r := newTestRaffle(t, 2, "0.01", 50)
		require.NoError(t, r.BuyTicket(ctx, alice, 1, price))
		require.ErrorIs(t, r.BuyTicket(ctx, alice, 99, wrong), ErrRaffleInactive)
	})

	t.Run("range before sold and payment", func(t *testing.T) {
		_, r := newTestRaffle(t, 10, "0.01", 50)
		require.ErrorIs(t, r.BuyTicket(ctx, alice, 0, wrong), ErrInvalidTicket)
		require.ErrorIs(t, r.BuyTicket(ctx, alice, 11, wrong), ErrInvalidTicket)
	})

	t.Run("sold before payment", func(t *testing.T) {
		_, r := newTestRaffle(t, 10, "0.01", 50)
		require.NoError(t, r.BuyTicket(ctx, alice, 2, price))
		require.ErrorIs(t, r.BuyTicket(ctx, bob, 2, wrong), ErrTicketAlreadySold)
	})

	t.Run("exact payment", func(t *testing.T) {
		_, r := newTestRaffle(t, 10, "0.01", 50)
		require.ErrorIs(t, r.BuyTicket(ctx, bob, 2, wrong), ErrIncorrectPayment)
		require.ErrorIs(t, r.BuyTicket(ctx, bob, 2, nil), ErrIncorrectPayment)
		assert.Equal(t, uint64(0), r.Snapshot().TicketsSold)
	})

	t.Run("free raffle", func(t *testing.T) {
		_, r := newTestRaffle(t, 10, "0", 50)
		require.NoError(t, r.BuyTicket(ctx, bob, 2, nil))
		require.ErrorIs(t, r.BuyTicket(ctx, bob, 3, big.NewInt(1)), ErrIncorrectPayment)
	})

	t.Run("zero buyer", func(t *testing.T) {
		_, r := newTestRaffle(t, 10, "0.01", 50)
		require.ErrorIs(t, r.BuyTicket(ctx, common.Address{}, 1, price), ErrInvalidIdentity)
	})
}

func TestThresholdBoundaries(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		total      uint64
		threshold  int
		sales      uint64
		wantActive bool
	}{
		{name: "zero threshold never sells", total: 10, threshold: 0, sales: 0, wantActive: false},
		{name: "one percent before first sale", total: 10, threshold: 1, sales: 0, wantActive: true},
		{name: "one percent after first sale", total: 10, threshold: 1, sales: 1, wantActive: false},
		{name: "full threshold one left", total: 3, threshold: 100, sales: 2, wantActive: true},
		{name: "full threshold sold out", total: 3, threshold: 100, sales: 3, wantActive: false},
		{name: "exact boundary closes", total: 4, threshold: 75, sales: 3, wantActive: false},
		{name: "just below boundary", total: 4, threshold: 76, sales: 3, wantActive: true},
		{name: "single ticket", total: 1, threshold: 100, sales: 0, wantActive: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, r := newTestRaffle(t, tt.total, "0", tt.threshold)
			for n := uint64(1); n <= tt.sales; n++ {
				require.NoError(t, r.BuyTicket(ctx, alice, n, nil))
			}
			assert.Equal(t, tt.wantActive, r.IsActive())
			assert.Equal(t, tt.wantActive, r.Snapshot().IsActive)
		})
	}
}

func TestZeroThresholdRaffleIsInert(t *testing.T) {
	ctx := context.Background()
	_, r := newTestRaffle(t, 5, "0.01", 0)

	require.ErrorIs(t, r.BuyTicket(ctx, alice, 1, ether(t, "0.01")), ErrRaffleInactive)
	require.ErrorIs(t, r.SetWinningTicket(ctx, organizer, 1), ErrTicketNotSold)
	_, err := r.DrawWinningTicket(ctx, organizer)
	require.ErrorIs(t, err, ErrTicketNotSold)
	assert.Equal(t, models.RaffleStatusClosed, r.Status())
}

func TestAvailableAndOwnedTickets(t *testing.T) {
	ctx := context.Background()
	_, r := newTestRaffle(t, 6, "0", 100)

	require.NoError(t, r.BuyTicket(ctx, alice, 4, nil))
	require.NoError(t, r.BuyTicket(ctx, bob, 2, nil))
	require.NoError(t, r.BuyTicket(ctx, alice, 1, nil))

	assert.Equal(t, []uint64{3, 5, 6}, r.AvailableTickets())
	assert.Equal(t, []uint64{4, 1}, r.TicketsOf(alice))
	assert.Equal(t, []uint64{2}, r.TicketsOf(bob))
	assert.Empty(t, r.TicketsOf(organizer))

	_, ok := r.TicketOwner(3)
	assert.False(t, ok)
}

func TestDrawWinningTicket(t *testing.T) {
	ctx := context.Background()
	_, r := newTestRaffle(t, 4, "0", 50)
	require.NoError(t, r.BuyTicket(ctx, bob, 3, nil))
	require.NoError(t, r.BuyTicket(ctx, alice, 2, nil))

	_, err := r.DrawWinningTicket(ctx, alice)
	require.ErrorIs(t, err, ErrNotOrganizer)

	// all-zero randomness selects the lowest sold ticket
	r.rand = bytes.NewReader(make([]byte, 64))
	n, err := r.DrawWinningTicket(ctx, organizer)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	winner, ok := r.Winner()
	require.True(t, ok)
	assert.Equal(t, alice, winner)

	_, err = r.DrawWinningTicket(ctx, organizer)
	require.ErrorIs(t, err, ErrWinnerAlreadySet)
}

func TestStoreFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	bus := NewEventBus()
	f := NewFactory(factoryAddr, store, bus)

	r, err := f.CreateRaffle(ctx, organizer, 2, big.NewInt(10), 50)
	require.NoError(t, err)
	require.Len(t, store.creations, 1)
	assert.Equal(t, models.EventRaffleCreated, store.creations[0].Event.Kind)

	sub := bus.Subscribe(4)
	defer sub.Close()

	store.failWith = errors.New("disk full")
	err = r.BuyTicket(ctx, alice, 1, big.NewInt(10))
	require.Error(t, err)
	assert.Equal(t, "", Kind(err))

	snap := r.Snapshot()
	assert.Equal(t, uint64(0), snap.TicketsSold)
	assert.Equal(t, "0", snap.Balance)
	assert.Equal(t, []uint64{1, 2}, r.AvailableTickets())
	assert.Len(t, sub.C(), 0)

	store.failWith = nil
	require.NoError(t, r.BuyTicket(ctx, alice, 1, big.NewInt(10)))
	require.Len(t, store.purchases, 1)
	p := store.purchases[0]
	assert.Equal(t, uint64(1), p.TicketsSold)
	assert.Equal(t, "10", p.Balance)
	assert.Equal(t, models.RaffleStatusClosed, p.Status)

	store.failWith = errors.New("disk full")
	require.Error(t, r.SetWinningTicket(ctx, organizer, 1))
	_, resolved := r.Winner()
	assert.False(t, resolved)

	store.failWith = nil
	require.NoError(t, r.SetWinningTicket(ctx, organizer, 1))
	require.Len(t, store.resolutions, 1)
	assert.Equal(t, "10", store.resolutions[0].Payout.Amount)
	assert.Equal(t, alice.Hex(), store.resolutions[0].Payout.Recipient)
}

func TestConcurrentBuyersOfSameTicket(t *testing.T) {
	ctx := context.Background()
	_, r := newTestRaffle(t, 100, "0", 100)

	const buyers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buyer := common.BigToAddress(big.NewInt(int64(1000 + i)))
			err := r.BuyTicket(ctx, buyer, 7, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, ErrTicketAlreadySold) {
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, rejected)
	assert.Equal(t, uint64(1), r.Snapshot().TicketsSold)
}

func TestConcurrentBuyersRespectThreshold(t *testing.T) {
	ctx := context.Background()
	_, r := newTestRaffle(t, 50, "0", 40)

	var wg sync.WaitGroup
	for n := uint64(1); n <= 50; n++ {
		wg.Add(1)
		go func(n uint64) {
			defer wg.Done()
			_ = r.BuyTicket(ctx, alice, n, nil)
		}(n)
	}
	wg.Wait()

	// 20 of 50 is exactly 40%
	assert.Equal(t, uint64(20), r.Snapshot().TicketsSold)
	assert.False(t, r.IsActive())
}

func TestKind(t *testing.T) {
	_, r := newTestRaffle(t, 1, "0", 100)
	err := r.SetWinningTicket(context.Background(), alice, 1)
	assert.Equal(t, "NotOrganizer", Kind(err))
	assert.Equal(t, "RaffleNotFound", Kind(ErrRaffleNotFound))
	assert.Equal(t, "", Kind(errors.New("boom")))
}

func TestSnapshotTimestamps(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewFactory(factoryAddr, nil, nil, WithClock(func() time.Time { return at }))
	r, err := f.CreateRaffle(context.Background(), organizer, 3, big.NewInt(0), 100)
	require.NoError(t, err)

	snap := r.Snapshot()
	assert.Equal(t, at, snap.CreatedAt)
	assert.True(t, snap.ResolvedAt.IsZero())
	assert.Equal(t, "0", snap.TicketPriceEth)
}

// slowStore holds every write until release is closed.
type slowStore struct {
	fakeStore
	entered chan struct{}
	release chan struct{}
}

func newSlowStore() *slowStore {
	return &slowStore{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (s *slowStore) wait() {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	<-s.release
}

func (s *slowStore) Create(ctx context.Context, c *models.RaffleCreation) error {
	s.wait()
	return s.fakeStore.Create(ctx, c)
}

func (s *slowStore) RecordPurchase(ctx context.Context, p *models.TicketPurchase) error {
	s.wait()
	return s.fakeStore.RecordPurchase(ctx, p)
}

func (s *slowStore) RecordResolution(ctx context.Context, r *models.Resolution) error {
	s.wait()
	return s.fakeStore.RecordResolution(ctx, r)
}

func TestReadsDoNotWaitOnStore(t *testing.T) {
	ctx := context.Background()
	store := newSlowStore()
	f := NewFactory(factoryAddr, store, nil)

	close(store.release)
	r, err := f.CreateRaffle(ctx, organizer, 4, big.NewInt(10), 50)
	require.NoError(t, err)
	<-store.entered
	store.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- r.BuyTicket(ctx, alice, 1, big.NewInt(10)) }()
	<-store.entered

	start := time.Now()
	assert.True(t, r.IsActive())
	assert.Equal(t, []uint64{1, 2, 3, 4}, r.AvailableTickets())
	assert.Equal(t, uint64(0), r.Snapshot().TicketsSold)
	got, err := f.Raffle(r.Address())
	require.NoError(t, err)
	assert.Same(t, r, got)
	assert.Len(t, f.Raffles(), 1)
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	// a second writer queues behind the in-flight purchase
	second := make(chan error, 1)
	go func() { second <- r.BuyTicket(ctx, bob, 1, big.NewInt(10)) }()

	close(store.release)
	require.NoError(t, <-done)
	require.ErrorIs(t, <-second, ErrTicketAlreadySold)
	owner, sold := r.TicketOwner(1)
	require.True(t, sold)
	assert.Equal(t, alice, owner)
}

func TestLookupsDoNotWaitOnCreate(t *testing.T) {
	ctx := context.Background()
	store := newSlowStore()
	f := NewFactory(factoryAddr, store, nil)

	done := make(chan error, 1)
	go func() {
		_, err := f.CreateRaffle(ctx, organizer, 4, big.NewInt(10), 50)
		done <- err
	}()
	<-store.entered

	start := time.Now()
	assert.Empty(t, f.Raffles())
	_, err := f.Raffle(factoryAddr)
	require.ErrorIs(t, err, ErrRaffleNotFound)
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	close(store.release)
	require.NoError(t, <-done)
	assert.Len(t, f.Raffles(), 1)
}
