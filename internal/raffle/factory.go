package raffle

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/ArowuTest/raffle-ledger-backend/internal/logger"
	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
)

// MaxTotalTickets bounds a raffle's size so ticket listings stay small and
// threshold arithmetic cannot overflow.
const MaxTotalTickets = 1_000_000

// Factory creates raffles and keeps them in creation order. wmu orders
// creations across the store write; mu is held only to append the
// committed raffle, so lookups never wait on the store.
type Factory struct {
	wmu     sync.Mutex
	mu      sync.RWMutex
	address common.Address
	raffles []*Raffle
	index   map[common.Address]*Raffle

	store Store
	bus   *EventBus
	now   func() time.Time
}

type Option func(*Factory)

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) { f.now = now }
}

// NewFactory returns an empty factory. A nil store keeps the ledger in memory only.
func NewFactory(address common.Address, store Store, bus *EventBus, opts ...Option) *Factory {
	if bus == nil {
		bus = NewEventBus()
	}
	f := &Factory{
		address: address,
		index:   make(map[common.Address]*Raffle),
		store:   store,
		bus:     bus,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) Bus() *EventBus { return f.bus }

// CreateRaffle opens a new raffle owned by organizer.
func (f *Factory) CreateRaffle(ctx context.Context, organizer common.Address, totalTickets uint64, ticketPrice *big.Int, percentageThreshold int) (*Raffle, error) {
	if organizer == (common.Address{}) {
		return nil, fmt.Errorf("create raffle: %w", ErrInvalidIdentity)
	}
	if totalTickets == 0 || totalTickets > MaxTotalTickets {
		return nil, fmt.Errorf("create raffle: total tickets %d: %w", totalTickets, ErrInvalidParameters)
	}
	if percentageThreshold < 0 || percentageThreshold > 100 {
		return nil, fmt.Errorf("create raffle: threshold %d: %w", percentageThreshold, ErrInvalidParameters)
	}
	if ticketPrice == nil || ticketPrice.Sign() < 0 {
		return nil, fmt.Errorf("create raffle: ticket price: %w", ErrInvalidParameters)
	}

	f.wmu.Lock()
	defer f.wmu.Unlock()

	nonce := uint64(len(f.raffles))
	at := f.now()
	r := f.newRaffle(crypto.CreateAddress(f.address, nonce), nonce, organizer, totalTickets, new(big.Int).Set(ticketPrice), uint64(percentageThreshold))
	r.createdAt = at
	r.updatedAt = at

	ev := f.bus.stamp(&models.Event{
		Kind:      models.EventRaffleCreated,
		Raffle:    r.address.Hex(),
		Organizer: organizer.Hex(),
		Amount:    ticketPrice.String(),
	}, at)

	if f.store != nil {
		snap := r.Snapshot()
		if err := f.store.Create(ctx, &models.RaffleCreation{Raffle: snap, Event: ev}); err != nil {
			return nil, fmt.Errorf("record raffle creation: %w", err)
		}
	}

	f.mu.Lock()
	f.raffles = append(f.raffles, r)
	f.index[r.address] = r
	f.mu.Unlock()
	f.bus.publish(ev)

	logger.Info("raffle created",
		zap.String("raffle", r.address.Hex()),
		zap.String("organizer", organizer.Hex()),
		zap.Uint64("totalTickets", totalTickets),
		zap.String("ticketPrice", ticketPrice.String()),
		zap.Int("percentageThreshold", percentageThreshold),
	)
	return r, nil
}

func (f *Factory) newRaffle(address common.Address, sequence uint64, organizer common.Address, totalTickets uint64, price *big.Int, threshold uint64) *Raffle {
	return &Raffle{
		address:        address,
		sequence:       sequence,
		organizer:      organizer,
		totalTickets:   totalTickets,
		ticketPrice:    price,
		threshold:      threshold,
		ticketToBuyer:  make(map[uint64]ticketSlot),
		buyerToTickets: make(map[common.Address][]uint64),
		balance:        new(big.Int),
		store:          f.store,
		bus:            f.bus,
		now:            f.now,
		rand:           rand.Reader,
	}
}

// Raffles returns every raffle address in creation order.
func (f *Factory) Raffles() []common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]common.Address, len(f.raffles))
	for i, r := range f.raffles {
		out[i] = r.address
	}
	return out
}

// All returns the raffles themselves in creation order.
func (f *Factory) All() []*Raffle {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Raffle, len(f.raffles))
	copy(out, f.raffles)
	return out
}

func (f *Factory) Raffle(address common.Address) (*Raffle, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r, ok := f.index[address]
	if !ok {
		return nil, fmt.Errorf("raffle %s: %w", address.Hex(), ErrRaffleNotFound)
	}
	return r, nil
}

// Restore loads persisted raffles into an empty factory. Records must form
// the contiguous creation sequence 0..n-1.
func (f *Factory) Restore(records []*models.Raffle) error {
	sorted := make([]*models.Raffle, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	f.wmu.Lock()
	defer f.wmu.Unlock()
	if len(f.raffles) != 0 {
		return fmt.Errorf("restore into a factory holding %d raffles", len(f.raffles))
	}

	restored := make([]*Raffle, 0, len(sorted))
	for i, rec := range sorted {
		if rec.Sequence != uint64(i) {
			return fmt.Errorf("restore: expected raffle sequence %d, got %d", i, rec.Sequence)
		}
		r, err := f.restoreOne(rec)
		if err != nil {
			return fmt.Errorf("restore raffle %s: %w", rec.Address, err)
		}
		restored = append(restored, r)
	}

	f.mu.Lock()
	for _, r := range restored {
		f.raffles = append(f.raffles, r)
		f.index[r.address] = r
	}
	f.mu.Unlock()
	logger.Info("ledger restored", zap.Int("raffles", len(restored)))
	return nil
}

func (f *Factory) restoreOne(rec *models.Raffle) (*Raffle, error) {
	address, err := ParseIdentity(rec.Address)
	if err != nil {
		return nil, err
	}
	if want := crypto.CreateAddress(f.address, rec.Sequence); want != address {
		return nil, fmt.Errorf("address does not derive from factory %s", f.address.Hex())
	}
	organizer, err := ParseIdentity(rec.Organizer)
	if err != nil {
		return nil, err
	}
	price, ok := new(big.Int).SetString(rec.TicketPrice, 10)
	if !ok {
		return nil, fmt.Errorf("ticket price %q: %w", rec.TicketPrice, ErrInvalidParameters)
	}
	balance, ok := new(big.Int).SetString(rec.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("balance %q: %w", rec.Balance, ErrInvalidParameters)
	}
	if rec.TotalTickets == 0 || rec.TotalTickets > MaxTotalTickets || rec.PercentageThreshold > 100 {
		return nil, ErrInvalidParameters
	}

	r := f.newRaffle(address, rec.Sequence, organizer, rec.TotalTickets, price, uint64(rec.PercentageThreshold))
	r.balance = balance
	r.createdAt = rec.CreatedAt
	r.updatedAt = rec.UpdatedAt
	r.resolvedAt = rec.ResolvedAt

	type owned struct {
		number uint64
		slot   ticketSlot
	}
	ordered := make([]owned, 0, len(rec.Tickets))
	for key, slot := range rec.Tickets {
		n, err := strconv.ParseUint(key, 10, 64)
		if err != nil || n < 1 || n > rec.TotalTickets {
			return nil, fmt.Errorf("ticket %q: %w", key, ErrInvalidTicket)
		}
		buyer, err := ParseIdentity(slot.Buyer)
		if err != nil {
			return nil, err
		}
		ordered = append(ordered, owned{n, ticketSlot{buyer: buyer, seq: slot.Seq, purchasedAt: slot.PurchasedAt}})
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].slot.seq < ordered[j].slot.seq })
	for _, o := range ordered {
		r.ticketToBuyer[o.number] = o.slot
		r.buyerToTickets[o.slot.buyer] = append(r.buyerToTickets[o.slot.buyer], o.number)
	}
	r.ticketsSold = uint64(len(ordered))
	if rec.TicketsSold != r.ticketsSold {
		return nil, fmt.Errorf("tickets sold %d but %d ticket slots recorded", rec.TicketsSold, r.ticketsSold)
	}

	if rec.WinningTicket != 0 {
		if _, sold := r.ticketToBuyer[rec.WinningTicket]; !sold {
			return nil, fmt.Errorf("winning ticket %d: %w", rec.WinningTicket, ErrTicketNotSold)
		}
		r.winningTicket = rec.WinningTicket
	}
	return r, nil
}
