package raffle

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/ArowuTest/raffle-ledger-backend/internal/logger"
	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
)

// Store persists committed state changes. Each call must either fully
// record the change or return an error; the in-memory ledger is updated
// only after the store accepted it.
type Store interface {
	Create(ctx context.Context, creation *models.RaffleCreation) error
	RecordPurchase(ctx context.Context, purchase *models.TicketPurchase) error
	RecordResolution(ctx context.Context, resolution *models.Resolution) error
}

// Raffle is a single ticketed draw. Mutations are serialized by wmu for
// their whole duration, store I/O included. mu guards the state itself and
// is write-locked only while a committed change is applied, so readers
// never wait on the store. Fields read without mu are read by the holder
// of wmu, the only goroutine allowed to change them.
type Raffle struct {
	wmu sync.Mutex
	mu  sync.RWMutex

	address      common.Address
	sequence     uint64
	organizer    common.Address
	totalTickets uint64
	ticketPrice  *big.Int
	threshold    uint64

	ticketsSold    uint64
	ticketToBuyer  map[uint64]ticketSlot
	buyerToTickets map[common.Address][]uint64
	winningTicket  uint64
	balance        *big.Int

	createdAt  time.Time
	updatedAt  time.Time
	resolvedAt time.Time

	store Store
	bus   *EventBus
	now   func() time.Time
	rand  io.Reader
}

type ticketSlot struct {
	buyer       common.Address
	seq         uint64
	purchasedAt time.Time
}

func (r *Raffle) Address() common.Address { return r.address }

func (r *Raffle) Organizer() common.Address { return r.organizer }

// IsActive is derived on every call and never stored.
func (r *Raffle) IsActive() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isActiveLocked()
}

func (r *Raffle) isActiveLocked() bool {
	return r.winningTicket == 0 &&
		r.ticketsSold < r.totalTickets &&
		r.ticketsSold*100 < r.totalTickets*r.threshold
}

func (r *Raffle) statusLocked() models.RaffleStatus {
	switch {
	case r.winningTicket != 0:
		return models.RaffleStatusResolved
	case r.isActiveLocked():
		return models.RaffleStatusSelling
	default:
		return models.RaffleStatusClosed
	}
}

func (r *Raffle) Status() models.RaffleStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statusLocked()
}

// Winner returns the owner of the winning ticket, or false while unresolved.
func (r *Raffle) Winner() (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.winningTicket == 0 {
		return common.Address{}, false
	}
	return r.ticketToBuyer[r.winningTicket].buyer, true
}

// BuyTicket sells ticketNumber to buyer for exactly the ticket price.
func (r *Raffle) BuyTicket(ctx context.Context, buyer common.Address, ticketNumber uint64, payment *big.Int) error {
	if buyer == (common.Address{}) {
		return fmt.Errorf("buy ticket %d: %w", ticketNumber, ErrInvalidIdentity)
	}
	if payment == nil {
		payment = new(big.Int)
	}

	r.wmu.Lock()
	defer r.wmu.Unlock()

	if !r.isActiveLocked() {
		return fmt.Errorf("buy ticket %d on %s: %w", ticketNumber, r.address.Hex(), ErrRaffleInactive)
	}
	if ticketNumber < 1 || ticketNumber > r.totalTickets {
		return fmt.Errorf("buy ticket %d of %d: %w", ticketNumber, r.totalTickets, ErrInvalidTicket)
	}
	if _, sold := r.ticketToBuyer[ticketNumber]; sold {
		return fmt.Errorf("buy ticket %d: %w", ticketNumber, ErrTicketAlreadySold)
	}
	if payment.Cmp(r.ticketPrice) != 0 {
		return fmt.Errorf("buy ticket %d: paid %s wei, price %s wei: %w",
			ticketNumber, payment.String(), r.ticketPrice.String(), ErrIncorrectPayment)
	}

	at := r.now()
	sold := r.ticketsSold + 1
	balance := new(big.Int).Add(r.balance, payment)

	ev := r.bus.stamp(&models.Event{
		Kind:         models.EventTicketPurchased,
		Raffle:       r.address.Hex(),
		Buyer:        buyer.Hex(),
		TicketNumber: ticketNumber,
		Amount:       payment.String(),
	}, at)

	// status after this sale, computed before the counters move
	status := models.RaffleStatusSelling
	if sold >= r.totalTickets || sold*100 >= r.totalTickets*r.threshold {
		status = models.RaffleStatusClosed
	}

	if r.store != nil {
		err := r.store.RecordPurchase(ctx, &models.TicketPurchase{
			Raffle:       r.address.Hex(),
			Buyer:        buyer.Hex(),
			TicketNumber: ticketNumber,
			Amount:       payment.String(),
			Seq:          sold,
			TicketsSold:  sold,
			Balance:      balance.String(),
			Status:       status,
			PurchasedAt:  at,
			Event:        ev,
		})
		if err != nil {
			return fmt.Errorf("record purchase of ticket %d: %w", ticketNumber, err)
		}
	}

	r.mu.Lock()
	r.ticketToBuyer[ticketNumber] = ticketSlot{buyer: buyer, seq: sold, purchasedAt: at}
	r.buyerToTickets[buyer] = append(r.buyerToTickets[buyer], ticketNumber)
	r.ticketsSold = sold
	r.balance = balance
	r.updatedAt = at
	r.mu.Unlock()

	r.bus.publish(ev)

	if status == models.RaffleStatusClosed {
		logger.Info("raffle closed for sale",
			zap.String("raffle", r.address.Hex()),
			zap.Uint64("ticketsSold", sold),
			zap.Uint64("totalTickets", r.totalTickets),
		)
	}
	return nil
}

// AvailableTickets lists unsold ticket numbers in ascending order. The list
// is advisory: a concurrent purchase may take any of them.
func (r *Raffle) AvailableTickets() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	available := make([]uint64, 0, r.totalTickets-r.ticketsSold)
	for n := uint64(1); n <= r.totalTickets; n++ {
		if _, sold := r.ticketToBuyer[n]; !sold {
			available = append(available, n)
		}
	}
	return available
}

// TicketsOf returns the tickets bought by identity in purchase order.
func (r *Raffle) TicketsOf(identity common.Address) []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owned := r.buyerToTickets[identity]
	out := make([]uint64, len(owned))
	copy(out, owned)
	return out
}

// TicketOwner returns the buyer of ticketNumber, or false when unsold.
func (r *Raffle) TicketOwner(ticketNumber uint64) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	slot, ok := r.ticketToBuyer[ticketNumber]
	return slot.buyer, ok
}

// SetWinningTicket resolves the raffle on behalf of its organizer and pays
// the whole balance to the owner of ticketNumber.
func (r *Raffle) SetWinningTicket(ctx context.Context, caller common.Address, ticketNumber uint64) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	if err := r.checkResolvableLocked(caller); err != nil {
		return err
	}
	if _, sold := r.ticketToBuyer[ticketNumber]; !sold {
		return fmt.Errorf("set winning ticket %d: %w", ticketNumber, ErrTicketNotSold)
	}
	return r.resolveLocked(ctx, ticketNumber)
}

// DrawWinningTicket picks a uniformly random sold ticket and resolves the
// raffle with it. Preconditions are those of SetWinningTicket.
func (r *Raffle) DrawWinningTicket(ctx context.Context, caller common.Address) (uint64, error) {
	r.wmu.Lock()
	defer r.wmu.Unlock()

	if err := r.checkResolvableLocked(caller); err != nil {
		return 0, err
	}
	if r.ticketsSold == 0 {
		return 0, fmt.Errorf("draw winning ticket: no tickets sold: %w", ErrTicketNotSold)
	}

	sold := make([]uint64, 0, len(r.ticketToBuyer))
	for n := range r.ticketToBuyer {
		sold = append(sold, n)
	}
	sort.Slice(sold, func(i, j int) bool { return sold[i] < sold[j] })

	idx, err := rand.Int(r.rand, big.NewInt(int64(len(sold))))
	if err != nil {
		return 0, fmt.Errorf("draw winning ticket: %w", err)
	}
	ticketNumber := sold[idx.Int64()]
	if err := r.resolveLocked(ctx, ticketNumber); err != nil {
		return 0, err
	}
	return ticketNumber, nil
}

func (r *Raffle) checkResolvableLocked(caller common.Address) error {
	if caller != r.organizer {
		return fmt.Errorf("resolve %s as %s: %w", r.address.Hex(), caller.Hex(), ErrNotOrganizer)
	}
	if r.isActiveLocked() {
		return fmt.Errorf("resolve %s: %d of %d sold: %w", r.address.Hex(), r.ticketsSold, r.totalTickets, ErrRaffleStillActive)
	}
	if r.winningTicket != 0 {
		return fmt.Errorf("resolve %s: ticket %d already won: %w", r.address.Hex(), r.winningTicket, ErrWinnerAlreadySet)
	}
	return nil
}

func (r *Raffle) resolveLocked(ctx context.Context, ticketNumber uint64) error {
	at := r.now()
	winner := r.ticketToBuyer[ticketNumber].buyer
	amount := new(big.Int).Set(r.balance)

	ev := r.bus.stamp(&models.Event{
		Kind:         models.EventWinnerSelected,
		Raffle:       r.address.Hex(),
		Organizer:    r.organizer.Hex(),
		TicketNumber: ticketNumber,
		Winner:       winner.Hex(),
		Amount:       amount.String(),
	}, at)

	if r.store != nil {
		err := r.store.RecordResolution(ctx, &models.Resolution{
			Raffle:        r.address.Hex(),
			WinningTicket: ticketNumber,
			Winner:        winner.Hex(),
			ResolvedAt:    at,
			Payout: &models.Payout{
				Raffle:       r.address.Hex(),
				Recipient:    winner.Hex(),
				TicketNumber: ticketNumber,
				Amount:       amount.String(),
				CreatedAt:    at,
			},
			Event: ev,
		})
		if err != nil {
			return fmt.Errorf("record resolution of %s: %w", r.address.Hex(), err)
		}
	}

	r.mu.Lock()
	r.winningTicket = ticketNumber
	r.balance = new(big.Int)
	r.resolvedAt = at
	r.updatedAt = at
	r.mu.Unlock()

	r.bus.publish(ev)

	logger.Info("raffle resolved",
		zap.String("raffle", r.address.Hex()),
		zap.Uint64("winningTicket", ticketNumber),
		zap.String("winner", winner.Hex()),
		zap.String("payout", amount.String()),
	)
	return nil
}

// Snapshot returns a consistent copy of the raffle's state.
func (r *Raffle) Snapshot() *models.Raffle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tickets := make(map[string]models.TicketSlot, len(r.ticketToBuyer))
	for n, slot := range r.ticketToBuyer {
		tickets[strconv.FormatUint(n, 10)] = models.TicketSlot{
			Buyer:       slot.buyer.Hex(),
			Seq:         slot.seq,
			PurchasedAt: slot.purchasedAt,
		}
	}

	snap := &models.Raffle{
		Address:             r.address.Hex(),
		Sequence:            r.sequence,
		Organizer:           r.organizer.Hex(),
		TotalTickets:        r.totalTickets,
		TicketPrice:         r.ticketPrice.String(),
		TicketPriceEth:      FormatEther(r.ticketPrice),
		PercentageThreshold: uint8(r.threshold),
		TicketsSold:         r.ticketsSold,
		Tickets:             tickets,
		Balance:             r.balance.String(),
		WinningTicket:       r.winningTicket,
		IsActive:            r.isActiveLocked(),
		Status:              r.statusLocked(),
		CreatedAt:           r.createdAt,
		UpdatedAt:           r.updatedAt,
		ResolvedAt:          r.resolvedAt,
	}
	if r.winningTicket != 0 {
		snap.Winner = r.ticketToBuyer[r.winningTicket].buyer.Hex()
	}
	return snap
}
