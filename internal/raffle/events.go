package raffle

import (
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"github.com/ArowuTest/raffle-ledger-backend/internal/logger"
	"github.com/ArowuTest/raffle-ledger-backend/internal/models"
)

const defaultSubscriptionBuffer = 64

// EventBus fans ledger events out to any number of subscribers.
// Delivery never blocks a writer: a subscriber whose buffer is full misses
// the event, and the persisted event log remains the full history.
type EventBus struct {
	mu     sync.Mutex
	seq    uint64
	nextID uint64
	subs   map[uint64]*Subscription
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[uint64]*Subscription)}
}

// Subscription is a live feed of events published after it was created.
type Subscription struct {
	id      uint64
	bus     *EventBus
	ch      chan *models.Event
	dropped uint64
	once    sync.Once
}

// C returns the receive channel. It is closed by Close.
func (s *Subscription) C() <-chan *models.Event {
	return s.ch
}

// Dropped reports how many events were skipped because the buffer was full.
func (s *Subscription) Dropped() uint64 {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	return s.dropped
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.id)
		close(s.ch)
		s.bus.mu.Unlock()
	})
}

func (b *EventBus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, bus: b, ch: make(chan *models.Event, buffer)}
	b.subs[sub.id] = sub
	return sub
}

// Resume continues sequence numbering after seq, e.g. after a restart.
func (b *EventBus) Resume(seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seq > b.seq {
		b.seq = seq
	}
}

// stamp assigns the next sequence number, the timestamp and the hash.
func (b *EventBus) stamp(ev *models.Event, at time.Time) *models.Event {
	b.mu.Lock()
	b.seq++
	ev.Seq = b.seq
	b.mu.Unlock()
	ev.Timestamp = at.UTC()
	ev.TxHash = hashEvent(ev)
	return ev
}

// publish delivers a committed event to the current subscribers.
func (b *EventBus) publish(ev *models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		cp := *ev
		select {
		case sub.ch <- &cp:
		default:
			sub.dropped++
			logger.Warn("event subscriber is lagging, event dropped",
				zap.Uint64("subscription", sub.id),
				zap.Uint64("seq", ev.Seq),
				zap.String("kind", string(ev.Kind)),
			)
		}
	}
}

func hashEvent(ev *models.Event) string {
	h := sha3.NewLegacyKeccak256()
	for _, part := range []string{
		strconv.FormatUint(ev.Seq, 10),
		string(ev.Kind),
		ev.Raffle,
		ev.Organizer,
		ev.Buyer,
		strconv.FormatUint(ev.TicketNumber, 10),
		ev.Winner,
		ev.Amount,
		strconv.FormatInt(ev.Timestamp.UnixNano(), 10),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return common.BytesToHash(h.Sum(nil)).Hex()
}
