package realtime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"

	"beyond-pages/pkg/logger"
)

const (
	defaultBuffer = 32
	minBackoff    = time.Second
	maxBackoff    = 30 * time.Second
)

// Subscription receives the changes of one table that pass its filter
type Subscription struct {
	id     uint64
	table  string
	filter Filter
	ch     chan *Event
	hub    *Hub
	once   sync.Once
}

// Events is closed when the subscription or the hub is closed
func (s *Subscription) Events() <-chan *Event {
	return s.ch
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s.id) })
}

// Hub listens on a dedicated Postgres connection and fans notifications out
// to subscribers. A subscriber that falls behind misses events; it never
// blocks the others.
type Hub struct {
	databaseURL string
	buffer      int
	logger      *logger.Logger

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	dropped atomic.Uint64

	// listener and sleep are replaced in tests
	listener func(ctx context.Context, ready func()) error
	sleep    func(ctx context.Context, d time.Duration) bool
}

// NewHub creates a hub. Run starts listening.
func NewHub(databaseURL string, log *logger.Logger) *Hub {
	h := &Hub{
		databaseURL: databaseURL,
		buffer:      defaultBuffer,
		logger:      log.Named("realtime"),
		subs:        make(map[uint64]*Subscription),
		sleep:       sleepCtx,
	}
	h.listener = h.listen
	return h
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Subscribe registers for changes on table
func (h *Hub) Subscribe(table string, filter Filter) (*Subscription, error) {
	if _, ok := Tables[table]; !ok {
		return nil, fmt.Errorf("table %q does not publish changes", table)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("realtime hub is closed")
	}
	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		table:  table,
		filter: filter,
		ch:     make(chan *Event, h.buffer),
		hub:    h,
	}
	h.subs[sub.id] = sub
	return sub, nil
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// Publish delivers e to every matching subscriber without blocking
func (h *Hub) Publish(e *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.table != e.Table || !sub.filter.Match(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			h.dropped.Add(1)
		}
	}
}

// Dropped counts events discarded because a subscriber was full
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Subscribers returns the number of open subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) dispatch(payload string) {
	e, err := ParseEvent(payload)
	if err != nil {
		h.logger.WithError(err).Warn("Ignoring malformed change notification")
		return
	}
	h.Publish(e)
}

// Run listens until ctx is cancelled, reconnecting with backoff. The delay
// starts over once a connection gets as far as LISTEN.
func (h *Hub) Run(ctx context.Context) {
	backoff := minBackoff
	for {
		err := h.listener(ctx, func() { backoff = minBackoff })
		if ctx.Err() != nil {
			return
		}
		h.logger.WithError(err).WithField("retry_in", backoff.String()).Warn("Change feed disconnected")

		if !h.sleep(ctx, backoff) {
			return
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (h *Hub) listen(ctx context.Context, ready func()) error {
	conn, err := pgx.Connect(ctx, h.databaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	h.logger.WithField("channel", Channel).Info("Listening for changes")
	ready()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		h.dispatch(n.Payload)
	}
}

// Close ends every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}
