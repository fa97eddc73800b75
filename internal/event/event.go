package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	defaultShards    = 16
	defaultQueueSize = 1024
	defaultTimeout   = 30 * time.Second
)

type Event interface {
	Name() string
}

// Keyed events with the same key reach every handler in publish order.
// Events without a key are spread over the workers.
type Keyed interface {
	Event
	Key() string
}

type Handler func(ctx context.Context, e Event) error

type Option func(*Bus)

// WithShards sets the number of workers. Each worker runs its deliveries one
// at a time.
func WithShards(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.nshards = n
		}
	}
}

// WithQueueSize bounds the deliveries waiting per worker. Publish blocks when
// the queue of the target worker is full.
func WithQueueSize(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueSize = n
		}
	}
}

// WithTimeout bounds a single handler call.
func WithTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.timeout = d
		}
	}
}

type delivery struct {
	ctx context.Context
	h   Handler
	e   Event
}

// Bus is an in-memory event bus.
type Bus struct {
	nshards   int
	queueSize int
	timeout   time.Duration

	shards []chan delivery
	wg     sync.WaitGroup
	next   atomic.Uint64

	mu       sync.RWMutex
	stopped  bool
	handlers map[string][]Handler
}

// NewBus create a new event bus. Caller should call Stop for graceful shutdown the bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		nshards:   defaultShards,
		queueSize: defaultQueueSize,
		timeout:   defaultTimeout,
		handlers:  make(map[string][]Handler),
	}
	for _, o := range opts {
		o(b)
	}

	b.shards = make([]chan delivery, b.nshards)
	for i := range b.shards {
		ch := make(chan delivery, b.queueSize)
		b.shards[i] = ch

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for d := range ch {
				b.handle(d)
			}
		}()
	}

	return b
}

// Subscribe to an event
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = append(b.handlers[name], h)
}

// Publish queues e for every handler subscribed to its name. The handlers run
// with a context detached from the cancellation of ctx.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped {
		slog.WarnContext(ctx, "event: publish after stop dropped", "event", e.Name())
		return
	}

	hs := b.handlers[e.Name()]
	if len(hs) == 0 {
		return
	}

	shard := b.shards[b.shard(e)]
	ctx = context.WithoutCancel(ctx)
	for _, h := range hs {
		shard <- delivery{ctx: ctx, h: h, e: e}
	}
}

func (b *Bus) shard(e Event) uint64 {
	n := uint64(len(b.shards))
	if k, ok := e.(Keyed); ok {
		return xxhash.Sum64String(k.Key()) % n
	}
	return b.next.Add(1) % n
}

func (b *Bus) handle(d delivery) {
	ctx, cancel := context.WithTimeout(d.ctx, b.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "event: handler panic",
				"event", d.e.Name(),
				"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
			)
		}
	}()

	if err := d.h(ctx, d.e); err != nil {
		slog.ErrorContext(ctx, "event: handle event failed",
			"event", d.e.Name(),
			"error", err,
		)
	}
}

// Stop waits for all queued deliveries to finish. Events published afterwards
// are dropped.
func (b *Bus) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	b.stopped = true
	for _, ch := range b.shards {
		close(ch)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
