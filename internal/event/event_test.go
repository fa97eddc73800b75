package event_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/ecoquest/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	type (
		inputs struct {
			published   []event.Event
			subscribers []subscriber
		}

		outputs struct {
			received map[string][]event.Event
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"a single subscriber should receive correct event": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("e1"),
						eventWithName("e2"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"e1"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("e1")}, out.received["s1"])
			},
		},

		"a single subscriber should receive all dispatched event": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("e1"),
						eventWithName("e1"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"e1"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("e1"), eventWithName("e1")}, out.received["s1"])
			},
		},

		"an event should be dispatched to all subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("e1"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"e1"},
						},
						{
							name:        "s2",
							subscribeTo: []string{"e1"},
						},
						{
							name:        "s3",
							subscribeTo: []string{"e1"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("e1")}, out.received["s1"])
				assert.ElementsMatch(t, []event.Event{eventWithName("e1")}, out.received["s2"])
				assert.ElementsMatch(t, []event.Event{eventWithName("e1")}, out.received["s3"])
			},
		},

		"multiple events should be dispatched correctly multiple subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("e1"),
						eventWithName("e2"),
						eventWithName("e1"),
						eventWithName("e3"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"e1"},
						},
						{
							name:        "s2",
							subscribeTo: []string{"e1", "e2"},
						},
						{
							name:        "s3",
							subscribeTo: []string{"e3", "e2"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("e1"), eventWithName("e1")}, out.received["s1"])
				assert.ElementsMatch(t, []event.Event{eventWithName("e1"), eventWithName("e1"), eventWithName("e2")}, out.received["s2"])
				assert.ElementsMatch(t, []event.Event{eventWithName("e2"), eventWithName("e3")}, out.received["s3"])
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			mu := sync.Mutex{}
			out := outputs{received: make(map[string][]event.Event)}

			b := event.NewBus(event.WithShards(4))
			for _, s := range in.subscribers {
				for _, e := range s.subscribeTo {
					b.Subscribe(e, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						out.received[s.name] = append(out.received[s.name], e)
						mu.Unlock()
						return nil
					})
				}
			}

			for _, e := range in.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, out)
		})
	}
}

func TestBus_KeyedEventsKeepOrder(t *testing.T) {
	const perKey = 50
	keys := []string{"game:1", "game:2", "game:3"}

	b := event.NewBus(event.WithShards(2), event.WithQueueSize(4))

	var (
		mu  sync.Mutex
		got = make(map[string][]int)
	)
	b.Subscribe("step", func(_ context.Context, e event.Event) error {
		s := e.(keyedEvent)
		time.Sleep(time.Duration(rand.IntN(200)) * time.Microsecond)
		mu.Lock()
		got[s.key] = append(got[s.key], s.seq)
		mu.Unlock()
		return nil
	})

	for i := range perKey {
		for _, k := range keys {
			b.Publish(context.Background(), keyedEvent{key: k, seq: i})
		}
	}
	b.Stop()

	for _, k := range keys {
		require.Len(t, got[k], perKey, k)
		for i, seq := range got[k] {
			require.Equal(t, i, seq, "events of %s delivered out of order", k)
		}
	}
}

func TestBus_HandlerFailuresDoNotStopDelivery(t *testing.T) {
	b := event.NewBus(event.WithShards(1))

	var handled atomic.Int32
	b.Subscribe("e1", func(context.Context, event.Event) error {
		panic("boom")
	})
	b.Subscribe("e1", func(context.Context, event.Event) error {
		return errors.New("failed")
	})
	b.Subscribe("e1", func(context.Context, event.Event) error {
		handled.Add(1)
		return nil
	})

	b.Publish(context.Background(), eventWithName("e1"))
	b.Publish(context.Background(), eventWithName("e1"))
	b.Stop()

	assert.Equal(t, int32(2), handled.Load())
}

func TestBus_HandlerContext(t *testing.T) {
	b := event.NewBus(event.WithTimeout(time.Second))

	type ctxKey struct{}
	var (
		value    any
		deadline bool
		canceled error
	)
	b.Subscribe("e1", func(ctx context.Context, _ event.Event) error {
		value = ctx.Value(ctxKey{})
		_, deadline = ctx.Deadline()
		canceled = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "v"))
	cancel()
	b.Publish(ctx, eventWithName("e1"))
	b.Stop()

	assert.Equal(t, "v", value, "values of the publisher context are kept")
	assert.True(t, deadline, "handlers run under the bus timeout")
	assert.NoError(t, canceled, "cancellation of the publisher does not reach handlers")
}

func TestBus_PublishAfterStop(t *testing.T) {
	b := event.NewBus()

	var handled atomic.Int32
	b.Subscribe("e1", func(context.Context, event.Event) error {
		handled.Add(1)
		return nil
	})

	b.Stop()
	b.Stop()
	b.Publish(context.Background(), eventWithName("e1"))

	assert.Zero(t, handled.Load())
}

type keyedEvent struct {
	key string
	seq int
}

func (keyedEvent) Name() string { return "step" }

func (e keyedEvent) Key() string { return e.key }

func (e keyedEvent) String() string { return fmt.Sprintf("%s#%d", e.key, e.seq) }

type eventWithName string

func (e eventWithName) Name() string {
	return string(e)
}

type subscriber struct {
	name        string
	subscribeTo []string
}
