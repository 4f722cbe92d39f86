// Package event provides the bot's named-channel pub/sub system: priority
// ordered, cancellation aware, with per-subscriber fault isolation.
// Asynchronous dispatch rides on a watermill gochannel so call sites that
// must not block share the same delivery algorithm.
package event

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/ultrosbot/ultros/internal/logging"
)

// ErrSubscriberExists is returned when a subscriber already holds a
// registration on the channel. One registration per subscriber per channel.
var ErrSubscriberExists = fmt.Errorf("event: subscriber already registered on channel")

// Callback receives a delivered event.
type Callback func(*Event)

// Filter decides whether a subscription sees a particular event. A nil
// filter accepts everything.
type Filter func(*Event) bool

// Subscription describes one named-channel registration.
type Subscription struct {
	// Subscriber identifies the owner, typically a plugin name. At most one
	// subscription per subscriber per channel.
	Subscriber string
	// Priority orders delivery: higher runs first, ties broken by
	// subscriber name ascending.
	Priority int
	Callback Callback
	Filter   Filter
	// AcceptsCancelled lets the callback run even after an earlier
	// subscriber cancelled the event.
	AcceptsCancelled bool
}

const asyncTopic = "bus.deliver"

// Bus delivers events to subscriptions on named channels. Construct one per
// process and inject it; there is no package-level instance.
type Bus struct {
	mu       sync.RWMutex
	channels map[string][]Subscription

	pubsub *gochannel.GoChannel
	cancel context.CancelFunc

	pendingMu sync.Mutex
	pending   map[string]asyncDelivery

	closeOnce sync.Once
	consumed  chan struct{}
}

type asyncDelivery struct {
	channel string
	event   *Event
}

// NewBus creates a bus and starts its async delivery consumer.
func NewBus() *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		channels: make(map[string][]Subscription),
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 100},
			watermill.NopLogger{},
		),
		cancel:   cancel,
		pending:  make(map[string]asyncDelivery),
		consumed: make(chan struct{}),
	}

	msgs, err := b.pubsub.Subscribe(ctx, asyncTopic)
	if err != nil {
		// gochannel.Subscribe only fails on a closed pubsub.
		panic(fmt.Sprintf("event: subscribe async topic: %v", err))
	}
	go b.consume(msgs)

	return b
}

// AddCallback registers sub on the named channel. Returns
// ErrSubscriberExists if the subscriber already has a registration there.
// The channel's delivery order is recomputed after every mutation.
func (b *Bus) AddCallback(channel string, sub Subscription) error {
	if sub.Callback == nil {
		return fmt.Errorf("event: nil callback for subscriber %q on %q", sub.Subscriber, channel)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, existing := range b.channels[channel] {
		if existing.Subscriber == sub.Subscriber {
			return fmt.Errorf("%w: %q on %q", ErrSubscriberExists, sub.Subscriber, channel)
		}
	}

	b.channels[channel] = append(b.channels[channel], sub)
	sortSubscriptions(b.channels[channel])
	return nil
}

// RemoveCallback removes one subscriber from one channel. No-op if absent.
func (b *Bus) RemoveCallback(channel, subscriber string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.channels[channel]
	for i, sub := range subs {
		if sub.Subscriber == subscriber {
			b.channels[channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	sortSubscriptions(b.channels[channel])
	if len(b.channels[channel]) == 0 {
		delete(b.channels, channel)
	}
}

// RemoveCallbacks wipes an entire channel. No-op if absent.
func (b *Bus) RemoveCallbacks(channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.channels, channel)
}

// RemoveCallbacksFor removes a subscriber from every channel, e.g. when a
// plugin unloads. No-op if the subscriber holds nothing.
func (b *Bus) RemoveCallbacksFor(subscriber string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for channel, subs := range b.channels {
		for i, sub := range subs {
			if sub.Subscriber == subscriber {
				b.channels[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		sortSubscriptions(b.channels[channel])
		if len(b.channels[channel]) == 0 {
			delete(b.channels, channel)
		}
	}
}

// Fire delivers ev synchronously on the caller's stack, in priority order.
// A subscriber panic is logged and never reaches the publisher or the
// remaining subscribers.
func (b *Bus) Fire(channel string, ev *Event) {
	b.deliver(channel, ev)
}

// FireAsync queues ev for delivery on the bus's background consumer, for
// publishers that must not block on subscriber work. Delivery uses the same
// algorithm and ordering as Fire.
func (b *Bus) FireAsync(channel string, ev *Event) {
	id := watermill.NewUUID()

	b.pendingMu.Lock()
	b.pending[id] = asyncDelivery{channel: channel, event: ev}
	b.pendingMu.Unlock()

	if err := b.pubsub.Publish(asyncTopic, message.NewMessage(id, nil)); err != nil {
		b.pendingMu.Lock()
		delete(b.pending, id)
		b.pendingMu.Unlock()
		logging.Error().Err(err).Str("channel", channel).Msg("async event dropped")
	}
}

// Close stops the async consumer. Pending async deliveries may be dropped.
func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.cancel()
		err = b.pubsub.Close()
		<-b.consumed
	})
	return err
}

func (b *Bus) consume(msgs <-chan *message.Message) {
	defer close(b.consumed)
	for msg := range msgs {
		b.pendingMu.Lock()
		d, ok := b.pending[msg.UUID]
		delete(b.pending, msg.UUID)
		b.pendingMu.Unlock()

		if ok {
			b.deliver(d.channel, d.event)
		}
		msg.Ack()
	}
}

func (b *Bus) deliver(channel string, ev *Event) {
	b.mu.RLock()
	subs := make([]Subscription, len(b.channels[channel]))
	copy(subs, b.channels[channel])
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.Filter != nil && !sub.Filter(ev) {
			continue
		}
		if ev.Cancelled() && !sub.AcceptsCancelled {
			logging.Debug().
				Str("channel", channel).
				Str("subscriber", sub.Subscriber).
				Msg("skipping subscriber: event cancelled")
			continue
		}
		b.invoke(channel, sub, ev)
	}
}

// invoke runs one callback, isolating panics so one subscriber's bug cannot
// break the others.
func (b *Bus) invoke(channel string, sub Subscription, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("channel", channel).
				Str("subscriber", sub.Subscriber).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("event subscriber panicked")
		}
	}()
	sub.Callback(ev)
}

// sortSubscriptions orders by priority descending, subscriber ascending for
// deterministic delivery.
func sortSubscriptions(subs []Subscription) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].Priority != subs[j].Priority {
			return subs[i].Priority > subs[j].Priority
		}
		return subs[i].Subscriber < subs[j].Subscriber
	})
}
