package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCaller struct{ id string }

func (c *testCaller) ID() string       { return c.id }
func (c *testCaller) Authorized() bool { return false }
func (c *testCaller) Username() string { return "" }
func (c *testCaller) Respond(string)   {}

func newTestBus(t *testing.T) *Bus {
	t.Helper()
	bus := NewBus()
	t.Cleanup(func() { bus.Close() })
	return bus
}

func TestNewPanicsWithoutCaller(t *testing.T) {
	assert.Panics(t, func() { New(nil, "data") })
}

func TestBusPriorityOrdering(t *testing.T) {
	bus := newTestBus(t)

	var order []int
	add := func(name string, priority int) {
		require.NoError(t, bus.AddCallback("message", Subscription{
			Subscriber: name,
			Priority:   priority,
			Callback:   func(*Event) { order = append(order, priority) },
		}))
	}

	// Registration order must not matter.
	add("a", 10)
	add("b", 5)
	add("c", 20)

	bus.Fire("message", New(&testCaller{id: "x"}, nil))
	assert.Equal(t, []int{20, 10, 5}, order)
}

func TestBusPriorityTieBreak(t *testing.T) {
	bus := newTestBus(t)

	var order []string
	for _, name := range []string{"zeta", "alpha", "mid"} {
		name := name
		require.NoError(t, bus.AddCallback("message", Subscription{
			Subscriber: name,
			Priority:   7,
			Callback:   func(*Event) { order = append(order, name) },
		}))
	}

	bus.Fire("message", New(&testCaller{id: "x"}, nil))
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, order)
}

func TestBusDuplicateSubscriber(t *testing.T) {
	bus := newTestBus(t)

	sub := Subscription{Subscriber: "plugin", Callback: func(*Event) {}}
	require.NoError(t, bus.AddCallback("message", sub))

	err := bus.AddCallback("message", sub)
	assert.ErrorIs(t, err, ErrSubscriberExists)

	// Same subscriber on a different channel is fine.
	assert.NoError(t, bus.AddCallback("other", sub))
}

func TestBusCancellationIsolation(t *testing.T) {
	bus := newTestBus(t)

	var ran []string
	require.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber: "a",
		Priority:   20,
		Callback: func(ev *Event) {
			ran = append(ran, "a")
			ev.Cancel()
		},
	}))
	require.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber:       "b",
		Priority:         10,
		AcceptsCancelled: true,
		Callback:         func(*Event) { ran = append(ran, "b") },
	}))
	require.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber: "c",
		Priority:   5,
		Callback:   func(*Event) { ran = append(ran, "c") },
	}))

	ev := New(&testCaller{id: "x"}, nil)
	bus.Fire("message", ev)

	assert.True(t, ev.Cancelled())
	assert.Equal(t, []string{"a", "b"}, ran, "b accepts cancelled events, c does not")
}

func TestBusFilter(t *testing.T) {
	bus := newTestBus(t)

	var got []any
	require.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber: "picky",
		Filter:     func(ev *Event) bool { return ev.Data == "wanted" },
		Callback:   func(ev *Event) { got = append(got, ev.Data) },
	}))

	caller := &testCaller{id: "x"}
	bus.Fire("message", New(caller, "ignored"))
	bus.Fire("message", New(caller, "wanted"))

	assert.Equal(t, []any{"wanted"}, got)
}

func TestBusPanicIsolation(t *testing.T) {
	bus := newTestBus(t)

	var ran []string
	require.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber: "broken",
		Priority:   10,
		Callback:   func(*Event) { panic("plugin bug") },
	}))
	require.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber: "healthy",
		Priority:   5,
		Callback:   func(*Event) { ran = append(ran, "healthy") },
	}))

	assert.NotPanics(t, func() {
		bus.Fire("message", New(&testCaller{id: "x"}, nil))
	})
	assert.Equal(t, []string{"healthy"}, ran)
}

func TestBusRemoveCallback(t *testing.T) {
	bus := newTestBus(t)

	ran := 0
	require.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber: "plugin",
		Callback:   func(*Event) { ran++ },
	}))

	bus.RemoveCallback("message", "plugin")
	bus.RemoveCallback("message", "plugin") // idempotent
	bus.RemoveCallback("missing", "plugin")

	bus.Fire("message", New(&testCaller{id: "x"}, nil))
	assert.Zero(t, ran)

	// Removal frees the registration for reuse.
	assert.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber: "plugin",
		Callback:   func(*Event) { ran++ },
	}))
}

func TestBusRemoveCallbacksFor(t *testing.T) {
	bus := newTestBus(t)

	ran := 0
	for _, channel := range []string{"message", "join", "part"} {
		require.NoError(t, bus.AddCallback(channel, Subscription{
			Subscriber: "plugin",
			Callback:   func(*Event) { ran++ },
		}))
	}
	require.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber: "other",
		Callback:   func(*Event) { ran++ },
	}))

	bus.RemoveCallbacksFor("plugin")

	caller := &testCaller{id: "x"}
	bus.Fire("message", New(caller, nil))
	bus.Fire("join", New(caller, nil))
	bus.Fire("part", New(caller, nil))

	assert.Equal(t, 1, ran, "only the other subscriber remains")
}

func TestBusRemoveCallbacksWipesChannel(t *testing.T) {
	bus := newTestBus(t)

	ran := 0
	require.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber: "a",
		Callback:   func(*Event) { ran++ },
	}))
	require.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber: "b",
		Callback:   func(*Event) { ran++ },
	}))

	bus.RemoveCallbacks("message")
	bus.Fire("message", New(&testCaller{id: "x"}, nil))
	assert.Zero(t, ran)
}

func TestBusFireAsync(t *testing.T) {
	bus := newTestBus(t)

	done := make(chan any, 1)
	require.NoError(t, bus.AddCallback("message", Subscription{
		Subscriber: "plugin",
		Callback:   func(ev *Event) { done <- ev.Data },
	}))

	bus.FireAsync("message", New(&testCaller{id: "x"}, "payload"))

	select {
	case data := <-done:
		assert.Equal(t, "payload", data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async delivery")
	}
}

func TestBusNilCallbackRejected(t *testing.T) {
	bus := newTestBus(t)
	assert.Error(t, bus.AddCallback("message", Subscription{Subscriber: "plugin"}))
}
