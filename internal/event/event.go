package event

import "github.com/ultrosbot/ultros/internal/bot"

// Standard channel names published by the dispatch core.
const (
	PreCommand      = "pre_command"
	UnknownCommand  = "unknown_command"
	MessageReceived = "message_received"
)

// Event is the envelope delivered to subscribers. Handlers may cancel it;
// whether later subscribers still see it depends on their AcceptsCancelled
// flag. The caller reference is mandatory.
type Event struct {
	Caller    bot.Caller
	Data      any
	cancelled bool
}

// New constructs an event envelope. A nil caller is a programmer error and
// panics.
func New(caller bot.Caller, data any) *Event {
	if caller == nil {
		panic("event: constructed without a caller")
	}
	return &Event{Caller: caller, Data: data}
}

// Cancel marks the event cancelled. Cooperative: it only affects
// subscribers considered after this point whose AcceptsCancelled is false.
func (e *Event) Cancel() { e.cancelled = true }

// Cancelled reports whether a handler cancelled the event.
func (e *Event) Cancelled() bool { return e.cancelled }

// CommandData is the payload for PreCommand and UnknownCommand channels.
type CommandData struct {
	Command  string
	RawArgs  string
	Source   bot.Source
	Protocol bot.Protocol
	// Printable is a human-readable log line for subscribers that relay
	// command activity.
	Printable string
}

// MessageData is the payload for MessageReceived.
type MessageData struct {
	Message  string
	Source   bot.Source
	Protocol bot.Protocol
	Target   string
}
