// Package bot defines the boundary contracts between the dispatch core and
// the protocol adapters. Adapters (IRC, Mumble, ...) implement these; the
// command dispatcher, event bus, and permissions engine consume them.
package bot

// Protocol is a connected chat network adapter.
type Protocol interface {
	// Name identifies the protocol instance, e.g. "irc-esper".
	Name() string
	// CommandPrefix returns the configured control prefix for this protocol.
	// It may contain {NAME} or {NICK} tokens, substituted with the bot's
	// current display name at dispatch time. Empty means no prefix is
	// configured.
	CommandPrefix() string
	// DisplayName returns the bot's current display name on this protocol.
	DisplayName() string
}

// Caller is the actor who triggered an action, typically a chat user.
type Caller interface {
	// ID is a stable identity for this caller on its protocol, used as the
	// session and rate-limit key.
	ID() string
	// Authorized reports whether the caller has a live authenticated session.
	Authorized() bool
	// Username returns the bound account name. Only meaningful when
	// Authorized is true.
	Username() string
	// Respond delivers a message back to the caller.
	Respond(message string)
}

// Source is where a message arrived: a channel or a private context.
type Source interface {
	Name() string
	// Private reports whether this is a direct conversation rather than a
	// shared channel.
	Private() bool
}
