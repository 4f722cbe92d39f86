// Package command implements the bot's command core: a registry mapping
// names and aliases to handlers, and a dispatcher that turns a raw chat
// line into a handler invocation with permission gating. A command is
// something with a name and a Run function; how lines reach the dispatcher
// is the protocol adapters' business.
package command

import (
	"context"

	"github.com/ultrosbot/ultros/internal/bot"
)

// Invocation carries everything a handler receives for one command run.
type Invocation struct {
	Protocol bot.Protocol
	Caller   bot.Caller
	Source   bot.Source
	// Command is the word the caller typed, lowercased. It may be an alias;
	// canonical resolution stays inside the registry.
	Command string
	// RawArgs is the argument text exactly as typed.
	RawArgs string
	// Args is RawArgs split with shell-like quoting. Nil when the quoting
	// was malformed; handlers fall back to RawArgs in that case.
	Args []string
}

// Handler executes a command. Returned errors are classified by the
// dispatcher: *UsageError, *NoPermissionError, *RateLimitError and
// *CommandError map to their states, anything else to Error.
type Handler func(ctx context.Context, inv *Invocation) error

// Command is a registered command.
type Command struct {
	// Name as registered. Compared case-insensitively.
	Name    string
	Handler Handler
	// Owner is an opaque token used for bulk unregistration, compared by
	// identity. Typically the owning plugin.
	Owner any
	// Permission required to run, empty for none.
	Permission string
	// Aliases are alternate names, each globally unique across commands.
	Aliases []string
	// Default allows the command to run when it requires a permission but
	// no permissions engine is installed.
	Default bool
}

// PermissionChecker is the dispatcher's view of the permissions engine.
type PermissionChecker interface {
	Check(permission string, caller bot.Caller, source, protocol string) bool
}
