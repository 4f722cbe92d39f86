package command

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"mvdan.cc/sh/v3/shell"

	"github.com/ultrosbot/ultros/internal/bot"
	"github.com/ultrosbot/ultros/internal/event"
	"github.com/ultrosbot/ultros/internal/logging"
)

// Dispatcher turns raw chat lines into command invocations. It owns the
// state machine of a processed line; everything it returns is terminal for
// that line.
type Dispatcher struct {
	registry *Registry
	bus      *event.Bus
	// perms is optional. Without it, permission-requiring commands run only
	// when their Default flag is set.
	perms PermissionChecker
}

// NewDispatcher wires a dispatcher. bus is required, perms may be nil.
func NewDispatcher(registry *Registry, bus *event.Bus, perms PermissionChecker) *Dispatcher {
	return &Dispatcher{registry: registry, bus: bus, perms: perms}
}

// ProcessInput processes one raw line using the protocol's configured
// prefix and display name.
func (d *Dispatcher) ProcessInput(ctx context.Context, raw string, caller bot.Caller, source bot.Source, proto bot.Protocol) (State, error) {
	return d.ProcessInputWith(ctx, raw, caller, source, proto, "", "")
}

// ProcessInputWith is ProcessInput with explicit overrides for the control
// prefix and bot name. Empty overrides fall back to the protocol's values.
// {NAME} and {NICK} tokens in the prefix are substituted with the bot name.
func (d *Dispatcher) ProcessInputWith(ctx context.Context, raw string, caller bot.Caller, source bot.Source, proto bot.Protocol, prefix, botName string) (State, error) {
	if prefix == "" {
		prefix = proto.CommandPrefix()
	}
	if prefix == "" {
		return Error, fmt.Errorf("protocol %q exposes no command prefix", proto.Name())
	}
	if botName == "" {
		botName = proto.DisplayName()
	}
	prefix = strings.NewReplacer("{NAME}", botName, "{NICK}", botName).Replace(prefix)

	if len(raw) < len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
		return NotACommand, nil
	}

	word, rest := splitWord(raw[len(prefix):])
	if word == "" {
		// A bare prefix with nothing after it is ordinary chat.
		return NotACommand, nil
	}

	ev := event.New(caller, &event.CommandData{
		Command:   word,
		RawArgs:   rest,
		Source:    source,
		Protocol:  proto,
		Printable: fmt.Sprintf("<%s:%s> %s", proto.Name(), source.Name(), raw),
	})
	d.bus.Fire(event.PreCommand, ev)
	if ev.Cancelled() {
		return UnknownOverridden, nil
	}

	return d.RunCommand(ctx, strings.ToLower(word), caller, source, proto, rest)
}

// RunCommand looks up a command (resolving aliases), gates it on
// permissions, runs the handler, and classifies the outcome.
func (d *Dispatcher) RunCommand(ctx context.Context, name string, caller bot.Caller, source bot.Source, proto bot.Protocol, rawArgs string) (State, error) {
	cmd, ok := d.registry.Lookup(name)
	if !ok {
		ev := event.New(caller, &event.CommandData{
			Command:  name,
			RawArgs:  rawArgs,
			Source:   source,
			Protocol: proto,
		})
		d.bus.Fire(event.UnknownCommand, ev)
		if ev.Cancelled() {
			return UnknownOverridden, nil
		}
		return Unknown, nil
	}

	args, err := shell.Fields(rawArgs, nil)
	if err != nil {
		// Malformed quoting does not abort the run; the handler still gets
		// the raw string and may split it itself.
		logging.Debug().Str("command", name).Err(err).Msg("argument tokenization failed")
		args = nil
	}

	if cmd.Permission != "" {
		if d.perms != nil {
			if !d.perms.Check(cmd.Permission, caller, source.Name(), proto.Name()) {
				return NoPermission, nil
			}
		} else if !cmd.Default {
			return NoPermission, nil
		}
	}

	inv := &Invocation{
		Protocol: proto,
		Caller:   caller,
		Source:   source,
		Command:  name,
		RawArgs:  rawArgs,
		Args:     args,
	}
	return d.invoke(ctx, cmd, inv)
}

// invoke runs the handler and maps its outcome onto the state machine. A
// panicking handler degrades to Error instead of taking the adapter down.
func (d *Dispatcher) invoke(ctx context.Context, cmd *Command, inv *Invocation) (state State, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("command", cmd.Name).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("command handler panicked")
			inv.Caller.Respond("Error running command.")
			state, err = Error, fmt.Errorf("command %q panicked: %v", cmd.Name, r)
		}
	}()

	runErr := cmd.Handler(ctx, inv)
	if runErr == nil {
		return Success, nil
	}

	var usageErr *UsageError
	var permErr *NoPermissionError
	var rateErr *RateLimitError
	var cmdErr *CommandError

	switch {
	case errors.As(runErr, &usageErr):
		if usageErr.Usage != "" {
			inv.Caller.Respond("Usage: " + usageErr.Usage)
		}
		return InvalidUsage, runErr
	case errors.As(runErr, &permErr):
		inv.Caller.Respond("You don't have permission to do that.")
		return NoPermission, runErr
	case errors.As(runErr, &rateErr):
		inv.Caller.Respond("You're doing that too often, try again later.")
		return RateLimited, runErr
	case errors.As(runErr, &cmdErr):
		inv.Caller.Respond(cmdErr.Message)
		return UserVisibleError, runErr
	default:
		// Internal detail stays server-side; the caller gets a generic
		// message so nothing leaks.
		logging.Error().Str("command", cmd.Name).Err(runErr).Msg("command handler failed")
		inv.Caller.Respond("Error running command.")
		return Error, runErr
	}
}

// splitWord splits s on its first whitespace run into the command word and
// the remaining argument text.
func splitWord(s string) (word, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i], strings.TrimLeft(s[i:], " \t")
	}
	return s, ""
}
