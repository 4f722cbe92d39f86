// Package admin exposes permission management as chat commands: thin
// wrappers over the store's mutation operations.
package admin

import (
	"context"
	"strings"

	"github.com/ultrosbot/ultros/internal/command"
	"github.com/ultrosbot/ultros/internal/permission"
)

const usage = "perms user add|del <user> <permission> | perms user group <user> <group> | " +
	"perms group create|remove <group> | perms group add|del <group> <permission> | " +
	"perms group inherit <group> [parent]"

type commands struct {
	store *permission.Store
}

// RegisterCommands adds the perms command to the registry.
func RegisterCommands(reg *command.Registry, store *permission.Store, owner any, mws ...command.Middleware) {
	c := &commands{store: store}
	reg.Register(&command.Command{
		Name:       "perms",
		Aliases:    []string{"permissions"},
		Owner:      owner,
		Permission: "permissions.admin",
		Handler:    command.Apply(c.perms, mws...),
	})
}

func (c *commands) perms(_ context.Context, inv *command.Invocation) error {
	args := inv.Args
	if args == nil {
		// Quoting was malformed; permission names have no spaces anyway.
		args = strings.Fields(inv.RawArgs)
	}
	if len(args) < 3 {
		return &command.UsageError{Usage: usage}
	}

	kind, action := strings.ToLower(args[0]), strings.ToLower(args[1])
	rest := args[2:]

	var ok bool
	switch {
	case kind == "user" && action == "add" && len(rest) == 2:
		ok = c.store.AddUserPermission(rest[0], rest[1])
	case kind == "user" && action == "del" && len(rest) == 2:
		ok = c.store.RemoveUserPermission(rest[0], rest[1])
	case kind == "user" && action == "group" && len(rest) == 2:
		ok = c.store.SetUserGroup(rest[0], rest[1])
	case kind == "group" && action == "create" && len(rest) == 1:
		ok = c.store.CreateGroup(rest[0])
	case kind == "group" && action == "remove" && len(rest) == 1:
		ok = c.store.RemoveGroup(rest[0])
	case kind == "group" && action == "add" && len(rest) == 2:
		ok = c.store.AddGroupPermission(rest[0], rest[1])
	case kind == "group" && action == "del" && len(rest) == 2:
		ok = c.store.RemoveGroupPermission(rest[0], rest[1])
	case kind == "group" && action == "inherit" && len(rest) >= 1:
		parent := ""
		if len(rest) > 1 {
			parent = rest[1]
		}
		ok = c.store.SetGroupInheritance(rest[0], parent)
	default:
		return &command.UsageError{Usage: usage}
	}

	if !ok {
		return command.Errorf("No change made; check that the target exists.")
	}
	inv.Caller.Respond("Done.")
	return nil
}
