package permission

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ultrosbot/ultros/internal/bot"
	"github.com/ultrosbot/ultros/internal/logging"
)

// Engine resolves whether an actor may exercise a permission string, using
// store data, single-parent group inheritance, and glob comparison.
type Engine struct {
	store *Store

	// superadmin enables the superadmin option short-circuit.
	superadmin bool
}

// NewEngine creates an engine over store. When superadmin is true, a user
// whose options carry superadmin=true passes every check.
func NewEngine(store *Store, superadmin bool) *Engine {
	return &Engine{store: store, superadmin: superadmin}
}

// Check is the top-level entry point used by the dispatcher and plugins.
//
// A nil caller resolves against the default group only. An authorized
// caller resolves through their bound username. A known but unauthenticated
// caller resolves the default group for its side effects on logging, then
// is denied unconditionally: logged-out users never receive a grant from
// this path. That asymmetry with the nil-caller branch is deliberate.
func (e *Engine) Check(permission string, caller bot.Caller, source, protocol string) bool {
	permission = strings.ToLower(permission)

	if caller == nil {
		return e.GroupHasPermission(DefaultGroup, permission, protocol, source)
	}

	if caller.Authorized() {
		return e.UserHasPermission(caller.Username(), permission, protocol, source, true, true)
	}

	granted := e.GroupHasPermission(DefaultGroup, permission, protocol, source)
	logging.Debug().
		Str("caller", caller.ID()).
		Str("permission", permission).
		Bool("default_group_result", granted).
		Msg("unauthenticated caller denied")
	return false
}

// UserHasPermission checks the user's own flat permission list plus their
// protocol- and source-scoped grants. When checkGroup is set and nothing
// matched, resolution continues into the user's assigned group. A user
// missing from the store resolves through the default group.
func (e *Engine) UserHasPermission(username, permission, protocol, source string, checkGroup, checkSuperadmin bool) bool {
	permission = strings.ToLower(permission)

	user, ok := e.store.User(username)
	if !ok {
		if checkGroup {
			return e.GroupHasPermission(DefaultGroup, permission, protocol, source)
		}
		return false
	}

	if checkSuperadmin && e.superadmin && optionBool(user.Options, "superadmin") {
		return true
	}

	granted := collectGrants(user.Permissions, user.Protocols, protocol, source)
	if ComparePermissions(permission, granted, true) {
		return true
	}

	if checkGroup {
		group := user.Group
		if group == "" {
			group = DefaultGroup
		}
		return e.GroupHasPermission(group, permission, protocol, source)
	}
	return false
}

// GroupHasPermission walks the inheritance chain starting at group,
// accumulating the union of each visited ancestor's flat, protocol, and
// source grants, then tests the accumulated set. The walk tracks visited
// group names so an inheritance cycle terminates instead of recursing
// forever.
func (e *Engine) GroupHasPermission(group, permission, protocol, source string) bool {
	permission = strings.ToLower(permission)

	var granted []string
	visited := make(map[string]bool)

	for name := normalize(group); name != "" && !visited[name]; {
		visited[name] = true
		g, ok := e.store.Group(name)
		if !ok {
			break
		}
		granted = append(granted, collectGrants(g.Permissions, g.Protocols, protocol, source)...)
		name = normalize(g.Inherit)
	}

	return ComparePermissions(permission, granted, true)
}

// ComparePermissions reports whether requested matches any granted entry,
// case-insensitively. With wildcard enabled each entry is also interpreted
// as a glob pattern: * matches any run of characters and ? a single one.
// Pure set membership: iteration order never changes the result, so the
// first match wins.
func ComparePermissions(requested string, granted []string, wildcard bool) bool {
	requested = strings.ToLower(requested)
	for _, entry := range granted {
		entry = strings.ToLower(entry)
		if entry == requested {
			return true
		}
		if !wildcard {
			continue
		}
		ok, err := doublestar.Match(entry, requested)
		if err != nil {
			// Malformed pattern in stored data; skip it.
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// collectGrants unions flat permissions with protocol- and source-scoped
// grants for the given protocol and source.
func collectGrants(flat []string, protocols map[string]*ProtocolGrants, protocol, source string) []string {
	granted := append([]string(nil), flat...)
	if protocol == "" || protocols == nil {
		return granted
	}
	pg, ok := protocols[protocol]
	if !ok || pg == nil {
		return granted
	}
	granted = append(granted, pg.Permissions...)
	if source != "" && pg.Sources != nil {
		granted = append(granted, pg.Sources[source]...)
	}
	return granted
}

func optionBool(options map[string]any, key string) bool {
	if options == nil {
		return false
	}
	v, ok := options[key].(bool)
	return ok && v
}
