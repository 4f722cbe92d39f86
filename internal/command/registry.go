package command

import (
	"sort"
	"strings"
	"sync"

	"github.com/ultrosbot/ultros/internal/logging"
)

// Registry stores commands by name with alias resolution. One registry
// coordinates all plugins; mutation is serialized so plugin loads and
// unloads may happen concurrently.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]*Command // canonical lowercased name -> command
	aliases  map[string]string   // lowercased alias -> canonical name
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]string),
	}
}

// Register adds a command. Returns false, without touching the registry, if
// the name is already registered. An alias already claimed elsewhere is
// skipped with a warning but does not abort the rest of the registration:
// partial success is intentional.
func (r *Registry) Register(cmd *Command) bool {
	if cmd == nil || cmd.Name == "" || cmd.Handler == nil {
		logging.Warn().Msg("rejecting command registration with missing name or handler")
		return false
	}

	name := strings.ToLower(cmd.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[name]; exists {
		logging.Warn().Str("command", cmd.Name).Msg("command already registered")
		return false
	}
	if canonical, exists := r.aliases[name]; exists {
		logging.Warn().
			Str("command", cmd.Name).
			Str("claimed_by", canonical).
			Msg("command name already claimed as an alias")
		return false
	}

	r.commands[name] = cmd

	for _, alias := range cmd.Aliases {
		alias = strings.ToLower(alias)
		if _, exists := r.commands[alias]; exists {
			logging.Warn().
				Str("alias", alias).
				Str("command", cmd.Name).
				Msg("skipping alias: already a command name")
			continue
		}
		if canonical, exists := r.aliases[alias]; exists {
			logging.Warn().
				Str("alias", alias).
				Str("command", cmd.Name).
				Str("claimed_by", canonical).
				Msg("skipping alias: already claimed")
			continue
		}
		r.aliases[alias] = name
	}

	logging.Debug().Str("command", cmd.Name).Strs("aliases", cmd.Aliases).Msg("command registered")
	return true
}

// UnregisterOwner removes every command whose owner is identical to owner,
// along with every alias pointing at a removed command. No error if the
// owner holds nothing.
func (r *Registry) UnregisterOwner(owner any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make(map[string]bool)
	for name, cmd := range r.commands {
		if cmd.Owner == owner {
			delete(r.commands, name)
			removed[name] = true
		}
	}
	for alias, canonical := range r.aliases {
		if removed[canonical] {
			delete(r.aliases, alias)
		}
	}
}

// Lookup resolves name (or alias) to its command, case-insensitively.
func (r *Registry) Lookup(name string) (*Command, bool) {
	name = strings.ToLower(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Commands returns all registered commands sorted by name.
func (r *Registry) Commands() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		list = append(list, cmd)
	}
	sort.Slice(list, func(i, j int) bool {
		return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
	})
	return list
}
