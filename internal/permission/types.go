package permission

// ProtocolGrants holds permissions scoped to one protocol, optionally
// narrowed further to individual sources (channels) on that protocol.
type ProtocolGrants struct {
	Permissions []string            `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	Sources     map[string][]string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// User is a persisted permission entry for one account. Usernames are
// case-insensitively unique; the store lowercases keys on every access.
type User struct {
	Group       string                     `json:"group" yaml:"group"`
	Permissions []string                   `json:"permissions" yaml:"permissions"`
	Options     map[string]any             `json:"options,omitempty" yaml:"options,omitempty"`
	Protocols   map[string]*ProtocolGrants `json:"protocols,omitempty" yaml:"protocols,omitempty"`
}

// Group is a named bundle of permissions. Inherit points at a single parent
// group, or is empty for none. The resolver must tolerate inheritance
// cycles even though well-formed configuration is acyclic.
type Group struct {
	Permissions []string                   `json:"permissions" yaml:"permissions"`
	Options     map[string]any             `json:"options,omitempty" yaml:"options,omitempty"`
	Inherit     string                     `json:"inherit,omitempty" yaml:"inherit,omitempty"`
	Protocols   map[string]*ProtocolGrants `json:"protocols,omitempty" yaml:"protocols,omitempty"`
}

// DefaultGroup is the group every user belongs to unless reassigned. It is
// created automatically when a store starts with no groups at all.
const DefaultGroup = "default"

// defaultGroupPermissions is the base permission set granted to the default
// group on bootstrap.
var defaultGroupPermissions = []string{
	"auth.login",
	"auth.logout",
	"auth.register",
	"auth.passwd",
	"factoids.get.*",
	"help",
	"info",
}
