package permission

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ultrosbot/ultros/datastore"
	"github.com/ultrosbot/ultros/internal/logging"
)

const (
	usersKey  = "users"
	groupsKey = "groups"
)

// Store persists users and groups through a file-backed datastore. Every
// mutation is a read-modify-write wrapped in the store's exclusive
// transaction scope, so concurrent mutators never interleave on the same
// record. Mutations report success as a bool rather than an error; failures
// are logged.
type Store struct {
	ds *datastore.DataStore
}

// NewStore opens the data file at path and bootstraps the default group if
// no groups are configured yet. Setup errors are returned rather than
// swallowed: there is no request to attach them to.
func NewStore(path string) (*Store, error) {
	ds, err := datastore.New(path)
	if err != nil {
		return nil, fmt.Errorf("open permission store: %w", err)
	}
	return newStore(ds)
}

// NewStoreWithDatastore wraps an already-open datastore. Used by tests and
// callers sharing one data file between components.
func NewStoreWithDatastore(ds *datastore.DataStore) (*Store, error) {
	return newStore(ds)
}

func newStore(ds *datastore.DataStore) (*Store, error) {
	s := &Store{ds: ds}
	err := ds.Transaction(func() error {
		if len(s.groups()) == 0 {
			s.ds.Set(groupsKey, map[string]*Group{
				DefaultGroup: {Permissions: append([]string(nil), defaultGroupPermissions...)},
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap default group: %w", err)
	}
	return s, nil
}

// Close flushes and closes the underlying datastore.
func (s *Store) Close() error {
	return s.ds.Close()
}

// users decodes the user table. Missing or malformed data yields an empty
// table; the datastore holds plain maps, so records round-trip through JSON
// the same way for YAML and JSON files.
func (s *Store) users() map[string]*User {
	return decodeTable[User](s.ds, usersKey)
}

func (s *Store) groups() map[string]*Group {
	return decodeTable[Group](s.ds, groupsKey)
}

func decodeTable[T any](ds *datastore.DataStore, key string) map[string]*T {
	out := make(map[string]*T)
	raw, ok := ds.Get(key)
	if !ok {
		return out
	}
	blob, err := json.Marshal(raw)
	if err != nil {
		logging.Error().Err(err).Str("table", key).Msg("permission table is not encodable")
		return out
	}
	if err := json.Unmarshal(blob, &out); err != nil {
		logging.Error().Err(err).Str("table", key).Msg("permission table is malformed")
		return map[string]*T{}
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// mutateUsers runs fn against the decoded user table inside the exclusive
// store scope and persists the table when fn reports success.
func (s *Store) mutateUsers(fn func(users map[string]*User) bool) bool {
	ok := false
	err := s.ds.Transaction(func() error {
		users := s.users()
		ok = fn(users)
		if ok {
			s.ds.Set(usersKey, users)
		}
		return nil
	})
	if err != nil {
		logging.Error().Err(err).Msg("user mutation failed to persist")
		return false
	}
	return ok
}

func (s *Store) mutateGroups(fn func(groups map[string]*Group) bool) bool {
	ok := false
	err := s.ds.Transaction(func() error {
		groups := s.groups()
		ok = fn(groups)
		if ok {
			s.ds.Set(groupsKey, groups)
		}
		return nil
	})
	if err != nil {
		logging.Error().Err(err).Msg("group mutation failed to persist")
		return false
	}
	return ok
}

// User returns the record for name, if any.
func (s *Store) User(name string) (*User, bool) {
	u, ok := s.users()[normalize(name)]
	return u, ok
}

// Group returns the record for name, if any.
func (s *Store) Group(name string) (*Group, bool) {
	g, ok := s.groups()[normalize(name)]
	return g, ok
}

// Users returns all usernames.
func (s *Store) Users() []string {
	users := s.users()
	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	return names
}

// CreateUser adds a new user assigned to the default group. Returns false
// if the name is already taken.
func (s *Store) CreateUser(name string) bool {
	name = normalize(name)
	if name == "" {
		return false
	}
	return s.mutateUsers(func(users map[string]*User) bool {
		if _, exists := users[name]; exists {
			return false
		}
		users[name] = &User{Group: DefaultGroup}
		return true
	})
}

// RemoveUser deletes a user. Returns false if no such user exists.
func (s *Store) RemoveUser(name string) bool {
	name = normalize(name)
	return s.mutateUsers(func(users map[string]*User) bool {
		if _, exists := users[name]; !exists {
			return false
		}
		delete(users, name)
		return true
	})
}

// AddUserPermission grants a permission directly to a user. Returns false
// if the user does not exist or already holds the permission.
func (s *Store) AddUserPermission(name, perm string) bool {
	name, perm = normalize(name), strings.ToLower(perm)
	return s.mutateUsers(func(users map[string]*User) bool {
		u, exists := users[name]
		if !exists || contains(u.Permissions, perm) {
			return false
		}
		u.Permissions = append(u.Permissions, perm)
		return true
	})
}

// RemoveUserPermission revokes a directly-granted permission.
func (s *Store) RemoveUserPermission(name, perm string) bool {
	name, perm = normalize(name), strings.ToLower(perm)
	return s.mutateUsers(func(users map[string]*User) bool {
		u, exists := users[name]
		if !exists || !contains(u.Permissions, perm) {
			return false
		}
		u.Permissions = remove(u.Permissions, perm)
		return true
	})
}

// SetUserGroup reassigns a user to a group. The group need not exist yet;
// resolution falls back to nothing for a dangling group name.
func (s *Store) SetUserGroup(name, group string) bool {
	name, group = normalize(name), normalize(group)
	return s.mutateUsers(func(users map[string]*User) bool {
		u, exists := users[name]
		if !exists {
			return false
		}
		u.Group = group
		return true
	})
}

// SetUserOption sets an arbitrary option on a user, e.g. superadmin.
func (s *Store) SetUserOption(name, key string, value any) bool {
	name = normalize(name)
	return s.mutateUsers(func(users map[string]*User) bool {
		u, exists := users[name]
		if !exists {
			return false
		}
		if u.Options == nil {
			u.Options = make(map[string]any)
		}
		u.Options[key] = value
		return true
	})
}

// CreateGroup adds a new empty group.
func (s *Store) CreateGroup(name string) bool {
	name = normalize(name)
	if name == "" {
		return false
	}
	return s.mutateGroups(func(groups map[string]*Group) bool {
		if _, exists := groups[name]; exists {
			return false
		}
		groups[name] = &Group{}
		return true
	})
}

// RemoveGroup deletes a group. The default group cannot be removed.
func (s *Store) RemoveGroup(name string) bool {
	name = normalize(name)
	if name == DefaultGroup {
		return false
	}
	return s.mutateGroups(func(groups map[string]*Group) bool {
		if _, exists := groups[name]; !exists {
			return false
		}
		delete(groups, name)
		return true
	})
}

// AddGroupPermission grants a permission to a group.
func (s *Store) AddGroupPermission(name, perm string) bool {
	name, perm = normalize(name), strings.ToLower(perm)
	return s.mutateGroups(func(groups map[string]*Group) bool {
		g, exists := groups[name]
		if !exists || contains(g.Permissions, perm) {
			return false
		}
		g.Permissions = append(g.Permissions, perm)
		return true
	})
}

// RemoveGroupPermission revokes a group permission.
func (s *Store) RemoveGroupPermission(name, perm string) bool {
	name, perm = normalize(name), strings.ToLower(perm)
	return s.mutateGroups(func(groups map[string]*Group) bool {
		g, exists := groups[name]
		if !exists || !contains(g.Permissions, perm) {
			return false
		}
		g.Permissions = remove(g.Permissions, perm)
		return true
	})
}

// SetGroupInheritance points a group at a parent group; empty clears the
// link. Returns false if the group does not exist.
func (s *Store) SetGroupInheritance(name, inherit string) bool {
	name, inherit = normalize(name), normalize(inherit)
	return s.mutateGroups(func(groups map[string]*Group) bool {
		g, exists := groups[name]
		if !exists {
			return false
		}
		g.Inherit = inherit
		return true
	})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func remove(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if !strings.EqualFold(v, s) {
			out = append(out, v)
		}
	}
	return out
}
