package permission

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "perms.yml"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreBootstrapsDefaultGroup(t *testing.T) {
	store := newTestStore(t)

	g, ok := store.Group(DefaultGroup)
	require.True(t, ok)
	assert.Contains(t, g.Permissions, "auth.login")
	assert.Contains(t, g.Permissions, "factoids.get.*")
}

func TestStoreUserLifecycle(t *testing.T) {
	store := newTestStore(t)

	require.True(t, store.CreateUser("Alice"))
	assert.False(t, store.CreateUser("alice"), "usernames are case-insensitively unique")

	u, ok := store.User("ALICE")
	require.True(t, ok)
	assert.Equal(t, DefaultGroup, u.Group)

	assert.True(t, store.AddUserPermission("alice", "Factoids.Set"))
	assert.False(t, store.AddUserPermission("alice", "factoids.set"), "already granted")
	assert.False(t, store.AddUserPermission("nobody", "x"), "unknown user")

	u, _ = store.User("alice")
	assert.Equal(t, []string{"factoids.set"}, u.Permissions)

	assert.True(t, store.RemoveUserPermission("alice", "factoids.set"))
	assert.False(t, store.RemoveUserPermission("alice", "factoids.set"))

	assert.True(t, store.SetUserGroup("alice", "admins"))
	u, _ = store.User("alice")
	assert.Equal(t, "admins", u.Group)

	assert.True(t, store.SetUserOption("alice", "superadmin", true))
	u, _ = store.User("alice")
	assert.Equal(t, true, u.Options["superadmin"])

	assert.True(t, store.RemoveUser("alice"))
	assert.False(t, store.RemoveUser("alice"))
	_, ok = store.User("alice")
	assert.False(t, ok)
}

func TestStoreGroupLifecycle(t *testing.T) {
	store := newTestStore(t)

	require.True(t, store.CreateGroup("Admins"))
	assert.False(t, store.CreateGroup("admins"))

	assert.True(t, store.AddGroupPermission("admins", "Bot.Admin"))
	g, ok := store.Group("admins")
	require.True(t, ok)
	assert.Equal(t, []string{"bot.admin"}, g.Permissions)

	assert.True(t, store.SetGroupInheritance("admins", "default"))
	g, _ = store.Group("admins")
	assert.Equal(t, "default", g.Inherit)

	assert.True(t, store.SetGroupInheritance("admins", ""))
	g, _ = store.Group("admins")
	assert.Empty(t, g.Inherit)

	assert.True(t, store.RemoveGroupPermission("admins", "bot.admin"))
	assert.True(t, store.RemoveGroup("admins"))
	assert.False(t, store.RemoveGroup("admins"))
	assert.False(t, store.RemoveGroup(DefaultGroup), "default group is protected")
}

func TestStorePersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perms.yml")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.True(t, store.CreateUser("alice"))
	require.True(t, store.AddUserPermission("alice", "factoids.set"))
	require.True(t, store.CreateGroup("admins"))
	require.True(t, store.SetGroupInheritance("admins", "default"))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	u, ok := reopened.User("alice")
	require.True(t, ok)
	assert.Equal(t, []string{"factoids.set"}, u.Permissions)

	g, ok := reopened.Group("admins")
	require.True(t, ok)
	assert.Equal(t, "default", g.Inherit)

	assert.Len(t, reopened.Users(), 1)
}

func TestStoreJSONBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perms.json")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.True(t, store.CreateUser("bob"))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	_, ok := reopened.User("bob")
	assert.True(t, ok)
}
