package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrosbot/ultros/internal/permission"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	store, err := permission.NewStore(filepath.Join(t.TempDir(), "perms.yml"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewSessionManager(store)
}

func TestRegisterAndLogin(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Register("alice", "hunter2"))

	_, ok := mgr.Authorized("irc", "alice!host")
	assert.False(t, ok, "registering must not log the caller in")

	require.NoError(t, mgr.Login("irc", "alice!host", "alice", "hunter2"))
	name, ok := mgr.Authorized("irc", "alice!host")
	assert.True(t, ok)
	assert.Equal(t, "alice", name)
}

func TestRegisterDuplicate(t *testing.T) {
	mgr := newTestManager(t)

	require.NoError(t, mgr.Register("alice", "hunter2"))
	assert.Error(t, mgr.Register("alice", "other"))
	assert.Error(t, mgr.Register("ALICE", "other"), "account names are case-insensitive")
}

func TestRegisterEmptyPassword(t *testing.T) {
	mgr := newTestManager(t)
	assert.Error(t, mgr.Register("alice", ""))
}

func TestLoginFailures(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Register("alice", "hunter2"))

	assert.Error(t, mgr.Login("irc", "x", "alice", "wrong"))
	assert.Error(t, mgr.Login("irc", "x", "nobody", "hunter2"))

	_, ok := mgr.Authorized("irc", "x")
	assert.False(t, ok)
}

func TestSessionsScopedByProtocolAndCaller(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Register("alice", "hunter2"))
	require.NoError(t, mgr.Login("irc", "alice!host", "alice", "hunter2"))

	_, ok := mgr.Authorized("mumble", "alice!host")
	assert.False(t, ok)
	_, ok = mgr.Authorized("irc", "alice!other")
	assert.False(t, ok)
}

func TestLogout(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Register("alice", "hunter2"))
	require.NoError(t, mgr.Login("irc", "alice!host", "alice", "hunter2"))

	assert.True(t, mgr.Logout("irc", "alice!host"))
	_, ok := mgr.Authorized("irc", "alice!host")
	assert.False(t, ok)

	assert.False(t, mgr.Logout("irc", "alice!host"), "second logout finds no session")
}

func TestInvalidate(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Register("alice", "hunter2"))
	require.NoError(t, mgr.Login("irc", "alice!host", "alice", "hunter2"))

	mgr.Invalidate("irc", "alice!host")
	mgr.Invalidate("irc", "alice!host") // idempotent

	_, ok := mgr.Authorized("irc", "alice!host")
	assert.False(t, ok)
}

func TestSetPassword(t *testing.T) {
	mgr := newTestManager(t)
	require.NoError(t, mgr.Register("alice", "hunter2"))

	assert.Error(t, mgr.SetPassword("alice", "wrong", "newpass"))
	assert.Error(t, mgr.SetPassword("alice", "hunter2", ""))
	assert.Error(t, mgr.SetPassword("nobody", "hunter2", "newpass"))

	require.NoError(t, mgr.SetPassword("alice", "hunter2", "newpass"))
	assert.Error(t, mgr.Login("irc", "x", "alice", "hunter2"))
	assert.NoError(t, mgr.Login("irc", "x", "alice", "newpass"))
}
