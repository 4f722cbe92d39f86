// Package auth manages authentication sessions and the account commands
// (login, logout, register, passwd). Sessions are transient: they live in
// memory, keyed by protocol and caller identity, and are cleared on logout
// or when the protocol adapter reports an identity change such as an IRC
// nick change.
package auth

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/ultrosbot/ultros/internal/logging"
	"github.com/ultrosbot/ultros/internal/permission"
)

// passwordOption is the user option key holding the bcrypt hash.
const passwordOption = "password"

// SessionManager tracks which connected callers are logged in as which
// account.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]string // protocol "\x00" callerID -> username
	store    *permission.Store
}

// NewSessionManager creates a manager over the permission store.
func NewSessionManager(store *permission.Store) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]string),
		store:    store,
	}
}

func sessionKey(protocol, callerID string) string {
	return protocol + "\x00" + callerID
}

// Authorized returns the bound username for a connected caller, if any.
func (m *SessionManager) Authorized(protocol, callerID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.sessions[sessionKey(protocol, callerID)]
	return name, ok
}

// Login verifies the password against the stored hash and binds the caller
// to the account.
func (m *SessionManager) Login(protocol, callerID, username, password string) error {
	user, ok := m.store.User(username)
	if !ok {
		return fmt.Errorf("no such account")
	}
	hash, _ := user.Options[passwordOption].(string)
	if hash == "" {
		return fmt.Errorf("account has no password set")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return fmt.Errorf("incorrect password")
	}

	m.mu.Lock()
	m.sessions[sessionKey(protocol, callerID)] = username
	m.mu.Unlock()

	logging.Info().Str("protocol", protocol).Str("account", username).Msg("login")
	return nil
}

// Logout clears the caller's session. Reports whether one existed.
func (m *SessionManager) Logout(protocol, callerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey(protocol, callerID)
	_, ok := m.sessions[key]
	delete(m.sessions, key)
	return ok
}

// Invalidate drops a session without the caller asking, e.g. on a nick
// change. Idempotent.
func (m *SessionManager) Invalidate(protocol, callerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(protocol, callerID))
}

// Register creates a new account with the given password.
func (m *SessionManager) Register(username, password string) error {
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}
	if !m.store.CreateUser(username) {
		return fmt.Errorf("account already exists")
	}
	return m.setPassword(username, password)
}

// SetPassword replaces an account's password after verifying the old one.
func (m *SessionManager) SetPassword(username, oldPassword, newPassword string) error {
	user, ok := m.store.User(username)
	if !ok {
		return fmt.Errorf("no such account")
	}
	hash, _ := user.Options[passwordOption].(string)
	if hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)) != nil {
		return fmt.Errorf("incorrect password")
	}
	if newPassword == "" {
		return fmt.Errorf("password must not be empty")
	}
	return m.setPassword(username, newPassword)
}

func (m *SessionManager) setPassword(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if !m.store.SetUserOption(username, passwordOption, string(hash)) {
		return fmt.Errorf("failed to store password")
	}
	return nil
}
