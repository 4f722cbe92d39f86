package auth

import (
	"context"

	"github.com/ultrosbot/ultros/internal/command"
)

// RegisterCommands adds the account commands to the registry. All carry the
// Default flag so a deployment without a permissions engine still lets
// users log in.
func RegisterCommands(reg *command.Registry, mgr *SessionManager, owner any, mws ...command.Middleware) {
	register := func(cmd *command.Command) {
		cmd.Owner = owner
		cmd.Handler = command.Apply(cmd.Handler, mws...)
		reg.Register(cmd)
	}

	register(&command.Command{
		Name:       "login",
		Permission: "auth.login",
		Default:    true,
		Handler:    mgr.loginHandler,
	})
	register(&command.Command{
		Name:       "logout",
		Permission: "auth.logout",
		Default:    true,
		Handler:    mgr.logoutHandler,
	})
	register(&command.Command{
		Name:       "register",
		Permission: "auth.register",
		Default:    true,
		Handler:    mgr.registerHandler,
	})
	register(&command.Command{
		Name:       "passwd",
		Permission: "auth.passwd",
		Default:    true,
		Handler:    mgr.passwdHandler,
	})
}

func (m *SessionManager) loginHandler(_ context.Context, inv *command.Invocation) error {
	if !inv.Source.Private() {
		return command.Errorf("Log in via private message, not in a channel.")
	}
	if len(inv.Args) != 2 {
		return &command.UsageError{Usage: "login <username> <password>"}
	}
	if err := m.Login(inv.Protocol.Name(), inv.Caller.ID(), inv.Args[0], inv.Args[1]); err != nil {
		return command.Errorf("Login failed: %s", err)
	}
	inv.Caller.Respond("You are now logged in as " + inv.Args[0] + ".")
	return nil
}

func (m *SessionManager) logoutHandler(_ context.Context, inv *command.Invocation) error {
	if !m.Logout(inv.Protocol.Name(), inv.Caller.ID()) {
		return command.Errorf("You are not logged in.")
	}
	inv.Caller.Respond("You have been logged out.")
	return nil
}

func (m *SessionManager) registerHandler(_ context.Context, inv *command.Invocation) error {
	if !inv.Source.Private() {
		return command.Errorf("Register via private message, not in a channel.")
	}
	if len(inv.Args) != 2 {
		return &command.UsageError{Usage: "register <username> <password>"}
	}
	if err := m.Register(inv.Args[0], inv.Args[1]); err != nil {
		return command.Errorf("Registration failed: %s", err)
	}
	inv.Caller.Respond("Account created. You can now log in.")
	return nil
}

func (m *SessionManager) passwdHandler(_ context.Context, inv *command.Invocation) error {
	if !inv.Source.Private() {
		return command.Errorf("Change your password via private message.")
	}
	if !inv.Caller.Authorized() {
		return &command.NoPermissionError{}
	}
	if len(inv.Args) != 2 {
		return &command.UsageError{Usage: "passwd <old password> <new password>"}
	}
	if err := m.SetPassword(inv.Caller.Username(), inv.Args[0], inv.Args[1]); err != nil {
		return command.Errorf("Password change failed: %s", err)
	}
	inv.Caller.Respond("Password changed.")
	return nil
}
