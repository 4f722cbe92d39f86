// Package irc bridges an IRC connection to the dispatch core. Wire-level
// parsing and connection management belong to the client library; this
// adapter only translates PRIVMSGs into dispatcher input and implements the
// Protocol/Caller/Source contracts.
package irc

import (
	"context"
	"strings"
	"sync"

	"github.com/Travis-Britz/irc"

	"github.com/ultrosbot/ultros/internal/auth"
	"github.com/ultrosbot/ultros/internal/bot"
	"github.com/ultrosbot/ultros/internal/command"
	"github.com/ultrosbot/ultros/internal/config"
	"github.com/ultrosbot/ultros/internal/event"
	"github.com/ultrosbot/ultros/internal/logging"
)

// Adapter is one IRC connection feeding the dispatcher.
type Adapter struct {
	cfg        config.IRCConfig
	dispatcher *command.Dispatcher
	bus        *event.Bus
	sessions   *auth.SessionManager

	// defaultPrefix applies when the IRC config sets none.
	defaultPrefix string

	mu   sync.RWMutex
	nick string
}

// New wires an adapter. Run must be called to connect.
func New(cfg config.IRCConfig, dispatcher *command.Dispatcher, bus *event.Bus, sessions *auth.SessionManager, defaultPrefix string) *Adapter {
	return &Adapter{
		cfg:           cfg,
		dispatcher:    dispatcher,
		bus:           bus,
		sessions:      sessions,
		defaultPrefix: defaultPrefix,
		nick:          cfg.Nick,
	}
}

// Name implements bot.Protocol.
func (a *Adapter) Name() string { return "irc" }

// CommandPrefix implements bot.Protocol.
func (a *Adapter) CommandPrefix() string {
	if a.cfg.Prefix != "" {
		return a.cfg.Prefix
	}
	return a.defaultPrefix
}

// DisplayName implements bot.Protocol.
func (a *Adapter) DisplayName() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nick
}

// Run connects and processes messages until ctx is cancelled or the
// connection drops.
func (a *Adapter) Run(ctx context.Context) error {
	client := &irc.Client{
		Addr:     a.cfg.Address,
		Nickname: a.cfg.Nick,
	}
	return client.ConnectAndRun(ctx, irc.HandlerFunc(a.speakIRC))
}

// rawLine lets us send lines the constructor set doesn't cover, per the
// client library's documented escape hatch.
type rawLine string

func (l rawLine) MarshalText() ([]byte, error) { return []byte(l), nil }

func (a *Adapter) speakIRC(w irc.MessageWriter, m *irc.Message) {
	switch m.Command {
	case irc.Command("001"):
		// Registered with the server; join the configured channels.
		for _, ch := range a.cfg.Channels {
			w.WriteMessage(rawLine("JOIN " + ch))
		}
	case irc.CmdNick:
		a.handleNick(m)
	case irc.CmdPrivmsg:
		a.handlePrivmsg(w, m)
	}
}

// handleNick invalidates the session bound to the old nick. Auth does not
// follow identity changes.
func (a *Adapter) handleNick(m *irc.Message) {
	oldNick := string(m.Source.Nick)
	a.sessions.Invalidate(a.Name(), strings.ToLower(oldNick))

	if len(m.Params) == 0 {
		return
	}
	newNick := string(m.Params[0])

	a.mu.Lock()
	if strings.EqualFold(a.nick, oldNick) {
		a.nick = newNick
	}
	a.mu.Unlock()
}

func (a *Adapter) handlePrivmsg(w irc.MessageWriter, m *irc.Message) {
	if len(m.Params) == 0 {
		return
	}
	text := string(m.Params[len(m.Params)-1])
	nick := string(m.Source.Nick)

	src := source{name: nick, private: true}
	replyTarget := nick
	if channel, err := m.Chan(); err == nil && strings.HasPrefix(channel, "#") {
		src = source{name: string(channel), private: false}
		replyTarget = string(channel)
	}

	clr := &caller{
		nick:     nick,
		target:   replyTarget,
		writer:   w,
		adapter:  a,
		sessions: a.sessions,
	}

	a.bus.FireAsync(event.MessageReceived, event.New(clr, &event.MessageData{
		Message:  text,
		Source:   src,
		Protocol: a,
		Target:   replyTarget,
	}))

	state, err := a.dispatcher.ProcessInput(context.Background(), text, clr, src, a)
	if err != nil {
		logging.Error().Str("state", state.String()).Err(err).Msg("command processing failed")
	}
}

// caller implements bot.Caller for one message's sender.
type caller struct {
	nick     string
	target   string
	writer   irc.MessageWriter
	adapter  *Adapter
	sessions *auth.SessionManager
}

func (c *caller) ID() string { return strings.ToLower(c.nick) }

func (c *caller) Authorized() bool {
	_, ok := c.sessions.Authorized(c.adapter.Name(), c.ID())
	return ok
}

func (c *caller) Username() string {
	name, _ := c.sessions.Authorized(c.adapter.Name(), c.ID())
	return name
}

func (c *caller) Respond(message string) {
	c.writer.WriteMessage(irc.Msg(c.target, message))
}

// source implements bot.Source.
type source struct {
	name    string
	private bool
}

func (s source) Name() string  { return s.name }
func (s source) Private() bool { return s.private }

var _ bot.Protocol = (*Adapter)(nil)
var _ bot.Caller = (*caller)(nil)
var _ bot.Source = source{}
