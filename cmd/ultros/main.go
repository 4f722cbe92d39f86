package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ultrosbot/ultros/datastore"
	"github.com/ultrosbot/ultros/internal/admin"
	"github.com/ultrosbot/ultros/internal/auth"
	"github.com/ultrosbot/ultros/internal/command"
	"github.com/ultrosbot/ultros/internal/config"
	"github.com/ultrosbot/ultros/internal/event"
	"github.com/ultrosbot/ultros/internal/logging"
	"github.com/ultrosbot/ultros/internal/permission"
	ircadapter "github.com/ultrosbot/ultros/internal/protocol/irc"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		File:   cfg.LogFile,
	})
	logging.Info().Msg("starting Ultros")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ds, err := datastore.New(cfg.StoragePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open datastore")
	}
	defer ds.Close()

	store, err := permission.NewStoreWithDatastore(ds)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize permission store")
	}

	engine := permission.NewEngine(store, cfg.Superadmin)
	bus := event.NewBus()
	defer bus.Close()

	registry := command.NewRegistry()
	dispatcher := command.NewDispatcher(registry, bus, engine)

	sessions := auth.NewSessionManager(store)
	limiter := command.NewRateLimiter(cfg.RateLimit, cfg.RateLimitBurst)
	history := command.NewHistoryRecorder(ds)
	mws := []command.Middleware{
		command.WithHistory(history),
		command.WithLogging(),
		limiter.Wrap(),
	}

	type corePlugin struct{ name string }
	owner := &corePlugin{name: "core"}
	auth.RegisterCommands(registry, sessions, owner, mws...)
	admin.RegisterCommands(registry, store, owner, mws...)

	if !cfg.IRC.Enabled {
		logging.Fatal().Msg("no protocol enabled; set ULTROS_IRC_ENABLED=true")
	}

	adapter := ircadapter.New(cfg.IRC, dispatcher, bus, sessions, cfg.CommandPrefix)

	errCh := make(chan error, 1)
	go func() {
		errCh <- adapter.Run(ctx)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logging.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			logging.Error().Err(err).Msg("irc adapter exited")
		}
		cancel()
	}

	logging.Info().Msg("Ultros exited cleanly")
}
