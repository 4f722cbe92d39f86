package command

import (
	"context"
	"time"

	"github.com/ultrosbot/ultros/internal/logging"
)

// Middleware wraps a handler (logging, rate limiting, history). The wrapped
// value remains a Handler.
type Middleware func(Handler) Handler

// Apply wraps h with each middleware in turn; the last in the list becomes
// the outermost.
func Apply(h Handler, mws ...Middleware) Handler {
	for _, mw := range mws {
		h = mw(h)
	}
	return h
}

// WithLogging logs every invocation with its duration and outcome.
func WithLogging() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) error {
			start := time.Now()
			err := next(ctx, inv)
			logging.Debug().
				Str("command", inv.Command).
				Str("caller", inv.Caller.ID()).
				Str("source", inv.Source.Name()).
				Str("protocol", inv.Protocol.Name()).
				Dur("took", time.Since(start)).
				Err(err).
				Msg("command executed")
			return err
		}
	}
}

// WithHistory records executed commands through rec. The command runs
// first; a recording failure is logged, never surfaced to the caller.
func WithHistory(rec *HistoryRecorder) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) error {
			err := next(ctx, inv)
			if e := rec.Record(inv); e != nil {
				logging.Warn().Str("command", inv.Command).Err(e).Msg("failed to record command history")
			}
			return err
		}
	}
}
