package command

import (
	"fmt"
	"time"
)

// UsageError reports malformed arguments. When Usage is set the dispatcher
// shows "Usage: ..." to the caller.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	if e.Usage == "" {
		return "invalid usage"
	}
	return "usage: " + e.Usage
}

// NoPermissionError is a handler-level permission denial, distinct from the
// dispatcher's own pre-check.
type NoPermissionError struct {
	Permission string
}

func (e *NoPermissionError) Error() string {
	if e.Permission == "" {
		return "permission denied"
	}
	return fmt.Sprintf("permission denied: %s", e.Permission)
}

// RateLimitError is returned by a rate-limiting wrapper when a caller runs
// a command too often.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter.Round(time.Millisecond))
	}
	return "rate limited"
}

// CommandError is a generic user-visible failure; Message is shown to the
// caller verbatim.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string { return e.Message }

// Errorf builds a user-visible CommandError.
func Errorf(format string, args ...any) error {
	return &CommandError{Message: fmt.Sprintf(format, args...)}
}
