package command

// State is the terminal outcome of processing one input line.
type State int

const (
	// NotACommand means the line did not carry the control prefix (or was a
	// bare prefix) and was left to ordinary message handling.
	NotACommand State = iota
	// RateLimited means a rate-limiting wrapper rejected the run.
	RateLimited
	// UnknownOverridden means a pre_command or unknown_command subscriber
	// cancelled the event and claimed the line.
	UnknownOverridden
	// Unknown means the word resolved to no registered command or alias.
	Unknown
	// Success means the handler ran and returned nil.
	Success
	// NoPermission means the permission gate or the handler denied the run.
	NoPermission
	// Error means the handler failed or panicked with an internal error.
	Error
	// UserVisibleError means the handler failed with a message meant for the
	// caller.
	UserVisibleError
	// InvalidUsage means the handler rejected the arguments.
	InvalidUsage
)

var stateNames = map[State]string{
	NotACommand:       "not_a_command",
	RateLimited:       "rate_limited",
	UnknownOverridden: "unknown_overridden",
	Unknown:           "unknown",
	Success:           "success",
	NoPermission:      "no_permission",
	Error:             "error",
	UserVisibleError:  "user_visible_error",
	InvalidUsage:      "invalid_usage",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "invalid"
}
