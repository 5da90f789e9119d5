package core

// Process exit codes.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1

	// ExitCodeConfig means the configuration could not be loaded.
	ExitCodeConfig = 2

	// ExitCodeForced is used when a second signal cuts cleanup short (128+SIGINT).
	ExitCodeForced = 130
)

// ExitCodeName returns a short label for code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeConfig:
		return "configuration error"
	case ExitCodeForced:
		return "forced shutdown"
	default:
		return "unknown"
	}
}

// ExitCodeFor maps a startup error to an exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	if _, ok := IsConfigError(err); ok {
		return ExitCodeConfig
	}
	return ExitCodeError
}
