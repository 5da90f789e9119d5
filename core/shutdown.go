package core

import (
	"context"
)

// ShutdownFunc is a cleanup handler run during graceful shutdown.
// The context may carry a deadline; implementations should respect it
// and be safe to call more than once.
type ShutdownFunc func(ctx context.Context) error
