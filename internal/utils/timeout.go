package utils

import (
	"context"
	"time"
)

// DefaultDBTimeout bounds every repository query. Gateway calls carry their
// own, much longer budgets; a database statement that takes this long is a
// fault, not a slow reconciliation.
const DefaultDBTimeout = 5 * time.Second

// WithDBTimeout derives the per-query context each repository method uses.
func WithDBTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultDBTimeout)
}
