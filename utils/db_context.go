package utils

import (
	"context"
	"time"
)

const (
	// DefaultQueryTimeout bounds ordinary reads and writes.
	DefaultQueryTimeout = 30 * time.Second
	// FastQueryTimeout bounds single-row lookups such as vendor resolution.
	FastQueryTimeout = 10 * time.Second
	// SlowQueryTimeout bounds bulk sync and export queries.
	SlowQueryTimeout = 60 * time.Second
)

// QueryContext derives a bounded context for a database call.
func QueryContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}
