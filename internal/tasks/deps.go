// Package tasks implements scheduled background tasks: database
// maintenance and idle session sweeping.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgmulei/obi-slv2/internal/database"
)

// IdlePruner removes sessions unused for longer than maxIdle and
// returns the number removed. Only the in-process session backend
// implements this; Redis sessions expire via TTL.
type IdlePruner interface {
	PruneIdle(ctx context.Context, maxIdle time.Duration) int
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger     *slog.Logger
	Store      database.Store
	Sessions   IdlePruner // nil when the session backend sweeps itself
	SessionTTL time.Duration
}
