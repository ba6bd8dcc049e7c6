package tasks

import (
	"context"
)

// newSessionSweepTask creates the scheduled task that drops sessions
// idle longer than the configured TTL.
func newSessionSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_sweep")

	return func(ctx context.Context) error {
		pruned := deps.Sessions.PruneIdle(ctx, deps.SessionTTL)
		log.DebugContext(ctx, "Session sweep completed", "pruned", pruned)
		return nil
	}
}
