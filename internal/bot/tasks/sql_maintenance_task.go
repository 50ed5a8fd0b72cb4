package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask vacuums the database. It does nothing while a
// broadcast is running, since VACUUM would stall the job's store access.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		if deps.Broadcasts != nil {
			if running := deps.Broadcasts.Running(); len(running) > 0 {
				log.InfoContext(ctx, "Skipping SQL maintenance while broadcasts are running", "running", len(running))
				return nil
			}
		}

		startTime := time.Now()
		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance task failed", "error", err, "duration", time.Since(startTime))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "SQL maintenance task completed", "duration", time.Since(startTime))
		return nil
	}
}
