package tasks

import (
	"context"
	"fmt"
)

// newRecipientStatsTask logs the recipient count and the running broadcasts.
func newRecipientStatsTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "recipient_stats")

	return func(ctx context.Context) error {
		total, err := deps.Store.CountRecipients(ctx)
		if err != nil {
			return fmt.Errorf("failed to count recipients: %w", err)
		}

		attrs := []any{"recipients", total}
		if deps.Broadcasts != nil {
			running := deps.Broadcasts.Running()
			attrs = append(attrs, "running_broadcasts", len(running))
			for _, job := range running {
				log.DebugContext(ctx, "Broadcast in progress", "job_id", job.ID, "admin_id", job.AdminID, "started_at", job.StartedAt)
			}
		}
		log.InfoContext(ctx, "Recipient statistics", attrs...)
		return nil
	}
}
