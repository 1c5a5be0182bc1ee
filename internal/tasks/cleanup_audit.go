package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/mrlokans/locallibrary/internal/clock"
	"go.uber.org/zap"
)

const DefaultAuditRetentionDays = 30

// AuditEventCleaner deletes audit events recorded before now minus retention.
type AuditEventCleaner interface {
	DeleteOldEvents(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}

// CleanupAuditEventsTask removes audit events older than RetentionDays.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_audit_events",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention:   retention(),
	}
}

func CleanupAuditEventsProcessor(cleaner AuditEventCleaner, clk clock.Clocker, logger *zap.Logger) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return fmt.Errorf("audit event cleaner not configured")
		}

		days := task.RetentionDays
		if days <= 0 {
			days = DefaultAuditRetentionDays
		}

		deleted, err := cleaner.DeleteOldEvents(ctx, clk.Now(), time.Duration(days)*24*time.Hour)
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}

		logger.Info("audit events cleaned up", zap.Int64("deleted", deleted), zap.Int("retention_days", days))
		return nil
	}
}

func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner, clk clock.Clocker, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner, clk, logger))
}
