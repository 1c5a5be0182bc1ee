package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/mrlokans/locallibrary/internal/clock"
	"github.com/mrlokans/locallibrary/internal/entities"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// OverdueLister lists copies on loan whose due date lies before today.
type OverdueLister interface {
	ListOverdue(ctx context.Context, today time.Time) ([]entities.BookInstance, error)
}

// ReportRecorder persists the outcome of a report run.
type ReportRecorder interface {
	LogReport(action, description string, details map[string]any, err error)
}

// ReportOverdueTask logs every overdue loan and records a summary in the
// audit trail.
type ReportOverdueTask struct{}

func (t ReportOverdueTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "report_overdue",
		MaxAttempts: 2,
		Backoff:     5 * time.Minute,
		Timeout:     time.Minute,
		Retention:   retention(),
	}
}

func ReportOverdueProcessor(loans OverdueLister, recorder ReportRecorder, clk clock.Clocker, logger *zap.Logger) backlite.QueueProcessor[ReportOverdueTask] {
	return func(ctx context.Context, _ ReportOverdueTask) error {
		today := clock.Today(clk)
		overdue, err := loans.ListOverdue(ctx, today)
		if err != nil {
			if recorder != nil {
				recorder.LogReport("overdue", "overdue report failed", nil, err)
			}
			return fmt.Errorf("list overdue loans: %w", err)
		}

		for _, bi := range overdue {
			logger.Info("loan overdue",
				zap.String("instance_id", bi.ID),
				zap.String("title", bi.Book.Title),
				zap.String("due_back", clock.FormatDate(bi.DueBack)),
				zap.Uintp("borrower_id", bi.BorrowerID),
			)
		}

		if recorder != nil {
			ids := lo.Map(overdue, func(bi entities.BookInstance, _ int) string { return bi.ID })
			recorder.LogReport("overdue",
				fmt.Sprintf("%d overdue loans on %s", len(overdue), clock.FormatDate(&today)),
				map[string]any{"count": len(overdue), "instances": ids},
				nil,
			)
		}
		logger.Info("overdue report complete", zap.Int("overdue", len(overdue)))
		return nil
	}
}

func NewReportOverdueQueue(loans OverdueLister, recorder ReportRecorder, clk clock.Clocker, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(ReportOverdueProcessor(loans, recorder, clk, logger))
}
