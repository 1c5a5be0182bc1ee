package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/mrlokans/locallibrary/internal/metadata"
	"go.uber.org/zap"
)

// EnrichBookTask fills in a single book's missing summary and genres.
type EnrichBookTask struct {
	BookID uint `json:"book_id"`
}

func (t EnrichBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "enrich_book",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention:   retention(),
	}
}

// EnrichBookProcessor returns the queue processor for EnrichBookTask.
func EnrichBookProcessor(enricher *metadata.Enricher, logger *zap.Logger) backlite.QueueProcessor[EnrichBookTask] {
	return func(ctx context.Context, task EnrichBookTask) error {
		if enricher == nil {
			return fmt.Errorf("enricher not configured")
		}

		result, err := enricher.EnrichBook(ctx, task.BookID)
		if err != nil {
			return fmt.Errorf("enrich book %d: %w", task.BookID, err)
		}

		logger.Info("book enriched",
			zap.Uint("book_id", task.BookID),
			zap.String("title", result.Book.Title),
			zap.Strings("fields", result.FieldsUpdated),
			zap.String("method", result.SearchMethod),
		)
		return nil
	}
}

func NewEnrichBookQueue(enricher *metadata.Enricher, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(EnrichBookProcessor(enricher, logger))
}
