package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/mrlokans/locallibrary/internal/metadata"
	"go.uber.org/zap"
)

// EnrichAllBooksTask enriches every book that has no summary yet.
type EnrichAllBooksTask struct{}

func (t EnrichAllBooksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "enrich_all_books",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     60 * time.Minute,
		Retention:   retention(),
	}
}

func EnrichAllBooksProcessor(enricher *metadata.Enricher, logger *zap.Logger) backlite.QueueProcessor[EnrichAllBooksTask] {
	return func(ctx context.Context, _ EnrichAllBooksTask) error {
		if enricher == nil {
			return fmt.Errorf("enricher not configured")
		}

		result, err := enricher.EnrichAllMissing(ctx)
		if err != nil {
			return fmt.Errorf("enrich all books: %w", err)
		}

		logger.Info("bulk enrichment complete",
			zap.Int("total", result.TotalBooks),
			zap.Int("enriched", result.Enriched),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed),
		)
		for _, msg := range result.Errors {
			logger.Warn("enrichment failed", zap.String("error", msg))
		}
		return nil
	}
}

func NewEnrichAllBooksQueue(enricher *metadata.Enricher, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(EnrichAllBooksProcessor(enricher, logger))
}
