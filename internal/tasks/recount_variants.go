package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mikestefanello/backlite"
)

// VariantPointsRecounter provides the ability to recompute a variant's
// total point count from its placed exercises.
type VariantPointsRecounter interface {
	RecountTotalPoints(variantID uuid.UUID) (int, error)
}

// RecountVariantPointsTask recomputes total_points for one variant after
// its placements changed.
type RecountVariantPointsTask struct {
	VariantID uuid.UUID `json:"variant_id"`
}

// Config returns the queue configuration for recount tasks.
func (t RecountVariantPointsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "recount_variant_points",
		MaxAttempts: 3,
		Backoff:     time.Minute,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RecountVariantPointsProcessor creates a processor function for RecountVariantPointsTask.
func RecountVariantPointsProcessor(recounter VariantPointsRecounter) backlite.QueueProcessor[RecountVariantPointsTask] {
	return func(ctx context.Context, task RecountVariantPointsTask) error {
		if recounter == nil {
			return fmt.Errorf("variant points recounter not configured")
		}
		if task.VariantID == uuid.Nil {
			return fmt.Errorf("variant id is required")
		}

		total, err := recounter.RecountTotalPoints(task.VariantID)
		if err != nil {
			return fmt.Errorf("recount variant points: %w", err)
		}

		log.Printf("[TASK] Recounted variant %s: %d points", task.VariantID, total)
		return nil
	}
}

// NewRecountVariantPointsQueue creates a backlite queue for recount tasks.
func NewRecountVariantPointsQueue(recounter VariantPointsRecounter) backlite.Queue {
	return backlite.NewQueue(RecountVariantPointsProcessor(recounter))
}
