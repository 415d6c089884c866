package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
)

// InventoryReconcileJobParams configure the inventory reconcile job.
type InventoryReconcileJobParams struct {
	Logger     *logger.Logger
	Repository books.ReconcileRepository
}

// NewInventoryReconcileJob builds the job that repairs available_copies
// drift. A borrow insert can commit while its copy decrement loses the
// race; this sweep squares every book against its active loan count.
func NewInventoryReconcileJob(params InventoryReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("reconcile repository required")
	}
	return &inventoryReconcileJob{
		logg: params.Logger,
		repo: params.Repository,
	}, nil
}

type inventoryReconcileJob struct {
	logg *logger.Logger
	repo books.ReconcileRepository
}

func (j *inventoryReconcileJob) Name() string { return "inventory-reconcile" }

func (j *inventoryReconcileJob) Run(ctx context.Context) error {
	mismatches, err := j.repo.FindMismatched(ctx)
	if err != nil {
		return fmt.Errorf("find mismatched books: %w", err)
	}

	var repaired int64
	var errs error
	for _, mismatch := range mismatches {
		rows, err := j.repo.Repair(ctx, mismatch.BookID, mismatch.Available, mismatch.WantAvailable)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("repair book %s: %w", mismatch.BookID, err))
			continue
		}
		if rows == 0 {
			// The row moved under us; next sweep picks it up if it is
			// still wrong.
			continue
		}
		repaired += rows
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"book_id":        mismatch.BookID,
			"observed":       mismatch.Available,
			"want_available": mismatch.WantAvailable,
		})
		j.logg.Info(logCtx, "repaired inventory drift")
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"mismatched": len(mismatches),
		"repaired":   repaired,
	})
	j.logg.Info(logCtx, "inventory reconcile complete")
	return errs
}
