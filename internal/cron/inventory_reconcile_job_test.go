package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
)

type fakeReconcileRepo struct {
	mismatches []books.CopyMismatch
	findErr    error
	repairErr  error
	repairRows int64
	repairs    []uuid.UUID
}

func (f *fakeReconcileRepo) FindMismatched(ctx context.Context) ([]books.CopyMismatch, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.mismatches, nil
}

func (f *fakeReconcileRepo) Repair(ctx context.Context, bookID uuid.UUID, observed, want int) (int64, error) {
	if f.repairErr != nil {
		return 0, f.repairErr
	}
	f.repairs = append(f.repairs, bookID)
	return f.repairRows, nil
}

func newInventoryReconcileJob(t *testing.T, repo *fakeReconcileRepo) Job {
	t.Helper()
	job, err := NewInventoryReconcileJob(InventoryReconcileJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewInventoryReconcileJob: %v", err)
	}
	return job
}

func TestInventoryReconcileJobRepairsDrift(t *testing.T) {
	repo := &fakeReconcileRepo{
		mismatches: []books.CopyMismatch{
			{BookID: uuid.New(), TotalCopies: 3, Available: 3, WantAvailable: 2},
			{BookID: uuid.New(), TotalCopies: 1, Available: 0, WantAvailable: 1},
		},
		repairRows: 1,
	}
	job := newInventoryReconcileJob(t, repo)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.repairs) != 2 {
		t.Fatalf("expected 2 repairs, got %d", len(repo.repairs))
	}
}

func TestInventoryReconcileJobNoDrift(t *testing.T) {
	repo := &fakeReconcileRepo{}
	job := newInventoryReconcileJob(t, repo)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.repairs) != 0 {
		t.Fatalf("expected no repairs, got %d", len(repo.repairs))
	}
}

func TestInventoryReconcileJobPropagatesErrors(t *testing.T) {
	job := newInventoryReconcileJob(t, &fakeReconcileRepo{findErr: errors.New("boom")})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	job = newInventoryReconcileJob(t, &fakeReconcileRepo{
		mismatches: []books.CopyMismatch{{BookID: uuid.New(), Available: 1, WantAvailable: 0}},
		repairErr:  errors.New("boom"),
	})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected repair error")
	}
}
