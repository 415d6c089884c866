package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fami1212/modern-e-library-hub/internal/borrowings"
	"github.com/fami1212/modern-e-library-hub/pkg/config"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
)

// FineAccrualJobParams configure the fine accrual job.
type FineAccrualJobParams struct {
	Logger     *logger.Logger
	Repository borrowings.AccrualRepository
	Lending    config.LendingConfig
}

// NewFineAccrualJob builds the job that refreshes fines on overdue active
// loans.
func NewFineAccrualJob(params FineAccrualJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("accrual repository required")
	}

	perDay := borrowings.DefaultFinePerDay
	if params.Lending.FinePerDay != "" {
		parsed, err := decimal.NewFromString(params.Lending.FinePerDay)
		if err != nil {
			return nil, fmt.Errorf("invalid fine per day: %w", err)
		}
		perDay = parsed
	}

	return &fineAccrualJob{
		logg:   params.Logger,
		repo:   params.Repository,
		perDay: perDay,
		now:    time.Now,
	}, nil
}

type fineAccrualJob struct {
	logg   *logger.Logger
	repo   borrowings.AccrualRepository
	perDay decimal.Decimal
	now    func() time.Time
}

func (j *fineAccrualJob) Name() string { return "fine-accrual" }

func (j *fineAccrualJob) Run(ctx context.Context) error {
	asOf := j.now().UTC()
	rows, err := j.repo.AccrueFines(ctx, asOf, j.perDay)
	if err != nil {
		return fmt.Errorf("accrue fines: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":        asOf,
		"fine_per_day": j.perDay.String(),
		"rows_updated": rows,
	})
	j.logg.Info(logCtx, "fine accrual complete")
	return nil
}
