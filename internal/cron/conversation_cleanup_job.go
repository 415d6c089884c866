package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/fami1212/modern-e-library-hub/internal/messaging"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
)

const conversationIdleDays = 30

// ConversationCleanupJobParams configure the idle-conversation job.
type ConversationCleanupJobParams struct {
	Logger     *logger.Logger
	Repository messaging.CleanupRepository
	IdleDays   int
}

// NewConversationCleanupJob builds the job that closes support threads
// with no activity past the idle window.
func NewConversationCleanupJob(params ConversationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cleanup repository required")
	}
	idleDays := params.IdleDays
	if idleDays <= 0 {
		idleDays = conversationIdleDays
	}
	return &conversationCleanupJob{
		logg:     params.Logger,
		repo:     params.Repository,
		idleDays: idleDays,
		now:      time.Now,
	}, nil
}

type conversationCleanupJob struct {
	logg     *logger.Logger
	repo     messaging.CleanupRepository
	idleDays int
	now      func() time.Time
}

func (j *conversationCleanupJob) Name() string { return "conversation-cleanup" }

func (j *conversationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.idleDays) * 24 * time.Hour)
	closed, err := j.repo.CloseIdleBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("conversation cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":      cutoff,
		"idle_days":   j.idleDays,
		"rows_closed": closed,
	})
	j.logg.Info(logCtx, "conversation cleanup complete")
	return nil
}
