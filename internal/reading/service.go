package reading

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
)

// ServiceParams groups dependencies for the reading service.
type ServiceParams struct {
	Repo      Repository
	BooksRepo books.Repository
	Now       func() time.Time
}

// Service tracks reading sessions for the member stats page.
type Service interface {
	Start(ctx context.Context, ident auth.Identity, bookID uuid.UUID) (SessionDTO, error)
	End(ctx context.Context, ident auth.Identity, sessionID uuid.UUID, input EndSessionInput) (SessionDTO, error)
	Stats(ctx context.Context, ident auth.Identity) (*StatsDTO, error)
}

type service struct {
	repo      Repository
	booksRepo books.Repository
	now       func() time.Time
}

// NewService builds a reading service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reading repo is required")
	}
	if params.BooksRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "books repo is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repo, booksRepo: params.BooksRepo, now: now}, nil
}

// Start opens a session against an existing book.
func (s *service) Start(ctx context.Context, ident auth.Identity, bookID uuid.UUID) (SessionDTO, error) {
	if ident.UserID == uuid.Nil {
		return SessionDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if bookID == uuid.Nil {
		return SessionDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	if _, err := s.booksRepo.FindByID(ctx, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SessionDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return SessionDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}

	session, err := s.repo.Create(ctx, &models.ReadingSession{
		UserID:    ident.UserID,
		BookID:    bookID,
		StartedAt: s.now(),
	})
	if err != nil {
		return SessionDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reading session")
	}
	return toDTO(session), nil
}

// End closes the caller's session and derives the duration from the
// timestamps. Ending twice reports CONFLICT.
func (s *service) End(ctx context.Context, ident auth.Identity, sessionID uuid.UUID, input EndSessionInput) (SessionDTO, error) {
	if ident.UserID == uuid.Nil {
		return SessionDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if sessionID == uuid.Nil {
		return SessionDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if input.PagesRead != nil && *input.PagesRead < 0 {
		return SessionDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "pages read cannot be negative")
	}

	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SessionDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "reading session not found")
		}
		return SessionDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reading session")
	}
	if session.UserID != ident.UserID {
		return SessionDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "reading session belongs to another member")
	}

	endedAt := s.now()
	if endedAt.Before(session.StartedAt) {
		endedAt = session.StartedAt
	}
	minutes := int(endedAt.Sub(session.StartedAt) / time.Minute)

	rows, err := s.repo.End(ctx, sessionID, endedAt, minutes, input.PagesRead)
	if err != nil {
		return SessionDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "end reading session")
	}
	if rows == 0 {
		return SessionDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "reading session already ended")
	}

	session, err = s.repo.FindByID(ctx, sessionID)
	if err != nil {
		return SessionDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload reading session")
	}
	return toDTO(session), nil
}

// Stats aggregates the caller's reading history.
func (s *service) Stats(ctx context.Context, ident auth.Identity) (*StatsDTO, error) {
	if ident.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	sessions, minutes, pages, err := s.repo.Totals(ctx, ident.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate reading sessions")
	}
	recent, err := s.repo.Recent(ctx, ident.UserID, recentSessionsLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recent sessions")
	}

	recentDTOs := make([]SessionDTO, 0, len(recent))
	for i := range recent {
		recentDTOs = append(recentDTOs, toDTO(&recent[i]))
	}

	return &StatsDTO{
		TotalSessions:  sessions,
		TotalMinutes:   minutes,
		TotalPages:     pages,
		RecentSessions: recentDTOs,
	}, nil
}

func toDTO(session *models.ReadingSession) SessionDTO {
	return SessionDTO{
		ID:              session.ID,
		UserID:          session.UserID,
		BookID:          session.BookID,
		StartedAt:       session.StartedAt,
		EndedAt:         session.EndedAt,
		DurationMinutes: session.DurationMinutes,
		PagesRead:       session.PagesRead,
	}
}
