package reading

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

type stubReadingRepo struct {
	sessions map[uuid.UUID]*models.ReadingSession
}

func newStubReadingRepo() *stubReadingRepo {
	return &stubReadingRepo{sessions: make(map[uuid.UUID]*models.ReadingSession)}
}

func (s *stubReadingRepo) Create(ctx context.Context, session *models.ReadingSession) (*models.ReadingSession, error) {
	session.ID = uuid.New()
	s.sessions[session.ID] = session
	return session, nil
}

func (s *stubReadingRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ReadingSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	return &copied, nil
}

func (s *stubReadingRepo) End(ctx context.Context, id uuid.UUID, endedAt time.Time, durationMinutes int, pagesRead *int) (int64, error) {
	session, ok := s.sessions[id]
	if !ok || session.EndedAt != nil {
		return 0, nil
	}
	session.EndedAt = &endedAt
	session.DurationMinutes = &durationMinutes
	if pagesRead != nil {
		session.PagesRead = pagesRead
	}
	return 1, nil
}

func (s *stubReadingRepo) Totals(ctx context.Context, userID uuid.UUID) (int64, int64, int64, error) {
	var sessions, minutes, pages int64
	for _, session := range s.sessions {
		if session.UserID != userID {
			continue
		}
		sessions++
		if session.DurationMinutes != nil {
			minutes += int64(*session.DurationMinutes)
		}
		if session.PagesRead != nil {
			pages += int64(*session.PagesRead)
		}
	}
	return sessions, minutes, pages, nil
}

func (s *stubReadingRepo) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReadingSession, error) {
	var recent []models.ReadingSession
	for _, session := range s.sessions {
		if session.UserID == userID {
			recent = append(recent, *session)
		}
	}
	return recent, nil
}

type stubBooksForReading struct {
	books map[uuid.UUID]*models.Book
}

func (s *stubBooksForReading) WithTx(tx *gorm.DB) books.Repository { return s }

func (s *stubBooksForReading) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	s.books[book.ID] = book
	return book, nil
}

func (s *stubBooksForReading) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, ok := s.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return book, nil
}

func (s *stubBooksForReading) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubBooksForReading) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubBooksForReading) List(ctx context.Context, params pagination.Params, filters books.ListFilters) (*books.BookListDTO, error) {
	return &books.BookListDTO{}, nil
}

func (s *stubBooksForReading) SetCopyCounts(ctx context.Context, id uuid.UUID, newTotal int) (int64, error) {
	return 1, nil
}

func (s *stubBooksForReading) CountActiveBorrowings(ctx context.Context, bookID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubBooksForReading) Count(ctx context.Context) (int64, error) { return 0, nil }

func (s *stubBooksForReading) CountOwnedBy(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return 0, nil
}

type readingFixture struct {
	svc    Service
	repo   *stubReadingRepo
	bookID uuid.UUID
	now    *time.Time
}

func newReadingFixture(t *testing.T) *readingFixture {
	t.Helper()
	repo := newStubReadingRepo()
	catalog := &stubBooksForReading{books: make(map[uuid.UUID]*models.Book)}
	bookID := uuid.New()
	catalog.books[bookID] = &models.Book{ID: bookID, Title: "Hyperion"}

	now := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	fixture := &readingFixture{repo: repo, bookID: bookID, now: &now}

	svc, err := NewService(ServiceParams{
		Repo:      repo,
		BooksRepo: catalog,
		Now:       func() time.Time { return *fixture.now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	fixture.svc = svc
	return fixture
}

func TestStartAndEndSession(t *testing.T) {
	f := newReadingFixture(t)
	ident := auth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}
	ctx := context.Background()

	started, err := f.svc.Start(ctx, ident, f.bookID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.EndedAt != nil {
		t.Fatal("new session must be open")
	}

	*f.now = f.now.Add(47 * time.Minute)
	pages := 30
	ended, err := f.svc.End(ctx, ident, started.ID, EndSessionInput{PagesRead: &pages})
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if ended.DurationMinutes == nil || *ended.DurationMinutes != 47 {
		t.Fatalf("expected 47 minutes, got %v", ended.DurationMinutes)
	}
	if ended.PagesRead == nil || *ended.PagesRead != 30 {
		t.Fatalf("expected 30 pages, got %v", ended.PagesRead)
	}

	_, err = f.svc.End(ctx, ident, started.ID, EndSessionInput{})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected CONFLICT on double end, got %v", err)
	}
}

func TestEndSessionOwnership(t *testing.T) {
	f := newReadingFixture(t)
	owner := auth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}
	ctx := context.Background()

	started, err := f.svc.Start(ctx, owner, f.bookID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	stranger := auth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}
	_, err = f.svc.End(ctx, stranger, started.ID, EndSessionInput{})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestStartUnknownBook(t *testing.T) {
	f := newReadingFixture(t)
	ident := auth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}

	_, err := f.svc.Start(context.Background(), ident, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestStatsAggregatesOwnSessions(t *testing.T) {
	f := newReadingFixture(t)
	ident := auth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}
	ctx := context.Background()

	first, err := f.svc.Start(ctx, ident, f.bookID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	*f.now = f.now.Add(30 * time.Minute)
	pages := 12
	if _, err := f.svc.End(ctx, ident, first.ID, EndSessionInput{PagesRead: &pages}); err != nil {
		t.Fatalf("End: %v", err)
	}

	second, err := f.svc.Start(ctx, ident, f.bookID)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	*f.now = f.now.Add(15 * time.Minute)
	if _, err := f.svc.End(ctx, ident, second.ID, EndSessionInput{}); err != nil {
		t.Fatalf("second End: %v", err)
	}

	// Another member's session stays out of the aggregate.
	other := auth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}
	if _, err := f.svc.Start(ctx, other, f.bookID); err != nil {
		t.Fatalf("other Start: %v", err)
	}

	stats, err := f.svc.Stats(ctx, ident)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalSessions != 2 {
		t.Fatalf("expected 2 sessions, got %d", stats.TotalSessions)
	}
	if stats.TotalMinutes != 45 {
		t.Fatalf("expected 45 minutes, got %d", stats.TotalMinutes)
	}
	if stats.TotalPages != 12 {
		t.Fatalf("expected 12 pages, got %d", stats.TotalPages)
	}
	if len(stats.RecentSessions) != 2 {
		t.Fatalf("expected 2 recent sessions, got %d", len(stats.RecentSessions))
	}
}
