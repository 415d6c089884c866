package favorites

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	"github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

type favoriteKey struct {
	userID uuid.UUID
	bookID uuid.UUID
}

type stubFavoritesRepo struct {
	likes map[favoriteKey]bool
	adds  int
}

func newStubFavoritesRepo() *stubFavoritesRepo {
	return &stubFavoritesRepo{likes: make(map[favoriteKey]bool)}
}

func (s *stubFavoritesRepo) Add(ctx context.Context, userID, bookID uuid.UUID) error {
	s.adds++
	s.likes[favoriteKey{userID, bookID}] = true
	return nil
}

func (s *stubFavoritesRepo) Remove(ctx context.Context, userID, bookID uuid.UUID) error {
	delete(s.likes, favoriteKey{userID, bookID})
	return nil
}

func (s *stubFavoritesRepo) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*FavoriteListDTO, error) {
	list := &FavoriteListDTO{}
	for key := range s.likes {
		if key.userID == userID {
			list.Items = append(list.Items, FavoriteDTO{Book: books.BookDTO{ID: key.bookID}})
			list.Total++
		}
	}
	return list, nil
}

func (s *stubFavoritesRepo) IsFavorite(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	return s.likes[favoriteKey{userID, bookID}], nil
}

type stubCatalog struct {
	books map[uuid.UUID]*models.Book
}

func (s *stubCatalog) WithTx(tx *gorm.DB) books.Repository { return s }

func (s *stubCatalog) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	s.books[book.ID] = book
	return book, nil
}

func (s *stubCatalog) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, ok := s.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return book, nil
}

func (s *stubCatalog) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubCatalog) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubCatalog) List(ctx context.Context, params pagination.Params, filters books.ListFilters) (*books.BookListDTO, error) {
	return &books.BookListDTO{}, nil
}

func (s *stubCatalog) SetCopyCounts(ctx context.Context, id uuid.UUID, newTotal int) (int64, error) {
	return 1, nil
}

func (s *stubCatalog) CountActiveBorrowings(ctx context.Context, bookID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubCatalog) Count(ctx context.Context) (int64, error) { return 0, nil }

func (s *stubCatalog) CountOwnedBy(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return 0, nil
}

func newFavoritesService(t *testing.T) (Service, *stubFavoritesRepo, *stubCatalog) {
	t.Helper()
	repo := newStubFavoritesRepo()
	catalog := &stubCatalog{books: make(map[uuid.UUID]*models.Book)}
	svc, err := NewService(ServiceParams{Repo: repo, BooksRepo: catalog})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo, catalog
}

func TestAddAndRemoveFavorite(t *testing.T) {
	svc, repo, catalog := newFavoritesService(t)
	ident := auth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}
	bookID := uuid.New()
	catalog.books[bookID] = &models.Book{ID: bookID, Title: "Solaris"}
	ctx := context.Background()

	if err := svc.Add(ctx, ident, bookID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	liked, err := svc.IsFavorite(ctx, ident, bookID)
	if err != nil || !liked {
		t.Fatalf("expected favorite, got %v %v", liked, err)
	}

	// Liking again stays silent.
	if err := svc.Add(ctx, ident, bookID); err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if repo.adds != 2 {
		t.Fatalf("expected repo called per add, got %d", repo.adds)
	}

	if err := svc.Remove(ctx, ident, bookID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	liked, _ = svc.IsFavorite(ctx, ident, bookID)
	if liked {
		t.Fatal("expected favorite removed")
	}

	// Removing a non-favorite is a no-op.
	if err := svc.Remove(ctx, ident, bookID); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestAddUnknownBook(t *testing.T) {
	svc, _, _ := newFavoritesService(t)
	ident := auth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}

	err := svc.Add(context.Background(), ident, uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestFavoritesRequireAuth(t *testing.T) {
	svc, _, _ := newFavoritesService(t)
	anon := auth.Identity{}
	ctx := context.Background()

	if err := svc.Add(ctx, anon, uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED on add, got %v", err)
	}
	if _, err := svc.List(ctx, anon, pagination.Params{}); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected UNAUTHORIZED on list, got %v", err)
	}
}

func TestListReturnsOwnFavoritesOnly(t *testing.T) {
	svc, repo, catalog := newFavoritesService(t)
	me := auth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}
	other := uuid.New()
	bookID := uuid.New()
	catalog.books[bookID] = &models.Book{ID: bookID}

	if err := svc.Add(context.Background(), me, bookID); err != nil {
		t.Fatalf("Add: %v", err)
	}
	repo.likes[favoriteKey{other, uuid.New()}] = true

	list, err := svc.List(context.Background(), me, pagination.Params{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.Total != 1 || len(list.Items) != 1 {
		t.Fatalf("expected one favorite, got %+v", list)
	}
	if list.Items[0].Book.ID != bookID {
		t.Fatalf("unexpected book %s", list.Items[0].Book.ID)
	}
}
