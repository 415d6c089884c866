package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/internal/books"
	pkgauth "github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/config"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev, Port: "8080"},
		JWT: config.JWTConfig{Secret: "router-test-secret", Issuer: "test", ExpirationMinutes: 15},
	}
}

func TestRouterHealthLive(t *testing.T) {
	router := NewRouter(testConfig(), nil, HealthDeps{}, nil, Services{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterProtectedRoutesRequireAuth(t *testing.T) {
	router := NewRouter(testConfig(), nil, HealthDeps{}, nil, Services{})

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/borrowings"},
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodGet, "/api/v1/stats"},
		{http.MethodGet, "/api/v1/admin/borrowings"},
	}
	for _, tc := range paths {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(tc.method, tc.path, nil)
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

type allowAllSessions struct{}

func (allowAllSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type recordingBooksService struct {
	createIdent pkgauth.Identity
}

func (s *recordingBooksService) Create(ctx context.Context, ident pkgauth.Identity, input books.CreateBookInput) (books.BookDTO, error) {
	s.createIdent = ident
	return books.BookDTO{ID: uuid.New(), Title: input.Title, Author: input.Author}, nil
}

func (s *recordingBooksService) Get(ctx context.Context, id uuid.UUID) (books.BookDTO, error) {
	return books.BookDTO{}, nil
}

func (s *recordingBooksService) List(ctx context.Context, params pagination.Params, filters books.ListFilters) (*books.BookListDTO, error) {
	return &books.BookListDTO{}, nil
}

func (s *recordingBooksService) Update(ctx context.Context, ident pkgauth.Identity, id uuid.UUID, input books.UpdateBookInput) (books.BookDTO, error) {
	return books.BookDTO{}, nil
}

func (s *recordingBooksService) Delete(ctx context.Context, ident pkgauth.Identity, id uuid.UUID) error {
	return nil
}

func (s *recordingBooksService) UpdateCopyCounts(ctx context.Context, ident pkgauth.Identity, id uuid.UUID, newTotal int) (books.BookDTO, error) {
	return books.BookDTO{}, nil
}

func (s *recordingBooksService) CoverUploadURL(ctx context.Context, ident pkgauth.Identity, id uuid.UUID, filename, contentType string) (books.UploadTarget, error) {
	return books.UploadTarget{}, nil
}

func (s *recordingBooksService) PDFUploadURL(ctx context.Context, ident pkgauth.Identity, id uuid.UUID, filename, contentType string) (books.UploadTarget, error) {
	return books.UploadTarget{}, nil
}

func (s *recordingBooksService) PDFReadURL(ctx context.Context, ident pkgauth.Identity, id uuid.UUID) (string, error) {
	return "", nil
}

func TestRouterMemberCanPublishBook(t *testing.T) {
	cfg := testConfig()
	booksSvc := &recordingBooksService{}
	router := NewRouter(cfg, nil, HealthDeps{}, nil, Services{
		Session: allowAllSessions{},
		Books:   booksSvc,
	})

	memberID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: memberID,
		Email:  "reader@example.com",
		Role:   enums.AppRoleUser,
		JTI:    "sess-books",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	body := `{"title":"Dune","author":"Herbert"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for member publish, got %d: %s", rec.Code, rec.Body.String())
	}
	if booksSvc.createIdent.UserID != memberID {
		t.Fatalf("expected member identity forwarded, got %s", booksSvc.createIdent.UserID)
	}
}

func TestRouterAdminBootstrapHiddenInProd(t *testing.T) {
	cfg := testConfig()
	cfg.App.Env = config.AppEnvProd
	router := NewRouter(cfg, nil, HealthDeps{}, nil, Services{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/auth/register", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected bootstrap route to be unmounted in prod, got %d", rec.Code)
	}
}
