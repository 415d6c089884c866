package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/api/middleware"
	"github.com/fami1212/modern-e-library-hub/internal/borrowings"
	pkgauth "github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
	"github.com/fami1212/modern-e-library-hub/pkg/types"
)

type stubBorrowingsService struct {
	created    borrowings.BorrowingDTO
	createErr  error
	lastBookID uuid.UUID
	lastIdent  pkgauth.Identity
	extendErr  error
}

func (s *stubBorrowingsService) Create(_ context.Context, ident pkgauth.Identity, bookID uuid.UUID) (borrowings.BorrowingDTO, error) {
	s.lastIdent = ident
	s.lastBookID = bookID
	if s.createErr != nil {
		return borrowings.BorrowingDTO{}, s.createErr
	}
	return s.created, nil
}

func (s *stubBorrowingsService) Return(_ context.Context, _ pkgauth.Identity, _ uuid.UUID) (borrowings.BorrowingDTO, error) {
	return s.created, nil
}

func (s *stubBorrowingsService) Validate(_ context.Context, _ pkgauth.Identity, _ uuid.UUID) (borrowings.BorrowingDTO, error) {
	return s.created, nil
}

func (s *stubBorrowingsService) Extend(_ context.Context, _ pkgauth.Identity, _ uuid.UUID) (borrowings.BorrowingDTO, error) {
	if s.extendErr != nil {
		return borrowings.BorrowingDTO{}, s.extendErr
	}
	return s.created, nil
}

func (s *stubBorrowingsService) MarkFinePaid(_ context.Context, _ pkgauth.Identity, _ uuid.UUID) (borrowings.BorrowingDTO, error) {
	return s.created, nil
}

func (s *stubBorrowingsService) ListForUser(_ context.Context, _ pkgauth.Identity, _ pagination.Params) (*borrowings.BorrowingListDTO, error) {
	return &borrowings.BorrowingListDTO{Items: []borrowings.BorrowingDTO{s.created}, Total: 1}, nil
}

func (s *stubBorrowingsService) ListActive(_ context.Context, _ pkgauth.Identity, _ pagination.Params) (*borrowings.BorrowingListDTO, error) {
	return &borrowings.BorrowingListDTO{Items: nil, Total: 0}, nil
}

func (s *stubBorrowingsService) ListOverdue(_ context.Context, _ pkgauth.Identity, _ pagination.Params) (*borrowings.BorrowingListDTO, error) {
	return &borrowings.BorrowingListDTO{Items: nil, Total: 0}, nil
}

func authedRequest(method, target, body string, ident pkgauth.Identity) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithIdentity(req.Context(), ident))
}

func TestBorrowingCreate(t *testing.T) {
	svc := &stubBorrowingsService{created: borrowings.BorrowingDTO{ID: uuid.New(), Status: enums.BorrowingStatusActive}}
	ident := pkgauth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}
	bookID := uuid.New()

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/v1/borrowings", `{"book_id":"`+bookID.String()+`"}`, ident)
	BorrowingCreate(svc, nil)(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastBookID != bookID {
		t.Fatalf("expected book %s, got %s", bookID, svc.lastBookID)
	}
	if svc.lastIdent.UserID != ident.UserID {
		t.Fatalf("identity not forwarded")
	}
}

func TestBorrowingCreateRejectsBadBookID(t *testing.T) {
	svc := &stubBorrowingsService{}
	ident := pkgauth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/v1/borrowings", `{"book_id":"not-a-uuid"}`, ident)
	BorrowingCreate(svc, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestBorrowingCreateRequiresAuth(t *testing.T) {
	svc := &stubBorrowingsService{}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/borrowings", strings.NewReader(`{"book_id":"`+uuid.NewString()+`"}`))
	BorrowingCreate(svc, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBorrowingExtendMapsDomainError(t *testing.T) {
	svc := &stubBorrowingsService{extendErr: pkgerrors.New(pkgerrors.CodeExtensionLimit, "extension limit reached")}
	ident := pkgauth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}
	borrowingID := uuid.New()

	r := chi.NewRouter()
	r.Post("/api/v1/borrowings/{borrowingId}/extend", BorrowingExtend(svc, nil))

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/v1/borrowings/"+borrowingID.String()+"/extend", "", ident)
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%s)", rec.Code, rec.Body.String())
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if body.Error.Code != string(pkgerrors.CodeExtensionLimit) {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
}

func TestBorrowingListForUser(t *testing.T) {
	svc := &stubBorrowingsService{created: borrowings.BorrowingDTO{ID: uuid.New()}}
	ident := pkgauth.Identity{UserID: uuid.New(), Role: enums.AppRoleUser}

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodGet, "/api/v1/borrowings?limit=10", "", ident)
	BorrowingList(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
}
