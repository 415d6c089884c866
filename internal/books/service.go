package books

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/internal/users"
	"github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/config"
	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
	"github.com/fami1212/modern-e-library-hub/pkg/storage/gcs"
)

// ObjectSigner is the storage surface the catalog needs: signed upload and
// read URLs plus object deletion. *gcs.Client satisfies it.
type ObjectSigner interface {
	SignedURL(bucket, object, contentType string, ttl time.Duration) (string, error)
	SignedReadURL(bucket, object string, ttl time.Duration) (string, error)
	DeleteObject(ctx context.Context, bucket, object string) error
	DefaultBucket() string
}

// Service exposes catalog management and copy-count operations.
type Service interface {
	Create(ctx context.Context, ident auth.Identity, input CreateBookInput) (BookDTO, error)
	Get(ctx context.Context, id uuid.UUID) (BookDTO, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*BookListDTO, error)
	Update(ctx context.Context, ident auth.Identity, id uuid.UUID, input UpdateBookInput) (BookDTO, error)
	Delete(ctx context.Context, ident auth.Identity, id uuid.UUID) error
	UpdateCopyCounts(ctx context.Context, ident auth.Identity, id uuid.UUID, newTotal int) (BookDTO, error)
	CoverUploadURL(ctx context.Context, ident auth.Identity, id uuid.UUID, filename, contentType string) (UploadTarget, error)
	PDFUploadURL(ctx context.Context, ident auth.Identity, id uuid.UUID, filename, contentType string) (UploadTarget, error)
	PDFReadURL(ctx context.Context, ident auth.Identity, id uuid.UUID) (string, error)
}

// ServiceParams groups dependencies for the books service.
type ServiceParams struct {
	Repo    Repository
	Storage ObjectSigner
	Config  config.StorageConfig
}

type service struct {
	repo    Repository
	storage ObjectSigner
	cfg     config.StorageConfig
}

// NewService builds a books service. Storage may be nil when object storage
// is not configured; upload endpoints then return DEPENDENCY_ERROR.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "books repo is required")
	}
	return &service{
		repo:    params.Repo,
		storage: params.Storage,
		cfg:     params.Config,
	}, nil
}

func (s *service) Create(ctx context.Context, ident auth.Identity, input CreateBookInput) (BookDTO, error) {
	if ident.UserID == uuid.Nil {
		return BookDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	total := input.TotalCopies
	if total <= 0 {
		total = 1
	}
	owner := ident.UserID
	book := &models.Book{
		Title:           strings.TrimSpace(input.Title),
		Author:          strings.TrimSpace(input.Author),
		Description:     input.Description,
		ISBN:            input.ISBN,
		Category:        input.Category,
		PublicationYear: input.PublicationYear,
		CoverURL:        input.CoverURL,
		PDFURL:          input.PDFURL,
		OwnerID:         &owner,
		TotalCopies:     total,
		AvailableCopies: total,
	}
	if book.Title == "" || book.Author == "" {
		return BookDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "title and author are required")
	}

	created, err := s.repo.Create(ctx, book)
	if err != nil {
		return BookDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create book")
	}
	return toDTO(created), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (BookDTO, error) {
	book, err := s.findBook(ctx, id)
	if err != nil {
		return BookDTO{}, err
	}
	return toDTO(book), nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*BookListDTO, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list books")
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, ident auth.Identity, id uuid.UUID, input UpdateBookInput) (BookDTO, error) {
	book, err := s.findBookForManage(ctx, ident, id)
	if err != nil {
		return BookDTO{}, err
	}

	updates := map[string]any{}
	if input.Title != nil {
		trimmed := strings.TrimSpace(*input.Title)
		if trimmed == "" {
			return BookDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		updates["title"] = trimmed
	}
	if input.Author != nil {
		trimmed := strings.TrimSpace(*input.Author)
		if trimmed == "" {
			return BookDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "author cannot be empty")
		}
		updates["author"] = trimmed
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.ISBN != nil {
		updates["isbn"] = *input.ISBN
	}
	if input.Category != nil {
		updates["category"] = *input.Category
	}
	if input.PublicationYear != nil {
		updates["publication_year"] = *input.PublicationYear
	}
	if input.CoverURL != nil {
		updates["cover_url"] = *input.CoverURL
	}
	if input.PDFURL != nil {
		updates["pdf_url"] = *input.PDFURL
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, book.ID, updates); err != nil {
			return BookDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update book")
		}
	}
	return s.Get(ctx, book.ID)
}

// Delete removes a catalog entry. Books with copies still out cannot be
// deleted; their borrowings reference the row.
func (s *service) Delete(ctx context.Context, ident auth.Identity, id uuid.UUID) error {
	book, err := s.findBookForManage(ctx, ident, id)
	if err != nil {
		return err
	}

	active, err := s.repo.CountActiveBorrowings(ctx, book.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active borrowings")
	}
	if active > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "book has active borrowings").
			WithDetails(map[string]any{"active_borrowings": active})
	}

	if err := s.repo.Delete(ctx, book.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete book")
	}

	// Object cleanup is best effort; orphans are harmless.
	if s.storage != nil {
		for _, raw := range []*string{book.CoverURL, book.PDFURL} {
			if raw == nil {
				continue
			}
			if object, ok := gcs.ObjectFromURL(*raw); ok {
				_ = s.storage.DeleteObject(ctx, s.storage.DefaultBucket(), object)
			}
		}
	}
	return nil
}

// UpdateCopyCounts changes the owned copy total. The shift applies to
// available_copies in the same statement; a request that would drop the total
// below the number of copies currently out is rejected.
func (s *service) UpdateCopyCounts(ctx context.Context, ident auth.Identity, id uuid.UUID, newTotal int) (BookDTO, error) {
	if err := users.Authorize(ident, enums.CapabilityManageBooks); err != nil {
		return BookDTO{}, err
	}
	if newTotal < 1 {
		return BookDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "total copies must be at least 1")
	}
	if _, err := s.findBook(ctx, id); err != nil {
		return BookDTO{}, err
	}

	affected, err := s.repo.SetCopyCounts(ctx, id, newTotal)
	if err != nil {
		return BookDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set copy counts")
	}
	if affected == 0 {
		return BookDTO{}, pkgerrors.New(pkgerrors.CodeInventory, "total cannot drop below copies currently borrowed").
			WithDetails(map[string]any{"book_id": id, "requested_total": newTotal})
	}
	return s.Get(ctx, id)
}

func (s *service) CoverUploadURL(ctx context.Context, ident auth.Identity, id uuid.UUID, filename, contentType string) (UploadTarget, error) {
	book, err := s.findBookForManage(ctx, ident, id)
	if err != nil {
		return UploadTarget{}, err
	}
	return s.uploadTarget(gcs.CoverObjectPath(book.ID, filename), contentType)
}

func (s *service) PDFUploadURL(ctx context.Context, ident auth.Identity, id uuid.UUID, filename, contentType string) (UploadTarget, error) {
	book, err := s.findBookForManage(ctx, ident, id)
	if err != nil {
		return UploadTarget{}, err
	}
	return s.uploadTarget(gcs.PDFObjectPath(book.ID, filename), contentType)
}

// PDFReadURL issues a short-lived download URL for a book's PDF.
func (s *service) PDFReadURL(ctx context.Context, ident auth.Identity, id uuid.UUID) (string, error) {
	if ident.UserID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	book, err := s.findBook(ctx, id)
	if err != nil {
		return "", err
	}
	if book.PDFURL == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "book has no PDF")
	}
	if s.storage == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "object storage not configured")
	}
	object, ok := gcs.ObjectFromURL(*book.PDFURL)
	if !ok {
		// External URL; hand it back untouched.
		return *book.PDFURL, nil
	}
	signed, err := s.storage.SignedReadURL(s.storage.DefaultBucket(), object, s.cfg.DownloadURLExpiry)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign read url")
	}
	return signed, nil
}

func (s *service) uploadTarget(object, contentType string) (UploadTarget, error) {
	if s.storage == nil {
		return UploadTarget{}, pkgerrors.New(pkgerrors.CodeDependency, "object storage not configured")
	}
	if strings.TrimSpace(contentType) == "" {
		return UploadTarget{}, pkgerrors.New(pkgerrors.CodeValidation, "content type is required")
	}
	bucket := s.storage.DefaultBucket()
	uploadURL, err := s.storage.SignedURL(bucket, object, contentType, s.cfg.UploadURLExpiry)
	if err != nil {
		return UploadTarget{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}
	return UploadTarget{
		UploadURL: uploadURL,
		PublicURL: "https://storage.googleapis.com/" + bucket + "/" + object,
		ExpiresIn: int64(s.cfg.UploadURLExpiry / time.Second),
	}, nil
}

func (s *service) findBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "book id is required")
	}
	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "book not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load book")
	}
	return book, nil
}

// findBookForManage loads the book and checks the caller may edit it: the
// owner, or anyone holding the manage-books capability.
func (s *service) findBookForManage(ctx context.Context, ident auth.Identity, id uuid.UUID) (*models.Book, error) {
	if ident.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	book, err := s.findBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != nil && *book.OwnerID == ident.UserID {
		return book, nil
	}
	if err := users.Authorize(ident, enums.CapabilityManageBooks); err != nil {
		return nil, err
	}
	return book, nil
}
