package controllers

import (
	"net/http"
	"strings"

	"github.com/fami1212/modern-e-library-hub/api/responses"
	"github.com/fami1212/modern-e-library-hub/api/validators"
	"github.com/fami1212/modern-e-library-hub/internal/books"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
)

type updateCopiesPayload struct {
	TotalCopies int `json:"total_copies" validate:"required,gte=1,lte=10000"`
}

type uploadURLPayload struct {
	Filename    string `json:"filename" validate:"required,max=300"`
	ContentType string `json:"content_type" validate:"required,max=150"`
}

// BookList serves the public catalog with optional category and search filters.
func BookList(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		filters := books.ListFilters{
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Search:   strings.TrimSpace(r.URL.Query().Get("search")),
		}

		resp, err := svc.List(ctx, params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func BookDetail(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func BookCreate(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input books.CreateBookInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Create(ctx, ident, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

func BookUpdate(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input books.UpdateBookInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Update(ctx, ident, id, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func BookDelete(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, ident, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// BookUpdateCopies adjusts total copies while keeping active loans consistent.
func BookUpdateCopies(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateCopiesPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.UpdateCopyCounts(ctx, ident, id, payload.TotalCopies)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func BookCoverUploadURL(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload uploadURLPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.CoverUploadURL(ctx, ident, id, payload.Filename, payload.ContentType)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func BookPDFUploadURL(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload uploadURLPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.PDFUploadURL(ctx, ident, id, payload.Filename, payload.ContentType)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// BookPDFReadURL hands out a short-lived signed link for in-app reading.
func BookPDFReadURL(svc books.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		url, err := svc.PDFReadURL(ctx, ident, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if url == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "book has no digital copy"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"read_url": url})
	}
}
