package controllers

import (
	"net/http"

	"github.com/fami1212/modern-e-library-hub/api/responses"
	"github.com/fami1212/modern-e-library-hub/internal/favorites"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
)

// FavoriteAdd likes a book. Repeated calls are no-ops.
func FavoriteAdd(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		bookID, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Add(ctx, ident, bookID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"status": "favorited"})
	}
}

func FavoriteRemove(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		bookID, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Remove(ctx, ident, bookID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func FavoriteList(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.List(ctx, ident, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// FavoriteCheck reports whether the caller has liked the book.
func FavoriteCheck(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		bookID, err := pathUUID(r, "bookId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		liked, err := svc.IsFavorite(ctx, ident, bookID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"favorite": liked})
	}
}
