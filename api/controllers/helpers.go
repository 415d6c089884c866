package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/api/middleware"
	"github.com/fami1212/modern-e-library-hub/api/validators"
	pkgauth "github.com/fami1212/modern-e-library-hub/pkg/auth"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/pagination"
)

func identity(r *http.Request) (pkgauth.Identity, error) {
	ident := middleware.IdentityFromContext(r.Context())
	if ident.UserID == uuid.Nil {
		return pkgauth.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return ident, nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").
			WithDetails(map[string]any{"field": param})
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
