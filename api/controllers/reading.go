package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/api/responses"
	"github.com/fami1212/modern-e-library-hub/api/validators"
	"github.com/fami1212/modern-e-library-hub/internal/reading"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
)

type startReadingPayload struct {
	BookID string `json:"book_id" validate:"required,uuid"`
}

// ReadingSessionStart opens a reading session against a catalog book.
func ReadingSessionStart(svc reading.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload startReadingPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		bookID, err := uuid.Parse(payload.BookID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid book id"))
			return
		}

		resp, err := svc.Start(ctx, ident, bookID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// ReadingSessionEnd closes a session and records duration plus pages read.
func ReadingSessionEnd(svc reading.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		sessionID, err := pathUUID(r, "sessionId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input reading.EndSessionInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.End(ctx, ident, sessionID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func ReadingStats(svc reading.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Stats(ctx, ident)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
