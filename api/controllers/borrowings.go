package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/api/responses"
	"github.com/fami1212/modern-e-library-hub/api/validators"
	"github.com/fami1212/modern-e-library-hub/internal/borrowings"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
)

type createBorrowingPayload struct {
	BookID string `json:"book_id" validate:"required,uuid"`
}

// BorrowingCreate checks out a copy for the authenticated member.
func BorrowingCreate(svc borrowings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createBorrowingPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		bookID, err := uuid.Parse(payload.BookID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid book id"))
			return
		}

		resp, err := svc.Create(ctx, ident, bookID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

// BorrowingCreateForBook checks out the book named in the path.
func BorrowingCreateForBook(svc borrowings.Service, logg *logger.Logger) http.HandlerFunc {
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

		resp, err := svc.Create(ctx, ident, bookID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

func borrowingAction(
	logg *logger.Logger,
	action func(r *http.Request, borrowingID uuid.UUID) (any, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := pathUUID(r, "borrowingId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := action(r, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// BorrowingReturn closes the loan and settles any accrued fine.
func BorrowingReturn(svc borrowings.Service, logg *logger.Logger) http.HandlerFunc {
	return borrowingAction(logg, func(r *http.Request, id uuid.UUID) (any, error) {
		ident, err := identity(r)
		if err != nil {
			return nil, err
		}
		return svc.Return(r.Context(), ident, id)
	})
}

// BorrowingValidate records staff approval of a pending loan.
func BorrowingValidate(svc borrowings.Service, logg *logger.Logger) http.HandlerFunc {
	return borrowingAction(logg, func(r *http.Request, id uuid.UUID) (any, error) {
		ident, err := identity(r)
		if err != nil {
			return nil, err
		}
		return svc.Validate(r.Context(), ident, id)
	})
}

// BorrowingExtend pushes the due date out by the configured extension period.
func BorrowingExtend(svc borrowings.Service, logg *logger.Logger) http.HandlerFunc {
	return borrowingAction(logg, func(r *http.Request, id uuid.UUID) (any, error) {
		ident, err := identity(r)
		if err != nil {
			return nil, err
		}
		return svc.Extend(r.Context(), ident, id)
	})
}

// BorrowingMarkFinePaid records that the member settled an outstanding fine.
func BorrowingMarkFinePaid(svc borrowings.Service, logg *logger.Logger) http.HandlerFunc {
	return borrowingAction(logg, func(r *http.Request, id uuid.UUID) (any, error) {
		ident, err := identity(r)
		if err != nil {
			return nil, err
		}
		return svc.MarkFinePaid(r.Context(), ident, id)
	})
}

// BorrowingList returns the caller's own loan history.
func BorrowingList(svc borrowings.Service, logg *logger.Logger) http.HandlerFunc {
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

		resp, err := svc.ListForUser(ctx, ident, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// BorrowingAdminList is the staff view of loans, filtered by status.
func BorrowingAdminList(svc borrowings.Service, logg *logger.Logger) http.HandlerFunc {
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

		var resp *borrowings.BorrowingListDTO
		switch status := r.URL.Query().Get("status"); status {
		case "", "active":
			resp, err = svc.ListActive(ctx, ident, params)
		case "overdue":
			resp, err = svc.ListOverdue(ctx, ident, params)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "status must be active or overdue").
				WithDetails(map[string]any{"status": status})
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// BorrowingListActive is the staff view of all open loans.
func BorrowingListActive(svc borrowings.Service, logg *logger.Logger) http.HandlerFunc {
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

		resp, err := svc.ListActive(ctx, ident, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// BorrowingListOverdue is the staff view of loans past the due date.
func BorrowingListOverdue(svc borrowings.Service, logg *logger.Logger) http.HandlerFunc {
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

		resp, err := svc.ListOverdue(ctx, ident, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
