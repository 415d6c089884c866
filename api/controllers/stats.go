package controllers

import (
	"net/http"

	"github.com/fami1212/modern-e-library-hub/api/responses"
	"github.com/fami1212/modern-e-library-hub/internal/stats"
	"github.com/fami1212/modern-e-library-hub/pkg/logger"
)

// StatsDashboard serves the dashboard counters; staff see library-wide totals.
func StatsDashboard(svc stats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident, err := identity(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Dashboard(ctx, ident)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
