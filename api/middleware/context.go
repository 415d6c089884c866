package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgauth "github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxAccessID contextKey = "access_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// AccessIDFromContext returns the session identifier (JWT jti) seeded by Auth.
func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

// IdentityFromContext rebuilds the caller identity seeded by the Auth
// middleware. The zero Identity is returned for unauthenticated requests.
func IdentityFromContext(ctx context.Context) pkgauth.Identity {
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return pkgauth.Identity{}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return pkgauth.Identity{}
	}
	return pkgauth.Identity{
		UserID: id,
		Role:   enums.AppRole(RoleFromContext(ctx)),
	}
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithIdentity injects a fully formed identity, used by tests that bypass Auth.
func WithIdentity(ctx context.Context, ident pkgauth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, ident.UserID.String())
	return context.WithValue(ctx, ctxRole, string(ident.Role))
}
