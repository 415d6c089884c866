package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/internal/users"
	pkgauth "github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/auth/session"
	"github.com/fami1212/modern-e-library-hub/pkg/config"
	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
	"github.com/fami1212/modern-e-library-hub/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// Service defines the behavior needed by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	RegisterAdmin(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, accessID string) error
	Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UsersRepo   users.Repository
	Tx          txRunner
	Session     sessionManager
	JWTConfig   config.JWTConfig
	PasswordCfg config.PasswordConfig
	App         config.AppConfig
	Features    config.FeatureFlagsConfig
	Now         func() time.Time
}

type service struct {
	users       users.Repository
	tx          txRunner
	session     sessionManager
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	app         config.AppConfig
	features    config.FeatureFlagsConfig
	now         func() time.Time
}

// NewService constructs an auth service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UsersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repo is required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction runner is required")
	}
	if params.Session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session manager is required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		users:       params.UsersRepo,
		tx:          params.Tx,
		session:     params.Session,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordCfg,
		app:         params.App,
		features:    params.Features,
		now:         now,
	}, nil
}

// Register opens a member account with the default role and logs it in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	profile, err := s.register(ctx, req, enums.AppRoleUser)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, profile, enums.AppRoleUser)
}

// RegisterAdmin creates the first staff account. The flow exists for
// bootstrap only: it is feature-flagged and refused outright in prod.
func (s *service) RegisterAdmin(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if !s.features.AllowAdminBootstrap || s.app.IsProd() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin bootstrap is disabled")
	}
	profile, err := s.register(ctx, req, enums.AppRoleAdmin)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, profile, enums.AppRoleAdmin)
}

func (s *service) register(ctx context.Context, req RegisterRequest, role enums.AppRole) (*models.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(req.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var fullName *string
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		if trimmed != "" {
			fullName = &trimmed
		}
	}

	profile := &models.Profile{
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)

		if _, err := repo.FindProfileByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
		}

		if _, err := repo.CreateProfile(ctx, profile); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create profile")
		}
		if err := repo.GrantRole(ctx, profile.ID, enums.AppRoleUser); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant default role")
		}
		if role == enums.AppRoleAdmin {
			if err := repo.GrantRole(ctx, profile.ID, enums.AppRoleAdmin); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant admin role")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Login authenticates the member and issues a token pair.
func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	profile, err := s.users.FindProfileByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup profile")
	}

	valid, err := security.VerifyPassword(req.Password, profile.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	role, err := s.resolveRole(ctx, profile.ID)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, profile, role)
}

// Logout drops the Redis session behind the token's JTI. The access token
// itself stays valid until expiry; middleware rejects it once the session
// is gone.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// Refresh rotates the refresh pair. The expired access token carries the
// identity; the refresh token proves session ownership.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	claims, err := pkgauth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token")
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	profile, err := s.users.FindProfileByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account no longer exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup profile")
	}

	role, err := s.resolveRole(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: profile.ID,
		Email:  profile.Email,
		Role:   role,
		JTI:    newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	roles, err := s.users.ListRoles(ctx, profile.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list roles")
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		User:         users.ToProfileDTO(profile, roles),
	}, nil
}

// resolveRole picks the strongest granted role for the token.
func (s *service) resolveRole(ctx context.Context, userID uuid.UUID) (enums.AppRole, error) {
	isAdmin, err := s.users.HasRole(ctx, userID, enums.AppRoleAdmin)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve role")
	}
	if isAdmin {
		return enums.AppRoleAdmin, nil
	}
	return enums.AppRoleUser, nil
}

func (s *service) issueTokens(ctx context.Context, profile *models.Profile, role enums.AppRole) (*AuthResponse, error) {
	accessID := session.NewAccessID()
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, s.now(), pkgauth.AccessTokenPayload{
		UserID: profile.ID,
		Email:  profile.Email,
		Role:   role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	roles, err := s.users.ListRoles(ctx, profile.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list roles")
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.ToProfileDTO(profile, roles),
	}, nil
}
