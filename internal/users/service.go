package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/pkg/auth"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
	pkgerrors "github.com/fami1212/modern-e-library-hub/pkg/errors"
)

// capabilityRoles maps each privileged action onto the role that may take it.
var capabilityRoles = map[enums.Capability]enums.AppRole{
	enums.CapabilityManageBooks:         enums.AppRoleAdmin,
	enums.CapabilityValidateBorrowings:  enums.AppRoleAdmin,
	enums.CapabilityViewAllBorrowings:   enums.AppRoleAdmin,
	enums.CapabilityModerateReviews:     enums.AppRoleAdmin,
	enums.CapabilityManageConversations: enums.AppRoleAdmin,
}

// Authorize checks whether the caller may take the named privileged action.
// Identity carries the role resolved at token issue time, so this is a pure
// check with no storage round trip.
func Authorize(ident auth.Identity, capability enums.Capability) error {
	if ident.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	required, ok := capabilityRoles[capability]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown capability")
	}
	if ident.Role != required {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role for "+capability.String())
	}
	return nil
}

// Service exposes profile reads and edits.
type Service interface {
	GetProfile(ctx context.Context, ident auth.Identity, userID uuid.UUID) (ProfileDTO, error)
	UpdateProfile(ctx context.Context, ident auth.Identity, input UpdateProfileInput) (ProfileDTO, error)
}

type service struct {
	repo Repository
}

// NewService builds a users service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repo is required")
	}
	return &service{repo: repo}, nil
}

// GetProfile returns a member profile; members may read only themselves,
// admins may read anyone.
func (s *service) GetProfile(ctx context.Context, ident auth.Identity, userID uuid.UUID) (ProfileDTO, error) {
	if ident.UserID == uuid.Nil {
		return ProfileDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if userID == uuid.Nil {
		userID = ident.UserID
	}
	if userID != ident.UserID && !ident.IsAdmin() {
		return ProfileDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "cannot read another member's profile")
	}

	profile, err := s.repo.FindProfileByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProfileDTO{}, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
		}
		return ProfileDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load profile")
	}
	roles, err := s.repo.ListRoles(ctx, userID)
	if err != nil {
		return ProfileDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load roles")
	}
	return ToProfileDTO(profile, roles), nil
}

// UpdateProfile edits the caller's own profile fields.
func (s *service) UpdateProfile(ctx context.Context, ident auth.Identity, input UpdateProfileInput) (ProfileDTO, error) {
	if ident.UserID == uuid.Nil {
		return ProfileDTO{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	updates := map[string]any{}
	if input.FullName != nil {
		trimmed := strings.TrimSpace(*input.FullName)
		if trimmed == "" {
			updates["full_name"] = nil
		} else {
			updates["full_name"] = trimmed
		}
	}
	if input.AvatarURL != nil {
		updates["avatar_url"] = *input.AvatarURL
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateProfile(ctx, ident.UserID, updates); err != nil {
			return ProfileDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
		}
	}
	return s.GetProfile(ctx, ident, ident.UserID)
}
