package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
)

// ProfileDTO is the member view returned to API clients.
type ProfileDTO struct {
	ID        uuid.UUID       `json:"id"`
	Email     string          `json:"email"`
	FullName  *string         `json:"full_name,omitempty"`
	AvatarURL *string         `json:"avatar_url,omitempty"`
	Roles     []enums.AppRole `json:"roles"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// UpdateProfileInput carries the editable profile fields.
type UpdateProfileInput struct {
	FullName  *string `json:"full_name" validate:"omitempty,max=200"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=2048"`
}

// ToProfileDTO shapes a profile row and its granted roles for API output.
func ToProfileDTO(profile *models.Profile, roles []enums.AppRole) ProfileDTO {
	if roles == nil {
		roles = []enums.AppRole{}
	}
	return ProfileDTO{
		ID:        profile.ID,
		Email:     profile.Email,
		FullName:  profile.FullName,
		AvatarURL: profile.AvatarURL,
		Roles:     roles,
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}
}
