package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/fami1212/modern-e-library-hub/pkg/enums"
)

// UserRole grants a platform role to a member.
type UserRole struct {
	ID        uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID     `gorm:"column:user_id;type:uuid;not null;uniqueIndex:user_roles_user_role_key"`
	Role      enums.AppRole `gorm:"column:role;type:app_role;not null;default:'user';uniqueIndex:user_roles_user_role_key"`
	CreatedAt time.Time     `gorm:"column:created_at;autoCreateTime"`
}
