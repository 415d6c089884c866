package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fami1212/modern-e-library-hub/pkg/db/models"
	"github.com/fami1212/modern-e-library-hub/pkg/enums"
)

// Repository defines persistence for profiles and role grants.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	FindProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	FindProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error
	GrantRole(ctx context.Context, userID uuid.UUID, role enums.AppRole) error
	ListRoles(ctx context.Context, userID uuid.UUID) ([]enums.AppRole, error)
	HasRole(ctx context.Context, userID uuid.UUID, role enums.AppRole) (bool, error)
	CountProfiles(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a users repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProfile(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *repository) FindProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindProfileByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("lower(email) = lower(?)", email).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// GrantRole inserts a role grant and ignores duplicates.
func (r *repository) GrantRole(ctx context.Context, userID uuid.UUID, role enums.AppRole) error {
	return r.db.WithContext(ctx).
		Exec(`INSERT INTO user_roles (user_id, role) VALUES (?, ?) ON CONFLICT (user_id, role) DO NOTHING`, userID, role).
		Error
}

func (r *repository) ListRoles(ctx context.Context, userID uuid.UUID) ([]enums.AppRole, error) {
	var roles []enums.AppRole
	err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ?", userID).
		Order("role ASC").
		Pluck("role", &roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *repository) HasRole(ctx context.Context, userID uuid.UUID, role enums.AppRole) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) CountProfiles(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
