package repository

import (
	"context"
	"time"

	"github.com/yukikurage/hierarchy-api/internal/database"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/utils"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByResetToken finds a user by a still valid reset token hash
func (r *GormUserRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_expire > ?", tokenHash, now).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// List lists users within the filter, newest first
func (r *GormUserRepository) List(ctx context.Context, filter ScopeFilter, page utils.PaginationParams) ([]models.User, int64, error) {
	query := scoped(r.db.WithContext(ctx).Model(&models.User{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := query.Scopes(database.Paginate(page)).Order("id DESC").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update updates a user guarded by its version
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	expected := user.Version
	user.Version++
	if err := updateVersioned(ctx, r.db, user, expected); err != nil {
		user.Version = expected
		return err
	}
	return nil
}

// Delete deletes a user
func (r *GormUserRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, id).Error
}

// DeleteByOwner deletes every user placed in the owner
func (r *GormUserRepository) DeleteByOwner(ctx context.Context, kind models.OwnerKind, ownerID uint64) (int64, error) {
	column, err := ownerColumn(kind)
	if err != nil {
		return 0, err
	}
	result := r.db.WithContext(ctx).Where(column+" = ?", ownerID).Delete(&models.User{})
	return result.RowsAffected, result.Error
}

// ReleaseTenant clears the tenant of every user still pointing at the parent
func (r *GormUserRepository) ReleaseTenant(ctx context.Context, parentID uint64) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).
		Where("tenant_id = ?", parentID).
		Updates(map[string]any{
			"tenant_id": nil,
			"version":   gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}
