package repository

import (
	"context"

	"github.com/yukikurage/hierarchy-api/internal/models"
	"gorm.io/gorm"
)

// GormParentRepository is a GORM implementation of ParentRepository
type GormParentRepository struct {
	db *gorm.DB
}

// NewParentRepository creates a new ParentRepository
func NewParentRepository(db *gorm.DB) ParentRepository {
	return &GormParentRepository{db: db}
}

// Create creates a new parent
func (r *GormParentRepository) Create(ctx context.Context, parent *models.Parent) error {
	return r.db.WithContext(ctx).Create(parent).Error
}

// FindByID finds a parent by ID
func (r *GormParentRepository) FindByID(ctx context.Context, id uint64) (*models.Parent, error) {
	var parent models.Parent
	if err := r.db.WithContext(ctx).First(&parent, id).Error; err != nil {
		return nil, err
	}
	return &parent, nil
}

// FindByAdminID finds the parent owned by the admin
func (r *GormParentRepository) FindByAdminID(ctx context.Context, adminID uint64) (*models.Parent, error) {
	var parent models.Parent
	if err := r.db.WithContext(ctx).Where("admin_id = ?", adminID).First(&parent).Error; err != nil {
		return nil, err
	}
	return &parent, nil
}

// Update updates a parent guarded by its version
func (r *GormParentRepository) Update(ctx context.Context, parent *models.Parent) error {
	expected := parent.Version
	parent.Version++
	if err := updateVersioned(ctx, r.db, parent, expected); err != nil {
		parent.Version = expected
		return err
	}
	return nil
}

// Delete deletes a parent
func (r *GormParentRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Parent{}, id).Error
}
