package repository

import (
	"context"

	"github.com/yukikurage/hierarchy-api/internal/database"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/utils"
	"gorm.io/gorm"
)

// GormBranchRepository is a GORM implementation of BranchRepository
type GormBranchRepository struct {
	db *gorm.DB
}

// NewBranchRepository creates a new BranchRepository
func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &GormBranchRepository{db: db}
}

// Create creates a new branch
func (r *GormBranchRepository) Create(ctx context.Context, branch *models.Branch) error {
	return r.db.WithContext(ctx).Create(branch).Error
}

// FindByID finds a branch by ID
func (r *GormBranchRepository) FindByID(ctx context.Context, id uint64) (*models.Branch, error) {
	var branch models.Branch
	if err := r.db.WithContext(ctx).First(&branch, id).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

// FindByManagerID finds the branch managed by the user
func (r *GormBranchRepository) FindByManagerID(ctx context.Context, managerID uint64) (*models.Branch, error) {
	var branch models.Branch
	if err := r.db.WithContext(ctx).Where("manager_id = ?", managerID).First(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

// ListByParent lists branches pointing at the parent or listed in ids
func (r *GormBranchRepository) ListByParent(ctx context.Context, parentID uint64, ids []uint64) ([]models.Branch, error) {
	query := r.db.WithContext(ctx)
	if len(ids) > 0 {
		query = query.Where("parent_id = ? OR id IN ?", parentID, ids)
	} else {
		query = query.Where("parent_id = ?", parentID)
	}

	var branches []models.Branch
	if err := query.Order("id DESC").Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

// List lists branches matching the filter, newest first
func (r *GormBranchRepository) List(ctx context.Context, filter ScopeFilter, page utils.PaginationParams) ([]models.Branch, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Branch{})
	switch {
	case filter.Empty():
		query = query.Where("1 = 0")
	case filter.ParentID != nil && len(filter.BranchIDs) > 0:
		query = query.Where("parent_id = ? OR id IN ?", *filter.ParentID, filter.BranchIDs)
	case filter.ParentID != nil:
		query = query.Where("parent_id = ?", *filter.ParentID)
	default:
		query = query.Where("id IN ?", filter.BranchIDs)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var branches []models.Branch
	if err := query.Scopes(database.Paginate(page)).Order("id DESC").Find(&branches).Error; err != nil {
		return nil, 0, err
	}
	return branches, total, nil
}

// Update updates a branch guarded by its version
func (r *GormBranchRepository) Update(ctx context.Context, branch *models.Branch) error {
	expected := branch.Version
	branch.Version++
	if err := updateVersioned(ctx, r.db, branch, expected); err != nil {
		branch.Version = expected
		return err
	}
	return nil
}

// ClearManager unsets the manager on branches managed by the user
func (r *GormBranchRepository) ClearManager(ctx context.Context, managerID uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.Branch{}).
		Where("manager_id = ?", managerID).
		Updates(map[string]interface{}{
			"manager_id": nil,
			"version":    gorm.Expr("version + 1"),
		}).Error
}

// Delete deletes a branch
func (r *GormBranchRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Branch{}, id).Error
}
