package repository

import (
	"context"
	"fmt"

	"github.com/yukikurage/hierarchy-api/internal/models"
	"gorm.io/gorm"
)

// GormStore is a GORM implementation of Store
type GormStore struct {
	db *gorm.DB
}

// NewStore creates a new Store
func NewStore(db *gorm.DB) Store {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserRepository       { return NewUserRepository(s.db) }
func (s *GormStore) Parents() ParentRepository   { return NewParentRepository(s.db) }
func (s *GormStore) Branches() BranchRepository  { return NewBranchRepository(s.db) }
func (s *GormStore) Products() ProductRepository { return NewProductRepository(s.db) }

// Transaction runs fn inside a database transaction
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// updateVersioned writes model if its row still carries the expected version.
// The caller bumps the model's Version field before calling.
func updateVersioned(ctx context.Context, db *gorm.DB, model any, expected uint64) error {
	result := db.WithContext(ctx).
		Model(model).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func ownerColumn(kind models.OwnerKind) (string, error) {
	switch kind {
	case models.OwnerParent:
		return "parent_id", nil
	case models.OwnerBranch:
		return "branch_id", nil
	default:
		return "", fmt.Errorf("repository: unknown owner kind %q", kind)
	}
}

// scoped restricts a users or products query to the filter.
func scoped(db *gorm.DB, filter ScopeFilter) *gorm.DB {
	switch {
	case filter.Empty():
		return db.Where("1 = 0")
	case filter.ParentID != nil && len(filter.BranchIDs) > 0:
		return db.Where("parent_id = ? OR branch_id IN ?", *filter.ParentID, filter.BranchIDs)
	case filter.ParentID != nil:
		return db.Where("parent_id = ?", *filter.ParentID)
	default:
		return db.Where("branch_id IN ?", filter.BranchIDs)
	}
}
