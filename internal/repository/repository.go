package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/utils"
)

// ErrVersionConflict is returned when a versioned update matched no row because
// the record changed since it was read.
var ErrVersionConflict = errors.New("repository: version conflict")

// ScopeFilter restricts list queries to records owned by a parent or a set of branches.
// An empty filter matches nothing.
type ScopeFilter struct {
	ParentID  *uint64
	BranchIDs []uint64
}

// Empty reports whether the filter cannot match any record.
func (f ScopeFilter) Empty() bool {
	return f.ParentID == nil && len(f.BranchIDs) == 0
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindByResetToken finds the user holding the hashed reset token, if it has not expired at now
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)

	// List lists users placed in the filter's parent or branches
	List(ctx context.Context, filter ScopeFilter, page utils.PaginationParams) ([]models.User, int64, error)

	// Update writes every mutable column if the stored version still matches
	Update(ctx context.Context, user *models.User) error

	// Delete hard deletes a user
	Delete(ctx context.Context, id uint64) error

	// DeleteByOwner hard deletes every user placed in the given owner
	DeleteByOwner(ctx context.Context, kind models.OwnerKind, ownerID uint64) (int64, error)

	// ReleaseTenant detaches the remaining users of a parent from it
	ReleaseTenant(ctx context.Context, parentID uint64) (int64, error)
}

// ParentRepository defines the interface for parent data access
type ParentRepository interface {
	// Create creates a new parent
	Create(ctx context.Context, parent *models.Parent) error

	// FindByID finds a parent by ID
	FindByID(ctx context.Context, id uint64) (*models.Parent, error)

	// FindByAdminID finds the parent owned by an admin
	FindByAdminID(ctx context.Context, adminID uint64) (*models.Parent, error)

	// Update writes every mutable column if the stored version still matches
	Update(ctx context.Context, parent *models.Parent) error

	// Delete hard deletes a parent
	Delete(ctx context.Context, id uint64) error
}

// BranchRepository defines the interface for branch data access
type BranchRepository interface {
	// Create creates a new branch
	Create(ctx context.Context, branch *models.Branch) error

	// FindByID finds a branch by ID
	FindByID(ctx context.Context, id uint64) (*models.Branch, error)

	// FindByManagerID finds the branch managed by a user
	FindByManagerID(ctx context.Context, managerID uint64) (*models.Branch, error)

	// ListByParent lists branches pointing at the parent or listed in ids
	ListByParent(ctx context.Context, parentID uint64, ids []uint64) ([]models.Branch, error)

	// List lists branches matching the filter
	List(ctx context.Context, filter ScopeFilter, page utils.PaginationParams) ([]models.Branch, int64, error)

	// Update writes every mutable column if the stored version still matches
	Update(ctx context.Context, branch *models.Branch) error

	// ClearManager unsets the manager of every branch managed by the user
	ClearManager(ctx context.Context, managerID uint64) error

	// Delete hard deletes a branch
	Delete(ctx context.Context, id uint64) error
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// Create creates a new product
	Create(ctx context.Context, product *models.Product) error

	// FindByID finds a product by ID
	FindByID(ctx context.Context, id uint64) (*models.Product, error)

	// List lists products owned by the filter's parent or branches
	List(ctx context.Context, filter ScopeFilter, page utils.PaginationParams) ([]models.Product, int64, error)

	// Update writes every mutable column if the stored version still matches
	Update(ctx context.Context, product *models.Product) error

	// Delete hard deletes a product
	Delete(ctx context.Context, id uint64) error

	// DeleteByOwner hard deletes every product owned by the given owner
	DeleteByOwner(ctx context.Context, kind models.OwnerKind, ownerID uint64) (int64, error)
}

// Store groups the repositories and runs units of work across them.
type Store interface {
	Users() UserRepository
	Parents() ParentRepository
	Branches() BranchRepository
	Products() ProductRepository

	// Transaction runs fn with a Store bound to a single database transaction.
	// Any error returned by fn rolls the transaction back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
