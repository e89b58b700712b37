package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/repository"
	"gorm.io/gorm"
)

func loadOwner(ctx context.Context, store repository.Store, kind models.OwnerKind, id uint64) (models.Owner, error) {
	switch kind {
	case models.OwnerParent:
		parent, err := store.Parents().FindByID(ctx, id)
		if err != nil {
			return nil, storeErr(err, "parent")
		}
		return parent, nil
	case models.OwnerBranch:
		branch, err := store.Branches().FindByID(ctx, id)
		if err != nil {
			return nil, storeErr(err, "branch")
		}
		return branch, nil
	default:
		return nil, invalidField("owner_kind", "must be one of parent branch")
	}
}

func saveOwner(ctx context.Context, store repository.Store, owner models.Owner) error {
	switch o := owner.(type) {
	case *models.Parent:
		return store.Parents().Update(ctx, o)
	case *models.Branch:
		return store.Branches().Update(ctx, o)
	default:
		return fmt.Errorf("unsupported owner %T", owner)
	}
}

// placementOwner loads the parent or branch a user or product points at.
// A missing owner yields nil so cleanup of dangling references stays a no-op.
func placementOwner(ctx context.Context, store repository.Store, parentID, branchID *uint64) (models.Owner, error) {
	var (
		owner models.Owner
		err   error
	)
	switch {
	case branchID != nil:
		owner, err = loadOwner(ctx, store, models.OwnerBranch, *branchID)
	case parentID != nil:
		owner, err = loadOwner(ctx, store, models.OwnerParent, *parentID)
	default:
		return nil, nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return owner, err
}
