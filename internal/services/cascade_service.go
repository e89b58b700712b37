package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/hierarchy-api/internal/constants"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/repository"
	"github.com/yukikurage/hierarchy-api/internal/storage"
)

// CascadeService deletes entities together with everything that depends on them.
//
// Every deletion runs in one transaction. Inside it the referenced side is always
// removed before the reference to it is cleared, and children go before parents.
type CascadeService struct {
	store    repository.Store
	resolver *ScopeResolver
	blobs    storage.BlobStore
}

// NewCascadeService creates a new CascadeService. blobs may be nil.
func NewCascadeService(store repository.Store, resolver *ScopeResolver, blobs storage.BlobStore) *CascadeService {
	return &CascadeService{
		store:    store,
		resolver: resolver,
		blobs:    blobs,
	}
}

type cascadeCounts struct {
	branches int64
	users    int64
	products int64
}

func (c cascadeCounts) record() {
	recordCascadeDelete("branch", c.branches)
	recordCascadeDelete("user", c.users)
	recordCascadeDelete("product", c.products)
}

// deleteOwnedBy removes the users and products placed in the owner.
func deleteOwnedBy(ctx context.Context, tx repository.Store, kind models.OwnerKind, id uint64, counts *cascadeCounts) error {
	users, err := tx.Users().DeleteByOwner(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("failed to delete users of %s %d: %w", kind, id, err)
	}
	products, err := tx.Products().DeleteByOwner(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("failed to delete products of %s %d: %w", kind, id, err)
	}
	counts.users += users
	counts.products += products
	return nil
}

// DeleteParent deletes the acting admin's parent, its branches, and every user and
// product under either. The admin account survives, as do unplaced users, which
// lose their tenant.
func (s *CascadeService) DeleteParent(ctx context.Context) error {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return err
	}

	var (
		counts   cascadeCounts
		parentID uint64
	)
	err = withConflictRetry(ctx, "delete_parent", func() error {
		counts = cascadeCounts{}
		return s.store.Transaction(ctx, func(tx repository.Store) error {
			parent, err := tx.Parents().FindByAdminID(ctx, actor.ID)
			if err != nil {
				return storeErr(err, "parent")
			}
			// Claim the current version so concurrent membership writes conflict.
			if err := tx.Parents().Update(ctx, parent); err != nil {
				return err
			}

			branches, err := tx.Branches().ListByParent(ctx, parent.ID, parent.BranchIDs)
			if err != nil {
				return fmt.Errorf("failed to list branches: %w", err)
			}
			for _, branch := range branches {
				if err := deleteOwnedBy(ctx, tx, models.OwnerBranch, branch.ID, &counts); err != nil {
					return err
				}
				if err := tx.Branches().Delete(ctx, branch.ID); err != nil {
					return fmt.Errorf("failed to delete branch %d: %w", branch.ID, err)
				}
				counts.branches++
			}

			if err := deleteOwnedBy(ctx, tx, models.OwnerParent, parent.ID, &counts); err != nil {
				return err
			}
			// unplaced users and managers survive without a tenant
			if _, err := tx.Users().ReleaseTenant(ctx, parent.ID); err != nil {
				return fmt.Errorf("failed to release users: %w", err)
			}
			if err := tx.Parents().Delete(ctx, parent.ID); err != nil {
				return fmt.Errorf("failed to delete parent: %w", err)
			}
			parentID = parent.ID
			return nil
		})
	})
	if err != nil {
		return err
	}

	counts.record()
	recordCascadeDelete("parent", 1)
	logWithFields(ctx, logrus.InfoLevel, "parent deleted", logrus.Fields{
		"parent_id": parentID,
		"branches":  counts.branches,
		"users":     counts.users,
		"products":  counts.products,
	})
	return nil
}

// DeleteBranch deletes a branch with its users and products and drops it from its parent.
func (s *CascadeService) DeleteBranch(ctx context.Context, id uint64) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}

	var counts cascadeCounts
	err = withConflictRetry(ctx, "delete_branch", func() error {
		counts = cascadeCounts{}
		return s.store.Transaction(ctx, func(tx repository.Store) error {
			branch, err := tx.Branches().FindByID(ctx, id)
			if err != nil {
				return storeErr(err, "branch")
			}
			scope, err := s.resolver.resolveWith(ctx, tx, actor)
			if err != nil {
				return err
			}
			if err := s.resolver.Check(ctx, scope, ActionDelete, TargetOfBranch(branch)); err != nil {
				return err
			}
			if err := tx.Branches().Update(ctx, branch); err != nil {
				return err
			}

			if err := deleteOwnedBy(ctx, tx, models.OwnerBranch, branch.ID, &counts); err != nil {
				return err
			}
			if err := tx.Branches().Delete(ctx, branch.ID); err != nil {
				return fmt.Errorf("failed to delete branch: %w", err)
			}
			counts.branches++

			parent, err := placementOwner(ctx, tx, &branch.ParentID, nil)
			if err != nil {
				return err
			}
			if parent == nil {
				return nil
			}
			p := parent.(*models.Parent)
			if !p.BranchIDs.Contains(branch.ID) {
				return nil
			}
			p.BranchIDs = p.BranchIDs.Remove(branch.ID)
			return tx.Parents().Update(ctx, p)
		})
	})
	if err != nil {
		return err
	}

	counts.record()
	logWithFields(ctx, logrus.InfoLevel, "branch deleted", logrus.Fields{
		"branch_id": id,
		"users":     counts.users,
		"products":  counts.products,
	})
	return nil
}

// DeleteUser deletes a user and removes it from its owner's members.
func (s *CascadeService) DeleteUser(ctx context.Context, id uint64) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}

	err = withConflictRetry(ctx, "delete_user", func() error {
		return s.store.Transaction(ctx, func(tx repository.Store) error {
			user, err := tx.Users().FindByID(ctx, id)
			if err != nil {
				return storeErr(err, "user")
			}
			if user.Role == models.RoleAdmin {
				return fmt.Errorf("admin accounts cannot be deleted: %w", ErrRoleProtected)
			}
			scope, err := s.resolver.resolveWith(ctx, tx, actor)
			if err != nil {
				return err
			}
			target, err := s.resolver.UserTarget(ctx, tx, user)
			if err != nil {
				return err
			}
			if err := s.resolver.Check(ctx, scope, ActionDelete, target); err != nil {
				return err
			}

			if err := tx.Users().Delete(ctx, user.ID); err != nil {
				return fmt.Errorf("failed to delete user: %w", err)
			}
			if err := tx.Branches().ClearManager(ctx, user.ID); err != nil {
				return fmt.Errorf("failed to clear manager: %w", err)
			}

			owner, err := placementOwner(ctx, tx, user.ParentID, user.BranchID)
			if err != nil || owner == nil {
				return err
			}
			members := owner.Members()
			if index := members.IndexOf(user.ID); index >= 0 {
				*members = members.RemoveAt(index)
				return saveOwner(ctx, tx, owner)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	recordCascadeDelete("user", 1)
	logWithFields(ctx, logrus.InfoLevel, "user deleted", logrus.Fields{"user_id": id})
	return nil
}

// DeleteProduct deletes a product, removes it from its owner and drops its stored images.
func (s *CascadeService) DeleteProduct(ctx context.Context, id uint64) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}

	var images models.StringList
	err = withConflictRetry(ctx, "delete_product", func() error {
		return s.store.Transaction(ctx, func(tx repository.Store) error {
			product, err := tx.Products().FindByID(ctx, id)
			if err != nil {
				return storeErr(err, "product")
			}
			scope, err := s.resolver.resolveWith(ctx, tx, actor)
			if err != nil {
				return err
			}
			if err := s.resolver.Check(ctx, scope, ActionDelete, TargetOfProduct(product)); err != nil {
				return err
			}

			if err := tx.Products().Delete(ctx, product.ID); err != nil {
				return fmt.Errorf("failed to delete product: %w", err)
			}
			images = product.Images

			owner, err := placementOwner(ctx, tx, product.ParentID, product.BranchID)
			if err != nil || owner == nil {
				return err
			}
			members := owner.ProductMembers()
			if index := members.IndexOf(product.ID); index >= 0 {
				*members = members.RemoveAt(index)
				return saveOwner(ctx, tx, owner)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	recordCascadeDelete("product", 1)
	s.dropImages(ctx, images)
	return nil
}

func (s *CascadeService) dropImages(ctx context.Context, images models.StringList) {
	if s.blobs == nil {
		return
	}
	for _, name := range images {
		if name == constants.DefaultProductImage {
			continue
		}
		if err := s.blobs.Delete(ctx, name); err != nil {
			logWithFields(ctx, logrus.WarnLevel, "failed to delete product image", logrus.Fields{
				"image": name,
				"error": err.Error(),
			})
		}
	}
}
