package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/repository"
)

// AssignmentService places users into parents and branches, keeping the user's
// placement and the owner's member list in sync.
type AssignmentService struct {
	store    repository.Store
	resolver *ScopeResolver
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(store repository.Store, resolver *ScopeResolver) *AssignmentService {
	return &AssignmentService{
		store:    store,
		resolver: resolver,
	}
}

// AssignInput identifies a user and the parent or branch it is placed in or removed from.
type AssignInput struct {
	UserID    uint64
	OwnerKind models.OwnerKind
	OwnerID   uint64
}

// canPlace gates who may change membership of each owner kind.
func canPlace(role models.Role, kind models.OwnerKind) bool {
	switch kind {
	case models.OwnerParent:
		return role == models.RoleAdmin
	case models.OwnerBranch:
		return role == models.RoleAdmin || role == models.RoleManager
	default:
		return false
	}
}

// Assign places the user into the owner and inserts it at the head of the owner's members.
func (s *AssignmentService) Assign(ctx context.Context, input AssignInput) (models.Owner, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !canPlace(actor.Role, input.OwnerKind) {
		return nil, fmt.Errorf("%s cannot assign to a %s: %w", actor.Role, input.OwnerKind, ErrForbidden)
	}

	var result models.Owner
	err = withConflictRetry(ctx, "assign", func() error {
		return s.store.Transaction(ctx, func(tx repository.Store) error {
			user, err := tx.Users().FindByID(ctx, input.UserID)
			if err != nil {
				return storeErr(err, "user")
			}
			owner, err := loadOwner(ctx, tx, input.OwnerKind, input.OwnerID)
			if err != nil {
				return err
			}
			if err := s.authorizeOwner(ctx, tx, actor, owner); err != nil {
				return err
			}

			if !user.Role.Assignable() {
				return fmt.Errorf("%s users cannot be placed: %w", user.Role, ErrRoleNotAssignable)
			}
			if err := checkTenant(user, owner); err != nil {
				return err
			}
			members := owner.Members()
			if members.Contains(user.ID) {
				return fmt.Errorf("user %d in %s %d: %w", user.ID, owner.OwnerKind(), owner.OwnerID(), ErrAlreadyMember)
			}
			if user.Placed() {
				return fmt.Errorf("user %d: %w", user.ID, ErrAlreadyAssigned)
			}

			id, tenant := owner.OwnerID(), owner.TenantID()
			switch owner.OwnerKind() {
			case models.OwnerParent:
				user.ParentID = &id
			case models.OwnerBranch:
				user.BranchID = &id
			}
			user.TenantID = &tenant
			*members = members.Prepend(user.ID)

			if err := tx.Users().Update(ctx, user); err != nil {
				return err
			}
			if err := saveOwner(ctx, tx, owner); err != nil {
				return err
			}
			result = owner
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logWithFields(ctx, logrus.InfoLevel, "user assigned", logrus.Fields{
		"user_id":    input.UserID,
		"owner_kind": input.OwnerKind,
		"owner_id":   input.OwnerID,
	})
	return result, nil
}

// Unassign removes the user from the owner's members by position and clears its placement.
func (s *AssignmentService) Unassign(ctx context.Context, input AssignInput) (models.Owner, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !canPlace(actor.Role, input.OwnerKind) {
		return nil, fmt.Errorf("%s cannot unassign from a %s: %w", actor.Role, input.OwnerKind, ErrForbidden)
	}

	var result models.Owner
	err = withConflictRetry(ctx, "unassign", func() error {
		return s.store.Transaction(ctx, func(tx repository.Store) error {
			user, err := tx.Users().FindByID(ctx, input.UserID)
			if err != nil {
				return storeErr(err, "user")
			}
			owner, err := loadOwner(ctx, tx, input.OwnerKind, input.OwnerID)
			if err != nil {
				return err
			}
			if err := s.authorizeOwner(ctx, tx, actor, owner); err != nil {
				return err
			}
			if !user.Role.Assignable() {
				return fmt.Errorf("%s users are not placed: %w", user.Role, ErrRoleNotAssignable)
			}

			members := owner.Members()
			index := members.IndexOf(user.ID)
			if index < 0 {
				return fmt.Errorf("user %d in %s %d: %w", user.ID, owner.OwnerKind(), owner.OwnerID(), ErrNotAMember)
			}
			*members = members.RemoveAt(index)

			// the user stays in the tenant while unplaced
			id, tenant := owner.OwnerID(), owner.TenantID()
			user.TenantID = &tenant
			switch owner.OwnerKind() {
			case models.OwnerParent:
				if user.ParentID != nil && *user.ParentID == id {
					user.ParentID = nil
				}
			case models.OwnerBranch:
				if user.BranchID != nil && *user.BranchID == id {
					user.BranchID = nil
				}
			}

			if err := tx.Users().Update(ctx, user); err != nil {
				return err
			}
			if err := saveOwner(ctx, tx, owner); err != nil {
				return err
			}
			result = owner
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logWithFields(ctx, logrus.InfoLevel, "user unassigned", logrus.Fields{
		"user_id":    input.UserID,
		"owner_kind": input.OwnerKind,
		"owner_id":   input.OwnerID,
	})
	return result, nil
}

// checkTenant rejects placing a user that belongs to another tenant.
// Users without a tenant are claimed by the owner's tenant.
func checkTenant(user *models.User, owner models.Owner) error {
	if user.TenantID != nil && *user.TenantID != owner.TenantID() {
		return fmt.Errorf("user %d belongs to another parent: %w", user.ID, ErrForbidden)
	}
	return nil
}

func (s *AssignmentService) authorizeOwner(ctx context.Context, tx repository.Store, actor Actor, owner models.Owner) error {
	scope, err := s.resolver.resolveWith(ctx, tx, actor)
	if err != nil {
		return err
	}
	return s.resolver.Check(ctx, scope, ActionUpdate, targetOfOwner(owner))
}
