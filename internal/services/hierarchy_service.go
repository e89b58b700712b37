package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/repository"
	"github.com/yukikurage/hierarchy-api/internal/utils"
	"gorm.io/gorm"
)

// HierarchyService manages parents and their branches.
type HierarchyService struct {
	store    repository.Store
	resolver *ScopeResolver
}

// NewHierarchyService creates a new HierarchyService.
func NewHierarchyService(store repository.Store, resolver *ScopeResolver) *HierarchyService {
	return &HierarchyService{
		store:    store,
		resolver: resolver,
	}
}

type AddressInput struct {
	Street          string `json:"street" validate:"required"`
	StreetAditional string `json:"street_aditional"`
	District        string `json:"district" validate:"required"`
	City            string `json:"city" validate:"required"`
	State           string `json:"state" validate:"required"`
	Country         string `json:"country" validate:"required"`
	ZipCode         string `json:"zip_code" validate:"required"`
}

type ContactInput struct {
	Phone string `json:"phone"`
	Email string `json:"email" validate:"omitempty,email"`
}

// ProfileInput holds the profile of a parent or a branch.
type ProfileInput struct {
	Name    string       `json:"name" validate:"required"`
	Address AddressInput `json:"address"`
	Contact ContactInput `json:"contact"`
}

func (in ProfileInput) address() models.Address {
	return models.Address{
		Street:          strings.TrimSpace(in.Address.Street),
		StreetAditional: strings.TrimSpace(in.Address.StreetAditional),
		District:        strings.TrimSpace(in.Address.District),
		City:            strings.TrimSpace(in.Address.City),
		State:           strings.TrimSpace(in.Address.State),
		Country:         strings.TrimSpace(in.Address.Country),
		ZipCode:         strings.TrimSpace(in.Address.ZipCode),
	}
}

func (in ProfileInput) contact() models.Contact {
	return models.Contact{
		Phone: strings.TrimSpace(in.Contact.Phone),
		Email: strings.TrimSpace(in.Contact.Email),
	}
}

func requireAdmin(ctx context.Context) (Actor, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return Actor{}, err
	}
	if actor.Role != models.RoleAdmin {
		return Actor{}, fmt.Errorf("admin role required: %w", ErrForbidden)
	}
	return actor, nil
}

// CreateParent creates the parent owned by the acting admin. An admin owns at most one parent.
// The admin is the owner, not a member, so its own placement stays empty.
func (s *HierarchyService) CreateParent(ctx context.Context, input ProfileInput) (*models.Parent, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	if _, err := s.store.Parents().FindByAdminID(ctx, actor.ID); err == nil {
		return nil, fmt.Errorf("admin already owns a parent: %w", ErrAlreadyAssigned)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check parent: %w", err)
	}

	parent := &models.Parent{
		Name:       strings.TrimSpace(input.Name),
		Address:    input.address(),
		Contact:    input.contact(),
		AdminID:    actor.ID,
		BranchIDs:  models.IDList{},
		UserIDs:    models.IDList{},
		ProductIDs: models.IDList{},
	}
	if err := s.store.Parents().Create(ctx, parent); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("admin already owns a parent: %w", ErrAlreadyAssigned)
		}
		return nil, fmt.Errorf("failed to create parent: %w", err)
	}

	logWithFields(ctx, logrus.InfoLevel, "parent created", logrus.Fields{"parent_id": parent.ID, "admin_id": actor.ID})
	return parent, nil
}

// GetParent returns the parent owned by the acting admin.
func (s *HierarchyService) GetParent(ctx context.Context) (*models.Parent, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	parent, err := s.store.Parents().FindByAdminID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "parent")
	}
	return parent, nil
}

// UpdateParent replaces the profile of the acting admin's parent.
func (s *HierarchyService) UpdateParent(ctx context.Context, input ProfileInput) (*models.Parent, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var parent *models.Parent
	err = withConflictRetry(ctx, "update_parent", func() error {
		p, err := s.store.Parents().FindByAdminID(ctx, actor.ID)
		if err != nil {
			return storeErr(err, "parent")
		}
		p.Name = strings.TrimSpace(input.Name)
		p.Address = input.address()
		p.Contact = input.contact()
		if err := s.store.Parents().Update(ctx, p); err != nil {
			return err
		}
		parent = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parent, nil
}

// CreateBranch creates a branch under the acting admin's parent and records it
// at the head of the parent's branch list.
func (s *HierarchyService) CreateBranch(ctx context.Context, input ProfileInput) (*models.Branch, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var branch *models.Branch
	err = withConflictRetry(ctx, "create_branch", func() error {
		return s.store.Transaction(ctx, func(tx repository.Store) error {
			parent, err := tx.Parents().FindByAdminID(ctx, actor.ID)
			if err != nil {
				return storeErr(err, "parent")
			}

			b := &models.Branch{
				ParentID:   parent.ID,
				Name:       strings.TrimSpace(input.Name),
				Address:    input.address(),
				Contact:    input.contact(),
				UserIDs:    models.IDList{},
				ProductIDs: models.IDList{},
			}
			if err := tx.Branches().Create(ctx, b); err != nil {
				return fmt.Errorf("failed to create branch: %w", err)
			}

			parent.BranchIDs = parent.BranchIDs.Prepend(b.ID)
			if err := tx.Parents().Update(ctx, parent); err != nil {
				return err
			}
			branch = b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logWithFields(ctx, logrus.InfoLevel, "branch created", logrus.Fields{"branch_id": branch.ID, "parent_id": branch.ParentID})
	return branch, nil
}

// ListBranches lists the branches visible to the actor.
func (s *HierarchyService) ListBranches(ctx context.Context, page utils.PaginationParams) ([]models.Branch, int64, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, 0, err
	}
	scope, err := s.resolver.Resolve(ctx, actor)
	if err != nil {
		return nil, 0, err
	}

	branches, total, err := s.store.Branches().List(ctx, scope.Filter(), page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, total, nil
}

// GetBranch returns a branch visible to the actor.
func (s *HierarchyService) GetBranch(ctx context.Context, id uint64) (*models.Branch, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	branch, err := s.store.Branches().FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "branch")
	}
	if err := s.resolver.Authorize(ctx, actor, ActionRead, TargetOfBranch(branch)); err != nil {
		return nil, err
	}
	return branch, nil
}

// UpdateBranch replaces the profile of a branch in the actor's scope.
func (s *HierarchyService) UpdateBranch(ctx context.Context, id uint64, input ProfileInput) (*models.Branch, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}

	var branch *models.Branch
	err = withConflictRetry(ctx, "update_branch", func() error {
		b, err := s.store.Branches().FindByID(ctx, id)
		if err != nil {
			return storeErr(err, "branch")
		}
		if err := s.resolver.Authorize(ctx, actor, ActionUpdate, TargetOfBranch(b)); err != nil {
			return err
		}
		b.Name = strings.TrimSpace(input.Name)
		b.Address = input.address()
		b.Contact = input.contact()
		if err := s.store.Branches().Update(ctx, b); err != nil {
			return err
		}
		branch = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return branch, nil
}

// SetBranchManager makes managerID the manager of the branch. Zero clears the manager.
// A manager runs a single branch.
func (s *HierarchyService) SetBranchManager(ctx context.Context, branchID, managerID uint64) (*models.Branch, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	var branch *models.Branch
	err = withConflictRetry(ctx, "set_manager", func() error {
		return s.store.Transaction(ctx, func(tx repository.Store) error {
			b, err := tx.Branches().FindByID(ctx, branchID)
			if err != nil {
				return storeErr(err, "branch")
			}
			scope, err := s.resolver.resolveWith(ctx, tx, actor)
			if err != nil {
				return err
			}
			if err := s.resolver.Check(ctx, scope, ActionUpdate, TargetOfBranch(b)); err != nil {
				return err
			}

			if managerID == 0 {
				b.ManagerID = nil
			} else {
				manager, err := tx.Users().FindByID(ctx, managerID)
				if err != nil {
					return storeErr(err, "user")
				}
				if manager.Role != models.RoleManager {
					return fmt.Errorf("only managers can run a branch: %w", ErrRoleNotAssignable)
				}
				if err := checkTenant(manager, b); err != nil {
					return err
				}
				managed, err := tx.Branches().FindByManagerID(ctx, managerID)
				switch {
				case err == nil && managed.ID != b.ID:
					return fmt.Errorf("manager already runs branch %d: %w", managed.ID, ErrAlreadyAssigned)
				case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
					return fmt.Errorf("failed to check managed branch: %w", err)
				}
				if manager.TenantID == nil {
					manager.TenantID = &b.ParentID
					if err := tx.Users().Update(ctx, manager); err != nil {
						return err
					}
				}
				b.ManagerID = &manager.ID
			}

			if err := tx.Branches().Update(ctx, b); err != nil {
				return err
			}
			branch = b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return branch, nil
}
