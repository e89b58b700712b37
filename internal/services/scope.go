package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/repository"
	"gorm.io/gorm"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// OrphanPolicy decides access to records that belong to neither a parent nor a branch.
type OrphanPolicy string

// Unplaced users that carry a tenant stay reachable from that tenant under
// either policy.
const (
	// OrphanPermissive lets an actor whose scope is empty act on records with
	// no parent, branch or tenant.
	OrphanPermissive OrphanPolicy = "permissive"
	// OrphanStrict denies every actor access to such records.
	OrphanStrict OrphanPolicy = "strict"
)

type TargetKind string

const (
	TargetParent  TargetKind = "parent"
	TargetBranch  TargetKind = "branch"
	TargetUser    TargetKind = "user"
	TargetProduct TargetKind = "product"
)

// Target describes the ownership of a record an actor wants to act on.
type Target struct {
	Kind     TargetKind
	ID       uint64
	ParentID *uint64
	BranchID *uint64
	TenantID *uint64
}

// Orphan reports whether the target is neither placed nor tied to a tenant.
func (t Target) Orphan() bool {
	return t.ParentID == nil && t.BranchID == nil && t.TenantID == nil
}

func (t Target) placed() bool {
	return t.ParentID != nil || t.BranchID != nil
}

func TargetOfParent(p *models.Parent) Target {
	return Target{Kind: TargetParent, ID: p.ID, ParentID: &p.ID}
}

func TargetOfBranch(b *models.Branch) Target {
	return Target{Kind: TargetBranch, ID: b.ID, ParentID: &b.ParentID, BranchID: &b.ID}
}

// TargetOfUser describes a user by its own placement. Use ScopeResolver.UserTarget
// for managers, who are scoped through the branch they run.
func TargetOfUser(u *models.User) Target {
	return Target{Kind: TargetUser, ID: u.ID, ParentID: u.ParentID, BranchID: u.BranchID, TenantID: u.TenantID}
}

func TargetOfProduct(p *models.Product) Target {
	return Target{Kind: TargetProduct, ID: p.ID, ParentID: p.ParentID, BranchID: p.BranchID}
}

func targetOfOwner(owner models.Owner) Target {
	switch o := owner.(type) {
	case *models.Parent:
		return TargetOfParent(o)
	case *models.Branch:
		return TargetOfBranch(o)
	default:
		return Target{}
	}
}

// Scope is the set of records an actor can see.
type Scope struct {
	Actor     Actor
	ParentID  *uint64
	BranchIDs []uint64
	// TenantID is the parent at the top of the actor's hierarchy.
	TenantID  *uint64

	// Owner receives records the actor creates.
	Owner models.Owner
}

// Filter converts the scope for repository list queries.
func (s *Scope) Filter() repository.ScopeFilter {
	return repository.ScopeFilter{
		ParentID:  s.ParentID,
		BranchIDs: s.BranchIDs,
	}
}

// Empty reports whether the scope reaches no parent and no branch.
func (s *Scope) Empty() bool {
	return s.ParentID == nil && len(s.BranchIDs) == 0
}

// Covers reports whether a placed target lies inside the scope.
func (s *Scope) Covers(t Target) bool {
	if t.ParentID != nil && s.ParentID != nil && *t.ParentID == *s.ParentID {
		return true
	}
	if t.BranchID != nil {
		for _, id := range s.BranchIDs {
			if id == *t.BranchID {
				return true
			}
		}
	}
	return false
}

type scopeHandler func(ctx context.Context, store repository.Store, actor Actor) (*Scope, error)

// ScopeResolver computes actor scopes and authorizes actions against them.
type ScopeResolver struct {
	store    repository.Store
	orphans  OrphanPolicy
	handlers map[models.Role]scopeHandler
}

func NewScopeResolver(store repository.Store, orphans OrphanPolicy) *ScopeResolver {
	if orphans == "" {
		orphans = OrphanPermissive
	}
	return &ScopeResolver{
		store:   store,
		orphans: orphans,
		handlers: map[models.Role]scopeHandler{
			models.RoleAdmin:     adminScope,
			models.RoleManager:   managerScope,
			models.RolePublisher: publisherScope,
			models.RoleNoRole:    noRoleScope,
		},
	}
}

// Resolve computes the scope of the actor.
func (r *ScopeResolver) Resolve(ctx context.Context, actor Actor) (*Scope, error) {
	return r.resolveWith(ctx, r.store, actor)
}

func (r *ScopeResolver) resolveWith(ctx context.Context, store repository.Store, actor Actor) (*Scope, error) {
	handler, ok := r.handlers[actor.Role]
	if !ok {
		recordDenial("unknown_role")
		return nil, fmt.Errorf("role %q: %w", actor.Role, ErrForbidden)
	}
	return handler(ctx, store, actor)
}

// Authorize resolves the actor scope and checks action on target.
func (r *ScopeResolver) Authorize(ctx context.Context, actor Actor, action Action, target Target) error {
	scope, err := r.Resolve(ctx, actor)
	if err != nil {
		return err
	}
	return r.Check(ctx, scope, action, target)
}

// Check authorizes action on target within an already resolved scope.
// Reads outside the scope report NotFound so existence is not leaked.
func (r *ScopeResolver) Check(ctx context.Context, scope *Scope, action Action, target Target) error {
	switch {
	case target.Orphan():
		if r.orphans == OrphanPermissive && scope.Empty() {
			return nil
		}
		return r.deny(ctx, scope, action, target, "orphan")
	case target.placed():
		if scope.Covers(target) {
			return nil
		}
	case scope.TenantID != nil && *scope.TenantID == *target.TenantID:
		return nil
	}
	return r.deny(ctx, scope, action, target, "out_of_scope")
}

// UserTarget describes u for authorization. A manager running a branch is
// scoped to that branch.
func (r *ScopeResolver) UserTarget(ctx context.Context, store repository.Store, u *models.User) (Target, error) {
	target := TargetOfUser(u)
	if u.Role != models.RoleManager || target.placed() {
		return target, nil
	}
	branch, err := store.Branches().FindByManagerID(ctx, u.ID)
	switch {
	case err == nil:
		target.ParentID = &branch.ParentID
		target.BranchID = &branch.ID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return Target{}, fmt.Errorf("failed to load managed branch: %w", err)
	}
	return target, nil
}

// AuthorizeUser resolves the actor scope and checks action on u.
func (r *ScopeResolver) AuthorizeUser(ctx context.Context, actor Actor, action Action, u *models.User) error {
	target, err := r.UserTarget(ctx, r.store, u)
	if err != nil {
		return err
	}
	return r.Authorize(ctx, actor, action, target)
}

func (r *ScopeResolver) deny(ctx context.Context, scope *Scope, action Action, target Target, reason string) error {
	recordDenial(reason)
	logWithFields(ctx, logrus.InfoLevel, "scope denied", logrus.Fields{
		"actor_id":  scope.Actor.ID,
		"role":      scope.Actor.Role,
		"action":    action,
		"target":    target.Kind,
		"target_id": target.ID,
		"reason":    reason,
	})
	if action == ActionRead {
		return notFound(string(target.Kind))
	}
	return fmt.Errorf("%s %d: %w", target.Kind, target.ID, ErrForbidden)
}

func adminScope(ctx context.Context, store repository.Store, actor Actor) (*Scope, error) {
	parent, err := store.Parents().FindByAdminID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "parent")
	}
	return &Scope{
		Actor:     actor,
		ParentID:  &parent.ID,
		BranchIDs: append([]uint64(nil), parent.BranchIDs...),
		TenantID:  &parent.ID,
		Owner:     parent,
	}, nil
}

func managerScope(ctx context.Context, store repository.Store, actor Actor) (*Scope, error) {
	branch, err := store.Branches().FindByManagerID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "managed branch")
	}
	return &Scope{
		Actor:     actor,
		BranchIDs: []uint64{branch.ID},
		TenantID:  &branch.ParentID,
		Owner:     branch,
	}, nil
}

func publisherScope(ctx context.Context, store repository.Store, actor Actor) (*Scope, error) {
	switch {
	case actor.BranchID != nil:
		branch, err := store.Branches().FindByID(ctx, *actor.BranchID)
		if err != nil {
			return nil, placementErr(err)
		}
		return &Scope{Actor: actor, BranchIDs: []uint64{branch.ID}, TenantID: &branch.ParentID, Owner: branch}, nil
	case actor.ParentID != nil:
		parent, err := store.Parents().FindByID(ctx, *actor.ParentID)
		if err != nil {
			return nil, placementErr(err)
		}
		return &Scope{Actor: actor, ParentID: &parent.ID, TenantID: &parent.ID, Owner: parent}, nil
	default:
		recordDenial("unassigned")
		return nil, ErrUnassigned
	}
}

func noRoleScope(_ context.Context, _ repository.Store, actor Actor) (*Scope, error) {
	recordDenial("norole")
	return nil, fmt.Errorf("role %q: %w", actor.Role, ErrForbidden)
}

// placementErr treats a placement pointing at a vanished owner as no placement.
func placementErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUnassigned
	}
	return fmt.Errorf("failed to load placement: %w", err)
}
