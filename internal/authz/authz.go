package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/yukikurage/hierarchy-api/internal/models"
)

// Objects guarded by the role gate.
const (
	ObjectParents  = "parents"
	ObjectBranches = "branches"
	ObjectUsers    = "users"
	ObjectProducts = "products"
)

// Actions guarded by the role gate.
const (
	ActionRead         = "read"
	ActionCreate       = "create"
	ActionUpdate       = "update"
	ActionDelete       = "delete"
	ActionActivate     = "activate"
	ActionAssignParent = "assign_parent"
	ActionAssignBranch = "assign_branch"
	ActionSetManager   = "set_manager"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// DefaultPolicies is the route level allow list per role.
// norole holds no policy.
func DefaultPolicies() [][]string {
	admin := string(models.RoleAdmin)
	manager := string(models.RoleManager)
	publisher := string(models.RolePublisher)

	policies := [][]string{
		{admin, ObjectParents, ActionRead},
		{admin, ObjectParents, ActionCreate},
		{admin, ObjectParents, ActionUpdate},
		{admin, ObjectParents, ActionDelete},

		{admin, ObjectBranches, ActionRead},
		{manager, ObjectBranches, ActionRead},
		{admin, ObjectBranches, ActionCreate},
		{admin, ObjectBranches, ActionUpdate},
		{admin, ObjectBranches, ActionDelete},
		{admin, ObjectBranches, ActionSetManager},

		{admin, ObjectUsers, ActionRead},
		{manager, ObjectUsers, ActionRead},
		{admin, ObjectUsers, ActionCreate},
		{manager, ObjectUsers, ActionCreate},
		{admin, ObjectUsers, ActionDelete},
		{admin, ObjectUsers, ActionActivate},
		{admin, ObjectUsers, ActionAssignParent},
		{admin, ObjectUsers, ActionAssignBranch},
		{manager, ObjectUsers, ActionAssignBranch},
	}
	for _, role := range []string{admin, manager, publisher} {
		for _, act := range []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete} {
			policies = append(policies, []string{role, ObjectProducts, act})
		}
	}
	return policies
}

// RoleGate answers whether a role may perform an action on an object class.
type RoleGate struct {
	enforcer *casbin.SyncedEnforcer
}

// NewRoleGate builds an in-memory enforcer loaded with policies.
func NewRoleGate(policies [][]string) (*RoleGate, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("authz: parse model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("authz: create enforcer: %w", err)
	}
	if len(policies) > 0 {
		if _, err := enforcer.AddPolicies(policies); err != nil {
			return nil, fmt.Errorf("authz: load policies: %w", err)
		}
	}
	return &RoleGate{enforcer: enforcer}, nil
}

// Allowed reports whether role may perform act on obj.
func (g *RoleGate) Allowed(role models.Role, obj, act string) (bool, error) {
	return g.enforcer.Enforce(string(role), obj, act)
}
