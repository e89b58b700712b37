package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/utils"
)

func TestHierarchyService_CreateParent(t *testing.T) {
	env := setupTestEnv(t)
	admin, parent := env.seedParent(t, "Acme")

	assert.Equal(t, admin.ID, parent.AdminID)
	assert.Equal(t, "Springfield", parent.Address.City)
	assert.Empty(t, parent.BranchIDs)
	assert.Empty(t, parent.UserIDs)
	assert.Empty(t, parent.ProductIDs)

	t.Run("one parent per admin", func(t *testing.T) {
		_, err := env.hierarchy.CreateParent(env.as(t, admin), profile("Acme again"))
		assert.ErrorIs(t, err, ErrAlreadyAssigned)
	})

	t.Run("admins only", func(t *testing.T) {
		manager := env.createUser(t, "manager", models.RoleManager)
		_, err := env.hierarchy.CreateParent(env.as(t, manager), profile("Rogue"))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("missing address fields", func(t *testing.T) {
		other := env.createUser(t, "other-admin", models.RoleAdmin)
		input := profile("Globex")
		input.Address.City = ""
		input.Address.ZipCode = ""
		input.Contact.Email = "nope"

		_, err := env.hierarchy.CreateParent(env.as(t, other), input)
		require.ErrorIs(t, err, ErrValidationFailed)

		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "address.city")
		assert.Contains(t, verr.Fields, "address.zip_code")
		assert.Contains(t, verr.Fields, "contact.email")
	})
}

func TestHierarchyService_GetAndUpdateParent(t *testing.T) {
	env := setupTestEnv(t)
	admin, parent := env.seedParent(t, "Acme")

	got, err := env.hierarchy.GetParent(env.as(t, admin))
	require.NoError(t, err)
	assert.Equal(t, parent.ID, got.ID)

	input := profile("Acme Corp")
	input.Address.City = "Shelbyville"
	updated, err := env.hierarchy.UpdateParent(env.as(t, admin), input)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Name)
	assert.Equal(t, "Shelbyville", env.reloadParent(t, parent.ID).Address.City)
	assert.Greater(t, updated.Version, parent.Version)

	lonely := env.createUser(t, "lonely", models.RoleAdmin)
	_, err = env.hierarchy.GetParent(env.as(t, lonely))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHierarchyService_Branches(t *testing.T) {
	env := setupTestEnv(t)
	admin, parent := env.seedParent(t, "Acme")
	north, manager := env.seedBranch(t, admin, "North", true)
	south, _ := env.seedBranch(t, admin, "South", false)

	assert.Equal(t, parent.ID, north.ParentID)
	assert.Equal(t, models.IDList{south.ID, north.ID}, env.reloadParent(t, parent.ID).BranchIDs)

	page := utils.NewPage(1, 10)

	t.Run("admin lists every branch", func(t *testing.T) {
		branches, total, err := env.hierarchy.ListBranches(env.as(t, admin), page)
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		assert.Len(t, branches, 2)
	})

	t.Run("manager lists its own branch", func(t *testing.T) {
		branches, total, err := env.hierarchy.ListBranches(env.as(t, manager), page)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, branches, 1)
		assert.Equal(t, north.ID, branches[0].ID)
	})

	t.Run("manager cannot see other branches", func(t *testing.T) {
		_, err := env.hierarchy.GetBranch(env.as(t, manager), south.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = env.hierarchy.UpdateBranch(env.as(t, manager), south.ID, profile("Hijacked"))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("manager updates its branch", func(t *testing.T) {
		updated, err := env.hierarchy.UpdateBranch(env.as(t, manager), north.ID, profile("North East"))
		require.NoError(t, err)
		assert.Equal(t, "North East", updated.Name)
	})

	t.Run("publisher sees its branch", func(t *testing.T) {
		pub := env.createUser(t, "pub", models.RolePublisher)
		env.assign(t, admin, pub, models.OwnerBranch, south.ID)

		got, err := env.hierarchy.GetBranch(env.as(t, pub), south.ID)
		require.NoError(t, err)
		assert.Equal(t, south.ID, got.ID)
	})

	t.Run("missing branch", func(t *testing.T) {
		_, err := env.hierarchy.GetBranch(env.as(t, admin), 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("branch needs a parent", func(t *testing.T) {
		lonely := env.createUser(t, "lonely", models.RoleAdmin)
		_, err := env.hierarchy.CreateBranch(env.as(t, lonely), profile("Nowhere"))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestHierarchyService_SetBranchManager(t *testing.T) {
	env := setupTestEnv(t)
	admin, _ := env.seedParent(t, "Acme")
	north, manager := env.seedBranch(t, admin, "North", true)
	south, _ := env.seedBranch(t, admin, "South", false)

	t.Run("only managers", func(t *testing.T) {
		pub := env.createUser(t, "pub", models.RolePublisher)
		_, err := env.hierarchy.SetBranchManager(env.as(t, admin), south.ID, pub.ID)
		assert.ErrorIs(t, err, ErrRoleNotAssignable)
	})

	t.Run("one branch per manager", func(t *testing.T) {
		_, err := env.hierarchy.SetBranchManager(env.as(t, admin), south.ID, manager.ID)
		assert.ErrorIs(t, err, ErrAlreadyAssigned)

		// reassigning to the same branch is a no-op
		_, err = env.hierarchy.SetBranchManager(env.as(t, admin), north.ID, manager.ID)
		assert.NoError(t, err)
	})

	t.Run("unknown manager", func(t *testing.T) {
		_, err := env.hierarchy.SetBranchManager(env.as(t, admin), south.ID, 9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("foreign branch", func(t *testing.T) {
		otherAdmin, _ := env.seedParent(t, "Globex")
		_, err := env.hierarchy.SetBranchManager(env.as(t, otherAdmin), south.ID, 0)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("clearing frees the manager", func(t *testing.T) {
		branch, err := env.hierarchy.SetBranchManager(env.as(t, admin), north.ID, 0)
		require.NoError(t, err)
		assert.Nil(t, branch.ManagerID)

		branch, err = env.hierarchy.SetBranchManager(env.as(t, admin), south.ID, manager.ID)
		require.NoError(t, err)
		require.NotNil(t, branch.ManagerID)
		assert.Equal(t, manager.ID, *branch.ManagerID)

		scope, err := env.resolver.Resolve(context.Background(), ActorFromUser(manager))
		require.NoError(t, err)
		assert.Equal(t, []uint64{south.ID}, scope.BranchIDs)
	})
}
