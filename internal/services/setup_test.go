package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/hierarchy-api/internal/auth"
	"github.com/yukikurage/hierarchy-api/internal/database"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/notify"
	"github.com/yukikurage/hierarchy-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []notify.Message
	err      error
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSender) last() notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return notify.Message{}
	}
	return s.messages[len(s.messages)-1]
}

type memoryBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{blobs: map[string][]byte{}}
}

func (m *memoryBlobs) Put(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = data
	return nil
}

func (m *memoryBlobs) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, name)
	return nil
}

func (m *memoryBlobs) has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[name]
	return ok
}

type testEnv struct {
	db         *gorm.DB
	store      repository.Store
	resolver   *ScopeResolver
	identity   *IdentityService
	hierarchy  *HierarchyService
	assignment *AssignmentService
	cascade    *CascadeService
	products   *ProductService
	sender     *recordingSender
	blobs      *memoryBlobs
}

func setupTestEnv(t *testing.T) *testEnv {
	return setupTestEnvWithPolicy(t, OrphanPermissive)
}

func setupTestEnvWithPolicy(t *testing.T, policy OrphanPolicy) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	require.NoError(t, database.Migrate(db, quiet))

	store := repository.NewStore(db)
	resolver := NewScopeResolver(store, policy)
	sender := &recordingSender{}
	blobs := newMemoryBlobs()

	return &testEnv{
		db:         db,
		store:      store,
		resolver:   resolver,
		identity:   NewIdentityService(store, auth.NewBcryptHasher(bcrypt.MinCost), sender, resolver),
		hierarchy:  NewHierarchyService(store, resolver),
		assignment: NewAssignmentService(store, resolver),
		cascade:    NewCascadeService(store, resolver, blobs),
		products:   NewProductService(store, resolver, blobs, 1<<20),
		sender:     sender,
		blobs:      blobs,
	}
}

// as returns a context acting as the stored state of u.
func (e *testEnv) as(t *testing.T, u *models.User) context.Context {
	t.Helper()
	return WithActor(context.Background(), ActorFromUser(e.reloadUser(t, u.ID)))
}

func (e *testEnv) createUser(t *testing.T, name string, role models.Role) *models.User {
	t.Helper()
	user := &models.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "hashed",
		Role:         role,
		Active:       true,
	}
	require.NoError(t, e.store.Users().Create(context.Background(), user))
	return user
}

// createMember creates an unplaced user through creator, so it joins creator's tenant.
func (e *testEnv) createMember(t *testing.T, creator *models.User, name string, role models.Role) *models.User {
	t.Helper()
	user, err := e.identity.CreateUser(e.as(t, creator), CreateUserInput{
		Name:            name,
		Email:           name + "@example.com",
		Password:        "secret1",
		PasswordConfirm: "secret1",
		Role:            role,
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) reloadUser(t *testing.T, id uint64) *models.User {
	t.Helper()
	user, err := e.store.Users().FindByID(context.Background(), id)
	require.NoError(t, err)
	return user
}

func (e *testEnv) reloadParent(t *testing.T, id uint64) *models.Parent {
	t.Helper()
	parent, err := e.store.Parents().FindByID(context.Background(), id)
	require.NoError(t, err)
	return parent
}

func (e *testEnv) reloadBranch(t *testing.T, id uint64) *models.Branch {
	t.Helper()
	branch, err := e.store.Branches().FindByID(context.Background(), id)
	require.NoError(t, err)
	return branch
}

func (e *testEnv) userExists(t *testing.T, id uint64) bool {
	t.Helper()
	_, err := e.store.Users().FindByID(context.Background(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func profile(name string) ProfileInput {
	return ProfileInput{
		Name: name,
		Address: AddressInput{
			Street:   "1 Main St",
			District: "Center",
			City:     "Springfield",
			State:    "IL",
			Country:  "US",
			ZipCode:  "62701",
		},
		Contact: ContactInput{Phone: "555-0100", Email: "office@example.com"},
	}
}

// seedParent registers an admin owning a parent.
func (e *testEnv) seedParent(t *testing.T, name string) (*models.User, *models.Parent) {
	t.Helper()
	admin := e.createUser(t, "admin-"+name, models.RoleAdmin)
	parent, err := e.hierarchy.CreateParent(e.as(t, admin), profile(name))
	require.NoError(t, err)
	return admin, parent
}

// seedBranch creates a branch under the admin's parent, optionally run by a new manager.
func (e *testEnv) seedBranch(t *testing.T, admin *models.User, name string, withManager bool) (*models.Branch, *models.User) {
	t.Helper()
	branch, err := e.hierarchy.CreateBranch(e.as(t, admin), profile(name))
	require.NoError(t, err)
	if !withManager {
		return branch, nil
	}

	manager := e.createUser(t, "manager-"+name, models.RoleManager)
	branch, err = e.hierarchy.SetBranchManager(e.as(t, admin), branch.ID, manager.ID)
	require.NoError(t, err)
	return branch, manager
}

func (e *testEnv) assign(t *testing.T, actor *models.User, user *models.User, kind models.OwnerKind, ownerID uint64) {
	t.Helper()
	_, err := e.assignment.Assign(e.as(t, actor), AssignInput{UserID: user.ID, OwnerKind: kind, OwnerID: ownerID})
	require.NoError(t, err)
}

// requireConsistent checks placement exclusivity and symmetric membership over the whole store.
func (e *testEnv) requireConsistent(t *testing.T) {
	t.Helper()

	var users []models.User
	require.NoError(t, e.db.Find(&users).Error)
	var parents []models.Parent
	require.NoError(t, e.db.Find(&parents).Error)
	var branches []models.Branch
	require.NoError(t, e.db.Find(&branches).Error)

	parentMembers := map[uint64]int{}
	branchMembers := map[uint64]int{}
	for _, u := range users {
		require.False(t, u.ParentID != nil && u.BranchID != nil, "user %d has both placements", u.ID)
		if u.ParentID != nil {
			parentMembers[*u.ParentID]++
		}
		if u.BranchID != nil {
			branchMembers[*u.BranchID]++
		}
	}

	byID := map[uint64]models.User{}
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, p := range parents {
		require.Len(t, p.UserIDs, parentMembers[p.ID], "parent %d member count", p.ID)
		for _, id := range p.UserIDs {
			u, ok := byID[id]
			require.True(t, ok, fmt.Sprintf("parent %d lists missing user %d", p.ID, id))
			require.NotNil(t, u.ParentID)
			require.Equal(t, p.ID, *u.ParentID)
		}
	}
	for _, b := range branches {
		require.Len(t, b.UserIDs, branchMembers[b.ID], "branch %d member count", b.ID)
		for _, id := range b.UserIDs {
			u, ok := byID[id]
			require.True(t, ok, fmt.Sprintf("branch %d lists missing user %d", b.ID, id))
			require.NotNil(t, u.BranchID)
			require.Equal(t, b.ID, *u.BranchID)
		}
	}
}
