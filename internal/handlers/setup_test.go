package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/hierarchy-api/internal/auth"
	"github.com/yukikurage/hierarchy-api/internal/authz"
	"github.com/yukikurage/hierarchy-api/internal/constants"
	"github.com/yukikurage/hierarchy-api/internal/database"
	"github.com/yukikurage/hierarchy-api/internal/middleware"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/notify"
	"github.com/yukikurage/hierarchy-api/internal/repository"
	"github.com/yukikurage/hierarchy-api/internal/services"
	"github.com/yukikurage/hierarchy-api/internal/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type inbox struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (i *inbox) Send(_ context.Context, msg notify.Message) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.messages = append(i.messages, msg)
	return nil
}

func (i *inbox) last() notify.Message {
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.messages) == 0 {
		return notify.Message{}
	}
	return i.messages[len(i.messages)-1]
}

type handlerTestEnv struct {
	db        *gorm.DB
	tokens    *auth.TokenIssuer
	gate      *authz.RoleGate
	identity  *services.IdentityService
	hierarchy *services.HierarchyService
	products  *services.ProductService
	inbox     *inbox

	authHandler      *AuthHandler
	hierarchyHandler *HierarchyHandler
	userHandler      *UserHandler
	productHandler   *ProductHandler
}

func setupHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	require.NoError(t, database.Migrate(db, quiet))

	blobs, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	gate, err := authz.NewRoleGate(authz.DefaultPolicies())
	require.NoError(t, err)

	store := repository.NewStore(db)
	resolver := services.NewScopeResolver(store, services.OrphanPermissive)
	box := &inbox{}
	identity := services.NewIdentityService(store, auth.NewBcryptHasher(bcrypt.MinCost), box, resolver)
	hierarchy := services.NewHierarchyService(store, resolver)
	assignment := services.NewAssignmentService(store, resolver)
	cascade := services.NewCascadeService(store, resolver, blobs)
	products := services.NewProductService(store, resolver, blobs, 1<<20)
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	return &handlerTestEnv{
		db:               db,
		tokens:           tokens,
		gate:             gate,
		identity:         identity,
		hierarchy:        hierarchy,
		products:         products,
		inbox:            box,
		authHandler:      NewAuthHandler(identity, tokens, "http://localhost:8080/api/v1/auth/resetpassword"),
		hierarchyHandler: NewHierarchyHandler(hierarchy, cascade),
		userHandler:      NewUserHandler(identity, assignment, cascade),
		productHandler:   NewProductHandler(products, cascade),
	}
}

// router returns an engine with cookie sessions installed.
func (e *handlerTestEnv) router() *gin.Engine {
	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	return r
}

func (e *handlerTestEnv) requireAuth() gin.HandlerFunc {
	return middleware.RequireAuth(e.tokens, e.identity)
}

func (e *handlerTestEnv) authed(obj, act string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		e.requireAuth(),
		middleware.RequirePermission(e.gate, obj, act),
	}
}

func (e *handlerTestEnv) route(r *gin.Engine, method, path, obj, act string, handler gin.HandlerFunc) {
	r.Handle(method, path, append(e.authed(obj, act), handler)...)
}

func (e *handlerTestEnv) registerAdmin(t *testing.T, name string) *models.User {
	t.Helper()
	user, err := e.identity.Register(context.Background(), services.RegisterInput{
		Name:     name,
		Email:    name + "@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)
	return user
}

func (e *handlerTestEnv) createUser(t *testing.T, actor *models.User, name string, role models.Role) *models.User {
	t.Helper()
	user, err := e.identity.CreateUser(e.actorContext(t, actor), services.CreateUserInput{
		Name:            name,
		Email:           name + "@example.com",
		Password:        "supersecret",
		PasswordConfirm: "supersecret",
		Role:            role,
	})
	require.NoError(t, err)
	return user
}

func (e *handlerTestEnv) actorContext(t *testing.T, u *models.User) context.Context {
	t.Helper()
	current, err := e.identity.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	return services.WithActor(context.Background(), services.ActorFromUser(current))
}

func (e *handlerTestEnv) seedParent(t *testing.T, name string) (*models.User, *models.Parent) {
	t.Helper()
	admin := e.registerAdmin(t, "admin-"+name)
	parent, err := e.hierarchy.CreateParent(e.actorContext(t, admin), testProfile(name))
	require.NoError(t, err)
	return admin, parent
}

func (e *handlerTestEnv) bearer(t *testing.T, u *models.User) string {
	t.Helper()
	token, err := e.tokens.Issue(u)
	require.NoError(t, err)
	return "Bearer " + token
}

func testProfile(name string) services.ProfileInput {
	return services.ProfileInput{
		Name: name,
		Address: services.AddressInput{
			Street:   "1 Main St",
			District: "Center",
			City:     "Springfield",
			State:    "IL",
			Country:  "US",
			ZipCode:  "62701",
		},
		Contact: services.ContactInput{Phone: "555-0100", Email: "office@example.com"},
	}
}

func jsonRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	var body io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
