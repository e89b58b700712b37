package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"github.com/yukikurage/hierarchy-api/internal/auth"
	"github.com/yukikurage/hierarchy-api/internal/authz"
	"github.com/yukikurage/hierarchy-api/internal/config"
	"github.com/yukikurage/hierarchy-api/internal/models"
	"github.com/yukikurage/hierarchy-api/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers map[uint64]*models.User

func (f fakeUsers) FindByID(_ context.Context, id uint64) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func newQuietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func protectedRouter(tokens *auth.TokenIssuer, users UserFinder, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{RequireAuth(tokens, users)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := services.ActorFromContext(c.Request.Context())
		userID, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": actor.Role})
	})
	r.GET("/protected", handlers...)
	return r
}

func get(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewTokenIssuer("middleware-secret", time.Hour)
	branchID := uint64(4)
	users := fakeUsers{
		1: {ID: 1, Role: models.RolePublisher, Active: true, BranchID: &branchID},
		2: {ID: 2, Role: models.RoleManager, Active: false},
	}
	r := protectedRouter(tokens, users)

	issue := func(u *models.User) string {
		token, err := tokens.Issue(u)
		require.NoError(t, err)
		return "Bearer " + token
	}

	w := get(r, issue(users[1]))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":1,"role":"publisher"}`, w.Body.String())

	cases := []struct {
		name          string
		authorization string
		wantCode      string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"malformed token", "Bearer not-a-token", "INVALID_TOKEN"},
		{"inactive account", issue(users[2]), "INACTIVE_ACCOUNT"},
		{"deleted account", issue(&models.User{ID: 3, Role: models.RoleAdmin}), "UNAUTHORIZED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := get(r, tc.authorization)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantCode)
		})
	}

	t.Run("foreign signature", func(t *testing.T) {
		other := auth.NewTokenIssuer("another-secret", time.Hour)
		token, err := other.Issue(users[1])
		require.NoError(t, err)
		w := get(r, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("role is read from the store", func(t *testing.T) {
		// the token still claims publisher
		stale := issue(&models.User{ID: 1, Role: models.RoleAdmin})
		w := get(r, stale)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"role":"publisher"`)
	})
}

func TestRequirePermission(t *testing.T) {
	tokens := auth.NewTokenIssuer("middleware-secret", time.Hour)
	users := fakeUsers{
		1: {ID: 1, Role: models.RolePublisher, Active: true},
		2: {ID: 2, Role: models.RoleNoRole, Active: true},
		3: {ID: 3, Role: models.RoleAdmin, Active: true},
	}
	gate, err := authz.NewRoleGate(authz.DefaultPolicies())
	require.NoError(t, err)
	r := protectedRouter(tokens, users, RequirePermission(gate, authz.ObjectUsers, authz.ActionRead))

	for id, want := range map[uint64]int{1: http.StatusForbidden, 2: http.StatusForbidden, 3: http.StatusOK} {
		token, err := tokens.Issue(users[id])
		require.NoError(t, err)
		assert.Equal(t, want, get(r, "Bearer "+token).Code, "user %d", id)
	}

	t.Run("without an actor", func(t *testing.T) {
		r := gin.New()
		r.GET("/protected", RequirePermission(gate, authz.ObjectUsers, authz.ActionRead), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	})
}

func TestRequestLoggerAndDeadline(t *testing.T) {
	r := gin.New()
	var deadline time.Time
	var hasDeadline bool
	r.Use(RequestLogger(newQuietLogger()), RequestDeadline(time.Minute))
	r.GET("/protected", func(c *gin.Context) {
		deadline, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	require.True(t, hasDeadline)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	_, err := RateLimit("twenty", memory.NewStore())
	assert.Error(t, err)

	store := NewRateLimitStore(config.RateLimitOptions{Storage: "memory"}, nil, newQuietLogger())
	limit, err := RateLimit("2-M", store)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/protected", limit, func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
