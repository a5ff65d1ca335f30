package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/campus-billing-api/internal/models"
	appErrors "github.com/noah-isme/campus-billing-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good-token" {
		return nil, appErrors.Wrap(errors.New("bad signature"), appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	return s.claims, nil
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/plans/:id/cancel", handlers...)
	return r
}

func serve(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/plans/plan-1/cancel", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWT(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleBursar}
	r := newTestRouter(JWT(stubValidator{claims: claims}), func(c *gin.Context) {
		value, ok := c.Get(ContextUserKey)
		require.True(t, ok)
		assert.Equal(t, claims, value)
		c.Next()
	})

	assert.Equal(t, http.StatusNoContent, serve(r, "Bearer good-token").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Basic abc").Code)
	rec := serve(r, "Bearer bad-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
}

func TestRequireRoles(t *testing.T) {
	withRole := func(role models.UserRole) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: role})
			c.Next()
		}
	}

	cases := map[models.UserRole]int{
		models.RoleBursar:  http.StatusNoContent,
		models.RoleAdmin:   http.StatusNoContent,
		models.RoleCashier: http.StatusForbidden,
		models.RoleAuditor: http.StatusForbidden,
	}
	for role, want := range cases {
		r := newTestRouter(withRole(role), RequireRoles(models.RoleBursar))
		assert.Equalf(t, want, serve(r, "").Code, string(role))
	}

	r := newTestRouter(RequireRoles(models.RoleBursar))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
}

func TestAuditLogsSuccessfulRequests(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)
	setUser := func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "user-9", Role: models.RoleBursar})
		c.Next()
	}

	r := newTestRouter(setUser, Audit(logger, "plan.cancel"))
	require.Equal(t, http.StatusNoContent, serve(r, "").Code)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "audit", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "plan.cancel", fields["action"])
	assert.Equal(t, "user-9", fields["user_id"])
	assert.Equal(t, "plan-1", fields["param_id"])

	failing := gin.New()
	failing.POST("/plans/:id/cancel", Audit(logger, "plan.cancel"), func(c *gin.Context) { c.Status(http.StatusConflict) })
	serve(failing, "")
	assert.Equal(t, 1, logs.Len())
}
