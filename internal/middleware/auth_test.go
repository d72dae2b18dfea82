package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventpool/lottery-api/internal/handler"
	"github.com/eventpool/lottery-api/internal/model"
	"github.com/eventpool/lottery-api/pkg/auth"
)

func setupAuthRouter(t *testing.T) (*gin.Engine, auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtSvc := auth.NewJWTService(auth.Config{Secret: "test-secret", ExpiryHours: 1})

	r := gin.New()
	r.Use(Auth(jwtSvc))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"member_id": handler.MemberID(c).String()})
	})
	return r, jwtSvc
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("accepts a valid bearer token", func(t *testing.T) {
		r, jwtSvc := setupAuthRouter(t)

		user := &model.User{}
		user.ID = uuid.New()
		token, _, err := jwtSvc.GenerateAccessToken(user)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), user.ID.String())
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		r, _ := setupAuthRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a malformed header", func(t *testing.T) {
		r, _ := setupAuthRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a forged token", func(t *testing.T) {
		r, _ := setupAuthRouter(t)

		forged := auth.NewJWTService(auth.Config{Secret: "other-secret", ExpiryHours: 1})
		user := &model.User{}
		user.ID = uuid.New()
		token, _, err := forged.GenerateAccessToken(user)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
