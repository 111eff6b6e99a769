package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sahzadahmad246/potholemap/models"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret")

	os.Exit(m.Run())
}

func protectedRouter(handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/protected", handler, func(c *gin.Context) {
		userID, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return r
}

func TestJWTAuth_ValidToken(t *testing.T) {
	token, err := utils.GenerateJWT(models.User{ID: "user123", Role: models.UserRole}, 1)
	assert.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	protectedRouter(JWTAuth()).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "user123")
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	resp := httptest.NewRecorder()

	protectedRouter(JWTAuth()).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "Authorization header missing")
}

func TestJWTAuth_TokenWithoutBearerPrefix(t *testing.T) {
	token, err := utils.GenerateJWT(models.User{ID: "user123", Role: models.UserRole}, 1)
	assert.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", token)
	resp := httptest.NewRecorder()

	protectedRouter(JWTAuth()).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	resp := httptest.NewRecorder()

	protectedRouter(JWTAuth()).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAdminAuth_AdminAllowed(t *testing.T) {
	token, err := utils.GenerateJWT(models.User{ID: "admin123", Role: models.AdminRole}, 1)
	assert.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	protectedRouter(AdminAuth()).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestAdminAuth_UserForbidden(t *testing.T) {
	token, err := utils.GenerateJWT(models.User{ID: "user123", Role: models.UserRole}, 1)
	assert.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	protectedRouter(AdminAuth()).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Contains(t, resp.Body.String(), "admin role required")
}
