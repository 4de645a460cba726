package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/booking-engine/internal/authz"
	"github.com/smarttransit/booking-engine/internal/models"
	"github.com/smarttransit/booking-engine/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-access-secret-key-123456789-abcdef"
	testIssuer = "smarttransit-test"
)

func setupTestJWTService() *jwt.Service {
	return jwt.NewService(testSecret, testIssuer, time.Hour)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware_Success(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()

	userID := uuid.New()
	token, err := jwtService.GenerateAccessToken(userID, "CLIENT")
	require.NoError(t, err)

	router.GET("/protected", AuthMiddleware(jwtService, testLogger()), func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "role": actor.Role, "ua": actor.UserAgent})
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", "booking-tests/1.0")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, userID.String(), body["user_id"])
	assert.Equal(t, "CLIENT", body["role"])
	assert.Equal(t, "booking-tests/1.0", body["ua"])
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	jwtService := setupTestJWTService()

	expired, err := jwt.NewService(testSecret, testIssuer, -time.Minute).GenerateAccessToken(uuid.New(), "CLIENT")
	require.NoError(t, err)
	wrongSecret, err := jwt.NewService("another-secret-key-0987654321-zyxwvu", testIssuer, time.Hour).GenerateAccessToken(uuid.New(), "ADMIN")
	require.NoError(t, err)
	unknownRole, err := jwtService.GenerateAccessToken(uuid.New(), "DRIVER")
	require.NoError(t, err)

	tests := []struct {
		name      string
		header    string
		wantError string
	}{
		{"missing header", "", "unauthorized"},
		{"basic scheme", "Basic dXNlcjpwYXNz", "unauthorized"},
		{"empty bearer", "Bearer   ", "unauthorized"},
		{"garbage token", "Bearer not-a-jwt", "invalid_token"},
		{"expired token", "Bearer " + expired, "token_expired"},
		{"wrong secret", "Bearer " + wrongSecret, "invalid_token"},
		{"unknown role", "Bearer " + unknownRole, "invalid_token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter()
			router.GET("/protected", AuthMiddleware(jwtService, testLogger()), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
			})

			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, tt.wantError, decodeBody(t, w)["error"])
		})
	}
}

func TestRequireAction(t *testing.T) {
	jwtService := setupTestJWTService()

	tests := []struct {
		role     models.Role
		action   authz.Action
		wantCode int
	}{
		{models.RoleClient, authz.CreateBooking, http.StatusOK},
		{models.RoleClient, authz.ListBookings, http.StatusForbidden},
		{models.RoleAdmin, authz.ListBookings, http.StatusOK},
		{models.RoleAdmin, authz.DeleteUser, http.StatusForbidden},
		{models.RoleSuperAdmin, authz.DeleteUser, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+" "+string(tt.action), func(t *testing.T) {
			router := setupTestRouter()
			router.GET("/r", AuthMiddleware(jwtService, testLogger()), RequireAction(tt.action), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			token, err := jwtService.GenerateAccessToken(uuid.New(), string(tt.role))
			require.NoError(t, err)

			req := httptest.NewRequest("GET", "/r", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRequireAction_WithoutAuth(t *testing.T) {
	router := setupTestRouter()
	router.GET("/r", RequireAction(authz.CreateBooking), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/r", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, ok := GetUserContext(c)
	assert.False(t, ok)

	c.Set(UserContextKey, "not a user context")
	_, ok = GetUserContext(c)
	assert.False(t, ok)

	want := UserContext{UserID: uuid.New(), Role: models.RoleAdmin}
	c.Set(UserContextKey, want)
	got, ok := GetUserContext(c)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}
