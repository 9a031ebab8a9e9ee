package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sekolahku/studentinfo/internal/model"
	"github.com/sekolahku/studentinfo/internal/repository/inmem"
)

const testSecret = "middleware-test-secret"

func signToken(t *testing.T, secret string, subject string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func setupRouter(db *inmem.DB, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	mw := NewAuthMiddleware(inmem.NewUserRepository(db), testSecret)

	router := gin.New()
	handlers := append([]gin.HandlerFunc{mw.RequireAuth()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": c.GetString("user_id"), "role": c.GetString("role")})
	})
	router.GET("/protected", handlers...)
	return router
}

func get(router *gin.Engine, header, query string) *httptest.ResponseRecorder {
	path := "/protected"
	if query != "" {
		path += "?token=" + query
	}
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	db := inmem.Open()
	db.SeedRoles()
	user := db.AddUser("asha", "asha@school.local", "x", model.RoleTeacher, true)
	router := setupRouter(db)

	token := signToken(t, testSecret, user.ID.String(), time.Hour)

	rec := get(router, "Bearer "+token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.ID.String())
	assert.Contains(t, rec.Body.String(), "teacher")
}

func TestRequireAuth_tokenQueryFallback(t *testing.T) {
	db := inmem.Open()
	db.SeedRoles()
	user := db.AddUser("asha", "asha@school.local", "x", model.RoleTeacher, true)
	router := setupRouter(db)

	token := signToken(t, testSecret, user.ID.String(), time.Hour)

	rec := get(router, "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAuth_missingToken(t *testing.T) {
	db := inmem.Open()
	db.SeedRoles()
	router := setupRouter(db)

	rec := get(router, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "authorization required")
}

func TestRequireAuth_badTokens(t *testing.T) {
	db := inmem.Open()
	db.SeedRoles()
	user := db.AddUser("asha", "asha@school.local", "x", model.RoleTeacher, true)
	router := setupRouter(db)

	t.Run("wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", user.ID.String(), time.Hour)
		rec := get(router, "Bearer "+token, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired", func(t *testing.T) {
		token := signToken(t, testSecret, user.ID.String(), -time.Minute)
		rec := get(router, "Bearer "+token, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		token := signToken(t, testSecret, "42", time.Hour)
		rec := get(router, "Bearer "+token, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		token := signToken(t, testSecret, uuid.NewString(), time.Hour)
		rec := get(router, "Bearer "+token, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		rec := get(router, "Token abcdef", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAuth_deactivatedAccount(t *testing.T) {
	db := inmem.Open()
	db.SeedRoles()
	user := db.AddUser("asha", "asha@school.local", "x", model.RoleTeacher, false)
	router := setupRouter(db)

	token := signToken(t, testSecret, user.ID.String(), time.Hour)

	rec := get(router, "Bearer "+token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "deactivated")
}

func TestRequireRoles(t *testing.T) {
	db := inmem.Open()
	db.SeedRoles()
	teacher := db.AddUser("t1", "t1@school.local", "x", model.RoleTeacher, true)
	student := db.AddUser("s1", "s1@school.local", "x", model.RoleStudent, true)

	mw := NewAuthMiddleware(inmem.NewUserRepository(db), testSecret)
	router := setupRouter(db, mw.RequireRoles(model.RoleKindAdmin, model.RoleKindTeacher))

	rec := get(router, "Bearer "+signToken(t, testSecret, teacher.ID.String(), time.Hour), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(router, "Bearer "+signToken(t, testSecret, student.ID.String(), time.Hour), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Access denied")
}

func TestRoleKindHelper(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Equal(t, model.RoleKindUnknown, RoleKind(c))

	c.Set("role_kind", model.RoleKindAdmin)
	assert.Equal(t, model.RoleKindAdmin, RoleKind(c))

	c.Set("role_kind", "admin")
	assert.Equal(t, model.RoleKindUnknown, RoleKind(c))
}
