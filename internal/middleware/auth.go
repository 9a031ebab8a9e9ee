package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sekolahku/studentinfo/internal/model"
	"github.com/sekolahku/studentinfo/internal/repository"
)

type AuthMiddleware struct {
	userRepo repository.UserRepository
	secret   string
}

func NewAuthMiddleware(userRepo repository.UserRepository, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo: userRepo,
		secret:   secret,
	}
}

// RequireAuth validates the bearer token, loads the user and stores identity
// and role in the request context. Deactivated accounts are rejected even
// with a valid token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Fallback to query parameter "token" (used by the websocket feed)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "authorization required"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(m.secret), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token claims"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token claims"})
			c.Abort()
			return
		}

		user, err := m.userRepo.FindByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "user not found"})
			c.Abort()
			return
		}

		if !user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "account is deactivated"})
			c.Abort()
			return
		}

		kind, ok := model.ParseRoleKind(user.RoleName())
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "no role assigned"})
			c.Abort()
			return
		}

		c.Set("user_id", user.ID.String())
		c.Set("role", kind.String())
		c.Set("role_kind", kind)
		c.Next()
	}
}

// RequireRoles gates a route to the given role kinds.
func (m *AuthMiddleware) RequireRoles(allowed ...model.RoleKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind := RoleKind(c)
		for _, a := range allowed {
			if kind == a {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Access denied"})
		c.Abort()
	}
}

// RoleKind reads the authenticated role kind from the context.
func RoleKind(c *gin.Context) model.RoleKind {
	v, exists := c.Get("role_kind")
	if !exists {
		return model.RoleKindUnknown
	}
	kind, ok := v.(model.RoleKind)
	if !ok {
		return model.RoleKindUnknown
	}
	return kind
}
