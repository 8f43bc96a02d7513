package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/richxcame/carbon-ledger/pkg/common"
)

// RoleAdmin is the role claim required by the fraud review endpoints
const RoleAdmin = "admin"

// Claims is the token payload issued by the account service
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates an HS256 bearer token signed with secret and stores
// the caller identity on the gin context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)

	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWith(c, common.NewUnauthorizedError("missing bearer token"))
			return
		}

		claims := &Claims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			abortWith(c, common.NewUnauthorizedError("invalid or expired token"))
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_email", claims.Email)
		c.Set("user_role", claims.Role)
		c.Next()
	}
}

// RequireRole allows the request only when the authenticated role is one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("user_role")
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		abortWith(c, common.NewForbiddenError("insufficient permissions"))
	}
}

// AdminAuth chains token validation and the admin role check
func AdminAuth(secret string) []gin.HandlerFunc {
	return []gin.HandlerFunc{AuthMiddleware(secret), RequireRole(RoleAdmin)}
}

// GetUserID returns the authenticated user id
func GetUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// GetUserEmail returns the authenticated user's email, empty when unknown
func GetUserEmail(c *gin.Context) string {
	return c.GetString("user_email")
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func abortWith(c *gin.Context, err *common.AppError) {
	common.AppErrorResponse(c, err)
	c.Abort()
}

