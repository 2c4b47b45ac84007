package middleware

import (
	"net/http"
	"strings"

	"invoicing/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Roles recognised in access tokens.
const (
	RoleAdmin       = "ADMIN"
	RoleSalesperson = "SALESPERSON"
)

// AllRoles is every role allowed to use the billing API.
var AllRoles = []string{RoleAdmin, RoleSalesperson}

// Context keys set by RequireRole.
const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

// Auth verifies HMAC-signed bearer tokens issued by the identity service.
type Auth struct {
	secret   []byte
	disabled bool
}

// NewAuth returns a verifier for secret. When disabled, every request passes
// with RoleAdmin, which is meant for local development only.
func NewAuth(secret string, disabled bool) *Auth {
	return &Auth{secret: []byte(secret), disabled: disabled}
}

// Secret returns the signing key, or nil when authentication is disabled.
func (a *Auth) Secret() []byte {
	if a.disabled {
		return nil
	}
	return a.secret
}

// RequireRole validates the JWT token and checks if the user's role exists in the allowedRoles list
func (a *Auth) RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.disabled {
			c.Set(ContextUserRole, RoleAdmin)
			c.Next()
			return
		}

		// Try cookie first, fallback to Authorization header
		tokenString, cookieErr := c.Cookie("access_token")
		if cookieErr != nil || tokenString == "" {
			authHeader := c.GetHeader("Authorization")
			if authHeader == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid authorization format. Expected 'Bearer <token>'"))
				return
			}
			tokenString = parts[1]
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
			return
		}

		userRole, ok := claims["role"].(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Role not found in token"))
			return
		}

		roleAllowed := false
		for _, role := range allowedRoles {
			if strings.EqualFold(userRole, role) {
				roleAllowed = true
				break
			}
		}
		if !roleAllowed {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}

		c.Set(ContextUserID, claims["sub"])
		c.Set(ContextUserRole, strings.ToUpper(userRole))

		c.Next()
	}
}
