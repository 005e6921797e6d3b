package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barter-api/models"
	"github.com/kendall-kelly/barter-api/services"
)

const (
	callerIDKey = "caller_id"
	callerKey   = "caller"
)

// RequireCaller resolves the token subject to a registered user. Requests
// from subjects without a profile are rejected with 401.
func RequireCaller(identity services.IdentityDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := GetUserID(c)
		if err != nil {
			abortUnauthorized(c, "UNAUTHORIZED", "Authentication required")
			return
		}

		user, err := identity.BySubject(c.Request.Context(), subject)
		if err != nil {
			switch services.KindOf(err) {
			case services.KindNotFound, services.KindUnauthorized:
				abortUnauthorized(c, "UNAUTHORIZED", "No user profile for this token. Please create a profile first.")
			default:
				slog.Error("failed to resolve caller", "subject", subject, "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "STORAGE_FAILURE",
						"message": "Internal server error",
					},
				})
			}
			return
		}

		c.Set(callerIDKey, user.ID)
		c.Set(callerKey, user)
		c.Next()
	}
}

// GetCallerID returns the id of the user resolved by RequireCaller
func GetCallerID(c *gin.Context) (uint, error) {
	id, exists := c.Get(callerIDKey)
	if !exists {
		return 0, &AuthError{Code: "MISSING_CALLER", Message: "Caller not found in context"}
	}
	callerID, ok := id.(uint)
	if !ok || callerID == 0 {
		return 0, &AuthError{Code: "INVALID_CALLER", Message: "Caller id is not valid"}
	}
	return callerID, nil
}

// GetCaller returns the user resolved by RequireCaller
func GetCaller(c *gin.Context) (*models.User, error) {
	v, exists := c.Get(callerKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CALLER", Message: "Caller not found in context"}
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil, errors.New("caller is not a user")
	}
	return user, nil
}
