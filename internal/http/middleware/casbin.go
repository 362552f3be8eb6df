package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/fueltrack/domain"
)

// CasbinMW enforces route policies for the current user's role
type CasbinMW struct {
	policy domain.PolicyService
	events domain.SecurityEventLog
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(policy domain.PolicyService, events domain.SecurityEventLog) *CasbinMW {
	return &CasbinMW{policy: policy, events: events}
}

// Enforce returns the casbin authorization middleware. It must run after RequireLogin.
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUserFrom(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		allowed, err := mw.policy.CheckPermission(user.Role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			loggerFrom(c).WithError(err).Error("authorization check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}
		if !allowed {
			denyAccess(c, mw.events, user, RequestSessionFrom(c))
			return
		}

		c.Next()
	}
}
