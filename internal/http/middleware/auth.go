package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/fueltrack/domain"
)

// AuthMW wraps the auth orchestrator and audit log for middleware
type AuthMW struct {
	authSvc domain.AuthService
	events  domain.SecurityEventLog
	cookies *Cookies
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(authSvc domain.AuthService, events domain.SecurityEventLog, cookies *Cookies) *AuthMW {
	return &AuthMW{
		authSvc: authSvc,
		events:  events,
		cookies: cookies,
	}
}

// WithSession builds the per-request session context from the session cookie
// and the client fingerprint. It never rejects a request.
func (mw *AuthMW) WithSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, _ := c.Cookie(mw.cookies.SessionName)
		rs := domain.NewRequestSession(sessionID, domain.ClientContext{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Set(RequestSessionKey, rs)
		c.Next()
	}
}

// RequireLogin rejects requests without a live session
func (mw *AuthMW) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		rs := RequestSessionFrom(c)
		presented := rs.SessionID != ""

		user := mw.authSvc.CurrentUser(c.Request.Context(), rs)
		if user == nil {
			if presented {
				mw.cookies.ClearSession(c)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

// RequireRole rejects logged-in users whose role differs from role
func (mw *AuthMW) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rs := RequestSessionFrom(c)
		if !mw.authSvc.HasRole(c.Request.Context(), rs, role) {
			user := CurrentUserFrom(c)
			if user == nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
				return
			}
			denyAccess(c, mw.events, user, rs)
			return
		}
		c.Next()
	}
}

// RequireAdmin is RequireRole for the admin role
func (mw *AuthMW) RequireAdmin() gin.HandlerFunc {
	return mw.RequireRole(domain.RoleAdmin)
}

func denyAccess(c *gin.Context, events domain.SecurityEventLog, user *domain.CurrentUser, rs *domain.RequestSession) {
	client := rs.Client
	event := domain.NewSecurityEvent(domain.UnauthorizedAccessEvent, "Attempted to access restricted area: "+c.Request.Method+" "+c.Request.URL.Path).
		WithUser(user.ID).WithClientContext(&client).WithSeverity(domain.SeverityWarning)
	if err := events.Record(c.Request.Context(), event); err != nil {
		loggerFrom(c).WithError(err).Error("failed to record unauthorized access")
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied. Insufficient permissions."})
}
