package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/domain"
)

// Context keys set by the middleware chain
const (
	RequestSessionKey = "request_session"
	CurrentUserKey    = "current_user"
	RequestIDKey      = "request_id"
	loggerKey         = "logger"
)

// RequestSessionFrom returns the session context of the request. Handlers
// mounted without WithSession get an anonymous context.
func RequestSessionFrom(c *gin.Context) *domain.RequestSession {
	if v, ok := c.Get(RequestSessionKey); ok {
		if rs, ok := v.(*domain.RequestSession); ok {
			return rs
		}
	}
	rs := domain.NewRequestSession("", domain.ClientContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	c.Set(RequestSessionKey, rs)
	return rs
}

// CurrentUserFrom returns the user set by RequireLogin, or nil
func CurrentUserFrom(c *gin.Context) *domain.CurrentUser {
	if v, ok := c.Get(CurrentUserKey); ok {
		if u, ok := v.(*domain.CurrentUser); ok {
			return u
		}
	}
	return nil
}

// ClientFrom returns the client fingerprint of the request
func ClientFrom(c *gin.Context) domain.ClientContext {
	return RequestSessionFrom(c).Client
}

func loggerFrom(c *gin.Context) *log.Entry {
	if v, ok := c.Get(loggerKey); ok {
		if e, ok := v.(*log.Entry); ok {
			return e
		}
	}
	return log.WithField("path", c.Request.URL.Path)
}

// Cookies issues the session cookie. It is a browser-session cookie; idle
// expiry is enforced server side.
type Cookies struct {
	SessionName string
	Secure      bool
}

// SetSession writes the session cookie for id
func (ck *Cookies) SetSession(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(ck.SessionName, id, 0, "/", "", ck.Secure, true)
}

// ClearSession expires the session cookie
func (ck *Cookies) ClearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(ck.SessionName, "", -1, "/", "", ck.Secure, true)
}
