package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/fueltrack/domain"
)

// CSRF cookie and header names
const (
	CSRFCookieName = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRFMW implements double-submit cookie protection for unsafe methods
type CSRFMW struct {
	events domain.SecurityEventLog
	secure bool
	exempt map[string]bool
}

// NewCSRFMW creates the CSRF middleware. exemptPaths skip the check.
func NewCSRFMW(events domain.SecurityEventLog, secure bool, exemptPaths ...string) *CSRFMW {
	exempt := make(map[string]bool, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = true
	}
	return &CSRFMW{events: events, secure: secure, exempt: exempt}
}

// Protect rejects unsafe requests whose header token does not match the cookie
func (mw *CSRFMW) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if mw.exempt[c.FullPath()] {
			c.Next()
			return
		}

		cookie, _ := c.Cookie(CSRFCookieName)
		header := c.GetHeader(CSRFHeaderName)
		if cookie == "" || header == "" || subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			rs := RequestSessionFrom(c)
			client := rs.Client
			event := domain.NewSecurityEvent(domain.CSRFFailedEvent, "CSRF token validation failed: "+c.Request.Method+" "+c.Request.URL.Path).
				WithClientContext(&client).WithSeverity(domain.SeverityWarning)
			if rs.Session != nil {
				event.WithUser(rs.Session.UserID)
			}
			if err := mw.events.Record(c.Request.Context(), event); err != nil {
				loggerFrom(c).WithError(err).Error("failed to record csrf failure")
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid security token. Please refresh and try again."})
			return
		}
		c.Next()
	}
}

// Issue returns the current CSRF token, minting one when the cookie is absent
func (mw *CSRFMW) Issue(c *gin.Context) {
	token, err := c.Cookie(CSRFCookieName)
	if err != nil || token == "" {
		token, err = newCSRFToken()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
			return
		}
		c.SetSameSite(http.SameSiteStrictMode)
		// readable by scripts so they can echo it in the header
		c.SetCookie(CSRFCookieName, token, 0, "/", "", mw.secure, false)
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"csrf_token": token}})
}

func newCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
