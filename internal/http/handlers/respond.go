package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/domain"
)

const monthLayout = "2006-01"

// respondError maps a service error onto a JSON error response. Store
// failures only expose their cause when debug is set.
func respondError(c *gin.Context, err error, fallback string, debug bool) {
	var verrs domain.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": verrs.Error(), "fields": verrs})
	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, domain.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
	case errors.Is(err, domain.ErrProtectedUser):
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot modify admin users."})
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": fallback})
	case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenExpired), errors.Is(err, domain.ErrTokenUsed):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token."})
	case errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("request failed")
		msg := fallback
		if debug {
			msg = fallback + " " + err.Error()
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

func badRequest(c *gin.Context, field, message string) {
	verrs := domain.ValidationErrors{}
	verrs.Add(field, message)
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "fields": verrs})
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, name, "Invalid identifier.")
		return 0, false
	}
	return uint(id), true
}

// monthQuery parses ?month=YYYY-MM; an absent value yields the zero time
func monthQuery(c *gin.Context) (time.Time, bool) {
	raw := c.Query("month")
	if raw == "" {
		return time.Time{}, true
	}
	m, err := time.Parse(monthLayout, raw)
	if err != nil {
		badRequest(c, "month", "Month must use the YYYY-MM format.")
		return time.Time{}, false
	}
	return m, true
}

func intQuery(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func userView(u *domain.User) gin.H {
	return gin.H{
		"id":                    u.ID,
		"username":              u.Username,
		"email":                 u.Email,
		"first_name":            u.FirstName,
		"last_name":             u.LastName,
		"role":                  u.Role,
		"is_active":             u.IsActive,
		"failed_login_attempts": u.FailedLoginAttempts,
		"locked_until":          u.LockedUntil,
		"last_login":            u.LastLogin,
		"created_at":            u.CreatedAt,
	}
}
