package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/you/fueltrack/domain"
	"github.com/you/fueltrack/internal/http/middleware"
)

// AdminHandlers serves user management, limits, maintenance and the security log
type AdminHandlers struct {
	adminSvc    domain.UserAdminService
	fuelSvc     domain.FuelService
	maintenance domain.MaintenanceService
	events      domain.SecurityEventLog
	debug       bool
}

// NewAdminHandlers creates new admin handlers
func NewAdminHandlers(adminSvc domain.UserAdminService, fuelSvc domain.FuelService, maintenance domain.MaintenanceService, events domain.SecurityEventLog, debug bool) *AdminHandlers {
	return &AdminHandlers{
		adminSvc:    adminSvc,
		fuelSvc:     fuelSvc,
		maintenance: maintenance,
		events:      events,
		debug:       debug,
	}
}

// CreateUserRequest represents an account created by an admin
type CreateUserRequest struct {
	RegisterRequest
	Role string `json:"role"`
}

// CleanupLogsRequest represents a security log retention run
type CleanupLogsRequest struct {
	Days int `json:"days"`
}

// UpdateUserRequest represents an admin edit of a user
type UpdateUserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// SetLimitRequest represents a monthly limit assignment
type SetLimitRequest struct {
	UserID uint            `json:"user_id"`
	Month  string          `json:"month"`
	Limit  decimal.Decimal `json:"limit"`
}

// ListUsers lists users filtered by ?search, ?role and ?active
func (h *AdminHandlers) ListUsers(c *gin.Context) {
	filter := domain.UserFilter{
		Search: c.Query("search"),
		Role:   c.Query("role"),
		Page:   intQuery(c, "page"),
		Limit:  intQuery(c, "limit"),
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "active", "Active must be true or false.")
			return
		}
		filter.Active = &active
	}

	users, total, err := h.adminSvc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to load users.", h.debug)
		return
	}

	views := make([]gin.H, 0, len(users))
	for i := range users {
		views = append(views, userView(&users[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"users": views, "total": total}})
}

// CreateUser creates an account with any role
func (h *AdminHandlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.adminSvc.Create(c.Request.Context(), middleware.CurrentUserFrom(c), domain.CreateUserRequest{
		RegisterRequest: domain.RegisterRequest{
			Username:        req.Username,
			Email:           req.Email,
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Password:        req.Password,
			ConfirmPassword: req.ConfirmPassword,
			Client:          middleware.ClientFrom(c),
		},
		Role: req.Role,
	})
	if err != nil {
		respondError(c, err, "Failed to create user.", h.debug)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"message": "User created successfully.",
			"user":    userView(user),
		},
	})
}

// UpdateUser edits a user's profile and role
func (h *AdminHandlers) UpdateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err := h.adminSvc.Update(c.Request.Context(), middleware.CurrentUserFrom(c), id, domain.UserProfileUpdate{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, req.Role, middleware.ClientFrom(c))
	if err != nil {
		respondError(c, err, "Failed to update user.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "User updated successfully."}})
}

// ActivateUser re-enables a user
func (h *AdminHandlers) ActivateUser(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateUser disables a user and ends their sessions
func (h *AdminHandlers) DeactivateUser(c *gin.Context) {
	h.setActive(c, false)
}

func (h *AdminHandlers) setActive(c *gin.Context, active bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.adminSvc.SetActive(c.Request.Context(), middleware.CurrentUserFrom(c), id, active, middleware.ClientFrom(c)); err != nil {
		respondError(c, err, "Failed to update user status.", h.debug)
		return
	}
	msg := "User deactivated successfully."
	if active {
		msg = "User activated successfully."
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": msg}})
}

// UnlockUser clears a lockout
func (h *AdminHandlers) UnlockUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.adminSvc.Unlock(c.Request.Context(), middleware.CurrentUserFrom(c), id, middleware.ClientFrom(c)); err != nil {
		respondError(c, err, "Failed to unlock user.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "User unlocked successfully."}})
}

// SetLimit sets a user's limit for a month, replacing any existing one
func (h *AdminHandlers) SetLimit(c *gin.Context) {
	var req SetLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.UserID == 0 {
		badRequest(c, "user_id", "Please select a user.")
		return
	}
	month := time.Now()
	if req.Month != "" {
		m, err := time.Parse(monthLayout, req.Month)
		if err != nil {
			badRequest(c, "month", "Month must use the YYYY-MM format.")
			return
		}
		month = m
	}

	limit, err := h.fuelSvc.SetLimit(c.Request.Context(), middleware.CurrentUserFrom(c), req.UserID, month, req.Limit, middleware.ClientFrom(c))
	if err != nil {
		respondError(c, err, "Failed to set limit.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"id":            limit.ID,
			"user_id":       limit.UserID,
			"month":         limit.Month.Format(monthLayout),
			"monthly_limit": limit.MonthlyLimit,
		},
	})
}

// DeleteLimit removes a monthly limit
func (h *AdminHandlers) DeleteLimit(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.fuelSvc.DeleteLimit(c.Request.Context(), middleware.CurrentUserFrom(c), id, middleware.ClientFrom(c)); err != nil {
		respondError(c, err, "Failed to delete limit.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Limit deleted."}})
}

// SecurityLogs lists audit events filtered by ?event_type, ?from, ?to and ?user
func (h *AdminHandlers) SecurityLogs(c *gin.Context) {
	filter := domain.SecurityEventFilter{
		EventType: domain.SecurityEventType(c.Query("event_type")),
		User:      c.Query("user"),
		Page:      intQuery(c, "page"),
		Limit:     intQuery(c, "limit"),
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			badRequest(c, "from", "Dates must use the YYYY-MM-DD format.")
			return
		}
		filter.From = from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			badRequest(c, "to", "Dates must use the YYYY-MM-DD format.")
			return
		}
		// inclusive of the whole day
		filter.To = to.Add(24*time.Hour - time.Nanosecond)
	}

	events, total, err := h.events.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to load security logs.", h.debug)
		return
	}
	if events == nil {
		events = []domain.SecurityEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"events": events, "total": total}})
}

// EventTypes lists the distinct event types present in the log
func (h *AdminHandlers) EventTypes(c *gin.Context) {
	types, err := h.events.EventTypes(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load event types.", h.debug)
		return
	}
	if types == nil {
		types = []domain.SecurityEventType{}
	}
	c.JSON(http.StatusOK, gin.H{"data": types})
}

// Stats summarises users, sessions and the security log
func (h *AdminHandlers) Stats(c *gin.Context) {
	stats, err := h.maintenance.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load statistics.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"users": gin.H{
				"total":  stats.Users.Total,
				"active": stats.Users.Active,
				"locked": stats.Users.Locked,
			},
			"sessions": gin.H{
				"total":  stats.Sessions.Total,
				"active": stats.Sessions.Active,
			},
			"logs": gin.H{
				"total":  stats.TotalLogs,
				"recent": stats.RecentLogs,
			},
		},
	})
}

// CleanupLogs deletes security events older than the requested number of days
func (h *AdminHandlers) CleanupLogs(c *gin.Context) {
	var req CleanupLogsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}
	if req.Days < 0 {
		badRequest(c, "days", "Days must be a positive number.")
		return
	}

	deleted, err := h.maintenance.CleanupLogs(c.Request.Context(), middleware.CurrentUserFrom(c), req.Days, middleware.ClientFrom(c))
	if err != nil {
		respondError(c, err, "Failed to clean up logs.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": fmt.Sprintf("Deleted %d old log entries.", deleted),
			"deleted": deleted,
		},
	})
}

// CleanupSessions deletes expired sessions
func (h *AdminHandlers) CleanupSessions(c *gin.Context) {
	deleted, err := h.maintenance.CleanupSessions(c.Request.Context(), middleware.CurrentUserFrom(c), middleware.ClientFrom(c))
	if err != nil {
		respondError(c, err, "Failed to clean up sessions.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": fmt.Sprintf("Deleted %d expired sessions.", deleted),
			"deleted": deleted,
		},
	})
}

// ResetFailedLogins clears failed login counters and lockouts for every user
func (h *AdminHandlers) ResetFailedLogins(c *gin.Context) {
	reset, err := h.maintenance.ResetFailedLogins(c.Request.Context(), middleware.CurrentUserFrom(c), middleware.ClientFrom(c))
	if err != nil {
		respondError(c, err, "Failed to reset failed logins.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": fmt.Sprintf("Reset failed login attempts for %d users.", reset),
			"reset":   reset,
		},
	})
}
