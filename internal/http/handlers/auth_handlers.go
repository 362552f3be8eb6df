package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/fueltrack/domain"
	"github.com/you/fueltrack/internal/http/middleware"
	"github.com/you/fueltrack/internal/services"
)

// AuthHandlers handles login, logout and self-service account requests
type AuthHandlers struct {
	authSvc    domain.AuthService
	accountSvc domain.AccountService
	cookies    *middleware.Cookies
	debug      bool
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, accountSvc domain.AccountService, cookies *middleware.Cookies, debug bool) *AuthHandlers {
	return &AuthHandlers{
		authSvc:    authSvc,
		accountSvc: accountSvc,
		cookies:    cookies,
		debug:      debug,
	}
}

// LoginRequest represents login request
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// ForgotPasswordRequest represents a reset link request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents a token based password reset
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// UpdateProfileRequest represents a profile edit by the signed in user
type UpdateProfileRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// ChangePasswordRequest represents a password change by the signed in user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Login handles user login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	rs := middleware.RequestSessionFrom(c)
	result, err := h.authSvc.Login(c.Request.Context(), domain.LoginRequest{
		Identifier: req.Identifier,
		Password:   req.Password,
		Client:     rs.Client,
	})
	if err != nil {
		c.JSON(loginStatus(err), gin.H{"error": result.Message})
		return
	}

	rs.Attach(result.Session)
	h.cookies.SetSession(c, result.Session.ID)
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": result.Message,
			"role":    result.Role,
			"user":    result.Session.CurrentUser(),
		},
	})
}

func loginStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrMissingField), errors.Is(err, domain.ErrSuspectedInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrAccountLocked), errors.Is(err, domain.ErrUserInactive):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Logout ends the current session. It succeeds for anonymous requests too.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if err := h.authSvc.Logout(c.Request.Context(), middleware.RequestSessionFrom(c)); err != nil {
		respondError(c, err, "Logout failed.", h.debug)
		return
	}
	h.cookies.ClearSession(c)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "You have been logged out."}})
}

// Me returns the signed in user
func (h *AuthHandlers) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": middleware.CurrentUserFrom(c)})
}

// Profile returns the signed in user's stored profile
func (h *AuthHandlers) Profile(c *gin.Context) {
	user, err := h.accountSvc.Profile(c.Request.Context(), middleware.CurrentUserFrom(c).ID)
	if err != nil {
		respondError(c, err, "Failed to load profile.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": userView(user)})
}

// UpdateProfile edits the signed in user's name and email
func (h *AuthHandlers) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.accountSvc.UpdateProfile(c.Request.Context(), domain.UpdateProfileRequest{
		UserID:    middleware.CurrentUserFrom(c).ID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Client:    middleware.ClientFrom(c),
	})
	if err != nil {
		respondError(c, err, "Failed to update profile.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "Profile updated successfully.",
			"user":    userView(user),
		},
	})
}

// Register handles employee self-registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.accountSvc.Register(c.Request.Context(), domain.RegisterRequest{
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Client:          middleware.ClientFrom(c),
	})
	if err != nil {
		respondError(c, err, services.MsgRegistrationFailed, h.debug)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"message": "Registration successful. You can now log in.",
			"user_id": user.ID,
		},
	})
}

// ForgotPassword sends a reset link when the account exists. The response
// is the same whether or not it does.
func (h *AuthHandlers) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.accountSvc.RequestPasswordReset(c.Request.Context(), req.Email, middleware.ClientFrom(c)); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			respondError(c, err, services.MsgResetRateLimited, h.debug)
			return
		}
		respondError(c, err, "An error occurred. Please try again later.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": services.MsgResetRequested}})
}

// ResetPassword sets a new password from a reset token
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	err := h.accountSvc.ResetPassword(c.Request.Context(), domain.ResetPasswordRequest{
		Token:           req.Token,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
		Client:          middleware.ClientFrom(c),
	})
	if err != nil {
		respondError(c, err, "An error occurred. Please try again later.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": services.MsgResetSuccess}})
}

// ChangePassword changes the signed in user's password
func (h *AuthHandlers) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user := middleware.CurrentUserFrom(c)
	err := h.accountSvc.ChangePassword(c.Request.Context(), domain.ChangePasswordRequest{
		UserID:          user.ID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
		Client:          middleware.ClientFrom(c),
	})
	if err != nil {
		respondError(c, err, "Failed to change password.", h.debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": services.MsgPasswordChanged}})
}
