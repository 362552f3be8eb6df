package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/fueltrack/internal/http/handlers"
	"github.com/you/fueltrack/internal/http/middleware"
	"github.com/you/fueltrack/internal/infrastructure/ratelimit"
)

// Handlers groups the route handlers mounted by BuildRouter
type Handlers struct {
	Auth   *handlers.AuthHandlers
	Fuel   *handlers.FuelHandlers
	Admin  *handlers.AdminHandlers
	Policy *handlers.PolicyHandlers
}

// Middleware groups the middleware chain mounted by BuildRouter
type Middleware struct {
	Auth     *middleware.AuthMW
	Casbin   *middleware.CasbinMW
	CSRF     *middleware.CSRFMW
	Throttle *ratelimit.ClientThrottle
}

func BuildRouter(h Handlers, mw Middleware) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery(), middleware.SecurityHeaders())
	if mw.Throttle != nil {
		r.Use(middleware.Throttle(mw.Throttle))
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	r.Use(mw.Auth.WithSession(), mw.CSRF.Protect())

	auth := r.Group("/auth")
	auth.GET("/csrf", mw.CSRF.Issue)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", h.Auth.Logout)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/password/forgot", h.Auth.ForgotPassword)
	auth.POST("/password/reset", h.Auth.ResetPassword)

	me := r.Group("/auth", mw.Auth.RequireLogin())
	me.GET("/me", h.Auth.Me)
	me.GET("/profile", h.Auth.Profile)
	me.PUT("/profile", h.Auth.UpdateProfile)
	me.POST("/password/change", h.Auth.ChangePassword)

	fuel := r.Group("/fuel", mw.Auth.RequireLogin(), mw.Casbin.Enforce())
	fuel.GET("/records", h.Fuel.ListRecords)
	fuel.POST("/records", h.Fuel.AddRecord)
	fuel.DELETE("/records/:id", h.Fuel.DeleteRecord)
	fuel.GET("/summary", h.Fuel.Summary)

	mgr := r.Group("/manager", mw.Auth.RequireLogin(), mw.Casbin.Enforce())
	mgr.GET("/reports/monthly", h.Fuel.MonthlyReport)
	mgr.GET("/reports/yearly", h.Fuel.YearlyReport)

	adm := r.Group("/admin", mw.Auth.RequireLogin(), mw.Auth.RequireAdmin(), mw.Casbin.Enforce())
	adm.GET("/users", h.Admin.ListUsers)
	adm.POST("/users", h.Admin.CreateUser)
	adm.PATCH("/users/:id", h.Admin.UpdateUser)
	adm.POST("/users/:id/activate", h.Admin.ActivateUser)
	adm.POST("/users/:id/deactivate", h.Admin.DeactivateUser)
	adm.POST("/users/:id/unlock", h.Admin.UnlockUser)
	adm.PUT("/limits", h.Admin.SetLimit)
	adm.DELETE("/limits/:id", h.Admin.DeleteLimit)
	adm.GET("/security-logs", h.Admin.SecurityLogs)
	adm.GET("/security-logs/types", h.Admin.EventTypes)
	adm.GET("/maintenance/stats", h.Admin.Stats)
	adm.POST("/maintenance/cleanup-logs", h.Admin.CleanupLogs)
	adm.POST("/maintenance/cleanup-sessions", h.Admin.CleanupSessions)
	adm.POST("/maintenance/reset-failed-logins", h.Admin.ResetFailedLogins)
	adm.GET("/policies", h.Policy.List)
	adm.POST("/policies", h.Policy.Add)
	adm.DELETE("/policies", h.Policy.Remove)

	return r
}
