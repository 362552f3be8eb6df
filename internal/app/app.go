package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/internal/config"
	httpx "github.com/you/fueltrack/internal/http"
	"github.com/you/fueltrack/internal/http/handlers"
	"github.com/you/fueltrack/internal/http/middleware"
)

// housekeepingInterval is how often expired sessions, reset tokens and idle
// throttle buckets are swept
const housekeepingInterval = 5 * time.Minute

// ConfigureLogging applies the configured level and format to the standard logger
func ConfigureLogging(cfg *config.Config) {
	if cfg.LogFormat == "text" || cfg.Debug {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warn("invalid log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// NewRouter builds the HTTP surface on top of a container
func NewRouter(c *Container) (*gin.Engine, error) {
	cfg := c.Config
	cookies := &middleware.Cookies{SessionName: cfg.CookieName, Secure: cfg.SecureCookie}

	r := httpx.BuildRouter(
		httpx.Handlers{
			Auth:   handlers.NewAuthHandlers(c.AuthSvc, c.AccountSvc, cookies, cfg.Debug),
			Fuel:   handlers.NewFuelHandlers(c.FuelSvc, cfg.Debug),
			Admin:  handlers.NewAdminHandlers(c.UserAdminSvc, c.FuelSvc, c.MaintenanceSvc, c.Events, cfg.Debug),
			Policy: handlers.NewPolicyHandlers(c.PolicySvc, c.Events, cfg.Debug),
		},
		httpx.Middleware{
			Auth:     middleware.NewAuthMW(c.AuthSvc, c.Events, cookies),
			Casbin:   middleware.NewCasbinMW(c.PolicySvc, c.Events),
			CSRF:     middleware.NewCSRFMW(c.Events, cfg.SecureCookie),
			Throttle: c.Throttle,
		},
	)
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	return r, nil
}

// Run serves the application until SIGINT or SIGTERM
func Run(cfg *config.Config) error {
	ConfigureLogging(cfg)
	gin.SetMode(cfg.GinMode)

	c, err := NewContainer(cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	r, err := NewRouter(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go housekeeping(ctx, c)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func housekeeping(ctx context.Context, c *Container) {
	ticker := time.NewTicker(housekeepingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions, tokens, err := c.PurgeExpired(ctx)
			if err != nil {
				log.WithError(err).Warn("housekeeping failed")
			} else if sessions > 0 || tokens > 0 {
				log.WithFields(log.Fields{"sessions": sessions, "reset_tokens": tokens}).Info("purged expired records")
			}
			if c.Throttle != nil {
				c.Throttle.Sweep()
			}
		}
	}
}
