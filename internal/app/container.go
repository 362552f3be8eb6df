package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/you/fueltrack/domain"
	"github.com/you/fueltrack/internal/config"
	"github.com/you/fueltrack/internal/infrastructure/auth"
	"github.com/you/fueltrack/internal/infrastructure/database"
	"github.com/you/fueltrack/internal/infrastructure/notifications"
	"github.com/you/fueltrack/internal/infrastructure/ratelimit"
	"github.com/you/fueltrack/internal/infrastructure/repositories"
	"github.com/you/fueltrack/internal/services"
)

// bcryptCost is the work factor for stored password hashes
const bcryptCost = 12

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client
	Casbin      *auth.CasbinService

	// Repositories
	UserRepo       domain.UserRepository
	SessionRepo    domain.SessionRepository
	ResetTokenRepo domain.ResetTokenRepository
	FuelRepo       domain.FuelRepository
	SecurityLog    domain.SecurityEventLog

	// Services
	PasswordSvc     domain.PasswordService
	ResetTokenSvc   domain.ResetTokenService
	NotificationSvc domain.NotificationService
	Limiter         domain.RateLimiter
	Events          *services.SecurityEventRecorder
	Sessions        *services.SessionManager
	AuthSvc         domain.AuthService
	AccountSvc      domain.AccountService
	UserAdminSvc    domain.UserAdminService
	FuelSvc         domain.FuelService
	MaintenanceSvc  domain.MaintenanceService
	PolicySvc       domain.PolicyService
	Throttle        *ratelimit.ClientThrottle
}

// NewContainer creates and initializes all dependencies
func NewContainer(cfg *config.Config) (*Container, error) {
	container := &Container{Config: cfg}

	if err := container.initDatabase(); err != nil {
		return nil, err
	}
	if err := container.initRedis(); err != nil {
		container.Close()
		return nil, err
	}
	if err := container.wire(); err != nil {
		container.Close()
		return nil, err
	}
	return container, nil
}

// NewContainerWith wires the application over already open connections.
// rc may be nil when neither sessions nor the limiter use Redis.
func NewContainerWith(cfg *config.Config, db *gorm.DB, rc *redis.Client) (*Container, error) {
	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}
	container := &Container{Config: cfg, DB: db, RedisClient: rc}
	if err := container.wire(); err != nil {
		return nil, err
	}
	return container, nil
}

func (c *Container) wire() error {
	c.initRepositories()
	return c.initServices()
}

func (c *Container) initDatabase() error {
	db, err := database.Open(c.Config.DSN, c.Config.DBLogLevel)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return err
	}
	c.DB = db
	return nil
}

// initRedis connects Redis when a component is configured to use it
func (c *Container) initRedis() error {
	if c.Config.SessionStore != "redis" && c.Config.RateLimitBackend != "redis" {
		return nil
	}
	rc := database.NewRedis(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx); err != nil {
		_ = rc.Close()
		return err
	}
	c.RedisClient = rc.Client
	return nil
}

func (c *Container) initRepositories() {
	c.UserRepo = repositories.NewUserRepository(c.DB)
	c.ResetTokenRepo = repositories.NewResetTokenRepository(c.DB)
	c.FuelRepo = repositories.NewFuelRepository(c.DB)
	c.SecurityLog = repositories.NewSecurityLogRepository(c.DB)
	if c.Config.SessionStore == "redis" {
		c.SessionRepo = repositories.NewSessionRepository(c.RedisClient, c.Config.SessionLifetime)
	} else {
		c.SessionRepo = repositories.NewDBSessionRepository(c.DB)
	}
}

func (c *Container) initServices() error {
	cfg := c.Config

	c.PasswordSvc = auth.NewPasswordService(bcryptCost)
	c.ResetTokenSvc = auth.NewResetTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.ResetValidity, nil)
	c.NotificationSvc = notifications.NewTwilioService(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom)

	limiter, err := ratelimit.New(cfg.RateLimitBackend, c.RedisClient)
	if err != nil {
		return err
	}
	c.Limiter = limiter

	c.Events = services.NewSecurityEventRecorder(c.SecurityLog, c.NotificationSvc, cfg.TwilioAlertTo)
	c.Sessions = services.NewSessionManager(c.SessionRepo, c.Events, cfg.SessionLifetime, nil)

	cas, err := auth.NewCasbinService(c.DB, cfg.CasbinModelPath)
	if err != nil {
		return fmt.Errorf("failed to initialize casbin: %w", err)
	}
	seeded, err := cas.SeedDefaults()
	if err != nil {
		return fmt.Errorf("failed to seed policies: %w", err)
	}
	if seeded {
		log.Info("casbin: seeded default policies")
	}
	c.Casbin = cas
	c.PolicySvc = services.NewPolicyService(cas.E)

	c.AuthSvc = services.NewAuthService(
		c.UserRepo,
		c.Sessions,
		c.Limiter,
		c.PasswordSvc,
		c.Events,
		services.AuthConfig{
			MaxLoginAttempts: cfg.MaxLoginAttempts,
			LockoutTime:      cfg.LockoutTime,
			RateLimitMax:     cfg.LoginRateMax,
			RateLimitWindow:  cfg.LoginRateWindow,
			Debug:            cfg.Debug,
		},
		nil,
	)
	c.AccountSvc = services.NewAccountService(
		c.UserRepo,
		c.PasswordSvc,
		cfg.PasswordPolicy,
		c.Limiter,
		c.ResetTokenSvc,
		c.ResetTokenRepo,
		c.NotificationSvc,
		c.Sessions,
		c.Events,
		services.AccountConfig{
			ResetRateMax:    cfg.ResetRateMax,
			ResetRateWindow: cfg.ResetRateWindow,
			ResetURL:        cfg.ResetURL,
		},
		nil,
	)
	c.UserAdminSvc = services.NewUserAdminService(c.UserRepo, c.PasswordSvc, cfg.PasswordPolicy, c.Sessions, c.Events)
	c.FuelSvc = services.NewFuelService(c.FuelRepo, c.UserRepo, c.Events, nil)
	c.MaintenanceSvc = services.NewMaintenanceService(c.UserRepo, c.Sessions, c.Events, nil)

	if cfg.RequestsPerSec > 0 {
		c.Throttle = ratelimit.NewClientThrottle(cfg.RequestsPerSec, cfg.RequestBurst, 0, nil)
	}
	return nil
}

// PurgeExpired removes expired sessions and reset tokens
func (c *Container) PurgeExpired(ctx context.Context) (sessions, tokens int64, err error) {
	sessions, err = c.Sessions.PurgeExpired(ctx)
	if err != nil {
		return 0, 0, err
	}
	tokens, err = c.ResetTokenRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return sessions, 0, err
	}
	return sessions, tokens, nil
}

// Close closes all connections
func (c *Container) Close() error {
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}
	if c.DB != nil {
		return database.Close(c.DB)
	}
	return nil
}
