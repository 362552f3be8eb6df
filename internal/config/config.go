package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/you/fueltrack/domain"
)

type AppConfig struct {
	Port           int      `yaml:"port"`
	GinMode        string   `yaml:"gin_mode"`
	Debug          bool     `yaml:"debug"`
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	LogLevel string `yaml:"log_level"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SessionConfig struct {
	Lifetime     string `yaml:"lifetime"`
	Store        string `yaml:"store"`
	CookieName   string `yaml:"cookie_name"`
	SecureCookie bool   `yaml:"secure_cookie"`
}

type RateLimitConfig struct {
	Backend        string  `yaml:"backend"`
	LoginMax       int     `yaml:"login_max"`
	LoginWindow    string  `yaml:"login_window"`
	RequestsPerSec float64 `yaml:"requests_per_second"`
	RequestBurst   int     `yaml:"request_burst"`
	ResetMax       int     `yaml:"reset_max"`
	ResetWindow    string  `yaml:"reset_window"`
}

type PasswordConfig struct {
	MinLength      int  `yaml:"min_length"`
	RequireUpper   bool `yaml:"require_uppercase"`
	RequireLower   bool `yaml:"require_lowercase"`
	RequireDigit   bool `yaml:"require_numbers"`
	RequireSpecial bool `yaml:"require_special"`
}

type SecurityConfig struct {
	MaxLoginAttempts int             `yaml:"max_login_attempts"`
	LockoutTime      string          `yaml:"lockout_time"`
	RateLimit        RateLimitConfig `yaml:"rate_limit"`
	Password         PasswordConfig  `yaml:"password"`
	ResetValidity    string          `yaml:"reset_token_validity"`
	ResetURL         string          `yaml:"reset_url"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
	AlertTo    string `yaml:"alert_to"`
}

type CasbinConfig struct {
	ModelPath string `yaml:"model_path"`
}

type ConfigFile struct {
	App      AppConfig      `yaml:"app"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	Security SecurityConfig `yaml:"security"`
	JWT      JWTConfig      `yaml:"jwt"`
	Twilio   TwilioConfig   `yaml:"twilio"`
	Casbin   CasbinConfig   `yaml:"casbin"`
}

type Config struct {
	Port           string
	GinMode        string
	Debug          bool
	TrustedProxies []string
	LogLevel       string
	LogFormat      string

	DSN        string
	DBLogLevel string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionLifetime time.Duration
	SessionStore    string
	CookieName      string
	SecureCookie    bool

	MaxLoginAttempts int
	LockoutTime      time.Duration
	RateLimitBackend string
	LoginRateMax     int
	LoginRateWindow  time.Duration
	RequestsPerSec   float64
	RequestBurst     int
	ResetRateMax     int
	ResetRateWindow  time.Duration
	ResetValidity    time.Duration
	ResetURL         string
	PasswordPolicy   domain.PasswordPolicy

	JWTSecret string
	JWTIssuer string

	TwilioSID     string
	TwilioToken   string
	TwilioFrom    string
	TwilioAlertTo string

	CasbinModelPath string
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Load reads .env, then the YAML file named by CONFIG_PATH, then env overrides
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()
	return LoadFrom(env("CONFIG_PATH", "config/config.yml"))
}

// LoadFrom builds the configuration from the YAML file at path
func LoadFrom(path string) (*Config, error) {
	configFile, err := loadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return FromFile(configFile)
}

// FromFile applies defaults and env overrides to a parsed ConfigFile
func FromFile(configFile *ConfigFile) (*Config, error) {
	applyDefaults(configFile)

	lifetime, err := time.ParseDuration(configFile.Session.Lifetime)
	if err != nil {
		return nil, fmt.Errorf("invalid session lifetime: %w", err)
	}

	lockout, err := time.ParseDuration(configFile.Security.LockoutTime)
	if err != nil {
		return nil, fmt.Errorf("invalid lockout time: %w", err)
	}

	loginWnd := lockout
	if configFile.Security.RateLimit.LoginWindow != "" {
		loginWnd, err = time.ParseDuration(configFile.Security.RateLimit.LoginWindow)
		if err != nil {
			return nil, fmt.Errorf("invalid login rate limit window: %w", err)
		}
	}

	resetWnd, err := time.ParseDuration(configFile.Security.RateLimit.ResetWindow)
	if err != nil {
		return nil, fmt.Errorf("invalid password reset rate limit window: %w", err)
	}

	resetValidity, err := time.ParseDuration(configFile.Security.ResetValidity)
	if err != nil {
		return nil, fmt.Errorf("invalid reset token validity: %w", err)
	}

	loginMax := configFile.Security.RateLimit.LoginMax
	if loginMax == 0 {
		loginMax = configFile.Security.MaxLoginAttempts
	}

	redisDB := configFile.Redis.DB
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		redisDB = n
	}

	pw := configFile.Security.Password

	cfg := &Config{
		Port:           env("PORT", fmt.Sprintf("%d", configFile.App.Port)),
		GinMode:        env("GIN_MODE", configFile.App.GinMode),
		Debug:          env("APP_DEBUG", strconv.FormatBool(configFile.App.Debug)) == "true",
		TrustedProxies: configFile.App.TrustedProxies,
		LogLevel:       env("LOG_LEVEL", configFile.Log.Level),
		LogFormat:      configFile.Log.Format,

		DSN:        env("DATABASE_DSN", configFile.Database.DSN),
		DBLogLevel: configFile.Database.LogLevel,

		RedisAddr:     env("REDIS_ADDR", configFile.Redis.Addr),
		RedisPassword: env("REDIS_PASSWORD", configFile.Redis.Password),
		RedisDB:       redisDB,

		SessionLifetime: lifetime,
		SessionStore:    env("SESSION_STORE", configFile.Session.Store),
		CookieName:      configFile.Session.CookieName,
		SecureCookie:    configFile.Session.SecureCookie,

		MaxLoginAttempts: configFile.Security.MaxLoginAttempts,
		LockoutTime:      lockout,
		RateLimitBackend: env("RATE_LIMIT_BACKEND", configFile.Security.RateLimit.Backend),
		LoginRateMax:     loginMax,
		LoginRateWindow:  loginWnd,
		RequestsPerSec:   configFile.Security.RateLimit.RequestsPerSec,
		RequestBurst:     configFile.Security.RateLimit.RequestBurst,
		ResetRateMax:     configFile.Security.RateLimit.ResetMax,
		ResetRateWindow:  resetWnd,
		ResetValidity:    resetValidity,
		ResetURL:         configFile.Security.ResetURL,
		PasswordPolicy: domain.PasswordPolicy{
			MinLength:      pw.MinLength,
			RequireUpper:   pw.RequireUpper,
			RequireLower:   pw.RequireLower,
			RequireDigit:   pw.RequireDigit,
			RequireSpecial: pw.RequireSpecial,
		},

		JWTSecret: env("JWT_SECRET", configFile.JWT.Secret),
		JWTIssuer: configFile.JWT.Issuer,

		TwilioSID:     env("TWILIO_ACCOUNT_SID", configFile.Twilio.AccountSID),
		TwilioToken:   env("TWILIO_AUTH_TOKEN", configFile.Twilio.AuthToken),
		TwilioFrom:    env("TWILIO_FROM_NUMBER", configFile.Twilio.FromNumber),
		TwilioAlertTo: env("TWILIO_ALERT_TO", configFile.Twilio.AlertTo),

		CasbinModelPath: env("CASBIN_MODEL_PATH", configFile.Casbin.ModelPath),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.MaxLoginAttempts <= 0 {
		return fmt.Errorf("max_login_attempts must be positive")
	}
	switch c.RateLimitBackend {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown rate limit backend %q", c.RateLimitBackend)
	}
	switch c.SessionStore {
	case "redis", "database":
	default:
		return fmt.Errorf("unknown session store %q", c.SessionStore)
	}
	return nil
}

func applyDefaults(f *ConfigFile) {
	if f.App.Port == 0 {
		f.App.Port = 8080
	}
	if f.App.GinMode == "" {
		f.App.GinMode = "release"
	}
	if f.Log.Level == "" {
		f.Log.Level = "info"
	}
	if f.Log.Format == "" {
		f.Log.Format = "json"
	}
	if f.Database.LogLevel == "" {
		f.Database.LogLevel = "warn"
	}
	if f.Session.Lifetime == "" {
		f.Session.Lifetime = "30m"
	}
	if f.Session.Store == "" {
		f.Session.Store = "redis"
	}
	if f.Session.CookieName == "" {
		f.Session.CookieName = "FUEL_TRACKER_SESSION"
	}
	if f.Security.MaxLoginAttempts == 0 {
		f.Security.MaxLoginAttempts = 5
	}
	if f.Security.LockoutTime == "" {
		f.Security.LockoutTime = "60s"
	}
	if f.Security.RateLimit.Backend == "" {
		f.Security.RateLimit.Backend = "redis"
	}
	if f.Security.RateLimit.RequestsPerSec == 0 {
		f.Security.RateLimit.RequestsPerSec = 20
	}
	if f.Security.RateLimit.RequestBurst == 0 {
		f.Security.RateLimit.RequestBurst = 40
	}
	if f.Security.RateLimit.ResetMax == 0 {
		f.Security.RateLimit.ResetMax = 3
	}
	if f.Security.RateLimit.ResetWindow == "" {
		f.Security.RateLimit.ResetWindow = "1h"
	}
	if f.Security.ResetValidity == "" {
		f.Security.ResetValidity = "1h"
	}
	if f.Security.Password == (PasswordConfig{}) {
		def := domain.DefaultPasswordPolicy()
		f.Security.Password = PasswordConfig{
			MinLength:      def.MinLength,
			RequireUpper:   def.RequireUpper,
			RequireLower:   def.RequireLower,
			RequireDigit:   def.RequireDigit,
			RequireSpecial: def.RequireSpecial,
		}
	}
	if f.JWT.Issuer == "" {
		f.JWT.Issuer = "fueltrack"
	}
	if f.Casbin.ModelPath == "" {
		f.Casbin.ModelPath = "config/rbac_model.conf"
	}
}

func loadConfigFile(path string) (*ConfigFile, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(bytes, &config); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	return &config, nil
}
