package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/you/fueltrack/domain"
	"github.com/you/fueltrack/internal/app"
	"github.com/you/fueltrack/internal/config"
	"github.com/you/fueltrack/internal/http/middleware"
)

const testPassword = "Str0ng!Pass"

// testApp is the full application over in-memory SQLite and miniredis
type testApp struct {
	t         *testing.T
	container *app.Container
	server    *httptest.Server
}

func testConfig() *config.Config {
	return &config.Config{
		GinMode:          gin.TestMode,
		LogLevel:         "error",
		SessionLifetime:  30 * time.Minute,
		SessionStore:     "redis",
		CookieName:       "FUEL_TRACKER_SESSION",
		MaxLoginAttempts: 3,
		LockoutTime:      time.Minute,
		RateLimitBackend: "redis",
		LoginRateMax:     20,
		LoginRateWindow:  time.Minute,
		ResetRateMax:     3,
		ResetRateWindow:  time.Hour,
		ResetValidity:    time.Hour,
		ResetURL:         "http://localhost/reset",
		PasswordPolicy:   domain.DefaultPasswordPolicy(),
		JWTSecret:        "e2e-secret",
		JWTIssuer:        "fueltrack",
	}
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log.SetLevel(log.ErrorLevel)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	c, err := app.NewContainerWith(testConfig(), db, rc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	r, err := app.NewRouter(c)
	require.NoError(t, err)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testApp{t: t, container: c, server: srv}
}

// seedUser stores an active user directly, bypassing registration
func (a *testApp) seedUser(username, role string) *domain.User {
	a.t.Helper()
	hash, err := a.container.PasswordSvc.Hash(testPassword)
	require.NoError(a.t, err)
	u := &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(a.t, a.container.UserRepo.Create(context.Background(), u))
	return u
}

// client is one browser: its own cookie jar and CSRF token
type client struct {
	t    *testing.T
	base string
	http *http.Client
	csrf string
}

func (a *testApp) newClient() *client {
	a.t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(a.t, err)
	c := &client{t: a.t, base: a.server.URL, http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}

	status, body := c.do(http.MethodGet, "/auth/csrf", nil)
	require.Equal(a.t, http.StatusOK, status)
	c.csrf = body["data"].(map[string]any)["csrf_token"].(string)
	return c
}

func (c *client) do(method, path string, payload any) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(payload))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.csrf != "" {
		req.Header.Set(middleware.CSRFHeaderName, c.csrf)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	body := map[string]any{}
	if resp.StatusCode != http.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&body)
	}
	return resp.StatusCode, body
}

func (c *client) login(identifier string) {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/auth/login", map[string]string{"identifier": identifier, "password": testPassword})
	require.Equal(c.t, http.StatusOK, status, "login failed: %v", body)
}

func data(body map[string]any) map[string]any {
	d, _ := body["data"].(map[string]any)
	return d
}
