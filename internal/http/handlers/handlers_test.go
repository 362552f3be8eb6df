package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/fueltrack/domain"
	"github.com/you/fueltrack/internal/http/middleware"
	"github.com/you/fueltrack/internal/mocks"
	"github.com/you/fueltrack/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testUser = &domain.CurrentUser{ID: 7, Username: "jdoe", Email: "jdoe@example.com", Role: domain.RoleEmployee}

// asUser stands in for RequireLogin
func asUser(u *domain.CurrentUser) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CurrentUserKey, u)
		c.Next()
	}
}

func doJSON(r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestAuthHandlers_Login(t *testing.T) {
	session := &domain.Session{ID: "new-session", UserID: 7, Username: "jdoe", Role: domain.RoleEmployee}

	tests := []struct {
		name           string
		body           any
		setupMocks     func(*mocks.MockAuthService)
		expectedStatus int
		expectedError  string
		expectCookie   bool
	}{
		{
			name: "success sets session cookie",
			body: LoginRequest{Identifier: "jdoe", Password: "secret"},
			setupMocks: func(m *mocks.MockAuthService) {
				m.LoginFunc = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
					return &domain.LoginResult{Success: true, Message: services.MsgLoginSuccess, Role: domain.RoleEmployee, Session: session}, nil
				}
			},
			expectedStatus: http.StatusOK,
			expectCookie:   true,
		},
		{
			name:           "invalid credentials",
			body:           LoginRequest{Identifier: "jdoe", Password: "bad"},
			expectedStatus: http.StatusUnauthorized,
			expectedError:  "Invalid username or password.",
		},
		{
			name: "rate limited",
			body: LoginRequest{Identifier: "jdoe", Password: "bad"},
			setupMocks: func(m *mocks.MockAuthService) {
				m.LoginFunc = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
					return &domain.LoginResult{Message: services.MsgTooManyAttempts}, domain.ErrRateLimited
				}
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedError:  services.MsgTooManyAttempts,
		},
		{
			name: "locked",
			body: LoginRequest{Identifier: "jdoe", Password: "secret"},
			setupMocks: func(m *mocks.MockAuthService) {
				m.LoginFunc = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
					return &domain.LoginResult{Message: services.MsgAccountLocked}, domain.ErrAccountLocked
				}
			},
			expectedStatus: http.StatusForbidden,
			expectedError:  services.MsgAccountLocked,
		},
		{
			name: "missing fields",
			body: LoginRequest{},
			setupMocks: func(m *mocks.MockAuthService) {
				m.LoginFunc = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
					return &domain.LoginResult{Message: services.MsgMissingFields}, domain.ErrMissingField
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  services.MsgMissingFields,
		},
		{
			name: "store failure",
			body: LoginRequest{Identifier: "jdoe", Password: "secret"},
			setupMocks: func(m *mocks.MockAuthService) {
				m.LoginFunc = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
					return &domain.LoginResult{Message: services.MsgLoginStoreFailed}, fmt.Errorf("%w: boom", domain.ErrStoreUnavailable)
				}
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  services.MsgLoginStoreFailed,
		},
		{
			name:           "malformed body",
			body:           "{",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authSvc := mocks.NewMockAuthService()
			if tt.setupMocks != nil {
				tt.setupMocks(authSvc)
			}
			h := NewAuthHandlers(authSvc, mocks.NewMockAccountService(), &middleware.Cookies{SessionName: "FUEL_TRACKER_SESSION"}, false)
			r := gin.New()
			r.POST("/auth/login", h.Login)

			w, body := doJSON(r, http.MethodPost, "/auth/login", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, body["error"])
			}
			cookies := w.Result().Cookies()
			if tt.expectCookie {
				require.Len(t, cookies, 1)
				assert.Equal(t, "new-session", cookies[0].Value)
				assert.Equal(t, domain.RoleEmployee, body["data"].(map[string]any)["role"])
			} else {
				assert.Empty(t, cookies)
			}
		})
	}
}

func TestAuthHandlers_LoginPassesClientContext(t *testing.T) {
	authSvc := mocks.NewMockAuthService()
	var got domain.LoginRequest
	authSvc.LoginFunc = func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
		got = req
		return &domain.LoginResult{Message: services.MsgInvalidLogin}, domain.ErrInvalidCredentials
	}
	cookies := &middleware.Cookies{SessionName: "FUEL_TRACKER_SESSION"}
	h := NewAuthHandlers(authSvc, mocks.NewMockAccountService(), cookies, false)
	r := gin.New()
	r.Use(middleware.NewAuthMW(authSvc, mocks.NewMockSecurityEventLog(), cookies).WithSession())
	r.POST("/auth/login", h.Login)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"identifier":"jdoe","password":"x"}`))
	req.Header.Set("User-Agent", "agent/1.0")
	req.AddCookie(&http.Cookie{Name: "FUEL_TRACKER_SESSION", Value: "old-session"})
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "jdoe", got.Identifier)
	assert.Equal(t, "agent/1.0", got.Client.UserAgent)
	assert.Equal(t, "old-session", got.Client.SessionID)
}

func TestAuthHandlers_Logout(t *testing.T) {
	authSvc := mocks.NewMockAuthService()
	called := false
	authSvc.LogoutFunc = func(ctx context.Context, rs *domain.RequestSession) error {
		called = true
		return nil
	}
	h := NewAuthHandlers(authSvc, mocks.NewMockAccountService(), &middleware.Cookies{SessionName: "FUEL_TRACKER_SESSION"}, false)
	r := gin.New()
	r.POST("/auth/logout", h.Logout)

	w, _ := doJSON(r, http.MethodPost, "/auth/logout", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestAuthHandlers_Register(t *testing.T) {
	tests := []struct {
		name           string
		registerErr    error
		expectedStatus int
		expectedField  string
	}{
		{name: "created", expectedStatus: http.StatusCreated},
		{
			name:           "validation errors",
			registerErr:    domain.ValidationErrors{"username": {"Username already exists."}},
			expectedStatus: http.StatusBadRequest,
			expectedField:  "username",
		},
		{
			name:           "suspected input",
			registerErr:    fmt.Errorf("%w: %w", domain.ErrSuspectedInput, domain.ValidationErrors{"form": {services.MsgInvalidInput}}),
			expectedStatus: http.StatusBadRequest,
			expectedField:  "form",
		},
		{
			name:           "store failure hides cause",
			registerErr:    fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := mocks.NewMockAccountService()
			if tt.registerErr != nil {
				account.RegisterFunc = func(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
					return nil, tt.registerErr
				}
			}
			h := NewAuthHandlers(mocks.NewMockAuthService(), account, &middleware.Cookies{SessionName: "s"}, false)
			r := gin.New()
			r.POST("/auth/register", h.Register)

			w, body := doJSON(r, http.MethodPost, "/auth/register", RegisterRequest{Username: "jdoe", Email: "jdoe@example.com"})

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedField != "" {
				assert.Contains(t, body["fields"], tt.expectedField)
			}
			if tt.expectedStatus == http.StatusInternalServerError {
				assert.Equal(t, services.MsgRegistrationFailed, body["error"])
			}
		})
	}
}

func TestAuthHandlers_ForgotPassword(t *testing.T) {
	tests := []struct {
		name           string
		resetErr       error
		expectedStatus int
		expectedBody   string
	}{
		{name: "accepted", expectedStatus: http.StatusOK, expectedBody: services.MsgResetRequested},
		{name: "rate limited", resetErr: domain.ErrRateLimited, expectedStatus: http.StatusTooManyRequests, expectedBody: services.MsgResetRateLimited},
		{
			name:           "invalid email",
			resetErr:       domain.ValidationErrors{"email": {"Please enter a valid email address."}},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "Please enter a valid email address.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := mocks.NewMockAccountService()
			account.RequestPasswordResetFunc = func(ctx context.Context, email string, client domain.ClientContext) error {
				return tt.resetErr
			}
			h := NewAuthHandlers(mocks.NewMockAuthService(), account, &middleware.Cookies{SessionName: "s"}, false)
			r := gin.New()
			r.POST("/auth/password/forgot", h.ForgotPassword)

			w, _ := doJSON(r, http.MethodPost, "/auth/password/forgot", ForgotPasswordRequest{Email: "jdoe@example.com"})

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}

func TestAuthHandlers_ResetPassword(t *testing.T) {
	for _, tokenErr := range []error{domain.ErrTokenInvalid, domain.ErrTokenExpired, domain.ErrTokenUsed} {
		t.Run(tokenErr.Error(), func(t *testing.T) {
			account := mocks.NewMockAccountService()
			account.ResetPasswordFunc = func(ctx context.Context, req domain.ResetPasswordRequest) error {
				return tokenErr
			}
			h := NewAuthHandlers(mocks.NewMockAuthService(), account, &middleware.Cookies{SessionName: "s"}, false)
			r := gin.New()
			r.POST("/auth/password/reset", h.ResetPassword)

			w, body := doJSON(r, http.MethodPost, "/auth/password/reset", ResetPasswordRequest{Token: "t", NewPassword: "Str0ng!Pass", ConfirmPassword: "Str0ng!Pass"})

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, services.MsgResetTokenInvalid, body["error"])
		})
	}
}

func TestAuthHandlers_ChangePassword(t *testing.T) {
	account := mocks.NewMockAccountService()
	var got domain.ChangePasswordRequest
	account.ChangePasswordFunc = func(ctx context.Context, req domain.ChangePasswordRequest) error {
		got = req
		return nil
	}
	h := NewAuthHandlers(mocks.NewMockAuthService(), account, &middleware.Cookies{SessionName: "s"}, false)
	r := gin.New()
	r.POST("/auth/password/change", asUser(testUser), h.ChangePassword)

	w, body := doJSON(r, http.MethodPost, "/auth/password/change", ChangePasswordRequest{CurrentPassword: "old", NewPassword: "N3w!Passw", ConfirmPassword: "N3w!Passw"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, services.MsgPasswordChanged, body["data"].(map[string]any)["message"])
	assert.Equal(t, uint(7), got.UserID)
	assert.Equal(t, "old", got.CurrentPassword)
}

func TestAuthHandlers_Profile(t *testing.T) {
	account := mocks.NewMockAccountService()
	stored := &domain.User{ID: 7, Username: "jdoe", Email: "jdoe@example.com", FirstName: "Jane", LastName: "Doe", PasswordHash: "secret-hash", Role: domain.RoleEmployee}
	account.ProfileFunc = func(ctx context.Context, userID uint) (*domain.User, error) {
		if userID != stored.ID {
			return nil, domain.ErrUserNotFound
		}
		return stored, nil
	}
	var got domain.UpdateProfileRequest
	account.UpdateProfileFunc = func(ctx context.Context, req domain.UpdateProfileRequest) (*domain.User, error) {
		got = req
		if req.Email == "taken@example.com" {
			return nil, domain.ValidationErrors{"email": {"Email already exists."}}
		}
		updated := *stored
		updated.Email, updated.FirstName, updated.LastName = req.Email, req.FirstName, req.LastName
		return &updated, nil
	}
	h := NewAuthHandlers(mocks.NewMockAuthService(), account, &middleware.Cookies{SessionName: "s"}, false)
	r := gin.New()
	g := r.Group("/auth", asUser(testUser))
	g.GET("/profile", h.Profile)
	g.PUT("/profile", h.UpdateProfile)

	w, body := doJSON(r, http.MethodGet, "/auth/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Jane", body["data"].(map[string]any)["first_name"])
	assert.NotContains(t, w.Body.String(), "secret-hash")

	w, body = doJSON(r, http.MethodPut, "/auth/profile", UpdateProfileRequest{Email: "jane@example.com", FirstName: "Janet", LastName: "Doe"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(7), got.UserID, "the profile edited is always the caller's")
	user := body["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "jane@example.com", user["email"])
	assert.Equal(t, "jdoe", user["username"])

	w, body = doJSON(r, http.MethodPut, "/auth/profile", UpdateProfileRequest{Email: "taken@example.com", FirstName: "J", LastName: "D"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["fields"], "email")

	w, _ = doJSON(r, http.MethodPut, "/auth/profile", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFuelHandlers_YearlyReport(t *testing.T) {
	fuel := mocks.NewMockFuelService()
	var gotYear int
	fuel.YearlyReportFunc = func(ctx context.Context, year int) (*domain.YearlyReport, error) {
		gotYear = year
		if year == 0 {
			year = 2026
		}
		return &domain.YearlyReport{
			Year: year,
			Months: []domain.MonthTotals{
				{Month: time.March, ActiveUsers: 2, Records: 3, Liters: decimal.NewFromInt(90), TotalCost: decimal.NewFromInt(16200), AvgPrice: decimal.NewFromInt(180)},
			},
			Records:   3,
			Liters:    decimal.NewFromInt(90),
			TotalCost: decimal.NewFromInt(16200),
		}, nil
	}
	h := NewFuelHandlers(fuel, false)
	r := gin.New()
	r.GET("/manager/reports/yearly", h.YearlyReport)

	w, body := doJSON(r, http.MethodGet, "/manager/reports/yearly", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, gotYear)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(2026), data["year"])
	assert.Equal(t, services.Currency, data["currency"])
	months := data["months"].([]any)
	require.Len(t, months, 1)
	assert.Equal(t, "2026-03", months[0].(map[string]any)["month"])
	assert.Equal(t, float64(2), months[0].(map[string]any)["active_users"])

	w, body = doJSON(r, http.MethodGet, "/manager/reports/yearly?year=2024", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2024, gotYear)
	assert.Equal(t, "2024-03", body["data"].(map[string]any)["months"].([]any)[0].(map[string]any)["month"])

	for _, bad := range []string{"abc", "99", "20245"} {
		w, body = doJSON(r, http.MethodGet, "/manager/reports/yearly?year="+bad, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
		assert.Contains(t, body["fields"], "year")
	}
}

func TestFuelHandlers_AddRecord(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		addErr         error
		expectedStatus int
		expectedField  string
	}{
		{
			name:           "created",
			body:           map[string]any{"date": "2026-03-10", "mileage": 1200, "liters": "40.5", "price_per_liter": 150.25},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad date format",
			body:           map[string]any{"date": "10.03.2026", "mileage": 1200, "liters": "40", "price_per_liter": "150"},
			expectedStatus: http.StatusBadRequest,
			expectedField:  "date",
		},
		{
			name:           "limit exceeded",
			body:           map[string]any{"date": "2026-03-10", "mileage": 1200, "liters": "40", "price_per_liter": "150"},
			addErr:         fmt.Errorf("%w: %w", domain.ErrLimitExceeded, domain.ValidationErrors{"total_cost": {"This purchase would exceed your monthly limit."}}),
			expectedStatus: http.StatusBadRequest,
			expectedField:  "total_cost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fuel := mocks.NewMockFuelService()
			var got domain.AddFuelRecordRequest
			fuel.AddRecordFunc = func(ctx context.Context, req domain.AddFuelRecordRequest) (*domain.FuelRecord, error) {
				got = req
				if tt.addErr != nil {
					return nil, tt.addErr
				}
				return &domain.FuelRecord{ID: 1, UserID: req.UserID, Date: req.Date, TotalCost: req.Liters.Mul(req.PricePerLiter).Round(2)}, nil
			}
			h := NewFuelHandlers(fuel, false)
			r := gin.New()
			r.POST("/fuel/records", asUser(testUser), h.AddRecord)

			w, body := doJSON(r, http.MethodPost, "/fuel/records", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedField != "" {
				assert.Contains(t, body["fields"], tt.expectedField)
			}
			if tt.expectedStatus == http.StatusCreated {
				assert.Equal(t, uint(7), got.UserID)
				assert.True(t, got.Liters.Equal(decimal.RequireFromString("40.5")))
				assert.True(t, got.PricePerLiter.Equal(decimal.RequireFromString("150.25")))
				assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), got.Date)
				assert.Equal(t, "Fuel record added: 6,085.13 RSD", body["data"].(map[string]any)["message"])
			}
		})
	}
}

func TestFuelHandlers_ListAndSummary(t *testing.T) {
	fuel := mocks.NewMockFuelService()
	var filter domain.FuelRecordFilter
	fuel.ListRecordsFunc = func(ctx context.Context, f domain.FuelRecordFilter) ([]domain.FuelRecord, int64, error) {
		filter = f
		return []domain.FuelRecord{{ID: 3, Mileage: 1000}}, 1, nil
	}
	limit := decimal.NewFromInt(10000)
	fuel.SummaryFunc = func(ctx context.Context, userID uint, month time.Time) (*domain.MonthlySpending, error) {
		return &domain.MonthlySpending{UserID: userID, Records: 2, TotalCost: decimal.NewFromInt(2500), Limit: &limit}, nil
	}
	h := NewFuelHandlers(fuel, false)
	r := gin.New()
	r.GET("/fuel/records", asUser(testUser), h.ListRecords)
	r.GET("/fuel/summary", asUser(testUser), h.Summary)

	w, body := doJSON(r, http.MethodGet, "/fuel/records?month=2026-03&page=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["total"])
	assert.Equal(t, uint(7), filter.UserID)
	assert.Equal(t, 2, filter.Page)
	require.NotNil(t, filter.Month)
	assert.Equal(t, time.March, filter.Month.Month())

	w, _ = doJSON(r, http.MethodGet, "/fuel/records?month=March", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = doJSON(r, http.MethodGet, "/fuel/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7500", body["data"].(map[string]any)["remaining"])
}

func TestFuelHandlers_DeleteRecord(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		deleteErr      error
		expectedStatus int
	}{
		{name: "deleted", path: "/fuel/records/5", expectedStatus: http.StatusOK},
		{name: "not owned", path: "/fuel/records/5", deleteErr: domain.ErrRecordNotFound, expectedStatus: http.StatusNotFound},
		{name: "bad id", path: "/fuel/records/abc", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fuel := mocks.NewMockFuelService()
			fuel.DeleteRecordFunc = func(ctx context.Context, userID, recordID uint, client domain.ClientContext) error {
				assert.Equal(t, uint(7), userID)
				assert.Equal(t, uint(5), recordID)
				return tt.deleteErr
			}
			h := NewFuelHandlers(fuel, false)
			r := gin.New()
			r.DELETE("/fuel/records/:id", asUser(testUser), h.DeleteRecord)

			w, _ := doJSON(r, http.MethodDelete, tt.path, nil)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestAdminHandlers_UserActions(t *testing.T) {
	admin := &domain.CurrentUser{ID: 1, Username: "root", Role: domain.RoleAdmin}

	tests := []struct {
		name           string
		method         string
		path           string
		body           any
		setupMocks     func(*mocks.MockUserAdminService)
		expectedStatus int
	}{
		{name: "deactivate", method: http.MethodPost, path: "/admin/users/2/deactivate", expectedStatus: http.StatusOK},
		{
			name:   "deactivate admin is forbidden",
			method: http.MethodPost,
			path:   "/admin/users/1/deactivate",
			setupMocks: func(m *mocks.MockUserAdminService) {
				m.SetActiveFunc = func(ctx context.Context, actor *domain.CurrentUser, userID uint, active bool, client domain.ClientContext) error {
					return domain.ErrProtectedUser
				}
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:   "unlock unknown user",
			method: http.MethodPost,
			path:   "/admin/users/99/unlock",
			setupMocks: func(m *mocks.MockUserAdminService) {
				m.UnlockFunc = func(ctx context.Context, actor *domain.CurrentUser, userID uint, client domain.ClientContext) error {
					return domain.ErrUserNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "demoting last admin",
			method: http.MethodPatch,
			path:   "/admin/users/1",
			body:   UpdateUserRequest{Username: "root", Email: "root@example.com", FirstName: "R", LastName: "T", Role: domain.RoleEmployee},
			setupMocks: func(m *mocks.MockUserAdminService) {
				m.UpdateFunc = func(ctx context.Context, actor *domain.CurrentUser, userID uint, update domain.UserProfileUpdate, role string, client domain.ClientContext) error {
					assert.Equal(t, "root", update.Username)
					assert.Equal(t, domain.RoleEmployee, role)
					return fmt.Errorf("%w: %w", domain.ErrLastAdmin, domain.ValidationErrors{"role": {services.MsgLastAdmin}})
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adminSvc := mocks.NewMockUserAdminService()
			if tt.setupMocks != nil {
				tt.setupMocks(adminSvc)
			}
			h := NewAdminHandlers(adminSvc, mocks.NewMockFuelService(), mocks.NewMockMaintenanceService(), mocks.NewMockSecurityEventLog(), false)
			r := gin.New()
			g := r.Group("/admin", asUser(admin))
			g.PATCH("/users/:id", h.UpdateUser)
			g.POST("/users/:id/deactivate", h.DeactivateUser)
			g.POST("/users/:id/unlock", h.UnlockUser)

			w, _ := doJSON(r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestAdminHandlers_ListUsers(t *testing.T) {
	adminSvc := mocks.NewMockUserAdminService()
	var filter domain.UserFilter
	adminSvc.ListFunc = func(ctx context.Context, f domain.UserFilter) ([]domain.User, int64, error) {
		filter = f
		return []domain.User{{ID: 2, Username: "driver", PasswordHash: "secret-hash", Role: domain.RoleEmployee, IsActive: true}}, 1, nil
	}
	h := NewAdminHandlers(adminSvc, mocks.NewMockFuelService(), mocks.NewMockMaintenanceService(), mocks.NewMockSecurityEventLog(), false)
	r := gin.New()
	r.GET("/admin/users", h.ListUsers)

	w, _ := doJSON(r, http.MethodGet, "/admin/users?search=dri&role=employee&active=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "dri", filter.Search)
	require.NotNil(t, filter.Active)
	assert.True(t, *filter.Active)
	assert.NotContains(t, w.Body.String(), "secret-hash")

	w, _ = doJSON(r, http.MethodGet, "/admin/users?active=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandlers_Limits(t *testing.T) {
	fuel := mocks.NewMockFuelService()
	var gotMonth time.Time
	fuel.SetLimitFunc = func(ctx context.Context, actor *domain.CurrentUser, userID uint, month time.Time, amount decimal.Decimal, client domain.ClientContext) (*domain.FuelLimit, error) {
		gotMonth = month
		if !amount.IsPositive() {
			return nil, domain.ValidationErrors{"limit": {"Limit must be a positive number."}}
		}
		return &domain.FuelLimit{ID: 4, UserID: userID, Month: domain.MonthStart(month), MonthlyLimit: amount}, nil
	}
	fuel.DeleteLimitFunc = func(ctx context.Context, actor *domain.CurrentUser, limitID uint, client domain.ClientContext) error {
		return domain.ErrRecordNotFound
	}
	h := NewAdminHandlers(mocks.NewMockUserAdminService(), fuel, mocks.NewMockMaintenanceService(), mocks.NewMockSecurityEventLog(), false)
	r := gin.New()
	g := r.Group("/admin", asUser(&domain.CurrentUser{ID: 1, Role: domain.RoleAdmin}))
	g.PUT("/limits", h.SetLimit)
	g.DELETE("/limits/:id", h.DeleteLimit)

	w, body := doJSON(r, http.MethodPut, "/admin/limits", map[string]any{"user_id": 2, "month": "2026-04", "limit": "12000"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-04", body["data"].(map[string]any)["month"])
	assert.Equal(t, time.April, gotMonth.Month())

	w, body = doJSON(r, http.MethodPut, "/admin/limits", map[string]any{"user_id": 2, "limit": "-5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["fields"], "limit")

	w, body = doJSON(r, http.MethodPut, "/admin/limits", map[string]any{"limit": "100"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["fields"], "user_id")

	w, _ = doJSON(r, http.MethodDelete, "/admin/limits/9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminHandlers_SecurityLogs(t *testing.T) {
	events := mocks.NewMockSecurityEventLog()
	var filter domain.SecurityEventFilter
	events.ListFunc = func(ctx context.Context, f domain.SecurityEventFilter) ([]domain.SecurityEvent, int64, error) {
		filter = f
		return []domain.SecurityEvent{{ID: 1, EventType: domain.LoginFailedEvent, Description: "Invalid username: x"}}, 1, nil
	}
	events.EventTypesFunc = func(ctx context.Context) ([]domain.SecurityEventType, error) {
		return []domain.SecurityEventType{domain.LoginFailedEvent}, nil
	}
	h := NewAdminHandlers(mocks.NewMockUserAdminService(), mocks.NewMockFuelService(), mocks.NewMockMaintenanceService(), events, false)
	r := gin.New()
	r.GET("/admin/security-logs", h.SecurityLogs)
	r.GET("/admin/security-logs/types", h.EventTypes)

	w, _ := doJSON(r, http.MethodGet, "/admin/security-logs?event_type=LOGIN_FAILED&from=2026-03-01&to=2026-03-31&user=jdoe", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.LoginFailedEvent, filter.EventType)
	assert.Equal(t, "jdoe", filter.User)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), filter.From)
	assert.Equal(t, 31, filter.To.Day())
	assert.Equal(t, 23, filter.To.Hour())

	w, _ = doJSON(r, http.MethodGet, "/admin/security-logs?from=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := doJSON(r, http.MethodGet, "/admin/security-logs/types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"LOGIN_FAILED"}, body["data"])
}

func TestAdminHandlers_CreateUser(t *testing.T) {
	admin := &domain.CurrentUser{ID: 1, Username: "root", Role: domain.RoleAdmin}
	adminSvc := mocks.NewMockUserAdminService()
	var got domain.CreateUserRequest
	adminSvc.CreateFunc = func(ctx context.Context, actor *domain.CurrentUser, req domain.CreateUserRequest) (*domain.User, error) {
		got = req
		assert.Equal(t, admin.ID, actor.ID)
		if !domain.ValidRole(req.Role) {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, domain.ValidationErrors{"role": {"Invalid role selected."}})
		}
		return &domain.User{ID: 12, Username: req.Username, Email: req.Email, Role: req.Role, PasswordHash: "secret-hash", IsActive: true}, nil
	}
	h := NewAdminHandlers(adminSvc, mocks.NewMockFuelService(), mocks.NewMockMaintenanceService(), mocks.NewMockSecurityEventLog(), false)
	r := gin.New()
	r.POST("/admin/users", asUser(admin), h.CreateUser)

	req := CreateUserRequest{
		RegisterRequest: RegisterRequest{
			Username:        "fleetboss",
			Email:           "boss@example.com",
			FirstName:       "Fleet",
			LastName:        "Boss",
			Password:        "Str0ng!Pass",
			ConfirmPassword: "Str0ng!Pass",
		},
		Role: domain.RoleManager,
	}
	w, body := doJSON(r, http.MethodPost, "/admin/users", req)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "fleetboss", got.Username)
	assert.Equal(t, "Str0ng!Pass", got.Password)
	assert.Equal(t, domain.RoleManager, got.Role)
	assert.Equal(t, domain.RoleManager, body["data"].(map[string]any)["user"].(map[string]any)["role"])
	assert.NotContains(t, w.Body.String(), "secret-hash")

	req.Role = "superuser"
	w, body = doJSON(r, http.MethodPost, "/admin/users", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["fields"], "role")
}

func TestAdminHandlers_Maintenance(t *testing.T) {
	admin := &domain.CurrentUser{ID: 1, Username: "root", Role: domain.RoleAdmin}
	maint := mocks.NewMockMaintenanceService()
	var gotDays int
	maint.CleanupLogsFunc = func(ctx context.Context, actor *domain.CurrentUser, days int, client domain.ClientContext) (int64, error) {
		gotDays = days
		return 42, nil
	}
	maint.CleanupSessionsFunc = func(ctx context.Context, actor *domain.CurrentUser, client domain.ClientContext) (int64, error) {
		return 3, nil
	}
	maint.ResetFailedLoginsFunc = func(ctx context.Context, actor *domain.CurrentUser, client domain.ClientContext) (int64, error) {
		return 0, fmt.Errorf("%w: connection refused", domain.ErrStoreUnavailable)
	}
	maint.StatsFunc = func(ctx context.Context) (*domain.SystemStats, error) {
		return &domain.SystemStats{
			Users:      domain.UserStats{Total: 10, Active: 8, Locked: 1},
			Sessions:   domain.SessionStats{Total: 5, Active: 4},
			TotalLogs:  300,
			RecentLogs: 25,
		}, nil
	}
	h := NewAdminHandlers(mocks.NewMockUserAdminService(), mocks.NewMockFuelService(), maint, mocks.NewMockSecurityEventLog(), false)
	r := gin.New()
	g := r.Group("/admin/maintenance", asUser(admin))
	g.GET("/stats", h.Stats)
	g.POST("/cleanup-logs", h.CleanupLogs)
	g.POST("/cleanup-sessions", h.CleanupSessions)
	g.POST("/reset-failed-logins", h.ResetFailedLogins)

	w, body := doJSON(r, http.MethodGet, "/admin/maintenance/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["users"].(map[string]any)["locked"])
	assert.Equal(t, float64(4), data["sessions"].(map[string]any)["active"])
	assert.Equal(t, float64(25), data["logs"].(map[string]any)["recent"])

	w, body = doJSON(r, http.MethodPost, "/admin/maintenance/cleanup-logs", CleanupLogsRequest{Days: 14})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 14, gotDays)
	assert.Equal(t, float64(42), body["data"].(map[string]any)["deleted"])

	w, _ = doJSON(r, http.MethodPost, "/admin/maintenance/cleanup-logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, gotDays, "an empty body leaves the retention to the service default")

	w, body = doJSON(r, http.MethodPost, "/admin/maintenance/cleanup-logs", CleanupLogsRequest{Days: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["fields"], "days")

	w, body = doJSON(r, http.MethodPost, "/admin/maintenance/cleanup-sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), body["data"].(map[string]any)["deleted"])

	w, body = doJSON(r, http.MethodPost, "/admin/maintenance/reset-failed-logins", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, body["error"], "connection refused")
}

func TestPolicyHandlers(t *testing.T) {
	policy := mocks.NewMockPolicyService()
	var added []string
	policy.AddPolicyFunc = func(role, resource, action string) error {
		added = []string{role, resource, action}
		return nil
	}
	policy.RemovePolicyFunc = func(role, resource, action string) error {
		return domain.ErrRecordNotFound
	}
	events := mocks.NewMockSecurityEventLog()
	h := NewPolicyHandlers(policy, events, false)
	r := gin.New()
	g := r.Group("/admin", asUser(&domain.CurrentUser{ID: 1, Role: domain.RoleAdmin}))
	g.GET("/policies", h.List)
	g.POST("/policies", h.Add)
	g.DELETE("/policies", h.Remove)

	w, body := doJSON(r, http.MethodGet, "/admin/policies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 3)

	w, _ = doJSON(r, http.MethodPost, "/admin/policies", policyReq{Role: domain.RoleManager, Resource: "/fuel/*", Action: "GET"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{domain.RoleManager, "/fuel/*", "GET"}, added)
	require.Len(t, events.Events(), 1)
	assert.Equal(t, domain.PolicyChangedEvent, events.Events()[0].EventType)
	require.NotNil(t, events.Events()[0].UserID)
	assert.Equal(t, uint(1), *events.Events()[0].UserID)

	w, _ = doJSON(r, http.MethodPost, "/admin/policies", map[string]string{"role": "manager"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(r, http.MethodDelete, "/admin/policies", policyReq{Role: domain.RoleManager, Resource: "/nope", Action: "GET"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, events.Events(), 1)
}

func TestRespondError_Debug(t *testing.T) {
	storeErr := fmt.Errorf("%w: dial tcp: refused", domain.ErrStoreUnavailable)
	for _, debug := range []bool{false, true} {
		t.Run(fmt.Sprintf("debug=%v", debug), func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { respondError(c, storeErr, "Something failed.", debug) })

			w, body := doJSON(r, http.MethodGet, "/", nil)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			if debug {
				assert.Contains(t, body["error"], "dial tcp")
			} else {
				assert.Equal(t, "Something failed.", body["error"])
			}
		})
	}
	assert.False(t, errors.Is(storeErr, domain.ErrInvalidInput))
}
