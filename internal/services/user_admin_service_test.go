package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/fueltrack/domain"
	"github.com/you/fueltrack/internal/mocks"
)

// userDirectory wires a MockUserRepository to a small in-memory set of users
func userDirectory(repo *mocks.MockUserRepository, users ...*domain.User) {
	var mu sync.Mutex
	byID := make(map[uint]*domain.User)
	for _, u := range users {
		byID[u.ID] = u
	}
	get := func(id uint) (*domain.User, error) {
		u, ok := byID[id]
		if !ok {
			return nil, domain.ErrUserNotFound
		}
		cp := *u
		return &cp, nil
	}
	match := func(pred func(*domain.User) bool) (*domain.User, error) {
		for _, u := range byID {
			if pred(u) {
				cp := *u
				return &cp, nil
			}
		}
		return nil, domain.ErrUserNotFound
	}

	repo.FindByIDFunc = func(ctx context.Context, id uint) (*domain.User, error) {
		mu.Lock()
		defer mu.Unlock()
		return get(id)
	}
	repo.FindByUsernameFunc = func(ctx context.Context, username string) (*domain.User, error) {
		mu.Lock()
		defer mu.Unlock()
		return match(func(u *domain.User) bool { return u.Username == username })
	}
	repo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
		mu.Lock()
		defer mu.Unlock()
		return match(func(u *domain.User) bool { return u.Email == email })
	}
	repo.SetActiveFunc = func(ctx context.Context, userID uint, active bool) error {
		mu.Lock()
		defer mu.Unlock()
		byID[userID].IsActive = active
		return nil
	}
	repo.SetRoleFunc = func(ctx context.Context, userID uint, role string) error {
		mu.Lock()
		defer mu.Unlock()
		byID[userID].Role = role
		return nil
	}
	repo.UnlockFunc = func(ctx context.Context, userID uint) error {
		mu.Lock()
		defer mu.Unlock()
		byID[userID].FailedLoginAttempts = 0
		byID[userID].LockedUntil = nil
		return nil
	}
	repo.UpdateProfileFunc = func(ctx context.Context, userID uint, update domain.UserProfileUpdate) error {
		mu.Lock()
		defer mu.Unlock()
		u := byID[userID]
		u.Username, u.Email, u.FirstName, u.LastName = update.Username, update.Email, update.FirstName, update.LastName
		return nil
	}
	repo.CreateFunc = func(ctx context.Context, user *domain.User) error {
		mu.Lock()
		defer mu.Unlock()
		user.ID = uint(len(byID) + 1)
		cp := *user
		byID[user.ID] = &cp
		return nil
	}
	repo.UnlockAllFunc = func(ctx context.Context) (int64, error) {
		mu.Lock()
		defer mu.Unlock()
		var n int64
		for _, u := range byID {
			if u.FailedLoginAttempts > 0 || u.LockedUntil != nil {
				u.FailedLoginAttempts = 0
				u.LockedUntil = nil
				n++
			}
		}
		return n, nil
	}
	repo.CountActiveAdminsFunc = func(ctx context.Context) (int64, error) {
		mu.Lock()
		defer mu.Unlock()
		var n int64
		for _, u := range byID {
			if u.Role == domain.RoleAdmin && u.IsActive {
				n++
			}
		}
		return n, nil
	}
}

type adminFixture struct {
	svc      domain.UserAdminService
	users    *mocks.MockUserRepository
	sessions *mocks.MockSessionRepository
	manager  *SessionManager
	events   *mocks.MockSecurityEventLog
	admin    *domain.User
	driver   *domain.User
}

func createUserAdminServiceForTest(t *testing.T) *adminFixture {
	t.Helper()

	f := &adminFixture{
		users:    mocks.NewMockUserRepository(),
		sessions: mocks.NewMockSessionRepository(),
		events:   mocks.NewMockSecurityEventLog(),
		admin: &domain.User{ID: 1, Username: "root", Email: "root@example.com", FirstName: "Ro", LastName: "Ot",
			Role: domain.RoleAdmin, IsActive: true},
		driver: &domain.User{ID: 2, Username: "driver", Email: "driver@example.com", FirstName: "Dee", LastName: "River",
			Role: domain.RoleEmployee, IsActive: true},
	}
	userDirectory(f.users, f.admin, f.driver)
	f.manager = NewSessionManager(f.sessions, f.events, 30*time.Minute, newTestClock().Now)
	f.svc = NewUserAdminService(f.users, mocks.NewMockPasswordService(), domain.DefaultPasswordPolicy(), f.manager, f.events)
	return f
}

func (f *adminFixture) actor() *domain.CurrentUser {
	return &domain.CurrentUser{ID: f.admin.ID, Username: f.admin.Username, Role: domain.RoleAdmin}
}

func TestUserAdminServiceImpl_SetActive(t *testing.T) {
	t.Run("deactivation ends sessions", func(t *testing.T) {
		f := createUserAdminServiceForTest(t)
		s, err := f.manager.Create(context.Background(), f.driver, clientA(), "")
		require.NoError(t, err)

		require.NoError(t, f.svc.SetActive(context.Background(), f.actor(), f.driver.ID, false, clientA()))

		assert.False(t, f.driver.IsActive)
		_, err = f.sessions.FindByID(context.Background(), s.ID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)

		events := f.events.Events()
		require.Len(t, events, 1)
		assert.Equal(t, domain.UserStatusChangedEvent, events[0].EventType)
		assert.Equal(t, "Admin deactivated user ID: 2", events[0].Description)
		assert.Equal(t, f.admin.ID, *events[0].UserID)
	})

	t.Run("activation", func(t *testing.T) {
		f := createUserAdminServiceForTest(t)
		f.driver.IsActive = false
		require.NoError(t, f.svc.SetActive(context.Background(), f.actor(), f.driver.ID, true, clientA()))
		assert.True(t, f.driver.IsActive)
	})

	t.Run("admins are protected", func(t *testing.T) {
		f := createUserAdminServiceForTest(t)
		err := f.svc.SetActive(context.Background(), f.actor(), f.admin.ID, false, clientA())
		assert.ErrorIs(t, err, domain.ErrProtectedUser)
		assert.True(t, f.admin.IsActive)
		assert.Empty(t, f.events.Types())
	})

	t.Run("unknown user", func(t *testing.T) {
		f := createUserAdminServiceForTest(t)
		err := f.svc.SetActive(context.Background(), f.actor(), 77, false, clientA())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestUserAdminServiceImpl_Unlock(t *testing.T) {
	f := createUserAdminServiceForTest(t)
	until := time.Now().Add(time.Hour)
	f.driver.FailedLoginAttempts = 5
	f.driver.LockedUntil = &until

	require.NoError(t, f.svc.Unlock(context.Background(), f.actor(), f.driver.ID, clientA()))

	assert.Zero(t, f.driver.FailedLoginAttempts)
	assert.Nil(t, f.driver.LockedUntil)
	assertEventTypes(t, []domain.SecurityEventType{domain.UserUnlockedEvent}, f.events.Types())
}

func TestUserAdminServiceImpl_Update(t *testing.T) {
	profile := func(username, email string) domain.UserProfileUpdate {
		return domain.UserProfileUpdate{Username: username, Email: email, FirstName: "First", LastName: "Last"}
	}

	tests := []struct {
		name          string
		userID        func(*adminFixture) uint
		update        domain.UserProfileUpdate
		role          string
		setup         func(*adminFixture)
		expectedError error
		expectedField string
		expectedMsg   string
	}{
		{
			name:   "promote employee",
			userID: func(f *adminFixture) uint { return f.driver.ID },
			update: profile("driver2", "driver2@example.com"),
			role:   domain.RoleManager,
		},
		{
			name:          "username taken",
			userID:        func(f *adminFixture) uint { return f.driver.ID },
			update:        profile("root", "driver@example.com"),
			role:          domain.RoleEmployee,
			expectedError: domain.ErrInvalidInput,
			expectedField: "username",
			expectedMsg:   "Username already exists.",
		},
		{
			name:          "email taken",
			userID:        func(f *adminFixture) uint { return f.driver.ID },
			update:        profile("driver", "root@example.com"),
			role:          domain.RoleEmployee,
			expectedError: domain.ErrInvalidInput,
			expectedField: "email",
			expectedMsg:   "Email already registered.",
		},
		{
			name:          "invalid role",
			userID:        func(f *adminFixture) uint { return f.driver.ID },
			update:        profile("driver", "driver@example.com"),
			role:          "superuser",
			expectedError: domain.ErrInvalidInput,
			expectedField: "role",
			expectedMsg:   "Invalid role selected.",
		},
		{
			name:          "invalid email",
			userID:        func(f *adminFixture) uint { return f.driver.ID },
			update:        profile("driver", "driver.example.com"),
			role:          domain.RoleEmployee,
			expectedError: domain.ErrInvalidInput,
			expectedField: "email",
			expectedMsg:   "Invalid email format.",
		},
		{
			name:          "last admin cannot be demoted",
			userID:        func(f *adminFixture) uint { return f.admin.ID },
			update:        profile("root", "root@example.com"),
			role:          domain.RoleManager,
			expectedError: domain.ErrLastAdmin,
			expectedField: "role",
			expectedMsg:   MsgLastAdmin,
		},
		{
			name:   "admin demoted while another admin remains",
			userID: func(f *adminFixture) uint { return f.admin.ID },
			update: profile("root", "root@example.com"),
			role:   domain.RoleManager,
			setup: func(f *adminFixture) {
				f.driver.Role = domain.RoleAdmin
			},
		},
		{
			name:          "unknown user",
			userID:        func(*adminFixture) uint { return 99 },
			update:        profile("ghost", "ghost@example.com"),
			role:          domain.RoleEmployee,
			expectedError: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createUserAdminServiceForTest(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			id := tt.userID(f)

			err := f.svc.Update(context.Background(), f.actor(), id, tt.update, tt.role, clientA())

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				if tt.expectedField != "" {
					var verrs domain.ValidationErrors
					require.True(t, errors.As(err, &verrs))
					assert.Contains(t, verrs[tt.expectedField], tt.expectedMsg)
				}
				assert.Empty(t, f.events.Types())
				return
			}
			require.NoError(t, err)
			got, err := f.users.FindByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, tt.update.Username, got.Username)
			assert.Equal(t, tt.role, got.Role)
			assertEventTypes(t, []domain.SecurityEventType{domain.UserUpdatedEvent}, f.events.Types())
		})
	}
}

func TestUserAdminServiceImpl_RoleChangeEndsSessions(t *testing.T) {
	f := createUserAdminServiceForTest(t)
	s, err := f.manager.Create(context.Background(), f.driver, clientA(), "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Update(context.Background(), f.actor(), f.driver.ID,
		domain.UserProfileUpdate{Username: "driver", Email: "driver@example.com", FirstName: "Dee", LastName: "River"},
		domain.RoleManager, clientA()))

	_, err = f.sessions.FindByID(context.Background(), s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUserAdminServiceImpl_List(t *testing.T) {
	f := createUserAdminServiceForTest(t)
	var got domain.UserFilter
	f.users.ListFunc = func(ctx context.Context, filter domain.UserFilter) ([]domain.User, int64, error) {
		got = filter
		return []domain.User{*f.driver}, 1, nil
	}

	users, total, err := f.svc.List(context.Background(), domain.UserFilter{Search: "  dri ", Role: domain.RoleEmployee})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, users, 1)
	assert.Equal(t, "dri", got.Search)

	_, _, err = f.svc.List(context.Background(), domain.UserFilter{Role: "root"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	f.users.ListFunc = func(ctx context.Context, filter domain.UserFilter) ([]domain.User, int64, error) {
		return nil, 0, errors.New("db gone")
	}
	_, _, err = f.svc.List(context.Background(), domain.UserFilter{})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestUserAdminServiceImpl_Create(t *testing.T) {
	newRequest := func() domain.CreateUserRequest {
		return domain.CreateUserRequest{
			RegisterRequest: domain.RegisterRequest{
				Username:        " fleet_boss ",
				Email:           "boss@example.com",
				FirstName:       "Fleet",
				LastName:        "Boss",
				Password:        "Str0ng!Pass",
				ConfirmPassword: "Str0ng!Pass",
				Client:          clientA(),
			},
			Role: domain.RoleManager,
		}
	}

	tests := []struct {
		name           string
		mutate         func(r *domain.CreateUserRequest)
		expectedFields []string
	}{
		{name: "manager account"},
		{name: "admin account", mutate: func(r *domain.CreateUserRequest) { r.Role = domain.RoleAdmin }},
		{name: "unknown role", mutate: func(r *domain.CreateUserRequest) { r.Role = "owner" }, expectedFields: []string{"role"}},
		{name: "weak password", mutate: func(r *domain.CreateUserRequest) {
			r.Password, r.ConfirmPassword = "weak", "weak"
		}, expectedFields: []string{"password"}},
		{name: "taken username", mutate: func(r *domain.CreateUserRequest) { r.Username = "driver" }, expectedFields: []string{"username"}},
		{name: "taken email", mutate: func(r *domain.CreateUserRequest) { r.Email = "root@example.com" }, expectedFields: []string{"email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createUserAdminServiceForTest(t)
			req := newRequest()
			if tt.mutate != nil {
				tt.mutate(&req)
			}

			user, err := f.svc.Create(context.Background(), f.actor(), req)

			if len(tt.expectedFields) > 0 {
				var verrs domain.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				for _, field := range tt.expectedFields {
					assert.Contains(t, verrs, field)
				}
				assert.Empty(t, f.events.Types())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "fleet_boss", user.Username)
			assert.Equal(t, req.Role, user.Role)
			assert.True(t, user.IsActive)
			assert.Equal(t, mocks.FakeHash("Str0ng!Pass"), user.PasswordHash)

			events := f.events.Events()
			require.Len(t, events, 1)
			assert.Equal(t, domain.UserCreatedEvent, events[0].EventType)
			assert.Equal(t, "Admin created new user: fleet_boss", events[0].Description)
			require.NotNil(t, events[0].UserID)
			assert.Equal(t, f.admin.ID, *events[0].UserID, "the event names the acting admin")
		})
	}
}
