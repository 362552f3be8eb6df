package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/fueltrack/domain"
)

func TestSecurityLogRepository_RecordAndList(t *testing.T) {
	db := setupTestDB(t)
	alice := seedUser(t, db, "alice", domain.RoleAdmin, true)
	bob := seedUser(t, db, "bob", domain.RoleEmployee, true)
	repo := NewSecurityLogRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC)
	client := &domain.ClientContext{IPAddress: "10.0.0.9", UserAgent: "curl/8"}
	events := []*domain.SecurityEvent{
		domain.NewSecurityEvent(domain.LoginSuccessEvent, "ok").WithUser(alice.ID).WithClientContext(client).At(base),
		domain.NewSecurityEvent(domain.LoginFailedEvent, "bad password").WithUser(bob.ID).At(base.Add(time.Hour)),
		domain.NewSecurityEvent(domain.LoginFailedEvent, "bad password").WithUser(bob.ID).At(base.Add(2 * time.Hour)),
		domain.NewSecurityEvent(domain.SQLInjectionAttemptEvent, "screened").WithSeverity(domain.SeverityWarning).At(base.Add(48 * time.Hour)),
	}
	for _, e := range events {
		require.NoError(t, repo.Record(ctx, e))
		assert.NotZero(t, e.ID)
	}

	all, total, err := repo.List(ctx, domain.SecurityEventFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, all, 4)
	assert.Equal(t, domain.SQLInjectionAttemptEvent, all[0].EventType, "newest first")
	assert.Nil(t, all[0].UserID)
	assert.Empty(t, all[0].Username)
	assert.Equal(t, "alice", all[3].Username)
	assert.Equal(t, "10.0.0.9", all[3].IPAddress)

	tests := []struct {
		name      string
		filter    domain.SecurityEventFilter
		wantTotal int64
		wantLen   int
	}{
		{name: "by type", filter: domain.SecurityEventFilter{EventType: domain.LoginFailedEvent}, wantTotal: 2, wantLen: 2},
		{name: "by user", filter: domain.SecurityEventFilter{User: "bo"}, wantTotal: 2, wantLen: 2},
		{name: "from", filter: domain.SecurityEventFilter{From: base.Add(90 * time.Minute)}, wantTotal: 2, wantLen: 2},
		{name: "range", filter: domain.SecurityEventFilter{From: base, To: base.Add(24 * time.Hour)}, wantTotal: 3, wantLen: 3},
		{name: "paged", filter: domain.SecurityEventFilter{Page: 2, Limit: 3}, wantTotal: 4, wantLen: 1},
		{name: "no match", filter: domain.SecurityEventFilter{User: "zed"}, wantTotal: 0, wantLen: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestSecurityLogRepository_EventTypes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSecurityLogRepository(db)
	ctx := context.Background()

	types, err := repo.EventTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, types)

	require.NoError(t, repo.Record(ctx, domain.NewSecurityEvent(domain.LogoutEvent, "bye")))
	require.NoError(t, repo.Record(ctx, domain.NewSecurityEvent(domain.LoginSuccessEvent, "hi")))
	require.NoError(t, repo.Record(ctx, domain.NewSecurityEvent(domain.LogoutEvent, "bye")))

	types, err = repo.EventTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SecurityEventType{domain.LoginSuccessEvent, domain.LogoutEvent}, types)
}

func TestSecurityLogRepository_CountAndRetention(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSecurityLogRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{0, 3 * 24 * time.Hour, 10 * 24 * time.Hour, 40 * 24 * time.Hour} {
		require.NoError(t, repo.Record(ctx, domain.NewSecurityEvent(domain.LoginFailedEvent, "bad password").At(now.Add(-age))))
	}

	total, err := repo.Count(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	recent, err := repo.Count(ctx, now.AddDate(0, 0, -7))
	require.NoError(t, err)
	assert.Equal(t, int64(2), recent)

	deleted, err := repo.DeleteOlderThan(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	total, err = repo.Count(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	deleted, err = repo.DeleteOlderThan(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
