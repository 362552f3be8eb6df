package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you/fueltrack/domain"
)

// Refreshes activity only while the session hash still exists
var touchScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "last_activity", ARGV[1], "expires_at", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
if KEYS[2] ~= "" then
  redis.call("PEXPIRE", KEYS[2], ARGV[3])
end
return 1
`)

// Rewrites the cached email on sessions that still exist
var updateEmailScript = redis.NewScript(`
local n = 0
for _, key in ipairs(KEYS) do
  if redis.call("EXISTS", key) == 1 then
    redis.call("HSET", key, "email", ARGV[1])
    n = n + 1
  end
end
return n
`)

// SessionExpiryGrace keeps an idle session readable past its lifetime so the
// session manager can report it as expired instead of unknown
const SessionExpiryGrace = 24 * time.Hour

// SessionRepositoryImpl implements domain.SessionRepository using Redis hashes
type SessionRepositoryImpl struct {
	client     *redis.Client
	prefix     string
	userPrefix string
	ttl        time.Duration
}

// NewSessionRepository creates a new session repository. lifetime is the idle
// lifetime; keys live SessionExpiryGrace longer.
func NewSessionRepository(client *redis.Client, lifetime time.Duration) domain.SessionRepository {
	return &SessionRepositoryImpl{
		client:     client,
		prefix:     "session:",
		userPrefix: "user_sessions:",
		ttl:        lifetime + SessionExpiryGrace,
	}
}

func (r *SessionRepositoryImpl) key(id string) string { return r.prefix + id }

func (r *SessionRepositoryImpl) userKey(userID uint) string {
	return r.userPrefix + strconv.FormatUint(uint64(userID), 10)
}

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	key := r.key(session.ID)
	userKey := r.userKey(session.UserID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]interface{}{
			"user_id":       session.UserID,
			"username":      session.Username,
			"email":         session.Email,
			"role":          session.Role,
			"ip_address":    session.IPAddress,
			"user_agent":    session.UserAgent,
			"created_at":    session.CreatedAt.UnixNano(),
			"last_activity": session.LastActivity.UnixNano(),
			"expires_at":    session.ExpiresAt.UnixNano(),
		})
		pipe.PExpire(ctx, key, r.ttl)
		pipe.SAdd(ctx, userKey, session.ID)
		pipe.PExpire(ctx, userKey, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// FindByID implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSessionNotFound
	}
	return decodeSession(sessionID, fields)
}

// Touch implements domain.SessionRepository
func (r *SessionRepositoryImpl) Touch(ctx context.Context, sessionID string, lastActivity, expiresAt time.Time) error {
	userKey := ""
	if uid, err := r.client.HGet(ctx, r.key(sessionID), "user_id").Uint64(); err == nil {
		userKey = r.userKey(uint(uid))
	}

	ok, err := touchScript.Run(ctx, r.client,
		[]string{r.key(sessionID), userKey},
		lastActivity.UnixNano(), expiresAt.UnixNano(), r.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if ok == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Delete implements domain.SessionRepository
func (r *SessionRepositoryImpl) Delete(ctx context.Context, sessionID string) error {
	key := r.key(sessionID)
	uid, err := r.client.HGet(ctx, key, "user_id").Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to load session owner: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if uid != 0 {
			pipe.SRem(ctx, r.userKey(uint(uid)), sessionID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUser implements domain.SessionRepository
func (r *SessionRepositoryImpl) DeleteByUser(ctx context.Context, userID uint) error {
	userKey := r.userKey(userID)
	ids, err := r.client.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.key(id))
	}
	keys = append(keys, userKey)

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpired implements domain.SessionRepository.
// Redis expires session keys itself, so there is nothing to purge.
func (r *SessionRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

// UpdateEmail implements domain.SessionRepository
func (r *SessionRepositoryImpl) UpdateEmail(ctx context.Context, userID uint, email string) error {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list user sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	if err := updateEmailScript.Run(ctx, r.client, keys, email).Err(); err != nil {
		return fmt.Errorf("failed to update session email: %w", err)
	}
	return nil
}

// Stats implements domain.SessionRepository. Total includes idle sessions
// still held for the expiry grace period.
func (r *SessionRepositoryImpl) Stats(ctx context.Context, now time.Time) (domain.SessionStats, error) {
	var stats domain.SessionStats
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := r.client.HGet(ctx, iter.Val(), "expires_at").Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return stats, fmt.Errorf("failed to read session expiry: %w", err)
		}
		stats.Total++
		if time.Unix(0, raw).After(now) {
			stats.Active++
		}
	}
	if err := iter.Err(); err != nil {
		return stats, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return stats, nil
}

func decodeSession(id string, f map[string]string) (*domain.Session, error) {
	uid, err := strconv.ParseUint(f["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: user_id: %w", id, err)
	}
	ts := func(name string) (time.Time, error) {
		n, err := strconv.ParseInt(f[name], 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("corrupt session %s: %s: %w", id, name, err)
		}
		return time.Unix(0, n).UTC(), nil
	}

	created, err := ts("created_at")
	if err != nil {
		return nil, err
	}
	last, err := ts("last_activity")
	if err != nil {
		return nil, err
	}
	expires, err := ts("expires_at")
	if err != nil {
		return nil, err
	}

	return &domain.Session{
		ID:           id,
		UserID:       uint(uid),
		Username:     f["username"],
		Email:        f["email"],
		Role:         f["role"],
		IPAddress:    f["ip_address"],
		UserAgent:    f["user_agent"],
		CreatedAt:    created,
		LastActivity: last,
		ExpiresAt:    expires,
	}, nil
}
