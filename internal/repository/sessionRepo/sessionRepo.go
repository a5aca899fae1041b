package sessionRepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"project-submission/internal/errs"
)

// SessionRepo keeps the active login sessions, keyed by session id.
type SessionRepo struct {
	Client *redis.Client
}

func New(client *redis.Client) *SessionRepo {
	return &SessionRepo{Client: client}
}

func (r *SessionRepo) buildKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (r *SessionRepo) SaveSession(ctx context.Context, sessionID string, userID uint32, ttl time.Duration) error {
	return r.Client.Set(ctx, r.buildKey(sessionID), userID, ttl).Err()
}

func (r *SessionRepo) GetSession(ctx context.Context, sessionID string) (uint32, error) {
	val, err := r.Client.Get(ctx, r.buildKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, errs.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	uid, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("corrupt session %s: %w", sessionID, err)
	}
	return uint32(uid), nil
}

func (r *SessionRepo) DeleteSession(ctx context.Context, sessionID string) error {
	return r.Client.Del(ctx, r.buildKey(sessionID)).Err()
}

// ValidateSession reports whether the session is alive and belongs to userID.
func (r *SessionRepo) ValidateSession(ctx context.Context, sessionID string, userID uint32) (bool, error) {
	stored, err := r.GetSession(ctx, sessionID)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored == userID, nil
}
