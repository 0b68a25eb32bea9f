package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("admin session not found")

const sessionPrefix = "admin_sessions:"

// SessionRepo stores admin sessions with an idle timeout; every
// authenticated request slides the expiry forward via Touch.
type SessionRepo struct {
	client *goredis.Client
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func (r *SessionRepo) Create(ctx context.Context, sid, email, role string, idle time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" || strings.TrimSpace(email) == "" || idle <= 0 {
		return fmt.Errorf("invalid session create payload")
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(sid), map[string]interface{}{
		"email": email,
		"role":  role,
	})
	pipe.Expire(ctx, sessionKey(sid), idle)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create admin session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Touch(ctx context.Context, sid string, idle time.Duration) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" || idle <= 0 {
		return "", fmt.Errorf("invalid session touch payload")
	}

	fields, err := r.client.HGetAll(ctx, sessionKey(sid)).Result()
	if err != nil {
		return "", fmt.Errorf("read admin session: %w", err)
	}
	if len(fields) == 0 {
		return "", ErrSessionNotFound
	}

	if err := r.client.Expire(ctx, sessionKey(sid), idle).Err(); err != nil {
		return "", fmt.Errorf("extend admin session: %w", err)
	}

	return fields["role"], nil
}

func (r *SessionRepo) Delete(ctx context.Context, sid string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return nil
	}

	if err := r.client.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}

func sessionKey(sid string) string {
	return sessionPrefix + sid
}
