package rate

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const reserveWindow = time.Minute

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Limiter throttles reservation attempts per caller so one scripted
// client cannot hold the whole pool hostage through hold churn.
type Limiter struct {
	store     WindowStore
	perMinute int
}

func NewLimiter(store WindowStore, perMinute int) *Limiter {
	if perMinute < 0 {
		perMinute = 0
	}
	return &Limiter{store: store, perMinute: perMinute}
}

// AllowReserve consumes one attempt for the caller. When blocked it
// reports how many seconds the caller should wait before retrying.
func (l *Limiter) AllowReserve(ctx context.Context, caller string) (int64, bool, error) {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return 0, false, fmt.Errorf("caller key is required")
	}
	if l.perMinute == 0 {
		return 0, true, nil
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	count, ttl, err := l.store.IncrementWindow(ctx, reserveKey(caller), reserveWindow)
	if err != nil {
		return 0, false, err
	}
	if count > int64(l.perMinute) {
		return ceilSeconds(ttl), false, nil
	}
	return 0, true, nil
}

func reserveKey(caller string) string {
	return "rate:reserve:min:" + caller
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
