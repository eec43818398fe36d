package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/redis"
)

const (
	ActionEmailLogin = "email-login"
	ActionAdminLogin = "admin-login"
)

// Policy bounds how many attempts an identity gets per window for one action.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultPolicies are the limits applied to the public auth routes.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		ActionEmailLogin: {MaxAttempts: 3, Window: 300 * time.Second},
		ActionAdminLogin: {MaxAttempts: 5, Window: 900 * time.Second},
	}
}

// Store is the key-value surface the limiter persists state in.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	RateLimitKey(action, identity string) string
}

// Result is the outcome of a Check.
type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the wait up to whole seconds.
func (r Result) RetryAfterSeconds() int {
	return int(math.Ceil(r.RetryAfter.Seconds()))
}

type state struct {
	Attempts     int   `json:"attempts"`
	FirstAttempt int64 `json:"firstAttempt"`
	LockedUntil  int64 `json:"lockedUntil,omitempty"`
}

// Limiter counts failed attempts per (action, identity) and locks the pair
// out once the policy maximum is reached. Store failures fail open.
type Limiter struct {
	store    Store
	policies map[string]Policy
	logg     *logger.Logger
	now      func() time.Time
}

type Params struct {
	Store    Store
	Policies map[string]Policy
	Logger   *logger.Logger
	Now      func() time.Time
}

func New(params Params) (*Limiter, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("rate limit store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	policies := params.Policies
	if len(policies) == 0 {
		policies = DefaultPolicies()
	}
	for action, policy := range policies {
		if policy.MaxAttempts <= 0 || policy.Window <= 0 {
			return nil, fmt.Errorf("invalid policy for %q", action)
		}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		store:    params.Store,
		policies: policies,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (l *Limiter) policy(action string) (Policy, error) {
	p, ok := l.policies[action]
	if !ok {
		return Policy{}, fmt.Errorf("no rate limit policy for %q", action)
	}
	return p, nil
}

// Check reports whether identity may attempt action right now. Probing a
// pair that has exhausted its attempts re-arms the lockout.
func (l *Limiter) Check(ctx context.Context, identity, action string) Result {
	policy, err := l.policy(action)
	if err != nil {
		l.failOpen(ctx, action, "ratelimit.policy_missing", err)
		return Result{Allowed: true}
	}

	key := l.store.RateLimitKey(action, identity)
	current, found, err := l.load(ctx, key)
	if err != nil {
		l.failOpen(ctx, action, "ratelimit.store_unavailable", err)
		return Result{Allowed: true, Remaining: policy.MaxAttempts}
	}
	if !found {
		return Result{Allowed: true, Remaining: policy.MaxAttempts}
	}

	now := l.now()
	if current.LockedUntil > now.UnixMilli() {
		wait := time.Duration(current.LockedUntil-now.UnixMilli()) * time.Millisecond
		return Result{Allowed: false, RetryAfter: wait}
	}

	if current.Attempts >= policy.MaxAttempts {
		current.LockedUntil = now.Add(policy.Window).UnixMilli()
		if err := l.save(ctx, key, current, policy.Window); err != nil {
			l.failOpen(ctx, action, "ratelimit.lock_persist_failed", err)
		}
		return Result{Allowed: false, RetryAfter: policy.Window}
	}

	return Result{Allowed: true, Remaining: policy.MaxAttempts - current.Attempts}
}

// Increment records one failed attempt.
func (l *Limiter) Increment(ctx context.Context, identity, action string) {
	policy, err := l.policy(action)
	if err != nil {
		l.failOpen(ctx, action, "ratelimit.policy_missing", err)
		return
	}

	key := l.store.RateLimitKey(action, identity)
	current, found, err := l.load(ctx, key)
	if err != nil {
		l.failOpen(ctx, action, "ratelimit.store_unavailable", err)
		return
	}
	if !found {
		current = state{FirstAttempt: l.now().UnixMilli()}
	}
	current.Attempts++
	if err := l.save(ctx, key, current, policy.Window); err != nil {
		l.failOpen(ctx, action, "ratelimit.increment_failed", err)
	}
}

// Reset clears all state for the pair, typically after a successful attempt.
func (l *Limiter) Reset(ctx context.Context, identity, action string) {
	if err := l.store.Del(ctx, l.store.RateLimitKey(action, identity)); err != nil {
		l.failOpen(ctx, action, "ratelimit.reset_failed", err)
	}
}

func (l *Limiter) load(ctx context.Context, key string) (state, bool, error) {
	raw, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return state{}, false, nil
		}
		return state{}, false, err
	}
	var st state
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return state{}, false, fmt.Errorf("decode rate limit state: %w", err)
	}
	return st, true, nil
}

func (l *Limiter) save(ctx context.Context, key string, st state, ttl time.Duration) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, key, string(payload), ttl)
}

func (l *Limiter) failOpen(ctx context.Context, action, msg string, err error) {
	logCtx := l.logg.WithFields(ctx, map[string]any{
		"action": action,
		"error":  err.Error(),
	})
	l.logg.Warn(logCtx, msg)
}
