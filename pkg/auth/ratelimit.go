package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Service tiers derived from an identity. Persisted users are bucketed by
// role name ("platform_admin", "company_admin").
const (
	TierDefault     = "default"
	TierEnvironment = "environment"
	TierStub        = "stub"
)

// RateLimiter checks whether a request should be allowed based on
// the identity's service tier.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// TierConfig holds rate limit settings for a service tier.
type TierConfig struct {
	RequestsPerMinute int
}

// TierOf returns the rate limit tier for id. An explicit ServiceTier wins;
// otherwise synthetic identities use their origin and persisted ones their
// role.
func TierOf(id *Identity) string {
	switch {
	case id == nil:
		return TierDefault
	case id.ServiceTier != "":
		return id.ServiceTier
	case id.Origin == OriginEnvironment:
		return TierEnvironment
	case id.Origin == OriginStub:
		return TierStub
	case id.Role != "":
		return string(id.Role)
	default:
		return TierDefault
	}
}

// LimitError is returned when a subject exhausted its budget. It matches
// ErrTooManyRequests under errors.Is.
type LimitError struct {
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", ErrTooManyRequests, e.RetryAfter)
}

// Is reports whether target is ErrTooManyRequests.
func (e *LimitError) Is(target error) bool {
	return target == ErrTooManyRequests
}

// InProcessLimiter keeps one token bucket per subject and tier in memory.
// A bucket holds RequestsPerMinute tokens and refills at the same rate.
type InProcessLimiter struct {
	tiers      map[string]TierConfig
	defaultRPM int
	idle       time.Duration
	now        func() time.Time

	mu        sync.Mutex
	subjects  map[string]*subjectLimiter
	lastSweep time.Time
}

type subjectLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewInProcessLimiter creates a rate limiter with per-tier configuration.
// A non-positive defaultRPM disables limiting for tiers without an entry.
func NewInProcessLimiter(tiers map[string]TierConfig, defaultRPM int) *InProcessLimiter {
	return &InProcessLimiter{
		tiers:      tiers,
		defaultRPM: defaultRPM,
		idle:       time.Minute,
		now:        time.Now,
		subjects:   make(map[string]*subjectLimiter),
	}
}

// Allow checks if the request is within the rate limit.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	tier := TierOf(identity)

	rpm := l.defaultRPM
	if tc, ok := l.tiers[tier]; ok {
		rpm = tc.RequestsPerMinute
	}

	if rpm <= 0 {
		return nil // no limit
	}

	key := identity.ID + ":" + tier

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	s, ok := l.subjects[key]
	if !ok {
		s = &subjectLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		}
		l.subjects[key] = s
	}
	s.lastSeen = now

	r := s.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &LimitError{RetryAfter: delay}
	}
	return nil
}

// sweepLocked drops subjects that have been idle long enough for their
// bucket to refill completely. It runs at most once per idle period.
func (l *InProcessLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	for k, s := range l.subjects {
		if now.Sub(s.lastSeen) >= l.idle {
			delete(l.subjects, k)
		}
	}
	l.lastSweep = now
}
