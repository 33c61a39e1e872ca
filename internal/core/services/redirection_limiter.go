package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

const defaultLimiterShards = 32

// LimiterOption customizes a RedirectionLimiter.
type LimiterOption func(*RedirectionLimiter)

// WithClock replaces time.Now as the limiter time source.
func WithClock(now func() time.Time) LimiterOption {
	return func(l *RedirectionLimiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithShards sets the number of independently locked partitions of the table.
func WithShards(n int) LimiterOption {
	return func(l *RedirectionLimiter) {
		if n > 0 {
			l.shardCount = n
		}
	}
}

type counterState struct {
	count       int
	windowStart time.Time
}

type limiterShard struct {
	mu       sync.Mutex
	counters map[string]*counterState
}

// RedirectionLimiter counts redirects per key inside a fixed window that
// starts on the first attempt after a reset. Keys are spread over sharded
// mutexes so that the check-then-increment of one key is serialized without
// blocking other keys.
type RedirectionLimiter struct {
	rule       domain.RedirectLimitRule
	now        func() time.Time
	shardCount int
	shards     []*limiterShard
}

var _ ports.RedirectLimiter = (*RedirectionLimiter)(nil)

// NewRedirectionLimiter builds a limiter for the given rule.
func NewRedirectionLimiter(rule domain.RedirectLimitRule, opts ...LimiterOption) (*RedirectionLimiter, error) {
	if rule.MaxRedirects <= 0 {
		return nil, fmt.Errorf("max redirects must be positive, got %d", rule.MaxRedirects)
	}
	if rule.Window < time.Second {
		return nil, fmt.Errorf("redirect window must be at least one second, got %s", rule.Window)
	}

	l := &RedirectionLimiter{
		rule:       rule,
		now:        time.Now,
		shardCount: defaultLimiterShards,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.shards = make([]*limiterShard, l.shardCount)
	for i := range l.shards {
		l.shards[i] = &limiterShard{counters: make(map[string]*counterState)}
	}

	return l, nil
}

func (l *RedirectionLimiter) shard(key string) *limiterShard {
	return l.shards[xxhash.Sum64String(key)%uint64(len(l.shards))]
}

// IsAllowed admits the redirect when the key still has budget in its current
// window. A denied call leaves the counter untouched.
func (l *RedirectionLimiter) IsAllowed(key string) bool {
	s := l.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := l.now()
	state, ok := s.counters[key]
	if !ok || now.Sub(state.windowStart) > l.rule.Window {
		state = &counterState{windowStart: now}
		s.counters[key] = state
	}

	if state.count >= l.rule.MaxRedirects {
		return false
	}
	state.count++
	return true
}

// CurrentRedirects returns the stored counter for key, or 0 if unseen.
func (l *RedirectionLimiter) CurrentRedirects(key string) int {
	s := l.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.counters[key]; ok {
		return state.count
	}
	return 0
}

// ResetAt returns the end of the current window for key.
func (l *RedirectionLimiter) ResetAt(key string) (time.Time, bool) {
	s := l.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.counters[key]
	if !ok {
		return time.Time{}, false
	}
	return state.windowStart.Add(l.rule.Window), true
}

func (l *RedirectionLimiter) MaxRedirects() int {
	return l.rule.MaxRedirects
}

func (l *RedirectionLimiter) WindowSeconds() int {
	return int(l.rule.Window / time.Second)
}

// Len reports how many keys are tracked.
func (l *RedirectionLimiter) Len() int {
	total := 0
	for _, s := range l.shards {
		s.mu.Lock()
		total += len(s.counters)
		s.mu.Unlock()
	}
	return total
}

// Sweep drops entries whose window has already expired and returns how many
// were removed. An expired entry would be reset by the next IsAllowed anyway,
// so admission decisions are unaffected.
func (l *RedirectionLimiter) Sweep() int {
	removed := 0
	for _, s := range l.shards {
		s.mu.Lock()
		now := l.now()
		for key, state := range s.counters {
			if now.Sub(state.windowStart) > l.rule.Window {
				delete(s.counters, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// RunJanitor sweeps the table every interval until ctx is done. onSweep, when
// set, receives the number of evicted keys after each pass.
func (l *RedirectionLimiter) RunJanitor(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := l.Sweep()
			if onSweep != nil {
				onSweep(removed)
			}
		}
	}
}
