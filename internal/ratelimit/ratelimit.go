// Package ratelimit implements a per-key fixed-window request counter.
//
// State lives in a single Limiter instance, so it is not shared between
// processes. Each server instance limits independently.
package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSweepInterval is how often expired records are purged.
const DefaultSweepInterval = 60 * time.Second

// Record is the window state kept for one client key.
type Record struct {
	Key     string
	Count   int
	ResetAt time.Time
}

// Limiter counts requests per key inside fixed windows.
type Limiter struct {
	mu      sync.Mutex
	records map[string]*Record
	now     func() time.Time

	sweepInterval time.Duration
	logger        *slog.Logger

	cron    *cron.Cron
	sweepID cron.EntryID
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithSweepInterval overrides DefaultSweepInterval.
func WithSweepInterval(d time.Duration) Option {
	return func(l *Limiter) {
		l.sweepInterval = d
	}
}

// WithLogger sets the logger used by the background sweep.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

// New creates a Limiter. The sweep does not run until Start is called.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		records:       make(map[string]*Record),
		now:           time.Now,
		sweepInterval: DefaultSweepInterval,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "ratelimit")
	return l
}

// CheckAndConsume records a request for key and reports whether it is over
// the limit. A limited request does not count toward the window, so at most
// maxRequests are admitted per window.
func (l *Limiter) CheckAndConsume(key string, maxRequests int, window time.Duration) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok || now.After(rec.ResetAt) {
		l.records[key] = &Record{Key: key, Count: 1, ResetAt: now.Add(window)}
		return false
	}
	if rec.Count >= maxRequests {
		return true
	}
	rec.Count++
	return false
}

// Sweep removes records whose window has passed and returns how many were removed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, rec := range l.records {
		if now.After(rec.ResetAt) {
			delete(l.records, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Lookup returns a copy of the record for key.
func (l *Limiter) Lookup(key string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (l *Limiter) sweepAndLog() {
	if n := l.Sweep(); n > 0 {
		l.logger.Debug("swept expired records", "removed", n, "tracked", l.Len())
	}
}

// Start schedules Sweep every sweep interval. Calling Start twice is a no-op.
func (l *Limiter) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cron != nil {
		return nil
	}

	c := cron.New()
	id, err := c.AddFunc(fmt.Sprintf("@every %s", l.sweepInterval), l.sweepAndLog)
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	c.Start()

	l.cron = c
	l.sweepID = id
	l.logger.Info("sweep scheduled", "interval", l.sweepInterval.String())
	return nil
}

// Stop cancels the scheduled sweep and waits for a running sweep to finish.
func (l *Limiter) Stop() {
	l.mu.Lock()
	c, id := l.cron, l.sweepID
	l.cron = nil
	l.mu.Unlock()

	if c == nil {
		return
	}
	c.Remove(id)
	<-c.Stop().Done()
}
