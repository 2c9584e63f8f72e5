// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package auth

import (
	"sync"
	"time"
)

// LockoutConfig holds configuration for the account lockout system.
type LockoutConfig struct {
	// MaxAttempts is the number of failed attempts before lockout.
	MaxAttempts int

	// LockoutDuration is the base lockout period. It doubles on each
	// subsequent lockout of the same subject.
	LockoutDuration time.Duration

	// MaxLockoutDuration caps the doubled lockout period.
	MaxLockoutDuration time.Duration

	// ResetAfter forgets failed attempts older than this.
	ResetAfter time.Duration
}

// DefaultLockoutConfig returns sensible defaults.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxAttempts:        5,
		LockoutDuration:    time.Minute,
		MaxLockoutDuration: time.Hour,
		ResetAfter:         15 * time.Minute,
	}
}

type lockoutEntry struct {
	failed       int
	lastAttempt  time.Time
	lockoutCount int
	lockedUntil  time.Time
}

// Lockout tracks failed logins per subject (a username or a client address).
// It is safe for concurrent use.
type Lockout struct {
	cfg     LockoutConfig
	mu      sync.Mutex
	entries map[string]*lockoutEntry
	now     func() time.Time
}

// NewLockout creates an in-memory lockout tracker.
func NewLockout(cfg LockoutConfig) *Lockout {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultLockoutConfig().MaxAttempts
	}
	return &Lockout{cfg: cfg, entries: make(map[string]*lockoutEntry), now: time.Now}
}

// Locked reports whether any of subjects is locked and for how much longer.
func (l *Lockout) Locked(subjects ...string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var remaining time.Duration
	for _, s := range subjects {
		e, ok := l.entries[s]
		if !ok || !now.Before(e.lockedUntil) {
			continue
		}
		if left := e.lockedUntil.Sub(now); left > remaining {
			remaining = left
		}
	}
	return remaining > 0, remaining
}

// Fail records a failed attempt for every subject. It returns true when
// this attempt locked one of them.
func (l *Lockout) Fail(subjects ...string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	locked := false
	for _, s := range subjects {
		if s == "" {
			continue
		}
		e, ok := l.entries[s]
		if !ok {
			e = &lockoutEntry{}
			l.entries[s] = e
		}
		if l.cfg.ResetAfter > 0 && now.Sub(e.lastAttempt) > l.cfg.ResetAfter {
			e.failed = 0
		}
		e.failed++
		e.lastAttempt = now
		if e.failed >= l.cfg.MaxAttempts {
			e.lockedUntil = now.Add(l.duration(e.lockoutCount))
			e.lockoutCount++
			e.failed = 0
			locked = true
		}
	}
	return locked
}

// Succeed clears the failed attempts of every subject.
func (l *Lockout) Succeed(subjects ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range subjects {
		delete(l.entries, s)
	}
}

// Cleanup drops entries that are neither locked nor recent. It returns
// the number removed.
func (l *Lockout) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for s, e := range l.entries {
		if now.Before(e.lockedUntil) {
			continue
		}
		if l.cfg.ResetAfter > 0 && now.Sub(e.lastAttempt) <= l.cfg.ResetAfter {
			continue
		}
		delete(l.entries, s)
		removed++
	}
	return removed
}

func (l *Lockout) duration(previous int) time.Duration {
	d := l.cfg.LockoutDuration
	for i := 0; i < previous; i++ {
		d *= 2
		if l.cfg.MaxLockoutDuration > 0 && d >= l.cfg.MaxLockoutDuration {
			return l.cfg.MaxLockoutDuration
		}
	}
	return d
}
