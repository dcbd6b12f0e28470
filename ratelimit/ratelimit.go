// Package ratelimit throttles repeated user actions, such as OTP requests, within one registration session.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter remembers when each action last ran. It is meant to be owned by a single registration session.
type Limiter struct {
	lock     sync.Mutex
	lastCall map[string]time.Time
	clock    func() time.Time
}

// New returns an empty Limiter. clock defaults to time.Now.
func New(clock func() time.Time) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{
		lastCall: make(map[string]time.Time),
		clock:    clock,
	}
}

// Allow reports whether action may run now, given it must not run more often than once per interval.
// When it may, the call is recorded. Otherwise, Allow returns the remaining wait.
func (l *Limiter) Allow(action string, interval time.Duration) (bool, time.Duration) {
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.clock()
	last, ok := l.lastCall[action]
	if ok {
		elapsed := now.Sub(last)
		if elapsed < interval {
			return false, interval - elapsed
		}
	}
	l.lastCall[action] = now
	return true, 0
}

// Reset forgets the last call of action.
func (l *Limiter) Reset(action string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	delete(l.lastCall, action)
}
