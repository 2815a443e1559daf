package auth

import (
	"time"

	"github.com/echolearn/echolearn-backend/model"
)

// Lockout limits
const (
	MaxLoginAttempts = 5
	LockDuration     = 2 * time.Hour
)

// Lockout tracks consecutive failed logins on the user record and locks the
// account once MaxAttempts is reached.
type Lockout struct {
	MaxAttempts int
	Duration    time.Duration
	now         func() time.Time
}

// NewLockout returns the policy with the production limits
func NewLockout(now func() time.Time) *Lockout {
	if now == nil {
		now = time.Now
	}
	return &Lockout{MaxAttempts: MaxLoginAttempts, Duration: LockDuration, now: now}
}

// IsLocked reports whether the account is locked right now
func (l *Lockout) IsLocked(u *model.User) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(l.now())
}

// RecordFailure counts a failed attempt. An expired lock restarts the count
// at one. It reports whether this failure locked the account.
func (l *Lockout) RecordFailure(u *model.User) bool {
	now := l.now()

	if u.LockedUntil != nil && !u.LockedUntil.After(now) {
		u.FailedLoginCount = 1
		u.LockedUntil = nil
		return false
	}

	u.FailedLoginCount++
	if u.FailedLoginCount >= l.MaxAttempts && !l.IsLocked(u) {
		until := now.Add(l.Duration)
		u.LockedUntil = &until
		return true
	}
	return false
}

// RecordSuccess clears the failure counter and any lock
func (l *Lockout) RecordSuccess(u *model.User) {
	u.FailedLoginCount = 0
	u.LockedUntil = nil
}
