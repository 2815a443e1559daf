package auth

import (
	"slices"
	"time"

	"github.com/echolearn/echolearn-backend/model"
)

// Registry manages the active token list stored on each user record.
// Callers persist the user after a mutation.
type Registry struct {
	now func() time.Time
}

// NewRegistry returns a Registry using now as its clock
func NewRegistry(now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{now: now}
}

// Add records token as active, dropping entries that have already expired
func (r *Registry) Add(u *model.User, token string) {
	now := r.now()
	kept := make([]string, 0, len(u.ActiveTokens)+1)
	for _, t := range u.ActiveTokens {
		if t == token {
			continue
		}
		if exp, ok := ExpiresAt(t); ok && !exp.After(now) {
			continue
		}
		kept = append(kept, t)
	}
	u.ActiveTokens = append(kept, token)
}

// Remove revokes a single token. It reports whether the token was active.
func (r *Registry) Remove(u *model.User, token string) bool {
	i := slices.Index(u.ActiveTokens, token)
	if i < 0 {
		return false
	}
	u.ActiveTokens = slices.Delete(u.ActiveTokens, i, i+1)
	return true
}

// RemoveOthers revokes every token except keep
func (r *Registry) RemoveOthers(u *model.User, keep string) int {
	removed := 0
	kept := u.ActiveTokens[:0]
	for _, t := range u.ActiveTokens {
		if t == keep {
			kept = append(kept, t)
			continue
		}
		removed++
	}
	u.ActiveTokens = kept
	return removed
}

// Clear revokes every token. It returns how many were active.
func (r *Registry) Clear(u *model.User) int {
	n := len(u.ActiveTokens)
	u.ActiveTokens = []string{}
	return n
}

// Contains reports whether token is active for u
func (r *Registry) Contains(u *model.User, token string) bool {
	return slices.Contains(u.ActiveTokens, token)
}
