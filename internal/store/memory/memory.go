// Package memory is an in-process UserStore used by tests and DB_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/echolearn/echolearn-backend/internal/store"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/google/uuid"
)

// Store keeps users in a map guarded by a RWMutex. Records are cloned on the
// way in and out so callers never share state with the store.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*model.User
	byEmail map[string]string
}

var _ store.UserStore = (*Store)(nil)

// New returns an empty store
func New() *Store {
	return &Store{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

// FindByEmail looks a user up by normalized email
func (s *Store) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// FindByID looks a user up by id
func (s *Store) FindByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u.Clone(), nil
}

// Create inserts a new user, assigning an id when none is set
func (s *Store) Create(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, taken := s.byEmail[email]; taken {
		return store.ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.byID[user.ID] = user.Clone()
	s.byEmail[email] = user.ID
	return nil
}

// Save replaces an existing user
func (s *Store) Save(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[user.ID]
	if !ok {
		return store.ErrNotFound
	}
	email := strings.ToLower(user.Email)
	if owner, taken := s.byEmail[email]; taken && owner != user.ID {
		return store.ErrDuplicateEmail
	}
	delete(s.byEmail, strings.ToLower(prev.Email))
	s.byEmail[email] = user.ID
	s.byID[user.ID] = user.Clone()
	return nil
}

// CountByRole groups users by role
func (s *Store) CountByRole(_ context.Context) (map[model.Role]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[model.Role]int)
	for _, u := range s.byID {
		counts[u.Role]++
	}
	return counts, nil
}

// CountByStatus counts active and inactive users
func (s *Store) CountByStatus(_ context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := 0
	for _, u := range s.byID {
		if u.IsActive {
			active++
		}
	}
	return active, len(s.byID) - active, nil
}

// List returns a page of users, newest first, with the total match count
func (s *Store) List(_ context.Context, opts store.ListOptions) ([]*model.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(opts.Query))
	var matched []*model.User
	for _, u := range s.byID {
		if q == "" || matches(u, q) {
			matched = append(matched, u)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(max(opts.Offset, 0), total)
	end := total
	if opts.Limit > 0 {
		end = min(start+opts.Limit, total)
	}

	page := make([]*model.User, 0, end-start)
	for _, u := range matched[start:end] {
		page = append(page, u.Clone())
	}
	return page, total, nil
}

func matches(u *model.User, q string) bool {
	return strings.Contains(strings.ToLower(u.Email), q) ||
		strings.Contains(strings.ToLower(u.FirstName), q) ||
		strings.Contains(strings.ToLower(u.LastName), q)
}
