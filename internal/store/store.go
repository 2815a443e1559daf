// Package store defines the persistence contract for user records.
package store

import (
	"context"
	"errors"

	"github.com/echolearn/echolearn-backend/model"
)

var (
	// ErrNotFound is returned when no record matches
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when an email is already registered
	ErrDuplicateEmail = errors.New("email already registered")
)

// ListOptions selects a page of users. Query, when set, matches email,
// first name or last name case-insensitively.
type ListOptions struct {
	Offset int
	Limit  int
	Query  string
}

// UserStore is implemented by every persistence backend.
// Emails passed in are already normalized to lower case.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	Save(ctx context.Context, user *model.User) error
	CountByRole(ctx context.Context) (map[model.Role]int, error)
	CountByStatus(ctx context.Context) (active int, inactive int, err error)
	List(ctx context.Context, opts ListOptions) ([]*model.User, int, error)
}
