package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/echolearn/echolearn-backend/internal/store"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/google/uuid"
)

// UserStore implements store.UserStore on the ArangoDB users collection
type UserStore struct {
	db arangodb.Database
}

var _ store.UserStore = (*UserStore)(nil)

// NewUserStore returns a UserStore backed by an initialized connection
func NewUserStore(conn DBConnection) *UserStore {
	return &UserStore{db: conn.Database}
}

func (s *UserStore) queryUsers(ctx context.Context, query string, bindVars map[string]interface{}) ([]*model.User, error) {
	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cursor.Close()

	users := []*model.User{}
	for cursor.HasMore() {
		var u model.User
		if _, err := cursor.ReadDocument(ctx, &u); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if u.ActiveTokens == nil {
			u.ActiveTokens = []string{}
		}
		users = append(users, &u)
	}
	return users, nil
}

func (s *UserStore) findOne(ctx context.Context, query string, bindVars map[string]interface{}) (*model.User, error) {
	users, err := s.queryUsers(ctx, query, bindVars)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, store.ErrNotFound
	}
	return users[0], nil
}

// FindByEmail looks a user up by email, ignoring case
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		FOR u IN users
			FILTER u.email == LOWER(@email)
			LIMIT 1
			RETURN u
	`
	return s.findOne(ctx, query, map[string]interface{}{"email": email})
}

// FindByID looks a user up by document key
func (s *UserStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `
		FOR u IN users
			FILTER u._key == @key
			LIMIT 1
			RETURN u
	`
	return s.findOne(ctx, query, map[string]interface{}{"key": id})
}

// emailTaken reports whether another document already holds email
func (s *UserStore) emailTaken(ctx context.Context, email, exceptKey string) (bool, error) {
	existing, err := s.FindByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ID != exceptKey, nil
}

// Create inserts a new user document, assigning a key when none is set.
// The unique email index rejects races the pre-check misses.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	taken, err := s.emailTaken(ctx, user.Email, "")
	if err != nil {
		return err
	}
	if taken {
		return store.ErrDuplicateEmail
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `INSERT @doc INTO users RETURN NEW._key`
	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"doc": user},
	})
	if err != nil {
		return s.writeError(ctx, user, err)
	}
	cursor.Close()
	return nil
}

// Save replaces the stored document with user
func (s *UserStore) Save(ctx context.Context, user *model.User) error {
	query := `
		FOR u IN users
			FILTER u._key == @key
			REPLACE u WITH @doc IN users
			RETURN NEW._key
	`
	cursor, err := s.db.Query(ctx, query, &arangodb.QueryOptions{
		BindVars: map[string]interface{}{"key": user.ID, "doc": user},
	})
	if err != nil {
		return s.writeError(ctx, user, err)
	}
	defer cursor.Close()

	if !cursor.HasMore() {
		return store.ErrNotFound
	}
	return nil
}

// writeError distinguishes a unique index violation from other failures
func (s *UserStore) writeError(ctx context.Context, user *model.User, err error) error {
	if taken, lookupErr := s.emailTaken(ctx, user.Email, user.ID); lookupErr == nil && taken {
		return store.ErrDuplicateEmail
	}
	return fmt.Errorf("db error: %w", err)
}

// CountByRole groups users by role
func (s *UserStore) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	query := `
		FOR u IN users
			COLLECT role = u.role WITH COUNT INTO n
			RETURN { role: role, count: n }
	`
	cursor, err := s.db.Query(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer cursor.Close()

	counts := make(map[model.Role]int)
	for cursor.HasMore() {
		var row struct {
			Role  model.Role `json:"role"`
			Count int        `json:"count"`
		}
		if _, err := cursor.ReadDocument(ctx, &row); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		counts[row.Role] = row.Count
	}
	return counts, nil
}

// CountByStatus counts active and inactive users
func (s *UserStore) CountByStatus(ctx context.Context) (int, int, error) {
	query := `
		RETURN {
			active: LENGTH(FOR u IN users FILTER u.isActive == true RETURN 1),
			inactive: LENGTH(FOR u IN users FILTER u.isActive != true RETURN 1)
		}
	`
	cursor, err := s.db.Query(ctx, query, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	defer cursor.Close()

	var row struct {
		Active   int `json:"active"`
		Inactive int `json:"inactive"`
	}
	if cursor.HasMore() {
		if _, err := cursor.ReadDocument(ctx, &row); err != nil {
			return 0, 0, fmt.Errorf("db error: %w", err)
		}
	}
	return row.Active, row.Inactive, nil
}

// List returns a page of users, newest first, with the total match count
func (s *UserStore) List(ctx context.Context, opts store.ListOptions) ([]*model.User, int, error) {
	countQuery, bindVars := listQuery(opts, true)
	cursor, err := s.db.Query(ctx, countQuery, &arangodb.QueryOptions{BindVars: bindVars})
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	var total int
	if cursor.HasMore() {
		if _, err := cursor.ReadDocument(ctx, &total); err != nil {
			cursor.Close()
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
	}
	cursor.Close()

	pageQuery, bindVars := listQuery(opts, false)
	users, err := s.queryUsers(ctx, pageQuery, bindVars)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// listQuery builds the AQL for List. With count set it returns the number of
// matches instead of the page.
func listQuery(opts store.ListOptions, count bool) (string, map[string]interface{}) {
	bindVars := map[string]interface{}{}

	var b strings.Builder
	b.WriteString("FOR u IN users\n")

	if q := strings.ToLower(strings.TrimSpace(opts.Query)); q != "" {
		bindVars["q"] = q
		b.WriteString("\tFILTER CONTAINS(LOWER(u.email), @q) OR CONTAINS(LOWER(u.firstName), @q) OR CONTAINS(LOWER(u.lastName), @q)\n")
	}

	if count {
		b.WriteString("\tCOLLECT WITH COUNT INTO n\n\tRETURN n")
		return b.String(), bindVars
	}

	b.WriteString("\tSORT DATE_TIMESTAMP(u.createdAt) DESC, u._key ASC\n")
	if opts.Limit > 0 {
		bindVars["offset"] = max(opts.Offset, 0)
		bindVars["limit"] = opts.Limit
		b.WriteString("\tLIMIT @offset, @limit\n")
	}
	b.WriteString("\tRETURN u")
	return b.String(), bindVars
}
