// Package postgres is the PostgreSQL UserStore, used when DB_DRIVER=postgres.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/echolearn/echolearn-backend/internal/store"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the SQLSTATE for unique constraint failures
const uniqueViolation = "23505"

// DBTX is the subset of database/sql used by the store.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const userColumns = `id, email, password_hash, first_name, last_name, role, is_active,
		email_verified, email_verification_token, password_reset_token, password_reset_expires,
		failed_login_count, locked_until, active_tokens, last_login_at, last_login_ip,
		registration_ip, preferences, created_at, updated_at`

// Store implements store.UserStore on PostgreSQL
type Store struct {
	db DBTX
}

var _ store.UserStore = (*Store)(nil)

// New wraps an open database handle
func New(db DBTX) *Store {
	return &Store{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                                    model.User
		role                                 string
		resetExpires, lockedUntil, lastLogin sql.NullTime
		tokens, prefs                        []byte
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &role, &u.IsActive,
		&u.EmailVerified, &u.EmailVerificationToken, &u.PasswordResetToken, &resetExpires,
		&u.FailedLoginCount, &lockedUntil, &tokens, &lastLogin, &u.LastLoginIP,
		&u.RegistrationIP, &prefs, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	u.PasswordResetExpires = fromNullTime(resetExpires)
	u.LockedUntil = fromNullTime(lockedUntil)
	u.LastLoginAt = fromNullTime(lastLogin)

	u.ActiveTokens = []string{}
	if len(tokens) > 0 {
		if err := json.Unmarshal(tokens, &u.ActiveTokens); err != nil {
			return nil, fmt.Errorf("decoding active_tokens: %w", err)
		}
	}
	u.Preferences = model.DefaultPreferences()
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &u.Preferences); err != nil {
			return nil, fmt.Errorf("decoding preferences: %w", err)
		}
	}
	return &u, nil
}

func (s *Store) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// FindByEmail looks a user up by email, ignoring case
func (s *Store) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return s.findOne(ctx, query, email)
}

// FindByID looks a user up by id. Ids that are not UUIDs cannot exist.
func (s *Store) FindByID(ctx context.Context, id string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.findOne(ctx, query, id)
}

// Create inserts a new user, assigning an id when none is set
func (s *Store) Create(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	tokens, prefs, err := encodeJSON(user)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err = s.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, string(user.Role), user.IsActive,
		user.EmailVerified, user.EmailVerificationToken, user.PasswordResetToken, toNullTime(user.PasswordResetExpires),
		user.FailedLoginCount, toNullTime(user.LockedUntil), tokens, toNullTime(user.LastLoginAt), user.LastLoginIP,
		user.RegistrationIP, prefs, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// Save persists every mutable column of an existing user
func (s *Store) Save(ctx context.Context, user *model.User) error {
	tokens, prefs, err := encodeJSON(user)
	if err != nil {
		return err
	}

	query := `UPDATE users SET
			email = $2, password_hash = $3, first_name = $4, last_name = $5, role = $6, is_active = $7,
			email_verified = $8, email_verification_token = $9, password_reset_token = $10,
			password_reset_expires = $11, failed_login_count = $12, locked_until = $13,
			active_tokens = $14, last_login_at = $15, last_login_ip = $16, preferences = $17,
			updated_at = $18
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, string(user.Role), user.IsActive,
		user.EmailVerified, user.EmailVerificationToken, user.PasswordResetToken,
		toNullTime(user.PasswordResetExpires), user.FailedLoginCount, toNullTime(user.LockedUntil),
		tokens, toNullTime(user.LastLoginAt), user.LastLoginIP, prefs,
		user.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CountByRole groups users by role
func (s *Store) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Role]int)
	for rows.Next() {
		var (
			role string
			n    int
		)
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		counts[model.Role(role)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return counts, nil
}

// CountByStatus counts active and inactive users
func (s *Store) CountByStatus(ctx context.Context) (int, int, error) {
	query := `SELECT
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE NOT is_active)
		FROM users`

	var active, inactive int
	if err := s.db.QueryRowContext(ctx, query).Scan(&active, &inactive); err != nil {
		return 0, 0, fmt.Errorf("db error: %w", err)
	}
	return active, inactive, nil
}

const searchFilter = `($1 = '' OR email ILIKE '%' || $1 || '%'
			OR first_name ILIKE '%' || $1 || '%'
			OR last_name ILIKE '%' || $1 || '%')`

// List returns a page of users, newest first, with the total match count
func (s *Store) List(ctx context.Context, opts store.ListOptions) ([]*model.User, int, error) {
	q := escapeLike(strings.TrimSpace(opts.Query))

	var total int
	countQuery := `SELECT COUNT(*) FROM users WHERE ` + searchFilter
	if err := s.db.QueryRowContext(ctx, countQuery, q).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	var limit any
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	pageQuery := `SELECT ` + userColumns + ` FROM users WHERE ` + searchFilter + `
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := s.db.QueryContext(ctx, pageQuery, q, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return users, total, nil
}

func encodeJSON(user *model.User) (string, string, error) {
	tokens := user.ActiveTokens
	if tokens == nil {
		tokens = []string{}
	}
	t, err := json.Marshal(tokens)
	if err != nil {
		return "", "", fmt.Errorf("encoding active_tokens: %w", err)
	}
	p, err := json.Marshal(user.Preferences)
	if err != nil {
		return "", "", fmt.Errorf("encoding preferences: %w", err)
	}
	return string(t), string(p), nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrDuplicateEmail
	}
	return fmt.Errorf("db error: %w", err)
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
