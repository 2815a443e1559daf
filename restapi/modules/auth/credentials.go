package auth

import (
	"context"
	"errors"
	"time"

	"github.com/echolearn/echolearn-backend/internal/apperr"
	"github.com/echolearn/echolearn-backend/internal/store"
	"github.com/echolearn/echolearn-backend/model"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// NewAccount is the input to Credentials.Create
type NewAccount struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Role           model.Role
	RegistrationIP string
}

// Credentials is the credential store: it validates records, hashes
// passwords explicitly and delegates persistence to a store.UserStore.
type Credentials struct {
	users  store.UserStore
	hasher *Hasher
	now    func() time.Time
}

// NewCredentials wraps a UserStore
func NewCredentials(users store.UserStore, hasher *Hasher, now func() time.Time) *Credentials {
	if now == nil {
		now = time.Now
	}
	return &Credentials{users: users, hasher: hasher, now: now}
}

// validateUser checks the persisted constraints of a record
func validateUser(u *model.User) error {
	return validation.ValidateStruct(u,
		validation.Field(&u.Email, validation.Required, is.Email),
		validation.Field(&u.PasswordHash, validation.Required),
		validation.Field(&u.FirstName, nameRules...),
		validation.Field(&u.LastName, nameRules...),
		validation.Field(&u.Role, validation.Required, validation.By(func(value interface{}) error {
			if r, _ := value.(model.Role); !r.Valid() {
				return errors.New("must be one of user, admin, teacher")
			}
			return nil
		})),
		validation.Field(&u.Preferences, validation.By(func(value interface{}) error {
			prefs, _ := value.(model.Preferences)
			return validatePreferences(&prefs)
		})),
	)
}

func validatePreferences(p *model.Preferences) error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Theme, validation.Required, validation.In(toInterfaces(model.Themes)...).Error("Invalid theme")),
		validation.Field(&p.FontSize, validation.Required, validation.Min(model.MinFontSize).Error("Font size must be between 12 and 24"),
			validation.Max(model.MaxFontSize).Error("Font size must be between 12 and 24")),
		validation.Field(&p.Language, validation.Required, validation.In(toInterfaces(model.Languages)...).Error("Invalid language")),
	)
}

// FindByEmail looks a user up by email, ignoring case
func (c *Credentials) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return c.users.FindByEmail(ctx, NormalizeEmail(email))
}

// FindByID looks a user up by id
func (c *Credentials) FindByID(ctx context.Context, id string) (*model.User, error) {
	return c.users.FindByID(ctx, id)
}

// Create validates the account, hashes its password and stores it.
// It fails with DuplicateEmail when the address is taken.
func (c *Credentials) Create(ctx context.Context, acct NewAccount) (*model.User, error) {
	if acct.Role == "" {
		acct.Role = model.RoleUser
	}
	if err := ValidatePassword(acct.Password); err != nil {
		return nil, apperr.Validation(validation.Errors{"password": err})
	}

	u := model.NewUser(NormalizeEmail(acct.Email), acct.Role)
	u.FirstName = acct.FirstName
	u.LastName = acct.LastName
	u.RegistrationIP = acct.RegistrationIP
	u.CreatedAt = c.now()
	u.UpdatedAt = u.CreatedAt

	// Placeholder so the record validates before the expensive hash runs
	u.PasswordHash = "-"
	if err := validateUser(u); err != nil {
		return nil, apperr.Validation(err)
	}

	if _, err := c.users.FindByEmail(ctx, u.Email); err == nil {
		return nil, duplicateEmail()
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	hash, err := c.hasher.Hash(acct.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	u.PasswordHash = hash

	if err := c.users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, duplicateEmail()
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Save re-validates and persists a mutated user. The password hash is
// stored as is; use UpdatePassword to change it.
func (c *Credentials) Save(ctx context.Context, u *model.User) error {
	if err := validateUser(u); err != nil {
		return apperr.Validation(err)
	}
	u.UpdatedAt = c.now()
	if err := c.users.Save(ctx, u); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return apperr.NotFound("User not found")
		case errors.Is(err, store.ErrDuplicateEmail):
			return duplicateEmail()
		}
		return apperr.Internal(err)
	}
	return nil
}

// UpdatePassword validates and hashes a new password onto u and persists it
func (c *Credentials) UpdatePassword(ctx context.Context, u *model.User, password string) error {
	if err := ValidatePassword(password); err != nil {
		return apperr.Validation(validation.Errors{"newPassword": err})
	}
	hash, err := c.hasher.Hash(password)
	if err != nil {
		return apperr.Internal(err)
	}
	u.PasswordHash = hash
	return c.Save(ctx, u)
}

// VerifyPassword checks a candidate against the stored hash
func (c *Credentials) VerifyPassword(u *model.User, password string) bool {
	return c.hasher.Verify(password, u.PasswordHash)
}

// CountByRole groups users by role
func (c *Credentials) CountByRole(ctx context.Context) (map[model.Role]int, error) {
	counts, err := c.users.CountByRole(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return counts, nil
}

// Stats summarizes the account population
func (c *Credentials) Stats(ctx context.Context) (model.UserStats, error) {
	byRole, err := c.CountByRole(ctx)
	if err != nil {
		return model.UserStats{}, err
	}
	active, inactive, err := c.users.CountByStatus(ctx)
	if err != nil {
		return model.UserStats{}, apperr.Internal(err)
	}
	for _, r := range model.Roles {
		if _, ok := byRole[r]; !ok {
			byRole[r] = 0
		}
	}
	return model.UserStats{
		Total:    active + inactive,
		Active:   active,
		Inactive: inactive,
		ByRole:   byRole,
	}, nil
}

// List returns a page of users and the total number of matches
func (c *Credentials) List(ctx context.Context, opts store.ListOptions) ([]*model.User, int, error) {
	users, total, err := c.users.List(ctx, opts)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return users, total, nil
}

func duplicateEmail() *apperr.Error {
	return apperr.New(apperr.KindDuplicateEmail, "User already exists with this email address")
}
