package auth

import (
	"errors"
	"strings"
	"unicode"

	"github.com/echolearn/echolearn-backend/model"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 8

// passwordSpecials are the symbols that satisfy the special character rule
const passwordSpecials = "@$!%*?&"

var (
	errPasswordComplexity = errors.New("Password must contain at least one uppercase letter, one lowercase letter, one number, and one special character")
	errNameLength         = errors.New("must be between 1 and 50 characters")
)

// passwordRules is shared by registration, password change and admin bootstrap
var passwordRules = []validation.Rule{
	validation.Required,
	validation.RuneLength(MinPasswordLength, 0).Error("Password must be at least 8 characters long"),
	validation.By(checkPasswordComplexity),
}

func checkPasswordComplexity(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	var lower, upper, digit, special bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return errPasswordComplexity
	}
	return nil
}

var nameRules = []validation.Rule{
	validation.Required.Error("must be between 1 and 50 characters"),
	validation.RuneLength(1, 50).Error(errNameLength.Error()),
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
}

// Normalize trims names and lower-cases the email
func (r *RegisterRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
}

// Validate checks every field and that both passwords match
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email.Error("Please provide a valid email address")),
		validation.Field(&r.Password, passwordRules...),
		validation.Field(&r.ConfirmPassword, validation.By(func(value interface{}) error {
			if value.(string) != r.Password {
				return errors.New("Passwords do not match")
			}
			return nil
		})),
		validation.Field(&r.FirstName, nameRules...),
		validation.Field(&r.LastName, nameRules...),
	)
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks the login body
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email.Error("Please provide a valid email address")),
		validation.Field(&r.Password, validation.Required.Error("Password is required")),
	)
}

// PreferencesUpdate carries the preference fields a client wants to change
type PreferencesUpdate struct {
	Theme    *string `json:"theme"`
	FontSize *int    `json:"fontSize"`
	Language *string `json:"language"`
}

// Validate checks only the fields that are present
func (p PreferencesUpdate) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Theme, validation.NilOrNotEmpty, validation.In(toInterfaces(model.Themes)...).Error("Invalid theme")),
		validation.Field(&p.FontSize, validation.Min(model.MinFontSize).Error("Font size must be between 12 and 24"),
			validation.Max(model.MaxFontSize).Error("Font size must be between 12 and 24")),
		validation.Field(&p.Language, validation.NilOrNotEmpty, validation.In(toInterfaces(model.Languages)...).Error("Invalid language")),
	)
}

// Apply merges the present fields into prefs
func (p *PreferencesUpdate) Apply(prefs *model.Preferences) {
	if p == nil {
		return
	}
	if p.Theme != nil {
		prefs.Theme = *p.Theme
	}
	if p.FontSize != nil {
		prefs.FontSize = *p.FontSize
	}
	if p.Language != nil {
		prefs.Language = *p.Language
	}
}

// UpdateProfileRequest is the body of PUT /auth/profile. Absent fields are
// left unchanged.
type UpdateProfileRequest struct {
	FirstName   *string            `json:"firstName"`
	LastName    *string            `json:"lastName"`
	Preferences *PreferencesUpdate `json:"preferences"`
}

// Normalize trims the names that are present
func (r *UpdateProfileRequest) Normalize() {
	if r.FirstName != nil {
		v := strings.TrimSpace(*r.FirstName)
		r.FirstName = &v
	}
	if r.LastName != nil {
		v := strings.TrimSpace(*r.LastName)
		r.LastName = &v
	}
}

// Validate checks the fields that are present
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.NilOrNotEmpty.Error(errNameLength.Error()), validation.RuneLength(1, 50).Error(errNameLength.Error())),
		validation.Field(&r.LastName, validation.NilOrNotEmpty.Error(errNameLength.Error()), validation.RuneLength(1, 50).Error(errNameLength.Error())),
		validation.Field(&r.Preferences),
	)
}

// ChangePasswordRequest is the body of POST /auth/change-password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate checks the new password against the complexity rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required.Error("Current password is required")),
		validation.Field(&r.NewPassword, passwordRules...),
	)
}

// ValidatePassword applies the registration password rules to a single value
func ValidatePassword(password string) error {
	return validation.Validate(password, passwordRules...)
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
