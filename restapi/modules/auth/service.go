package auth

import (
	"context"
	"errors"
	"time"

	"github.com/echolearn/echolearn-backend/events/modules/accounts"
	"github.com/echolearn/echolearn-backend/internal/apperr"
	"github.com/echolearn/echolearn-backend/internal/metrics"
	"github.com/echolearn/echolearn-backend/internal/store"
	"github.com/echolearn/echolearn-backend/model"
	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"
)

// Client-visible messages
const (
	msgTokenRequired    = "Access token required"
	msgInvalidToken     = "Invalid token"
	msgTokenExpired     = "Token expired"
	msgTokenRevoked     = "Token has been revoked"
	msgAccountInactive  = "Account deactivated"
	msgBadCredentials   = "Invalid email or password"
	msgLoginDeactivated = "Account has been deactivated"
	msgAccountLocked    = "Account temporarily locked due to too many failed login attempts"
	msgWrongPassword    = "Current password is incorrect"
	msgUserNotFound     = "User not found"
)

// verificationTokenBytes is the entropy of email verification tokens
const verificationTokenBytes = 32

// EventPublisher receives account lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, eventType accounts.EventType, u *model.User, actor string) error
}

// Deps are the collaborators of a Service
type Deps struct {
	Users   store.UserStore
	Hasher  *Hasher
	Tokens  *Tokens
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Events is optional
	Events EventPublisher
	// Now defaults to time.Now
	Now func() time.Time
}

// Service implements registration, login, session management and the
// administrative account operations.
type Service struct {
	creds    *Credentials
	tokens   *Tokens
	lockout  *Lockout
	registry *Registry
	logger   *zap.Logger
	metrics  *metrics.Metrics
	events   EventPublisher
	now      func() time.Time
}

// NewService wires a Service from its dependencies
func NewService(d Deps) *Service {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hasher := d.Hasher
	if hasher == nil {
		hasher = NewHasher(PasswordCost)
	}
	return &Service{
		creds:    NewCredentials(d.Users, hasher, now),
		tokens:   d.Tokens,
		lockout:  NewLockout(now),
		registry: NewRegistry(now),
		logger:   logger,
		metrics:  d.Metrics,
		events:   d.Events,
		now:      now,
	}
}

// Credentials exposes the credential store
func (s *Service) Credentials() *Credentials {
	return s.creds
}

// publish hands an event to the publisher. Failures are logged and never
// fail the request.
func (s *Service) publish(ctx context.Context, eventType accounts.EventType, u *model.User, actor string) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, u, actor); err != nil {
		s.logger.Warn("Failed to publish account event",
			zap.String("event_type", string(eventType)),
			zap.String("user_id", u.ID),
			zap.Error(err),
		)
	}
}

// issueSession mints a token for u, records it and persists the user
func (s *Service) issueSession(ctx context.Context, u *model.User) (string, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", apperr.Internal(err)
	}
	s.registry.Add(u, token)
	if err := s.creds.Save(ctx, u); err != nil {
		return "", err
	}
	return token, nil
}

// Register creates an account and signs it in
func (s *Service) Register(ctx context.Context, req RegisterRequest, ip string) (*model.User, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		s.logger.Info("Registration validation failed", zap.Error(err))
		return nil, "", apperr.Validation(err)
	}

	u, err := s.creds.Create(ctx, NewAccount{
		Email:          req.Email,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           model.RoleUser,
		RegistrationIP: ip,
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindDuplicateEmail {
			s.logger.Info("Registration attempt with existing email", zap.String("email", req.Email))
		}
		return nil, "", err
	}

	verification, err := GenerateSecureToken(verificationTokenBytes)
	if err != nil {
		return nil, "", apperr.Internal(err)
	}
	u.EmailVerificationToken = verification

	token, err := s.issueSession(ctx, u)
	if err != nil {
		return nil, "", err
	}

	s.metrics.ObserveRegistration()
	s.publish(ctx, accounts.EventRegistered, u, "")
	s.logger.Info("New user registered", zap.String("email", u.Email), zap.String("user_id", u.ID))
	return u, token, nil
}

// Login checks credentials against the lockout policy and the stored hash
func (s *Service) Login(ctx context.Context, req LoginRequest, ip string) (*model.User, string, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, "", apperr.Validation(err)
	}

	u, err := s.creds.FindByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		s.metrics.ObserveLogin(metrics.LoginUnknownUser)
		s.logger.Warn("Login attempt with non-existent email", zap.String("email", req.Email))
		return nil, "", apperr.Unauthenticated(msgBadCredentials)
	}
	if err != nil {
		return nil, "", apperr.Internal(err)
	}

	if s.lockout.IsLocked(u) {
		s.metrics.ObserveLogin(metrics.LoginLocked)
		s.logger.Warn("Login attempt on locked account", zap.String("email", req.Email))
		return nil, "", apperr.New(apperr.KindAccountLocked, msgAccountLocked).
			WithDetails(map[string]interface{}{"lockedUntil": u.LockedUntil.UTC()})
	}

	if !u.IsActive {
		s.metrics.ObserveLogin(metrics.LoginInactive)
		s.logger.Warn("Login attempt on inactive account", zap.String("email", req.Email))
		return nil, "", apperr.New(apperr.KindAccountDeactivated, msgLoginDeactivated)
	}

	if !s.creds.VerifyPassword(u, req.Password) {
		s.metrics.ObserveLogin(metrics.LoginBadPassword)
		s.logger.Warn("Failed login attempt", zap.String("email", req.Email), zap.Int("failed_count", u.FailedLoginCount+1))

		locked := s.lockout.RecordFailure(u)
		if err := s.creds.Save(ctx, u); err != nil {
			return nil, "", err
		}
		if locked {
			s.metrics.ObserveLockout()
			s.logger.Warn("Account locked", zap.String("email", req.Email), zap.Timep("locked_until", u.LockedUntil))
			s.publish(ctx, accounts.EventLocked, u, "")
		}
		return nil, "", apperr.Unauthenticated(msgBadCredentials)
	}

	s.lockout.RecordSuccess(u)
	now := s.now()
	u.LastLoginAt = &now
	u.LastLoginIP = ip

	token, err := s.issueSession(ctx, u)
	if err != nil {
		return nil, "", err
	}

	s.metrics.ObserveLogin(metrics.LoginSuccess)
	s.logger.Info("Successful login", zap.String("email", u.Email))
	return u, token, nil
}

// Authenticate resolves a bearer token to its user. The token must verify,
// belong to an active user and still be in that user's registry.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, apperr.Unauthenticated(msgTokenRequired)
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return nil, apperr.Wrap(apperr.KindUnauthenticated, msgTokenExpired, err)
		}
		return nil, apperr.Wrap(apperr.KindUnauthenticated, msgInvalidToken, err)
	}

	u, err := s.creds.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("Authentication failed: user not found", zap.String("user_id", userID))
		return nil, apperr.Unauthenticated(msgInvalidToken)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if !u.IsActive {
		s.logger.Warn("Authentication failed: inactive user", zap.String("user_id", userID))
		return nil, apperr.New(apperr.KindAccountDeactivated, msgAccountInactive)
	}

	if !s.registry.Contains(u, token) {
		s.logger.Warn("Authentication failed: token not active", zap.String("user_id", userID))
		return nil, apperr.Wrap(apperr.KindUnauthenticated, msgTokenRevoked, ErrTokenRevoked)
	}
	return u, nil
}

// Logout revokes a single token
func (s *Service) Logout(ctx context.Context, u *model.User, token string) error {
	if s.registry.Remove(u, token) {
		if err := s.creds.Save(ctx, u); err != nil {
			return err
		}
		s.metrics.ObserveRevocations("logout", 1)
	}
	s.logger.Info("User logged out", zap.String("email", u.Email))
	return nil
}

// LogoutAll revokes every token of u
func (s *Service) LogoutAll(ctx context.Context, u *model.User) error {
	n := s.registry.Clear(u)
	if err := s.creds.Save(ctx, u); err != nil {
		return err
	}
	s.metrics.ObserveRevocations("logout_all", n)
	s.logger.Info("User logged out from all devices", zap.String("email", u.Email))
	return nil
}

// UpdateProfile applies the fields present in req to u
func (s *Service) UpdateProfile(ctx context.Context, u *model.User, req UpdateProfileRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return apperr.Validation(err)
	}

	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		u.LastName = *req.LastName
	}
	req.Preferences.Apply(&u.Preferences)

	if err := s.creds.Save(ctx, u); err != nil {
		return err
	}
	s.logger.Info("Profile updated", zap.String("email", u.Email))
	return nil
}

// ChangePassword replaces the password after checking the current one and
// revokes every session except the one making the request
func (s *Service) ChangePassword(ctx context.Context, u *model.User, token string, req ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return apperr.Validation(err)
	}
	if !s.creds.VerifyPassword(u, req.CurrentPassword) {
		return apperr.Validation(validation.Errors{"currentPassword": errors.New(msgWrongPassword)})
	}

	n := s.registry.RemoveOthers(u, token)
	if err := s.creds.UpdatePassword(ctx, u, req.NewPassword); err != nil {
		return err
	}
	s.metrics.ObserveRevocations("password_change", n)
	s.publish(ctx, accounts.EventPasswordChanged, u, "")
	s.logger.Info("Password changed", zap.String("email", u.Email), zap.Int("revoked_sessions", n))
	return nil
}

// OptionalUser resolves a token without failing. Anything short of a fully
// valid session yields nil.
func (s *Service) OptionalUser(ctx context.Context, token string) *model.User {
	if token == "" {
		return nil
	}
	u, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil
	}
	return u
}

// EnsureAdmin creates an admin account for email when none exists
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.creds.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	u, err := s.creds.Create(ctx, NewAccount{
		Email:     email,
		Password:  password,
		FirstName: "Admin",
		LastName:  "User",
		Role:      model.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	s.logger.Info("Created admin account", zap.String("email", u.Email))
	return true, nil
}
