package auth

import (
	"context"
	"errors"

	"github.com/echolearn/echolearn-backend/events/modules/accounts"
	"github.com/echolearn/echolearn-backend/internal/apperr"
	"github.com/echolearn/echolearn-backend/internal/store"
	"github.com/echolearn/echolearn-backend/model"
	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"
)

// GetUser loads a user by id, failing with NotFound
func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.creds.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// SetRole changes the role of another account
func (s *Service) SetRole(ctx context.Context, actor *model.User, id string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperr.Validation(validation.Errors{"role": errors.New("Invalid role")})
	}
	if actor.ID == id {
		return nil, apperr.New(apperr.KindValidation, "Cannot change your own role")
	}

	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	if err := s.creds.Save(ctx, u); err != nil {
		return nil, err
	}
	s.publish(ctx, accounts.EventRoleChanged, u, actor.Email)
	s.logger.Info("User role updated", zap.String("admin", actor.Email), zap.String("user", u.Email), zap.String("role", string(role)))
	return u, nil
}

// SetStatus activates or deactivates another account. Deactivation revokes
// every session.
func (s *Service) SetStatus(ctx context.Context, actor *model.User, id string, active bool) (*model.User, error) {
	if actor.ID == id {
		return nil, apperr.New(apperr.KindValidation, "Cannot change your own status")
	}

	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsActive = active
	revoked := 0
	if !active {
		revoked = s.registry.Clear(u)
	}
	if err := s.creds.Save(ctx, u); err != nil {
		return nil, err
	}
	s.metrics.ObserveRevocations("deactivated", revoked)
	if active {
		s.publish(ctx, accounts.EventActivated, u, actor.Email)
	} else {
		s.publish(ctx, accounts.EventDeactivated, u, actor.Email)
	}
	s.logger.Info("User status updated", zap.String("admin", actor.Email), zap.String("user", u.Email), zap.Bool("active", active))
	return u, nil
}

// Deactivate is the soft delete: the account is disabled and its sessions
// revoked, the record stays.
func (s *Service) Deactivate(ctx context.Context, actor *model.User, id string) error {
	if actor.ID == id {
		return apperr.New(apperr.KindValidation, "Cannot delete your own account")
	}

	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	u.IsActive = false
	revoked := s.registry.Clear(u)
	if err := s.creds.Save(ctx, u); err != nil {
		return err
	}
	s.metrics.ObserveRevocations("deleted", revoked)
	s.publish(ctx, accounts.EventDeleted, u, actor.Email)
	s.logger.Info("User deleted", zap.String("admin", actor.Email), zap.String("user", u.Email))
	return nil
}

// ForceLogout revokes every session of another account
func (s *Service) ForceLogout(ctx context.Context, actor *model.User, id string) error {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	revoked := s.registry.Clear(u)
	if err := s.creds.Save(ctx, u); err != nil {
		return err
	}
	s.metrics.ObserveRevocations("admin_logout", revoked)
	s.logger.Info("User logged out by admin", zap.String("admin", actor.Email), zap.String("user", u.Email))
	return nil
}

// ListUsers returns a page of users and the total number of matches
func (s *Service) ListUsers(ctx context.Context, opts store.ListOptions) ([]*model.User, int, error) {
	return s.creds.List(ctx, opts)
}

// Stats summarizes the account population
func (s *Service) Stats(ctx context.Context) (model.UserStats, error) {
	return s.creds.Stats(ctx)
}
