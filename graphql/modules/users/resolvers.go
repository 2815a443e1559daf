package users

import (
	"context"
	"errors"
	"strings"

	"github.com/echolearn/echolearn-backend/internal/apperr"
	"github.com/echolearn/echolearn-backend/internal/store"
	"github.com/echolearn/echolearn-backend/model"
	"github.com/echolearn/echolearn-backend/restapi/modules/auth"
	"github.com/echolearn/echolearn-backend/util"
)

var (
	errAuthRequired = errors.New("Authentication required")
	errForbidden    = errors.New("Insufficient permissions")
	errAccessDenied = errors.New("Access denied")
)

// clientError reduces service errors to the message clients may see
func clientError(err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Kind != apperr.KindInternal {
		return errors.New(appErr.Message)
	}
	return errors.New("Internal server error")
}

func requireUser(ctx context.Context) (*model.User, error) {
	u := auth.UserFromContext(ctx)
	if u == nil {
		return nil, errAuthRequired
	}
	return u, nil
}

func requireAdmin(ctx context.Context) (*model.User, error) {
	u, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin() {
		return nil, errForbidden
	}
	return u, nil
}

// ResolveMe returns the caller
func ResolveMe(ctx context.Context) (interface{}, error) {
	u, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	return u.Safe(), nil
}

// ResolveUser returns one account to its owner or an admin
func ResolveUser(ctx context.Context, svc *auth.Service, id string) (interface{}, error) {
	caller, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && caller.ID != id {
		return nil, errAccessDenied
	}
	u, err := svc.GetUser(ctx, id)
	if err != nil {
		return nil, clientError(err)
	}
	return u.Safe(), nil
}

// ResolveUsers returns a page of accounts, newest first
func ResolveUsers(ctx context.Context, svc *auth.Service, page, limit int, query string) (interface{}, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if page < 1 || limit < 1 || limit > util.MaxLimit {
		return nil, errors.New("Invalid pagination parameters")
	}

	found, total, err := svc.ListUsers(ctx, store.ListOptions{
		Offset: util.Offset(page, limit),
		Limit:  limit,
		Query:  strings.TrimSpace(query),
	})
	if err != nil {
		return nil, clientError(err)
	}
	return model.UserListResponse{
		Users: model.SafeUsers(found),
		Pagination: model.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: util.TotalPages(total, limit),
		},
	}, nil
}

// ResolveStats returns the account population summary
func ResolveStats(ctx context.Context, svc *auth.Service) (interface{}, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		return nil, clientError(err)
	}

	byRole := make([]map[string]interface{}, 0, len(model.Roles))
	for _, r := range model.Roles {
		byRole = append(byRole, map[string]interface{}{"role": string(r), "count": stats.ByRole[r]})
	}
	return map[string]interface{}{
		"total":    stats.Total,
		"active":   stats.Active,
		"inactive": stats.Inactive,
		"byRole":   byRole,
	}, nil
}
