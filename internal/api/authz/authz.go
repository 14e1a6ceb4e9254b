package authz

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
	RoleManager  = "manager"
)

type AuthUser struct {
	ID    string
	Email string
	Role  string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// ValidRole reports whether role is one of the known account roles.
func ValidRole(role string) bool {
	switch strings.ToLower(role) {
	case RoleCustomer, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// IsElevated reports whether role may see and act on other users' records.
func IsElevated(role string) bool {
	return strings.EqualFold(role, RoleAdmin) || strings.EqualFold(role, RoleManager)
}

// CanAccessOwned reports whether user may read or change a record owned by ownerID.
func CanAccessOwned(user *AuthUser, ownerID string) bool {
	if user == nil {
		return false
	}
	return user.ID == ownerID || IsElevated(user.Role)
}

// RequireUser returns the authenticated user or ErrUnauthenticated.
func RequireUser(ctx context.Context) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

// RequireRole returns ErrUnauthenticated when no user is in ctx and
// ErrForbidden when the user's role is not one of roles.
func RequireRole(ctx context.Context, roles ...string) error {
	user, err := RequireUser(ctx)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if strings.EqualFold(user.Role, role) {
			return nil
		}
	}
	return ErrForbidden
}
