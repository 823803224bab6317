package auth

import (
	"context"

	"github.com/hongminglow/invest-be/internal/models"
)

// Principal is the authenticated caller. Core operations trust it as given.
type Principal struct {
	UserID int64
	Email  string
	Role   string
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// Can reports whether the principal's role grants c.
func (p Principal) Can(c models.Capability) bool {
	return models.HasCapability(p.Role, c)
}

type principalKey struct{}

// WithPrincipal stores p on the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
