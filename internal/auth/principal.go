package auth

import "context"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// AuthContext is what authorization checks need from a caller.
type AuthContext interface {
	IsAdmin() bool
}

// Principal is the authenticated caller. Subject is the identity
// provider's user id for customers and the admin email for admins.
type Principal struct {
	Subject string
	Email   string
	Role    Role
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

type ctxKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)
	return p, ok && p != nil
}
