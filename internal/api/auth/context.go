package auth

import "context"

type principalKey struct{}

// WithPrincipal attaches p to ctx
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached to ctx
func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// ContextChecker answers capability checks from the principal in the context
type ContextChecker struct{}

func (ContextChecker) HasCapability(ctx context.Context, permission string) bool {
	p, ok := PrincipalFrom(ctx)
	return ok && p.HasPermission(permission)
}
