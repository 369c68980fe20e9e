// Package identity defines the acting principal carried through a request.
//
// A Principal is produced by the API auth middleware from a verified token
// and consumed by the thermo services for their access decisions. The core
// never touches credential storage; it only sees the id and the staff flag.
package identity

import "context"

// Principal is the authenticated actor performing an operation.
type Principal struct {
	// ID is the stable identifier of the principal's account.
	ID string

	// Staff grants override access: staff principals bypass ownership checks.
	Staff bool
}

// IsZero reports whether the principal is absent (unauthenticated call).
func (p Principal) IsZero() bool {
	return p.ID == ""
}

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

// WithPrincipal returns a context carrying the given principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext extracts the principal from the context.
// The second return value is false if no principal is attached.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok && !p.IsZero()
}
