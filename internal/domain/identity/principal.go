// Package identity models the authenticated caller supplied by the upstream
// session layer. Credentials are never handled here.
package identity

import (
	"context"
	"errors"
)

var (
	ErrUnauthenticated = errors.New("identity: authentication required")
	ErrForbidden       = errors.New("identity: staff permission required")
)

type Principal struct {
	ID      int64
	Email   string
	IsStaff bool
}

// RequireStaff fails with ErrForbidden for non-staff principals.
func (p Principal) RequireStaff() error {
	if !p.IsStaff {
		return ErrForbidden
	}
	return nil
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the transport layer.
func FromContext(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.ID <= 0 {
		return Principal{}, ErrUnauthenticated
	}
	return p, nil
}
