package entitlement

import "context"

type contextKey struct{}

// WithContext stores the resolved entitlements for the current request.
// A nil value is stored as-is so downstream code can distinguish
// "resolved to nothing" from "middleware never ran".
func WithContext(ctx context.Context, ent *Entitlements) context.Context {
	return context.WithValue(ctx, contextKey{}, ent)
}

// FromContext retrieves request-scoped entitlements. The second return
// value reports whether the middleware attached anything at all.
func FromContext(ctx context.Context) (*Entitlements, bool) {
	ent, ok := ctx.Value(contextKey{}).(*Entitlements)
	return ent, ok
}
