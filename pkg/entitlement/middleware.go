package entitlement

import "net/http"

// PlanResolver reports the current caller's plan. Implementations
// typically read the authenticated identity from the request context
// and look up the subscription record.
type PlanResolver func(r *http.Request) (PlanCode, error)

// Middleware resolves the caller's plan on every request and attaches
// the matching entitlements to the context. Resolution happens per
// request by design: the plan can change between requests via an async
// billing webhook, so entitlements must never be cached longer.
//
// Resolver errors degrade to nil entitlements rather than failing the
// request; feature gates downstream treat nil as most restrictive.
func Middleware(resolve PlanResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var ent *Entitlements
			if plan, err := resolve(r); err == nil {
				ent = Lookup(plan)
			}
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), ent)))
		})
	}
}
