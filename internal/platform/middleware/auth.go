package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"ipregistry/internal/identity"
)

type contextKeyPrincipal struct{}

// ContextKeyPrincipal is exported for use in handler tests.
var ContextKeyPrincipal = contextKeyPrincipal{}

// GetPrincipal retrieves the authenticated principal from the context. The
// zero Principal means the request never passed RequireAuth.
func GetPrincipal(ctx context.Context) identity.Principal {
	p, ok := ctx.Value(ContextKeyPrincipal).(identity.Principal)
	if !ok {
		return identity.Principal{}
	}
	return p
}

// WithPrincipal stores a principal on the context. Handler tests use this to
// simulate what RequireAuth would have done.
func WithPrincipal(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// RequireAuth resolves the bearer credential into a Principal and stores it
// in the request context. Requests without a resolvable credential are
// rejected before reaching handlers.
func RequireAuth(resolver identity.Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthenticated request - missing bearer token",
					"request_id", GetRequestID(ctx),
				)
				writeAuthError(w, "Missing or invalid Authorization header")
				return
			}

			principal, err := resolver.Resolve(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthenticated request - credential rejected",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeAuthError(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, principal)))
		})
	}
}

// RequireAdmin rejects requests whose principal lacks the admin capability.
// Must be mounted after RequireAuth.
func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p := GetPrincipal(ctx)
			if !p.Admin {
				logger.WarnContext(ctx, "forbidden - admin capability required",
					"principal", p.ID,
					"request_id", GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin capability required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthenticated","error_description":"` + desc + `"}`))
}
