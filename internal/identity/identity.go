package identity

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// CallerHeader names the header carrying the authenticated account id. The
// authentication itself happens upstream (gateway/proxy); the protocol only
// consumes the resulting identity.
const CallerHeader = "X-Caller-Account"

// Middleware extracts the caller account into the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := strings.TrimSpace(r.Header.Get(CallerHeader))
		if caller != "" {
			r = r.WithContext(WithCaller(r.Context(), caller))
		}
		next.ServeHTTP(w, r)
	})
}

func WithCaller(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, ctxKey{}, account)
}

// Caller returns the authenticated account of the current call, or "" when
// the request was anonymous.
func Caller(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return v
	}
	return ""
}
