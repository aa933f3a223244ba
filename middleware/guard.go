package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/authcore"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the verified access-token claims stored by
// [RequireAccess].
func ClaimsFromContext(ctx context.Context) (*authcore.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*authcore.Claims)
	return claims, ok
}

// RequireAccess rejects requests that do not carry a valid bearer access
// token. Verified claims are placed in the request context for downstream
// handlers.
func RequireAccess(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.VerifyAccessToken(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects requests whose verified claims do not carry the given
// role. It must be mounted inside [RequireAccess].
func RequireRole(role authcore.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if claims.Role != role {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
