package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/Overland-East-Bay/cashcard-api/internal/domain"
)

const authRealm = `realm="cashcards"`

type Authenticator interface {
	Authenticate(ctx context.Context, username, secret string) (domain.Principal, error)
}

type SubjectResolver interface {
	AuthenticateSubject(ctx context.Context, subject string) (domain.Principal, error)
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

type RoleAuthorizer interface {
	Authorize(p domain.Principal, role domain.Role) error
}

// NewBasicAuthMiddleware enforces HTTP Basic credentials checked by a.
//
// On success, it stores the authenticated principal in request context.
func NewBasicAuthMiddleware(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			challenge := "Basic " + authRealm
			if r.Header.Get("Authorization") == "" {
				unauthorized(w, r, challenge, "missing Authorization header")
				return
			}
			user, pass, ok := r.BasicAuth()
			if !ok {
				unauthorized(w, r, challenge, "malformed Authorization header")
				return
			}
			p, err := a.Authenticate(r.Context(), user, pass)
			if err != nil {
				unauthorized(w, r, challenge, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// NewBearerAuthMiddleware enforces Authorization: Bearer <JWT>. The token's `sub` must
// name a registered principal.
func NewBearerAuthMiddleware(v TokenVerifier, subjects SubjectResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			challenge := "Bearer " + authRealm
			authz := r.Header.Get("Authorization")
			if authz == "" {
				unauthorized(w, r, challenge, "missing Authorization header")
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(authz, prefix) {
				unauthorized(w, r, challenge, "malformed Authorization header")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
			if raw == "" {
				unauthorized(w, r, challenge, "missing bearer token")
				return
			}

			sub, err := v.Verify(r.Context(), raw)
			if err != nil {
				unauthorized(w, r, challenge, "invalid token")
				return
			}
			p, err := subjects.AuthenticateSubject(r.Context(), sub)
			if err != nil {
				unauthorized(w, r, challenge, "unknown principal")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole rejects authenticated principals lacking role with 403. It runs before any
// handler, so the response never depends on whether the addressed card exists. A nil
// authz checks the principal's roles directly.
func RequireRole(authz RoleAuthorizer, role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				unauthorized(w, r, "Basic "+authRealm, "missing principal")
				return
			}
			allowed := p.HasRole(role)
			if authz != nil {
				allowed = authz.Authorize(p, role) == nil
			}
			if !allowed {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, challenge, message string) {
	w.Header().Set("WWW-Authenticate", challenge)
	writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}
