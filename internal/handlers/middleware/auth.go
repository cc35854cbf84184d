package middleware

import (
	"net/http"
	"slices"

	"github.com/nkiryanov/earlypulse/internal/apperrors"
	"github.com/nkiryanov/earlypulse/internal/handlers/principalctx"
	"github.com/nkiryanov/earlypulse/internal/handlers/render"
	"github.com/nkiryanov/earlypulse/internal/models"
)

type authenticator interface {
	PrincipalFromRequest(r *http.Request) (models.Principal, error)
}

// Authenticate request and put principal into context.
// A token of any kind passes; use RequireKind to narrow it
func Auth(a authenticator, l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.PrincipalFromRequest(r)
			if err != nil {
				render.AppError(w, err, l)
				return
			}
			next.ServeHTTP(w, r.WithContext(principalctx.New(r.Context(), p)))
		})
	}
}

// Must be used after Auth
func RequireKind(kinds ...models.Kind) func(http.Handler) http.Handler {
	return allowOnly(func(p models.Principal) bool {
		return slices.Contains(kinds, p.Kind)
	})
}

// Must be used after Auth
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return allowOnly(func(p models.Principal) bool {
		return slices.Contains(roles, p.Role)
	})
}

func allowOnly(allowed func(models.Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := principalctx.FromContext(r.Context())
			switch {
			case !ok:
				render.AppError(w, apperrors.ErrTokenMissing, nil)
			case !allowed(p):
				render.AppError(w, apperrors.ErrForbidden, nil)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
