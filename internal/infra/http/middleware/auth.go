package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/contentgraph/api/internal/config"
	"github.com/contentgraph/api/pkg/apierror"
	"github.com/contentgraph/api/pkg/domain/shared"
	"github.com/contentgraph/api/pkg/logger"
)

// Claims are the token claims the API understands.
type Claims struct {
	jwt.RegisteredClaims
	Name       string   `json:"name,omitempty"`
	Roles      []string `json:"roles,omitempty"`
	Privileged bool     `json:"privileged,omitempty"`
	UserID     int64    `json:"uid"`
}

// Authenticate verifies the bearer token and places the resulting actor in
// the request context. Requests without an Authorization header pass through
// unauthenticated; capability checks downstream reject them where it
// matters.
func Authenticate(cfg config.AuthConfig, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				apierror.Unauthorized("Malformed Authorization header").WriteJSON(w)
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(cfg.JWTSecret), nil
			}, jwt.WithIssuer(cfg.JWTIssuer), jwt.WithExpirationRequired())
			if err != nil || !token.Valid {
				log.WithContext(r.Context()).Warn("token rejected", "error", err)
				apierror.Unauthorized("Invalid or expired token").WriteJSON(w)
				return
			}

			actor := shared.Actor{
				UserID:     claims.UserID,
				Name:       claims.Name,
				Roles:      claims.Roles,
				Privileged: claims.Privileged,
			}
			next.ServeHTTP(w, r.WithContext(shared.WithActor(r.Context(), actor)))
		})
	}
}

// RequireActor rejects requests that did not authenticate.
func RequireActor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := shared.ActorFromContext(r.Context()); !ok {
				apierror.Unauthorized("Authentication required").WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole rejects authenticated requests lacking all of the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				apierror.Unauthorized("Authentication required").WriteJSON(w)
				return
			}
			if !actor.Privileged {
				allowed := false
				for _, role := range roles {
					if actor.HasRole(role) {
						allowed = true
						break
					}
				}
				if !allowed {
					apierror.Forbidden("Insufficient role").WriteJSON(w)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
