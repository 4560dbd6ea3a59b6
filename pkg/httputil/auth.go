package httputil

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/careflow/careflow-backend/pkg/actor"
	"github.com/careflow/careflow-backend/pkg/config"
	"github.com/careflow/careflow-backend/pkg/errors"
)

// ActorClaims are the JWT claims issued by the auth service that identify
// the acting user. Only identity fields are read here; authorization
// decisions stay with the gateway.
type ActorClaims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies Bearer tokens and attaches the acting user to the
// request context. Requests without a valid token are rejected; the /health
// endpoint is expected to be mounted outside this middleware.
func Authenticator(cfg *config.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				Error(w, errors.New("UNAUTHORIZED", "missing bearer token", http.StatusUnauthorized))
				return
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")

			claims := &ActorClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(cfg.Secret), nil
			}, jwt.WithIssuer(cfg.Issuer))
			if err != nil || !token.Valid {
				Error(w, errors.New("UNAUTHORIZED", "invalid token", http.StatusUnauthorized))
				return
			}

			a := &actor.Actor{
				ID:   claims.Subject,
				Name: claims.Name,
				Role: claims.Role,
			}

			next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), a)))
		})
	}
}
