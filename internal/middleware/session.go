package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rpattn/esgdash/internal/auth"
)

// Session validates bearer tokens and scopes the request to the token's
// company. Requests without a token pass through unless required is set.
func Session(tokens *auth.Tokens, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if header == "" {
				if required {
					unauthorized(w, "authentication required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Parse(header)
			if err != nil {
				logrus.WithError(err).WithField("request_id", RequestIDFromContext(r.Context())).Debug("rejected session token")
				unauthorized(w, auth.ErrInvalidToken.Error())
				return
			}

			ctx := auth.ContextWithCompany(r.Context(), claims.Company)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
