package auth

import (
	"context"
	"crypto/subtle"
	"net/http"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const OperatorKey contextKey = "operator"

func GetOperatorFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(OperatorKey).(string)
	return name, ok
}

// BasicAuth guards next with one operator credential. passwordHash is a
// bcrypt hash; an empty hash rejects every request.
func BasicAuth(user, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, password, ok := r.BasicAuth()
			if !ok || passwordHash == "" || subtle.ConstantTimeCompare([]byte(name), []byte(user)) != 1 {
				unauthorized(w)
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
				logger.WithField("operator", name).Warn("invalid stats credentials")
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), OperatorKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="futuresexecutor"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
