package middleware

import (
	"context"
	"imageshare-web/core"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

type contextKey string

const credentialContextKey = contextKey("credential")

// Credentials resolves the bearer credential attached by Session.
var Credentials core.CredentialProvider = core.CredentialFunc(CredentialFromContext)

// Session attaches the caller's credential, taken from the Authorization
// header or the named cookie, to the request context. Anonymous requests pass
// through. The token is verified by the image API, not here: JWTs are only
// checked for expiry. A malformed header or an expired token is rejected
// with 401.
func Session(cookieName string) func(http.Handler) http.Handler {
	return session(cookieName, false)
}

// OptionalSession is Session for pages that anonymous visitors may open: an
// unusable credential is dropped and the request continues anonymously.
func OptionalSession(cookieName string) func(http.Handler) http.Handler {
	return session(cookieName, true)
}

func session(cookieName string, lenient bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := credentialFromRequest(r, cookieName)
			if !ok {
				if lenient {
					next.ServeHTTP(w, r)
					return
				}
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Authorization header format must be Bearer {token}"})
				return
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if err := checkExpiry(token, time.Now()); err != nil {
				logrus.WithFields(logrus.Fields{
					"error":   err,
					"lenient": lenient,
				}).Info("Rejected session token")
				if lenient {
					next.ServeHTTP(w, r)
					return
				}
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Session expired, please log in again"})
				return
			}

			ctx := context.WithValue(r.Context(), credentialContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCredential rejects requests that Session left anonymous.
func RequireCredential(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CredentialFromContext(r.Context()) == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Authorization header is required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func CredentialFromContext(ctx context.Context) string {
	token, _ := ctx.Value(credentialContextKey).(string)
	return token
}

// WithCredential returns a copy of ctx carrying token, for callers outside
// the HTTP chain.
func WithCredential(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, credentialContextKey, token)
}

func credentialFromRequest(r *http.Request, cookieName string) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil {
			return cookie.Value, true
		}
	}
	return "", true
}

// checkExpiry rejects JWT credentials past their exp claim. Opaque tokens
// and JWTs without exp are left to the image API.
func checkExpiry(token string, now time.Time) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return err
	}
	if exp != nil && !now.Before(exp.Time) {
		return jwt.ErrTokenExpired
	}
	return nil
}
