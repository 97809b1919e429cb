package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"geminichat/internal/common"
	"geminichat/internal/identity"
	"geminichat/models"

	"github.com/sirupsen/logrus"
)

// TokenParser resolves a bearer token to a user id
type TokenParser interface {
	ParseJWT(tokenStr string) (int64, error)
}

type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type Middleware struct {
	sessions *identity.Manager
	tokens   TokenParser
	users    UserFinder
	log      *logrus.Logger
}

func NewMiddleware(sessions *identity.Manager, tokens TokenParser, users UserFinder, log *logrus.Logger) *Middleware {
	return &Middleware{
		sessions: sessions,
		tokens:   tokens,
		users:    users,
		log:      log,
	}
}

// LoadIdentity attaches the current user, if any, to the request context.
// A bearer token takes precedence over the session cookie.
func (m *Middleware) LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			userID, err := m.tokens.ParseJWT(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				m.log.WithError(err).Debug("Rejected bearer token")
				next.ServeHTTP(w, r)
				return
			}
			m.serveAs(w, r, next, userID, false)
			return
		}

		userID, ok := m.sessions.UserID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		m.serveAs(w, r, next, userID, true)
	})
}

func (m *Middleware) serveAs(w http.ResponseWriter, r *http.Request, next http.Handler, userID int64, fromSession bool) {
	user, err := m.users.FindByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			if fromSession {
				m.log.WithField("user_id", userID).Info("Clearing session of unknown user")
				if err := m.sessions.Clear(w, r); err != nil {
					m.log.WithError(err).Warn("Failed to clear stale session")
				}
			}
		} else {
			m.log.WithError(err).Error("Failed to load current user")
		}
		next.ServeHTTP(w, r)
		return
	}
	next.ServeHTTP(w, r.WithContext(identity.WithUser(r.Context(), user)))
}

// RequirePageUser sends anonymous callers to the login page
func (m *Middleware) RequirePageUser(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.UserFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAPIUser answers anonymous callers with a JSON 401
func (m *Middleware) RequireAPIUser(next http.HandlerFunc) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.UserFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
