// Package identity keeps track of who is calling: the session cookie and the
// user attached to the request context.
package identity

import (
	"fmt"
	"net/http"

	"geminichat/internal/config"
	"geminichat/models"

	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const SessionName = "geminichat-session"

const (
	userIDKey   = "user_id"
	usernameKey = "username"
)

// regenerator is implemented by stores that keep a server-side session id.
type regenerator interface {
	Regenerate(r *http.Request, session *sessions.Session) error
}

type Manager struct {
	store sessions.Store
	log   *logrus.Logger
}

func NewManager(store sessions.Store, log *logrus.Logger) *Manager {
	return &Manager{store: store, log: log}
}

// NewStore builds the session backend selected by SESSION_STORE.
func NewStore(cfg *config.Config, log *logrus.Logger) (sessions.Store, error) {
	options := SessionOptions(cfg)

	switch cfg.SessionStore {
	case config.CookieSessionStore, "":
		store := sessions.NewCookieStore(cfg.SessionSecret)
		store.Options = options
		return store, nil
	case config.RedisSessionStore:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		log.WithField("addr", cfg.RedisAddr).Info("Using Redis session store")
		return NewRedisStore(client, options, cfg.SessionSecret), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.SessionStore)
	}
}

func SessionOptions(cfg *config.Config) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// UserID returns the user id stored in the caller's session.
func (m *Manager) UserID(r *http.Request) (int64, bool) {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		m.log.WithError(err).Debug("Ignoring unreadable session")
		return 0, false
	}
	userID, ok := session.Values[userIDKey].(int64)
	return userID, ok
}

// Login records the user in the session and writes the cookie.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, user *models.User) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil && session == nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if regen, ok := m.store.(regenerator); ok {
		if err := regen.Regenerate(r, session); err != nil {
			return fmt.Errorf("failed to regenerate session: %w", err)
		}
	}
	session.Values[userIDKey] = user.ID
	session.Values[usernameKey] = user.Username
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear drops every session value and expires the cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil && session == nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
