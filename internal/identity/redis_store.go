package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "session:"
	// Browser-session cookies (MaxAge 0) still expire server-side.
	defaultRedisTTL = 24 * time.Hour
)

// RedisClient is the part of *redis.Client the session store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisStore keeps session values in Redis. The cookie only carries the
// signed session id.
type RedisStore struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options

	client     RedisClient
	serializer securecookie.GobEncoder
}

func NewRedisStore(client RedisClient, options *sessions.Options, keyPairs ...[]byte) *RedisStore {
	return &RedisStore{
		Codecs:  securecookie.CodecsFromPairs(keyPairs...),
		Options: options,
		client:  client,
	}
}

func (s *RedisStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

func (s *RedisStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, cookie.Value, &session.ID, s.Codecs...); err != nil {
		return session, err
	}

	data, err := s.client.Get(r.Context(), redisKeyPrefix+session.ID).Bytes()
	if errors.Is(err, redis.Nil) {
		session.ID = ""
		return session, nil
	}
	if err != nil {
		return session, fmt.Errorf("error loading session: %w", err)
	}
	if err := s.serializer.Deserialize(data, &session.Values); err != nil {
		return session, fmt.Errorf("error decoding session: %w", err)
	}
	session.IsNew = false
	return session, nil
}

func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.client.Del(r.Context(), redisKeyPrefix+session.ID).Err(); err != nil {
				return fmt.Errorf("error deleting session: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	data, err := s.serializer.Serialize(session.Values)
	if err != nil {
		return fmt.Errorf("error encoding session: %w", err)
	}

	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if ttl == 0 {
		ttl = defaultRedisTTL
	}
	if err := s.client.Set(r.Context(), redisKeyPrefix+session.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("error storing session: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Regenerate drops the server-side entry of session and clears its id, so
// the next Save issues a new one. Login calls it to prevent fixation.
func (s *RedisStore) Regenerate(r *http.Request, session *sessions.Session) error {
	if session.ID == "" {
		return nil
	}
	if err := s.client.Del(r.Context(), redisKeyPrefix+session.ID).Err(); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	session.ID = ""
	session.IsNew = true
	session.Values = make(map[interface{}]interface{})
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
