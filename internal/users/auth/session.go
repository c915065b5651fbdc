// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/boj/redistore"
	redigo "github.com/gomodule/redigo/redis"
	"github.com/gorilla/sessions"

	"github.com/taibuivan/alphasource/internal/platform/constants"
	"github.com/taibuivan/alphasource/internal/platform/sec"
)

// # Session Stores

// SessionStoreOptions configures the session cookie.
type SessionStoreOptions struct {
	Secret string
	MaxAge time.Duration
	Secure bool
}

func (options SessionStoreOptions) cookie() *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(options.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   options.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

/*
NewRedisSessionStore builds a server-side session store. The browser only
holds a signed session id; values live in Redis under the session prefix.

Parameters:
  - redisURL: string (redis:// URL shared with the go-redis client)
  - options: SessionStoreOptions

Returns:
  - *redistore.RediStore: Store ready for [NewSessionManager]
  - error: Connection failures
*/
func NewRedisSessionStore(redisURL string, options SessionStoreOptions) (*redistore.RediStore, error) {
	pool := &redigo.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redigo.Conn, error) {
			return redigo.DialURL(redisURL)
		},
		TestOnBorrow: func(conn redigo.Conn, lastUsed time.Time) error {
			if time.Since(lastUsed) < time.Minute {
				return nil
			}
			_, err := conn.Do("PING")
			return err
		},
	}

	store, err := redistore.NewRediStoreWithPool(pool, []byte(options.Secret))
	if err != nil {
		return nil, fmt.Errorf("session_store_init_failed: %w", err)
	}

	store.SetKeyPrefix(constants.SessionRedisKeyPrefix)
	store.SetMaxAge(int(options.MaxAge.Seconds()))
	store.Options = options.cookie()

	return store, nil
}

// NewCookieSessionStore keeps the session values in the signed cookie itself.
// Used when no Redis is configured and in tests.
func NewCookieSessionStore(options SessionStoreOptions) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(options.Secret))
	store.MaxAge(int(options.MaxAge.Seconds()))
	store.Options = options.cookie()
	return store
}

// # Session Manager

// SessionManager binds identities to the session cookie.
type SessionManager struct {
	store sessions.Store
	name  string
}

// NewSessionManager constructs a new [SessionManager] over store.
func NewSessionManager(store sessions.Store, cookieName string) *SessionManager {
	return &SessionManager{store: store, name: cookieName}
}

// Current returns the identity bound to the request's session, if any.
func (manager *SessionManager) Current(request *http.Request) (sec.Identity, bool) {
	session, err := manager.store.Get(request, manager.name)
	if err != nil || session == nil {
		return sec.Identity{}, false
	}

	userID, _ := session.Values[constants.SessionKeyUserID].(string)
	if userID == "" {
		return sec.Identity{}, false
	}

	return sec.Identity{UserID: userID}, true
}

/*
Establish binds identity to a fresh session.

Description: Prior values are discarded and the session id is regenerated so
an id planted before login is never promoted.

Parameters:
  - writer: http.ResponseWriter
  - request: *http.Request
  - identity: sec.Identity

Returns:
  - error: Store failures
*/
func (manager *SessionManager) Establish(writer http.ResponseWriter, request *http.Request, identity sec.Identity) error {
	session, err := manager.store.Get(request, manager.name)
	if session == nil {
		return fmt.Errorf("session_get_failed: %w", err)
	}

	session.ID = ""
	session.IsNew = true
	session.Values = map[interface{}]interface{}{
		constants.SessionKeyUserID: identity.UserID,
	}

	if err := session.Save(request, writer); err != nil {
		return fmt.Errorf("session_save_failed: %w", err)
	}
	return nil
}

// Destroy clears the session and expires the cookie.
func (manager *SessionManager) Destroy(writer http.ResponseWriter, request *http.Request) error {
	session, err := manager.store.Get(request, manager.name)
	if session == nil {
		return fmt.Errorf("session_get_failed: %w", err)
	}

	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1

	if err := session.Save(request, writer); err != nil {
		return fmt.Errorf("session_destroy_failed: %w", err)
	}
	return nil
}

// Put stores transient string values alongside any bound identity.
func (manager *SessionManager) Put(writer http.ResponseWriter, request *http.Request, values map[string]string) error {
	session, err := manager.store.Get(request, manager.name)
	if session == nil {
		return fmt.Errorf("session_get_failed: %w", err)
	}

	for key, value := range values {
		session.Values[key] = value
	}

	if err := session.Save(request, writer); err != nil {
		return fmt.Errorf("session_save_failed: %w", err)
	}
	return nil
}

// Take reads and removes transient values. Missing keys map to "".
func (manager *SessionManager) Take(writer http.ResponseWriter, request *http.Request, keys ...string) (map[string]string, error) {
	session, err := manager.store.Get(request, manager.name)
	if session == nil {
		return nil, fmt.Errorf("session_get_failed: %w", err)
	}

	values := make(map[string]string, len(keys))
	for _, key := range keys {
		values[key], _ = session.Values[key].(string)
		delete(session.Values, key)
	}

	if err := session.Save(request, writer); err != nil {
		return nil, fmt.Errorf("session_save_failed: %w", err)
	}
	return values, nil
}
