// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/internal/users/auth"
)

const testCookie = "alphasource_session"

func newSessionManager() *auth.SessionManager {
	store := auth.NewCookieSessionStore(auth.SessionStoreOptions{
		Secret: "0123456789abcdef0123456789abcdef",
		MaxAge: time.Hour,
	})
	return auth.NewSessionManager(store, testCookie)
}

// carry copies the cookies set by a response onto a new request.
func carry(response *httptest.ResponseRecorder) *http.Request {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, cookie := range response.Result().Cookies() {
		request.AddCookie(cookie)
	}
	return request
}

func TestSessionManager_EstablishAndDestroy(t *testing.T) {
	manager := newSessionManager()

	_, ok := manager.Current(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)

	login := httptest.NewRecorder()
	require.NoError(t, manager.Establish(login, httptest.NewRequest(http.MethodPost, "/", nil), sec.Identity{UserID: "user-1"}))

	cookies := login.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, testCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	identity, ok := manager.Current(carry(login))
	require.True(t, ok)
	assert.Equal(t, "user-1", identity.UserID)

	logout := httptest.NewRecorder()
	require.NoError(t, manager.Destroy(logout, carry(login)))

	expired := logout.Result().Cookies()
	require.Len(t, expired, 1)
	assert.Negative(t, expired[0].MaxAge)
}

/*
TestSessionManager_EstablishDropsPriorValues checks that a login never keeps
values planted in the pre-login session.
*/
func TestSessionManager_EstablishDropsPriorValues(t *testing.T) {
	manager := newSessionManager()

	planted := httptest.NewRecorder()
	require.NoError(t, manager.Put(planted, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"oauthNonce": "n-1"}))

	login := httptest.NewRecorder()
	require.NoError(t, manager.Establish(login, carry(planted), sec.Identity{UserID: "user-2"}))

	taken := httptest.NewRecorder()
	values, err := manager.Take(taken, carry(login), "oauthNonce")
	require.NoError(t, err)
	assert.Empty(t, values["oauthNonce"])
}

func TestSessionManager_PutAndTake(t *testing.T) {
	manager := newSessionManager()

	put := httptest.NewRecorder()
	require.NoError(t, manager.Put(put, httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{
		"verifier": "v-1",
		"nonce":    "n-1",
	}))

	take := httptest.NewRecorder()
	values, err := manager.Take(take, carry(put), "verifier", "nonce", "missing")
	require.NoError(t, err)
	assert.Equal(t, "v-1", values["verifier"])
	assert.Equal(t, "n-1", values["nonce"])
	assert.Empty(t, values["missing"])

	// Taken values are gone from the saved session
	again := httptest.NewRecorder()
	values, err = manager.Take(again, carry(take), "verifier")
	require.NoError(t, err)
	assert.Empty(t, values["verifier"])
}
