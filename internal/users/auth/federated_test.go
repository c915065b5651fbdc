// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/config"
	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/internal/users/auth"
)

// fakeIdentityProvider serves the token and userinfo endpoints. It records the
// PKCE verifier it received with the code.
type fakeIdentityProvider struct {
	server   *httptest.Server
	verifier string
	profile  map[string]any
}

func newFakeIdentityProvider(t *testing.T) *fakeIdentityProvider {
	t.Helper()

	provider := &fakeIdentityProvider{
		profile: map[string]any{
			"sub":            "provider-123",
			"email":          "grace@example.com",
			"email_verified": true,
			"given_name":     "Grace",
			"family_name":    "Hopper",
			"picture":        "https://cdn.example.com/grace.png",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(writer http.ResponseWriter, request *http.Request) {
		require.NoError(t, request.ParseForm())
		if request.PostForm.Get("code") != "good-code" {
			http.Error(writer, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		provider.verifier = request.PostForm.Get("code_verifier")
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(writer http.ResponseWriter, request *http.Request) {
		if request.Header.Get("Authorization") != "Bearer access-1" {
			writer.WriteHeader(http.StatusUnauthorized)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(writer).Encode(provider.profile)
	})

	provider.server = httptest.NewServer(mux)
	t.Cleanup(provider.server.Close)
	return provider
}

func (provider *fakeIdentityProvider) config() config.OAuthConfig {
	return config.OAuthConfig{
		ClientID:     "client-1",
		ClientSecret: "client-secret",
		AuthURL:      provider.server.URL + "/authorize",
		TokenURL:     provider.server.URL + "/token",
		UserInfoURL:  provider.server.URL + "/userinfo",
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func newProvider(t *testing.T, idp *fakeIdentityProvider) *auth.FederatedProvider {
	t.Helper()
	states := sec.NewStateSigner("state-signing-secret-of-32-bytes!", "alphasource.test")
	return auth.NewFederatedProvider(idp.config(), "https://alphasource.test", states)
}

/*
TestFederatedProvider_Flow runs Begin and Complete against the fake provider.
*/
func TestFederatedProvider_Flow(t *testing.T) {
	idp := newFakeIdentityProvider(t)
	provider := newProvider(t, idp)

	redirect, err := provider.Begin()
	require.NoError(t, err)
	require.NotEmpty(t, redirect.Verifier)
	require.NotEmpty(t, redirect.Nonce)

	location, err := url.Parse(redirect.URL)
	require.NoError(t, err)
	query := location.Query()
	assert.Equal(t, "client-1", query.Get("client_id"))
	assert.Equal(t, "S256", query.Get("code_challenge_method"))
	assert.NotEmpty(t, query.Get("code_challenge"))
	assert.Equal(t, "https://alphasource.test"+auth.FederatedCallbackPath, query.Get("redirect_uri"))

	identity, err := provider.Complete(context.Background(), query.Get("state"), redirect.Nonce, "good-code", redirect.Verifier)
	require.NoError(t, err)

	assert.Equal(t, redirect.Verifier, idp.verifier)
	assert.Equal(t, "provider-123", identity.Subject)
	assert.Equal(t, "grace@example.com", identity.Email)
	assert.True(t, identity.EmailVerified)
	assert.Equal(t, "Grace", identity.FirstName)
	assert.Equal(t, "Hopper", identity.LastName)
	assert.Equal(t, "https://cdn.example.com/grace.png", identity.ProfileImageURL)
}

func TestFederatedProvider_RejectsForeignState(t *testing.T) {
	idp := newFakeIdentityProvider(t)
	provider := newProvider(t, idp)

	first, err := provider.Begin()
	require.NoError(t, err)
	second, err := provider.Begin()
	require.NoError(t, err)

	location, err := url.Parse(first.URL)
	require.NoError(t, err)

	// State minted for the first browser, nonce stored by the second
	_, err = provider.Complete(context.Background(), location.Query().Get("state"), second.Nonce, "good-code", second.Verifier)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.As(err).HTTPStatus)

	_, err = provider.Complete(context.Background(), "garbage", first.Nonce, "good-code", first.Verifier)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.As(err).HTTPStatus)
}

func TestFederatedProvider_RejectedCode(t *testing.T) {
	idp := newFakeIdentityProvider(t)
	provider := newProvider(t, idp)

	redirect, err := provider.Begin()
	require.NoError(t, err)
	location, err := url.Parse(redirect.URL)
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), location.Query().Get("state"), redirect.Nonce, "bad-code", redirect.Verifier)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, apperr.As(err).HTTPStatus)
}
