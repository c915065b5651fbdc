// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/config"
	"github.com/taibuivan/alphasource/internal/platform/sec"
)

// FederatedCallbackPath is the redirect target registered with the provider.
const FederatedCallbackPath = "/api/auth/federated/callback"

// maxUserInfoBytes caps the userinfo document read from the provider.
const maxUserInfoBytes = 1 << 20

// FederatedProvider runs the OAuth2 authorization code flow with PKCE
// against a single OpenID-style provider.
type FederatedProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	states      *sec.StateSigner
	httpClient  *http.Client
}

// NewFederatedProvider builds the provider from configuration. The redirect
// URL is derived from the public base URL.
func NewFederatedProvider(settings config.OAuthConfig, publicBaseURL string, states *sec.StateSigner) *FederatedProvider {
	return &FederatedProvider{
		oauth: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  settings.AuthURL,
				TokenURL: settings.TokenURL,
			},
			RedirectURL: publicBaseURL + FederatedCallbackPath,
			Scopes:      settings.Scopes,
		},
		userInfoURL: settings.UserInfoURL,
		states:      states,
		httpClient:  &http.Client{Timeout: OAuthExchangeTimeout},
	}
}

// FederatedRedirect is what the login route needs to remember and where it sends the browser.
type FederatedRedirect struct {
	URL      string
	Verifier string
	Nonce    string
}

// Begin creates the authorization URL along with the PKCE verifier and state
// nonce that the caller must keep in the session.
func (provider *FederatedProvider) Begin() (*FederatedRedirect, error) {
	nonce, err := sec.GenerateSecureToken(16)
	if err != nil {
		return nil, fmt.Errorf("federated_nonce_failed: %w", err)
	}

	state, err := provider.states.Issue(nonce, OAuthStateTTL)
	if err != nil {
		return nil, err
	}

	verifier := oauth2.GenerateVerifier()

	return &FederatedRedirect{
		URL:      provider.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)),
		Verifier: verifier,
		Nonce:    nonce,
	}, nil
}

// userInfo is the subset of OpenID Connect standard claims we read.
type userInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

/*
Complete validates the callback and resolves the provider identity.

Parameters:
  - ctx: context.Context
  - state: string (from the callback query)
  - expectedNonce: string (from the session)
  - code: string (authorization code)
  - verifier: string (PKCE verifier from the session)

Returns:
  - *FederatedIdentity: Claims of the signed-in subject
  - error: Unauthorized on any state, exchange or userinfo failure
*/
func (provider *FederatedProvider) Complete(ctx context.Context, state, expectedNonce, code, verifier string) (*FederatedIdentity, error) {
	nonce, err := provider.states.Verify(state)
	if err != nil || expectedNonce == "" || nonce != expectedNonce {
		return nil, apperr.Unauthorized("Invalid login state")
	}
	if code == "" || verifier == "" {
		return nil, apperr.Unauthorized("Missing authorization code")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, provider.httpClient)

	token, err := provider.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &apperr.AppError{
			Code:       "UNAUTHORIZED",
			Message:    "Identity provider rejected the login",
			HTTPStatus: http.StatusUnauthorized,
			Cause:      err,
		}
	}

	info, err := provider.fetchUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}

	return &FederatedIdentity{
		Subject:         info.Subject,
		Email:           info.Email,
		EmailVerified:   info.EmailVerified,
		FirstName:       info.GivenName,
		LastName:        info.FamilyName,
		ProfileImageURL: info.Picture,
	}, nil
}

func (provider *FederatedProvider) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*userInfo, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("federated_userinfo_request_failed: %w", err)
	}

	response, err := provider.oauth.Client(ctx, token).Do(request)
	if err != nil {
		return nil, fmt.Errorf("federated_userinfo_failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, apperr.Unauthorized("Identity provider refused the profile request")
	}

	info := &userInfo{}
	if err := json.NewDecoder(io.LimitReader(response.Body, maxUserInfoBytes)).Decode(info); err != nil {
		return nil, fmt.Errorf("federated_userinfo_decode_failed: %w", err)
	}
	if info.Subject == "" {
		return nil, errors.New("federated_userinfo_missing_subject")
	}

	return info, nil
}
