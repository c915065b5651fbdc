// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/constants"
	"github.com/taibuivan/alphasource/internal/platform/ctxutil"
	"github.com/taibuivan/alphasource/internal/platform/middleware"
	requestutil "github.com/taibuivan/alphasource/internal/platform/request"
	"github.com/taibuivan/alphasource/internal/platform/respond"
	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/internal/platform/validate"
)

// # Definitions & Constructors

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler manages every entry point of the session lifecycle: signup,
// password and federated login, the 2FA login step, logout, email
// verification and owner claiming.
type Handler struct {
	authService *Service
	sessions    *SessionManager
	federated   *FederatedProvider
	gate        *middleware.Gate
}

// NewHandler constructs a new [Handler]. federated may be nil when no
// identity provider is configured.
func NewHandler(service *Service, sessions *SessionManager, federated *FederatedProvider, gate *middleware.Gate) *Handler {
	return &Handler{authService: service, sessions: sessions, federated: federated, gate: gate}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /signup               : Creates a password account and logs it in.
//   - POST /login                : Password step, or 2FA step when a challenge token is sent.
//   - POST /logout               : Destroys the session.
//   - GET  /user                 : Current user, or {"user": null}.
//   - POST /verify-email         : Consumes a verification token.
//   - POST /resend-verification  : Mails a fresh verification link.
//   - POST /claim-owner          : Promotes the caller while no owner exists.
//   - GET  /federated/login      : Redirects to the identity provider.
//   - GET  /federated/callback   : Completes the federated login.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/signup", handler.signup)
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)
	router.Get("/user", handler.currentUser)
	router.Post("/verify-email", handler.verifyEmail)
	router.Get("/federated/login", handler.BeginFederatedLogin)
	router.Get("/federated/callback", handler.federatedCallback)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.gate.Authenticated)
		r.Post("/resend-verification", handler.resendVerification)
		r.Post("/claim-owner", handler.claimOwner)
	})

	return router
}

// # Request Payloads

type signupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	ChallengeToken string `json:"challengeToken"`
	TwoFactorCode  string `json:"twoFactorCode"`
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

// # Handlers

/*
Signup handles the creation of a new password account.

POST /api/auth/signup

Description: Validates input, persists the account, mails the verification
link and logs the new user in.

Request:
  - Body: signupRequest (FirstName, LastName, Email, Password)

Response:
  - 201: {success, user:{id,email}, requiresEmailVerification:true}
  - 400: Validation failure
  - 403: Registration closed
  - 409: Email already registered
*/
func (handler *Handler) signup(writer http.ResponseWriter, request *http.Request) {
	var input signupRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, NameMaxLength).
		Required(FieldLastName, input.LastName).
		MaxLen(FieldLastName, input.LastName, NameMaxLength).
		Required(FieldEmail, input.Email).
		Email(FieldEmail, input.Email).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, PasswordMinLength)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.Signup(request.Context(), SignupInput(input))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.establish(writer, request, user); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{
		constants.FieldSuccess: true,
		constants.FieldUser: map[string]string{
			FieldID:    user.ID,
			FieldEmail: user.Email,
		},
		FieldRequiresVerify: true,
	})
}

/*
Login authenticates a password or completes a pending 2FA challenge.

POST /api/auth/login

Request:
  - Body: {email, password} or {challengeToken, twoFactorCode}

Response:
  - 200: {success, user} with the session cookie set
  - 200: {requiresTwoFactor:true, challengeToken} when a second factor is needed
  - 401: Invalid credentials, challenge or code
  - 403: ACCOUNT_BANNED
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if input.ChallengeToken != "" {
		handler.completeTwoFactor(writer, request, input)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if result.RequiresTwoFactor {
		respond.OK(writer, map[string]any{
			FieldRequiresTwoFactor: true,
			FieldChallengeToken:    result.ChallengeToken,
		})
		return
	}

	if err := handler.establish(writer, request, result.User); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		constants.FieldSuccess: true,
		constants.FieldUser: map[string]any{
			FieldID:            result.User.ID,
			FieldEmail:         result.User.Email,
			FieldEmailVerified: result.User.EmailVerified(),
		},
	})
}

func (handler *Handler) completeTwoFactor(writer http.ResponseWriter, request *http.Request, input loginRequest) {
	validator := &validate.Validator{}
	validator.Required(FieldTwoFactorCode, input.TwoFactorCode)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.CompleteTwoFactorLogin(request.Context(), input.ChallengeToken, input.TwoFactorCode)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.establish(writer, request, user); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		constants.FieldSuccess: true,
		constants.FieldUser:    user,
	})
}

// Logout destroys the session. Calling it without a session still succeeds.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	if err := handler.sessions.Destroy(writer, request); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Success(writer)
}

/*
CurrentUser returns the account bound to the session.

GET /api/auth/user

Response:
  - 200: User, or {"user": null} for anonymous callers
*/
func (handler *Handler) currentUser(writer http.ResponseWriter, request *http.Request) {
	anonymous := map[string]any{constants.FieldUser: nil}

	identity, ok := requestutil.Identity(request)
	if !ok {
		respond.OK(writer, anonymous)
		return
	}

	user, err := handler.authService.CurrentUser(request.Context(), identity.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	if user == nil {
		respond.OK(writer, anonymous)
		return
	}

	respond.OK(writer, user)
}

// VerifyEmail consumes the token from the emailed link.
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input verifyEmailRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	if _, err := handler.authService.VerifyEmail(request.Context(), input.Token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Success(writer)
}

// ResendVerification mails a fresh link to the signed-in user.
func (handler *Handler) resendVerification(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResendVerification(request.Context(), principal.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Success(writer)
}

// ClaimOwner promotes the caller to owner on a fresh installation.
func (handler *Handler) claimOwner(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.ClaimOwner(request.Context(), principal.UserID, middleware.RealIP(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		constants.FieldSuccess: true,
		constants.FieldUser:    user,
	})
}

// # Federated Login

// BeginFederatedLogin redirects the browser to the identity provider. It is
// also mounted at /api/login.
func (handler *Handler) BeginFederatedLogin(writer http.ResponseWriter, request *http.Request) {
	if handler.federated == nil {
		respond.Error(writer, request, apperr.NotFound("Federated login"))
		return
	}

	redirect, err := handler.federated.Begin()
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.sessions.Put(writer, request, map[string]string{
		constants.SessionKeyOAuthVerifier: redirect.Verifier,
		constants.SessionKeyOAuthNonce:    redirect.Nonce,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.Redirect(writer, request, redirect.URL, http.StatusFound)
}

/*
FederatedCallback completes the provider round trip.

GET /api/auth/federated/callback?code=&state=

Response:
  - 302: Redirect to "/" with the session cookie set
  - 401: Bad state or rejected exchange
  - 403: ACCOUNT_BANNED
  - 409: Email belongs to another account
*/
func (handler *Handler) federatedCallback(writer http.ResponseWriter, request *http.Request) {
	if handler.federated == nil {
		respond.Error(writer, request, apperr.NotFound("Federated login"))
		return
	}

	stored, err := handler.sessions.Take(writer, request,
		constants.SessionKeyOAuthVerifier, constants.SessionKeyOAuthNonce)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	query := request.URL.Query()
	if providerError := query.Get("error"); providerError != "" {
		ctxutil.GetLogger(request.Context()).InfoContext(request.Context(), "federated_login_denied",
			slog.String("provider_error", providerError),
		)
		respond.Error(writer, request, apperr.Unauthorized("Login was cancelled at the identity provider"))
		return
	}

	identity, err := handler.federated.Complete(request.Context(),
		query.Get("state"),
		stored[constants.SessionKeyOAuthNonce],
		query.Get("code"),
		stored[constants.SessionKeyOAuthVerifier],
	)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.authService.FederatedLogin(request.Context(), *identity)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.establish(writer, request, user); err != nil {
		respond.Error(writer, request, err)
		return
	}

	http.Redirect(writer, request, "/", http.StatusFound)
}

// establish binds the user to a regenerated session.
func (handler *Handler) establish(writer http.ResponseWriter, request *http.Request, user *User) error {
	return handler.sessions.Establish(writer, request, sec.Identity{UserID: user.ID})
}
