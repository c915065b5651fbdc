// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package twofactor

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/alphasource/internal/platform/middleware"
	requestutil "github.com/taibuivan/alphasource/internal/platform/request"
	"github.com/taibuivan/alphasource/internal/platform/respond"
	"github.com/taibuivan/alphasource/internal/platform/validate"
)

const fieldCode = "code"

// Handler exposes enrollment management for the signed-in user.
type Handler struct {
	service *Service
	gate    *middleware.Gate
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, gate *middleware.Gate) *Handler {
	return &Handler{service: service, gate: gate}
}

// Routes returns the 2FA router, mounted at /api/auth/2fa.
//
// # Endpoints
//   - POST /setup   : Starts an enrollment.
//   - POST /verify  : Confirms it with a first code.
//   - POST /disable : Turns 2FA off with a current code.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.gate.Authenticated)

	router.Post("/setup", handler.setup)
	router.Post("/verify", handler.verify)
	router.Post("/disable", handler.disable)

	return router
}

type codeRequest struct {
	Code string `json:"code"`
}

type setupResponse struct {
	QRCodeURL       string   `json:"qrCodeUrl"`
	ProvisioningURI string   `json:"otpauthUrl"`
	BackupCodes     []string `json:"backupCodes"`
	Secret          string   `json:"secret"`
}

/*
Setup starts an enrollment.

POST /api/auth/2fa/setup

Response:
  - 200: {qrCodeUrl, otpauthUrl, backupCodes, secret}
  - 409: 2FA already enabled
*/
func (handler *Handler) setup(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	enrollment, err := handler.service.Setup(request.Context(), principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, setupResponse{
		QRCodeURL:       enrollment.QRCodeURL,
		ProvisioningURI: enrollment.ProvisioningURI,
		BackupCodes:     enrollment.BackupCodes,
		Secret:          enrollment.Secret,
	})
}

func (handler *Handler) verify(writer http.ResponseWriter, request *http.Request) {
	handler.withCode(writer, request, handler.service.Confirm)
}

func (handler *Handler) disable(writer http.ResponseWriter, request *http.Request) {
	handler.withCode(writer, request, handler.service.Disable)
}

// withCode decodes {code} and runs action for the caller.
func (handler *Handler) withCode(writer http.ResponseWriter, request *http.Request, action func(ctx context.Context, userID, code string) error) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input codeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(fieldCode, input.Code)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := action(request.Context(), principal.UserID, input.Code); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Success(writer)
}
