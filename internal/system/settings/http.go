// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package settings

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/alphasource/internal/platform/middleware"
	requestutil "github.com/taibuivan/alphasource/internal/platform/request"
	"github.com/taibuivan/alphasource/internal/platform/respond"
	"github.com/taibuivan/alphasource/internal/platform/validate"
)

// Handler exposes the settings to the owner.
type Handler struct {
	service *Service
	gate    *middleware.Gate
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, gate *middleware.Gate) *Handler {
	return &Handler{service: service, gate: gate}
}

// Routes returns the settings router, mounted at /api/owner/settings.
//
// # Endpoints
//   - GET  / : Current settings.
//   - POST / : Partial update.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.gate.Owner)

	router.Get("/", handler.get)
	router.Post("/", handler.update)

	return router
}

func (handler *Handler) get(writer http.ResponseWriter, request *http.Request) {
	current, err := handler.service.Get(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, current)
}

/*
POST /api/owner/settings.

Request:
  - body: Patch (any subset of registrationOpen, maintenanceMode, maintenanceMessage)

Response:
  - 200: Settings after the update
  - 400: Message too long
*/
func (handler *Handler) update(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input Patch
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	if input.MaintenanceMessage != nil {
		v.MaxLen(KeyMaintenanceMessage, *input.MaintenanceMessage, MaintenanceMessageMaxLength)
	}
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.service.Update(request.Context(), Actor{
		UserID:    principal.UserID,
		Email:     principal.Email,
		IPAddress: middleware.RealIP(request),
	}, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, updated)
}
