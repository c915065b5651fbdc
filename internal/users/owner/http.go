// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package owner

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/alphasource/internal/platform/audit"
	"github.com/taibuivan/alphasource/internal/platform/constants"
	"github.com/taibuivan/alphasource/internal/platform/middleware"
	requestutil "github.com/taibuivan/alphasource/internal/platform/request"
	"github.com/taibuivan/alphasource/internal/platform/respond"
	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/internal/platform/validate"
	"github.com/taibuivan/alphasource/internal/users/auth"
	"github.com/taibuivan/alphasource/pkg/pagination"
	"github.com/taibuivan/alphasource/pkg/query"
)

const (
	fieldRole   = "role"
	fieldReason = "reason"
	fieldLogs   = "logs"
)

// Handler implements the owner dashboard endpoints.
type Handler struct {
	service *Service
	gate    *middleware.Gate
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, gate *middleware.Gate) *Handler {
	return &Handler{service: service, gate: gate}
}

// Routes returns the owner router, mounted at /api/owner. Every route
// requires the owner role on the live account.
//
// # Endpoints
//   - GET  /users             : Paged user list, ?role=a,b filter.
//   - GET  /staff             : Owner and staff accounts.
//   - POST /users/{id}/role   : Assigns user or staff.
//   - POST /users/{id}/ban    : Bans with a reason.
//   - POST /users/{id}/unban  : Lifts a ban.
//   - GET  /audit-logs        : Paged audit log, newest first.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.gate.Owner)

	router.Get("/users", handler.listUsers)
	router.Get("/staff", handler.listStaff)
	router.Post("/users/{id}/role", handler.changeRole)
	router.Post("/users/{id}/ban", handler.ban)
	router.Post("/users/{id}/unban", handler.unban)
	router.Get("/audit-logs", handler.auditLogs)

	return router
}

type roleRequest struct {
	Role string `json:"role"`
}

type banRequest struct {
	Reason string `json:"reason"`
}

// actor builds the audit identity of the caller.
func actor(request *http.Request) (Actor, error) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		return Actor{}, err
	}
	return Actor{
		UserID:    principal.UserID,
		Email:     principal.Email,
		IPAddress: middleware.RealIP(request),
	}, nil
}

// targetID reads and validates the {id} path parameter.
func targetID(request *http.Request) (string, error) {
	id := requestutil.ID(request, "id")
	return id, (&validate.Validator{}).UUID("id", id).Err()
}

/*
GET /api/owner/users?page=&limit=&role=.

Response:
  - 200: {users, total}
*/
func (handler *Handler) listUsers(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)

	var roles []sec.UserRole
	for _, raw := range query.StringSlice(request.URL.Query().Get(fieldRole)) {
		role := sec.UserRole(raw)
		if !role.Valid() {
			respond.Error(writer, request, validate.RequiredError(fieldRole, "Unknown role: "+raw))
			return
		}
		roles = append(roles, role)
	}

	users, total, err := handler.service.ListUsers(request.Context(), auth.ListFilter{
		Roles:  roles,
		Limit:  page.Limit,
		Offset: page.Offset(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		constants.FieldUsers: nonNil(users),
		constants.FieldTotal: total,
	})
}

func (handler *Handler) listStaff(writer http.ResponseWriter, request *http.Request) {
	users, err := handler.service.ListStaff(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{constants.FieldUsers: nonNil(users)})
}

/*
POST /api/owner/users/{id}/role.

Request:
  - body: {role: "user" | "staff"}

Response:
  - 200: {success, user}
  - 400: Invalid role
  - 403: Own account or owner account
*/
func (handler *Handler) changeRole(writer http.ResponseWriter, request *http.Request) {
	caller, err := actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := targetID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input roleRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.OneOf(fieldRole, input.Role, string(sec.RoleUser), string(sec.RoleStaff))
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.ChangeRole(request.Context(), caller, id, sec.UserRole(input.Role))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{constants.FieldSuccess: true, constants.FieldUser: user})
}

func (handler *Handler) ban(writer http.ResponseWriter, request *http.Request) {
	caller, err := actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := targetID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input banRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	v := &validate.Validator{}
	v.Required(fieldReason, input.Reason).MaxLen(fieldReason, input.Reason, BanReasonMaxLength)
	if err := v.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Ban(request.Context(), caller, id, input.Reason)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{constants.FieldSuccess: true, constants.FieldUser: user})
}

func (handler *Handler) unban(writer http.ResponseWriter, request *http.Request) {
	caller, err := actor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	id, err := targetID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.Unban(request.Context(), caller, id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{constants.FieldSuccess: true, constants.FieldUser: user})
}

/*
GET /api/owner/audit-logs?page=&limit=.

Response:
  - 200: {logs, total}
*/
func (handler *Handler) auditLogs(writer http.ResponseWriter, request *http.Request) {
	page := pagination.FromRequest(request)

	logs, total, err := handler.service.AuditLogs(request.Context(), page.Limit, page.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if logs == nil {
		logs = []*audit.Entry{}
	}

	respond.OK(writer, map[string]any{
		fieldLogs:            logs,
		constants.FieldTotal: total,
	})
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil(users []*auth.User) []*auth.User {
	if users == nil {
		return []*auth.User{}
	}
	return users
}
