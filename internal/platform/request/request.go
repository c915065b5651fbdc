// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/ctxutil"
	"github.com/taibuivan/alphasource/internal/platform/sec"
	"github.com/taibuivan/alphasource/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
ID retrieves a named URL parameter (UUID/Slug) from the request.
*/
func ID(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Identity returns the session-bound identity of the caller, if any.
*/
func Identity(request *http.Request) (sec.Identity, bool) {
	return ctxutil.GetIdentity(request.Context())
}

/*
RequiredPrincipal returns the live principal loaded by the authorization gate.

Returns:
  - *sec.Principal: The caller's freshly loaded account view
  - error: apperr.Unauthorized if no guard admitted the request
*/
func RequiredPrincipal(request *http.Request) (*sec.Principal, error) {

	// Get the principal placed by the gate
	principal := ctxutil.GetPrincipal(request.Context())

	// If no guard ran, the request is not authenticated
	if principal == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}

	return principal, nil
}
