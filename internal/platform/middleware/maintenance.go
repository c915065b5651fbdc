// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/taibuivan/alphasource/internal/platform/apperr"
	"github.com/taibuivan/alphasource/internal/platform/ctxutil"
	"github.com/taibuivan/alphasource/internal/platform/respond"
)

// defaultMaintenanceMessage is used when the owner left the message empty.
const defaultMaintenanceMessage = "The site is under maintenance. Please try again later."

// MaintenanceStatus reports whether the site is in maintenance mode.
type MaintenanceStatus interface {
	Maintenance(ctx context.Context) (enabled bool, message string, err error)
}

// Maintenance answers 503 for every path outside exemptPrefixes while
// maintenance mode is on. A failing status lookup is logged and lets the
// request through.
func Maintenance(status MaintenanceStatus, exemptPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			for _, prefix := range exemptPrefixes {
				if strings.HasPrefix(request.URL.Path, prefix) {
					next.ServeHTTP(writer, request)
					return
				}
			}

			enabled, message, err := status.Maintenance(request.Context())
			if err != nil {
				ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "maintenance_status_unavailable", "error", err)
				next.ServeHTTP(writer, request)
				return
			}

			if enabled {
				if message == "" {
					message = defaultMaintenanceMessage
				}
				respond.Error(writer, request, apperr.ServiceUnavailable(message))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
