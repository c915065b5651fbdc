// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/taibuivan/alphasource/internal/platform/ctxutil"
	"github.com/taibuivan/alphasource/internal/platform/sec"
)

// SessionReader resolves the identity bound to a request's session handle.
type SessionReader interface {
	Current(request *http.Request) (sec.Identity, bool)
}

// LoadIdentity reads the session handle and, when it carries an identity,
// places that [sec.Identity] into the request context. Anonymous requests
// pass through untouched.
func LoadIdentity(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			identity, ok := sessions.Current(request)
			if !ok {
				next.ServeHTTP(writer, request)
				return
			}

			if holder := identityHolderFrom(request.Context()); holder != nil {
				holder.set(identity)
			}

			ctx := ctxutil.WithIdentity(request.Context(), identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// # Log Correlation

// boundIdentity lets the outer request logger see an identity bound by an
// inner middleware.
type boundIdentity struct {
	mu       sync.Mutex
	identity sec.Identity
	ok       bool
}

func (b *boundIdentity) set(identity sec.Identity) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.identity, b.ok = identity, true
}

func (b *boundIdentity) get() (sec.Identity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.identity, b.ok
}

type identityHolderKey struct{}

func withIdentityHolder(ctx context.Context, holder *boundIdentity) context.Context {
	return context.WithValue(ctx, identityHolderKey{}, holder)
}

func identityHolderFrom(ctx context.Context) *boundIdentity {
	holder, _ := ctx.Value(identityHolderKey{}).(*boundIdentity)
	return holder
}
