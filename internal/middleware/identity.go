// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"postready/internal/auth"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// IdentityKey is the context key for the caller's identity.
	IdentityKey contextKey = "identity"
)

// IdentityVerifier resolves the caller behind a request.
type IdentityVerifier interface {
	VerifyRequest(r *http.Request) (auth.Identity, error)
}

// LoadIdentity verifies the request's access token and stores the caller's
// identity in the request context. A missing or invalid token is not an
// error: the request continues as anonymous. Downstream handlers read the
// result with IdentityFromCtx.
func LoadIdentity(v IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.VerifyRequest(r)
			if err != nil {
				if !errors.Is(err, auth.ErrNoToken) {
					slog.Debug("access token rejected", "path", r.URL.Path, "error", err)
				}
				id = auth.Identity{}
			}

			ctx := context.WithValue(r.Context(), IdentityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAccount rejects anonymous callers with 401. Must be applied after
// LoadIdentity in the middleware chain.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromCtx(r.Context()).Anonymous() {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromCtx extracts the caller's identity from the request context.
// Returns the anonymous identity if none was loaded.
func IdentityFromCtx(ctx context.Context) auth.Identity {
	id, _ := ctx.Value(IdentityKey).(auth.Identity)
	return id
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}
