// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/SherPsu/cms-blog/internal/access"
	"github.com/SherPsu/cms-blog/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// SessionKey is the context key for the session data.
	SessionKey contextKey = "session"

	// IdentityKey is the context key for the request identity.
	IdentityKey contextKey = "identity"
)

// SessionGetter loads the session attached to a request.
type SessionGetter interface {
	Get(ctx context.Context, r *http.Request) (*session.Data, error)
}

// LoadSession retrieves the session from Valkey and stores it, along with
// the identity derived from it, in the request context. It does not
// enforce authentication; requests without a session carry the anonymous
// identity.
func LoadSession(store SessionGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				// Treat as unauthenticated rather than failing the request.
				slog.Warn("session load failed", "error", err)
				data = nil
			}

			ctx := context.WithValue(r.Context(), IdentityKey, data.Identity())
			if data != nil {
				ctx = context.WithValue(ctx, SessionKey, data)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth redirects unauthenticated browsers to the login page,
// remembering where they were headed. Must run after LoadSession.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !access.IsAuthenticated(IdentityFromCtx(r.Context())) {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequirePolicy allows the request through only when the identity may
// perform action on resource. Anonymous browsers are sent to the login
// page; signed-in users without the role get 403.
func RequirePolicy(resource access.Resource, action access.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !access.Allowed(IdentityFromCtx(r.Context()), resource, action) {
				writeError(w, r, http.StatusForbidden, "Permission denied")
				return
			}

			next.ServeHTTP(w, r)
		}))
	}
}

// SessionFromCtx extracts the session data from the request context.
// Returns nil if no session is loaded (user is not authenticated).
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}

// IdentityFromCtx returns the request identity, or the anonymous identity
// when none was loaded.
func IdentityFromCtx(ctx context.Context) access.Identity {
	id, ok := ctx.Value(IdentityKey).(access.Identity)
	if !ok {
		return access.Anonymous()
	}
	return id
}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id access.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}
