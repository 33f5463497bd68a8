package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpcontext "github.com/avollmer/oauthd/internal/api/http/context"
	"github.com/avollmer/oauthd/internal/model"
	"github.com/avollmer/oauthd/internal/testutil"
)

type stubIntrospector struct {
	info model.Introspection
	err  error
}

func (s stubIntrospector) Introspect(_ context.Context, _ string) (model.Introspection, error) {
	return s.info, s.err
}

type stubAuthorizer struct {
	allowed bool
	err     error
}

func (s stubAuthorizer) Authorize(_ context.Context, _ uuid.UUID, _, _ string) (bool, error) {
	return s.allowed, s.err
}

func TestAuthenticate_RequireUser(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		header     string
		info       model.Introspection
		wantStatus int
	}{
		{
			name:       "active token passes",
			header:     "Bearer good-token",
			info:       model.Introspection{Active: true, UserID: userID, ExpiresAt: time.Now().Add(time.Minute)},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			header:     "Basic d2ViOnMzY3JldA==",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "inactive token",
			header:     "Bearer stale-token",
			info:       model.Introspection{Active: false},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token without user binding",
			header:     "Bearer client-token",
			info:       model.Introspection{Active: true, UserID: uuid.Nil},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthenticate(stubIntrospector{info: tt.info}, stubAuthorizer{}, testutil.MakeNoopLogger())

			var gotUserID uuid.UUID
			var seen bool
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID, seen = httpcontext.UserID(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin/roles", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			m.RequireUser(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				require.True(t, seen)
				assert.Equal(t, userID, gotUserID)
			} else {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuthenticate_RequirePermission(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		withUser   bool
		allowed    bool
		wantStatus int
	}{
		{name: "permission held", withUser: true, allowed: true, wantStatus: http.StatusOK},
		{name: "permission missing", withUser: true, allowed: false, wantStatus: http.StatusForbidden},
		{name: "no authenticated user", withUser: false, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthenticate(stubIntrospector{}, stubAuthorizer{allowed: tt.allowed}, testutil.MakeNoopLogger())

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodDelete, "/admin/users/x/tokens", nil)
			if tt.withUser {
				req = req.WithContext(httpcontext.WithUserID(req.Context(), userID))
			}
			w := httptest.NewRecorder()
			m.RequirePermission("tokens", "revoke")(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
