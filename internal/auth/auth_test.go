package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func protected(t *testing.T, role string) (http.Handler, *Identity) {
	t.Helper()
	var seen Identity
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	var h http.Handler = inner
	if role != "" {
		h = RequireRole(role)(h)
	}
	return Middleware(secret)(h), &seen
}

func TestMiddleware_RoundTrip(t *testing.T) {
	id := Identity{ID: uuid.New(), Username: "alice", Role: RoleBuyer}
	token, err := NewToken(secret, id, time.Hour)
	require.NoError(t, err)

	h, seen := protected(t, "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, id, *seen)
}

func TestMiddleware_Rejections(t *testing.T) {
	expired, err := NewToken(secret, Identity{ID: uuid.New(), Role: RoleBuyer}, -time.Hour)
	require.NoError(t, err)
	wrongKey, err := NewToken([]byte("other-secret"), Identity{ID: uuid.New(), Role: RoleBuyer}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-token"},
		{"expired token", "Bearer " + expired},
		{"wrong key", "Bearer " + wrongKey},
	}

	h, _ := protected(t, "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	token, err := NewToken(secret, Identity{ID: uuid.New(), Username: "bob", Role: RoleBuyer}, time.Hour)
	require.NoError(t, err)

	h, _ := protected(t, RoleSeller)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	h, _ = protected(t, RoleBuyer)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}
