package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSupabase(t *testing.T, handler http.HandlerFunc, secret string) *Supabase {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := NewSupabase(SupabaseConfig{
		URL:            srv.URL + "/",
		ServiceRoleKey: "service-key",
		AnonKey:        "anon-key",
		JWTSecret:      secret,
	})
	require.NoError(t, err)
	return s
}

func TestNewSupabaseRequiresConfig(t *testing.T) {
	_, err := NewSupabase(SupabaseConfig{ServiceRoleKey: "k"})
	assert.Error(t, err)
	_, err = NewSupabase(SupabaseConfig{URL: "http://x"})
	assert.Error(t, err)
}

func TestSupabaseCreateIdentity(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ravi@example.com", body["email"])
		assert.Equal(t, true, body["email_confirm"])
		assert.Equal(t, map[string]any{"username": "ravi"}, body["user_metadata"])

		_ = json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "ravi@example.com"})
	}, "")

	id, err := s.CreateIdentity(context.Background(), "ravi@example.com", "secret1", map[string]any{"username": "ravi"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
}

func TestSupabaseCreateIdentityRejected(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"code":422,"msg":"A user with this email address has already been registered"}`))
	}, "")

	_, err := s.CreateIdentity(context.Background(), "ravi@example.com", "secret1", nil)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusUnprocessableEntity, rejected.Status)
	assert.Equal(t, "A user with this email address has already been registered", rejected.Message)
}

func TestSupabaseServerErrorIsUnavailable(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, "")

	_, err := s.CreateIdentity(context.Background(), "a@b.c", "secret1", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	_, err = s.Authenticate(context.Background(), "a@b.c", "secret1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSupabaseDeleteIdentity(t *testing.T) {
	var deleted string
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path
		if r.URL.Path == "/auth/v1/admin/users/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, "")

	require.NoError(t, s.DeleteIdentity(context.Background(), "user-1"))
	assert.Equal(t, "/auth/v1/admin/users/user-1", deleted)
	assert.ErrorIs(t, s.DeleteIdentity(context.Background(), "missing"), ErrNotFound)
}

func TestSupabaseAuthenticate(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "right" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok","expires_at":1700000000,"user":{"id":"user-1"}}`))
	}, "")

	sess, err := s.Authenticate(context.Background(), "ravi@example.com", "right")
	require.NoError(t, err)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "tok", sess.AccessToken)
	assert.Equal(t, int64(1700000000), sess.ExpiresAt.Unix())

	_, err = s.Authenticate(context.Background(), "ravi@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSupabaseResolveTokenLocally(t *testing.T) {
	calls := 0
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}, "jwt-secret")

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("jwt-secret"))
	require.NoError(t, err)

	id, err := s.ResolveToken(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
	assert.Zero(t, calls)

	_, err = s.ResolveToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 1, calls)
}

func TestSupabaseResolveTokenRemote(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = w.Write([]byte(`{"id":"user-9"}`))
		case "Bearer down":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}, "")

	id, err := s.ResolveToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "user-9", id)

	_, err = s.ResolveToken(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.ResolveToken(context.Background(), "down")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSupabaseUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	s, err := NewSupabase(SupabaseConfig{URL: srv.URL, ServiceRoleKey: "k"})
	require.NoError(t, err)

	_, err = s.ResolveToken(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
}
