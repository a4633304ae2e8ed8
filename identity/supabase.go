package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	AnonKey        string
	// JWTSecret enables local token verification; empty means every
	// resolution goes to /auth/v1/user.
	JWTSecret  string
	HTTPClient *http.Client
}

// Supabase is a Gateway backed by the Supabase GoTrue REST API.
type Supabase struct {
	baseURL    string
	serviceKey string
	anonKey    string
	jwtSecret  []byte
	client     *http.Client
}

var _ Gateway = (*Supabase)(nil)

func NewSupabase(cfg SupabaseConfig) (*Supabase, error) {
	if cfg.URL == "" {
		return nil, errors.New("identity: supabase URL is required")
	}
	if cfg.ServiceRoleKey == "" {
		return nil, errors.New("identity: supabase service role key is required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	anon := cfg.AnonKey
	if anon == "" {
		anon = cfg.ServiceRoleKey
	}
	s := &Supabase{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		serviceKey: cfg.ServiceRoleKey,
		anonKey:    anon,
		client:     client,
	}
	if cfg.JWTSecret != "" {
		s.jwtSecret = []byte(cfg.JWTSecret)
	}
	return s, nil
}

type supabaseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type supabaseTokenResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	ExpiresAt   int64        `json:"expires_at"`
	User        supabaseUser `json:"user"`
}

func (s *Supabase) CreateIdentity(ctx context.Context, email, password string, metadata map[string]any) (string, error) {
	body := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": metadata,
	}
	var user supabaseUser
	if err := s.do(ctx, http.MethodPost, "/auth/v1/admin/users", s.serviceKey, s.serviceKey, body, &user); err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: created user has no id", ErrUnavailable)
	}
	return user.ID, nil
}

func (s *Supabase) DeleteIdentity(ctx context.Context, id string) error {
	err := s.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(id), s.serviceKey, s.serviceKey, nil, nil)
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return err
}

func (s *Supabase) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var tok supabaseTokenResponse
	err := s.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", s.anonKey, "", body, &tok)
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Status < http.StatusInternalServerError {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	expires := time.Unix(tok.ExpiresAt, 0)
	if tok.ExpiresAt == 0 && tok.ExpiresIn > 0 {
		expires = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return &Session{UserID: tok.User.ID, AccessToken: tok.AccessToken, ExpiresAt: expires}, nil
}

func (s *Supabase) ResolveToken(ctx context.Context, token string) (string, error) {
	if s.jwtSecret != nil {
		if id, err := s.resolveLocal(token); err == nil {
			return id, nil
		}
	}

	var user supabaseUser
	err := s.do(ctx, http.MethodGet, "/auth/v1/user", s.anonKey, token, nil, &user)
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Status < http.StatusInternalServerError {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", ErrInvalidToken
	}
	return user.ID, nil
}

// resolveLocal verifies the HS256 signature with the project JWT secret.
func (s *Supabase) resolveLocal(token string) (string, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	sub, _ := claims.GetSubject()
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

func (s *Supabase) do(ctx context.Context, method, path, apiKey, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("identity: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}
	req.Header.Set("apikey", apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s %s returned %d", ErrUnavailable, method, path, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &RejectedError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}

// errorMessage picks the human message out of a GoTrue error body.
func errorMessage(raw []byte) string {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	if len(raw) > 0 {
		return strings.TrimSpace(string(raw))
	}
	return "request rejected by identity provider"
}
