package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 6
	localTokenTTL     = time.Hour
)

type localUser struct {
	id       string
	email    string
	hash     []byte
	metadata map[string]any
}

// Local is an in-process Gateway for development and tests. Passwords are
// bcrypt hashed and sessions are HS256 tokens signed with the given secret.
type Local struct {
	mu      sync.RWMutex
	byEmail map[string]*localUser
	byID    map[string]*localUser
	secret  []byte
	now     func() time.Time
}

var _ Gateway = (*Local)(nil)

func NewLocal(secret string) *Local {
	return &Local{
		byEmail: make(map[string]*localUser),
		byID:    make(map[string]*localUser),
		secret:  []byte(secret),
		now:     time.Now,
	}
}

func (l *Local) CreateIdentity(_ context.Context, email, password string, metadata map[string]any) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < minPasswordLength {
		return "", &RejectedError{
			Status:  http.StatusUnprocessableEntity,
			Message: fmt.Sprintf("Password should be at least %d characters.", minPasswordLength),
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("identity: hash password: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.byEmail[email]; taken {
		return "", &RejectedError{
			Status:  http.StatusUnprocessableEntity,
			Message: "A user with this email address has already been registered",
		}
	}
	u := &localUser{id: uuid.NewString(), email: email, hash: hash, metadata: metadata}
	l.byEmail[email] = u
	l.byID[u.id] = u
	return u.id, nil
}

func (l *Local) DeleteIdentity(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(l.byID, id)
	delete(l.byEmail, u.email)
	return nil
}

func (l *Local) Authenticate(_ context.Context, email, password string) (*Session, error) {
	l.mu.RLock()
	u, ok := l.byEmail[strings.ToLower(strings.TrimSpace(email))]
	l.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(u.hash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := l.now()
	expires := now.Add(localTokenTTL)
	claims := jwt.MapClaims{
		"sub":   u.id,
		"email": u.email,
		"iat":   now.Unix(),
		"exp":   expires.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return nil, fmt.Errorf("identity: sign token: %w", err)
	}
	return &Session{UserID: u.id, AccessToken: signed, ExpiresAt: expires}, nil
}

func (l *Local) ResolveToken(_ context.Context, token string) (string, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return l.secret, nil
	}, jwt.WithTimeFunc(l.now))
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	sub, _ := claims.GetSubject()

	l.mu.RLock()
	_, exists := l.byID[sub]
	l.mu.RUnlock()
	if !exists {
		return "", ErrInvalidToken
	}
	return sub, nil
}
