// Package grant stores time-boxed bypass grants keyed by client session.
//
// A Store hands back a credential string when a grant is issued; the HTTP
// layer keeps that credential in the client's session cookie and presents
// it on later requests.
package grant

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrInvalidCredential is returned for credentials the store did not issue.
var ErrInvalidCredential = errors.New("invalid grant credential")

// Store issues and resolves grants.
type Store interface {
	// Put records a grant for session valid until expiresAt and returns the
	// credential the client should present.
	Put(ctx context.Context, session string, expiresAt time.Time) (string, error)
	// Lookup returns the expiry recorded for credential. A missing grant is
	// reported as ok == false with a nil error.
	Lookup(ctx context.Context, credential string) (time.Time, bool, error)
}

// Active reports whether credential holds a grant that has not expired at now.
// Storage errors count as no grant.
func Active(ctx context.Context, store Store, credential string, now time.Time) bool {
	if store == nil || credential == "" {
		return false
	}
	expiresAt, ok, err := store.Lookup(ctx, credential)
	if err != nil || !ok {
		return false
	}
	return now.Before(expiresAt)
}

// MemoryStore keeps grants in process. The credential is the session id.
type MemoryStore struct {
	mu     sync.Mutex
	grants *lru.Cache[string, time.Time]
}

// NewMemoryStore holds at most size grants; the least recently used grant is
// evicted first.
func NewMemoryStore(size int) (*MemoryStore, error) {
	if size <= 0 {
		size = 1
	}
	grants, err := lru.New[string, time.Time](size)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{grants: grants}, nil
}

func (m *MemoryStore) Put(_ context.Context, session string, expiresAt time.Time) (string, error) {
	if session == "" {
		return "", errors.New("session id required")
	}
	m.grants.Add(session, expiresAt)
	return session, nil
}

func (m *MemoryStore) Lookup(_ context.Context, credential string) (time.Time, bool, error) {
	expiresAt, ok := m.grants.Peek(credential)
	return expiresAt, ok, nil
}

// Prune drops grants expired at now and returns how many were removed.
func (m *MemoryStore) Prune(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, key := range m.grants.Keys() {
		expiresAt, ok := m.grants.Peek(key)
		if ok && !now.Before(expiresAt) {
			m.grants.Remove(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored grants.
func (m *MemoryStore) Len() int { return m.grants.Len() }

// JWTStore keeps no server state; the grant travels as a signed token.
type JWTStore struct {
	secret []byte
}

// NewJWTStore signs grants with secret using HS256.
func NewJWTStore(secret string) *JWTStore {
	return &JWTStore{secret: []byte(secret)}
}

type grantClaims struct {
	jwt.RegisteredClaims
}

func (j *JWTStore) Put(_ context.Context, session string, expiresAt time.Time) (string, error) {
	claims := grantClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   session,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    "geogate-bypass",
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign grant: %w", err)
	}
	return signed, nil
}

// Lookup verifies the signature and returns the embedded expiry. Expiry is
// checked by the caller against its own clock, so the parser skips it.
func (j *JWTStore) Lookup(_ context.Context, credential string) (time.Time, bool, error) {
	claims := &grantClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid {
		return time.Time{}, false, nil
	}
	if claims.Issuer != "geogate-bypass" || claims.ExpiresAt == nil {
		return time.Time{}, false, ErrInvalidCredential
	}
	return claims.ExpiresAt.Time, true, nil
}
