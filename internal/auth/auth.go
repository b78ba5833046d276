// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package auth verifies Supabase access tokens. Supabase signs them with the
// project's JWT secret (HS256); the subject claim is the account UUID.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// CookieName is the cookie Supabase's SSR helpers store the access token in.
	CookieName = "sb-access-token"

	// audience is the audience Supabase issues for signed-in users.
	audience = "authenticated"
)

var (
	// ErrNoToken is returned when the request carries no access token.
	ErrNoToken = errors.New("no access token")

	// ErrInvalidToken is returned when the token is malformed, expired,
	// signed with the wrong key or carries an unusable subject.
	ErrInvalidToken = errors.New("invalid access token")
)

// Claims is the subset of a Supabase access token this service reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Identity is the resolved caller of a request. The zero value is anonymous.
type Identity struct {
	AccountID uuid.UUID
	Email     string
}

// Anonymous reports whether the caller has no verified account.
func (id Identity) Anonymous() bool {
	return id.AccountID == uuid.Nil
}

// Verifier validates access tokens against a shared secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier creates a Verifier for the given Supabase JWT secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Verify parses and validates a raw token string.
func (v *Verifier) Verify(raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrNoToken
	}
	if len(v.secret) == 0 {
		return Identity{}, fmt.Errorf("%w: verifier has no secret", ErrInvalidToken)
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	token, err := parser.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(v.now()) {
		return Identity{}, fmt.Errorf("%w: missing or past expiry", ErrInvalidToken)
	}
	if len(claims.Audience) > 0 && !claims.VerifyAudience(audience, true) {
		return Identity{}, fmt.Errorf("%w: unexpected audience", ErrInvalidToken)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return Identity{}, fmt.Errorf("%w: subject is not an account id", ErrInvalidToken)
	}

	return Identity{AccountID: id, Email: claims.Email}, nil
}

// VerifyRequest extracts the token from the Authorization header (Bearer
// scheme) or, failing that, the Supabase access-token cookie, and verifies it.
func (v *Verifier) VerifyRequest(r *http.Request) (Identity, error) {
	return v.Verify(TokenFromRequest(r))
}

// TokenFromRequest returns the raw access token carried by r, or "".
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Mint signs a token for the given account. Used by the dev token command
// and tests; production tokens are issued by Supabase.
func Mint(secret string, id uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: email,
		Role:  audience,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
