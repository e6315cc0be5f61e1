package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("missing bearer token")
)

// Identity is the authenticated caller as seen by the services.
type Identity struct {
	UserID string
	Role   string
}

// Claims are the access-token claims issued by the identity provider.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type ctxKey int

const ctxKeyIdentity ctxKey = iota

func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(Identity)
	return id, ok && id.UserID != ""
}

func Sign(secret []byte, subject, role string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies an HS256 token and returns the caller identity.
func ParseToken(secret []byte, raw string) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Role == "" {
		return Identity{}, fmt.Errorf("%w: missing sub or role", ErrInvalidToken)
	}
	return Identity{UserID: claims.Subject, Role: claims.Role}, nil
}

// Middleware resolves the caller identity. With a secret, a valid bearer
// token is required. Without one the service trusts the X-User-Id / X-Role
// headers set by the gateway after it verified the token.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				id  Identity
				err error
			)
			if len(secret) > 0 {
				id, err = identityFromBearer(secret, r)
			} else {
				id, err = identityFromHeaders(r)
			}
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}
}

func identityFromBearer(secret []byte, r *http.Request) (Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return Identity{}, ErrMissingToken
	}
	return ParseToken(secret, strings.TrimSpace(token))
}

func identityFromHeaders(r *http.Request) (Identity, error) {
	id := Identity{
		UserID: strings.TrimSpace(r.Header.Get("X-User-Id")),
		Role:   strings.TrimSpace(r.Header.Get("X-Role")),
	}
	if id.UserID == "" || id.Role == "" {
		return Identity{}, ErrMissingToken
	}
	return id, nil
}
