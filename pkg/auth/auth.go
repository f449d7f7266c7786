// Package auth issues and verifies the bearer tokens used by the appcanvas API.
//
// Tokens are HS256 JWTs carrying the caller's numeric id in the userId claim.
// [Middleware] verifies the token of each request and stores the id in the
// request context, where handlers read it with [UserID].
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when a request carries no token.
	ErrMissingToken = errors.New("missing authentication token")
	// ErrInvalidToken is returned for malformed, expired or forged tokens.
	ErrInvalidToken = errors.New("invalid authentication token")
)

const issuer = "appcanvas"

// Claims is the JWT payload.
type Claims struct {
	UserID uint `json:"userId"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A ttl of zero issues tokens without expiry.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for userID.
func (i *Issuer) Issue(userID uint) (string, error) {
	if userID == 0 {
		return "", errors.New("auth: user id must not be zero")
	}
	now := i.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Subject:  strconv.FormatUint(uint64(userID), 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns the user id it was issued for.
func (i *Issuer) Verify(token string) (uint, error) {
	if token == "" {
		return 0, ErrMissingToken
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == 0 {
		return 0, fmt.Errorf("%w: no userId claim", ErrInvalidToken)
	}
	return claims.UserID, nil
}

// TokenFromRequest returns the bearer token of r. Browsers cannot set headers
// on websocket handshakes, so the token query parameter is accepted as well.
func TokenFromRequest(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const bearerPrefix = "Bearer "
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	if header != "" {
		return strings.TrimSpace(header)
	}
	return r.URL.Query().Get("token")
}

type contextKey struct{}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated caller. ok is false for anonymous requests.
func UserID(ctx context.Context) (id uint, ok bool) {
	id, ok = ctx.Value(contextKey{}).(uint)
	return id, ok && id != 0
}

// ErrorResponder writes an authentication failure.
type ErrorResponder func(w http.ResponseWriter, status int, message string)

// Middleware rejects requests without a valid token with 401. Requests for
// which skip returns true pass through anonymously; skip may be nil.
func Middleware(i *Issuer, respond ErrorResponder, skip func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip != nil && skip(r) {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := i.Verify(TokenFromRequest(r))
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, ErrMissingToken) {
					msg = "Authentication required"
				}
				respond(w, http.StatusUnauthorized, msg)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
