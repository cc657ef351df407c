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
	// ErrAdminTokenInvalid signals that the admin token failed signature or claim validation.
	ErrAdminTokenInvalid = errors.New("auth: admin token invalid")
	// ErrAdminTokenExpired signals that the admin token has expired.
	ErrAdminTokenExpired = errors.New("auth: admin token expired")
)

// AdminClaims carries the verified claims from an operator token.
type AdminClaims struct {
	Subject  string
	Email    string
	IssuedAt time.Time
}

type adminClaimsKey struct{}

// WithAdminClaims stores verified operator claims on the context.
func WithAdminClaims(ctx context.Context, claims *AdminClaims) context.Context {
	return context.WithValue(ctx, adminClaimsKey{}, claims)
}

// AdminClaimsFromContext retrieves operator claims previously stored on the context.
func AdminClaimsFromContext(ctx context.Context) (*AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsKey{}).(*AdminClaims)
	if !ok || claims == nil {
		return nil, false
	}
	return claims, true
}

// AdminVerifier validates HS256-signed operator tokens issued by the back office.
type AdminVerifier struct {
	secret   []byte
	audience string
	clock    func() time.Time
}

// AdminOption customises AdminVerifier behaviour.
type AdminOption func(*AdminVerifier)

// WithAdminClock overrides the time source used during validation, primarily for tests.
func WithAdminClock(clock func() time.Time) AdminOption {
	return func(v *AdminVerifier) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// NewAdminVerifier constructs an AdminVerifier for the given shared secret and expected audience.
func NewAdminVerifier(secret, audience string, opts ...AdminOption) (*AdminVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: admin token secret is required")
	}
	v := &AdminVerifier{
		secret:   []byte(secret),
		audience: strings.TrimSpace(audience),
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Verify parses and validates the token string, returning the operator claims.
func (v *AdminVerifier) Verify(tokenStr string) (*AdminClaims, error) {
	if v == nil {
		return nil, ErrAdminTokenInvalid
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.clock),
	)

	token, err := parser.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAdminTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrAdminTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrAdminTokenInvalid
	}

	if v.audience != "" {
		if !audienceMatches(claims.Audience, v.audience) {
			return nil, fmt.Errorf("%w: audience mismatch", ErrAdminTokenInvalid)
		}
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrAdminTokenInvalid)
	}

	result := &AdminClaims{Subject: claims.Subject}
	if claims.IssuedAt != nil {
		result.IssuedAt = claims.IssuedAt.Time
	}
	return result, nil
}

// RequireAdminToken guards back-office endpoints behind operator token verification.
func (v *AdminVerifier) RequireAdminToken() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				respondAuthError(w, http.StatusUnauthorized, "unauthenticated", "authorization header missing or invalid")
				return
			}

			claims, err := v.Verify(tokenStr)
			if err != nil {
				switch {
				case errors.Is(err, ErrAdminTokenExpired):
					respondAuthError(w, http.StatusUnauthorized, "token_expired", "admin token expired")
				default:
					respondAuthError(w, http.StatusUnauthorized, "invalid_token", "admin token invalid")
				}
				return
			}

			ctx := WithAdminClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func audienceMatches(audience jwt.ClaimStrings, expected string) bool {
	for _, aud := range audience {
		if aud == expected {
			return true
		}
	}
	return false
}
