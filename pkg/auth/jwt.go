package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingToken     = errors.New("missing authentication token")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// Claims identifies the station or operator behind a request
type Claims struct {
	StationID string   `json:"sub"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTValidator verifies HS256 bearer tokens issued for the mesh
type JWTValidator struct {
	secretKey []byte
	issuer    string
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{
		secretKey: []byte(secret),
		issuer:    issuer,
	}
}

// ValidateToken validates a JWT token and returns the claims
func (v *JWTValidator) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	tokenString = strings.TrimSpace(tokenString)

	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, ErrInvalidSignature
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: invalid issuer", ErrInvalidClaims)
	}
	if claims.StationID == "" {
		return nil, fmt.Errorf("%w: missing station ID", ErrInvalidClaims)
	}

	return claims, nil
}

// GenerateToken issues a signed token for a station. Used by operator
// tooling and tests.
func (v *JWTValidator) GenerateToken(stationID string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		StationID: stationID,
		Roles:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   stationID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secretKey)
}

type contextKey string

// CallerContextKey stores the validated claims of the caller
const CallerContextKey contextKey = "caller"

// GetCallerFromContext extracts the validated caller from context
func GetCallerFromContext(ctx context.Context) (*Claims, error) {
	caller, ok := ctx.Value(CallerContextKey).(*Claims)
	if !ok || caller == nil {
		return nil, errors.New("caller not found in context")
	}
	return caller, nil
}

// SetCallerInContext adds the validated caller to context
func SetCallerInContext(ctx context.Context, caller *Claims) context.Context {
	return context.WithValue(ctx, CallerContextKey, caller)
}
