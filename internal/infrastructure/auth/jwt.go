package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/garyjia/travel-report/internal/application/port"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for malformed, expired or forged tokens
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carries the acting user id
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTAuthenticator issues and verifies HS256 bearer tokens
type JWTAuthenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTAuthenticator creates an authenticator. An empty secret is rejected.
func NewJWTAuthenticator(secret, issuer string, ttl time.Duration) (*JWTAuthenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID
func (a *JWTAuthenticator) Issue(userID int64) (string, error) {
	now := a.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.FormatInt(userID, 10),
			Issuer:   a.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry and returns the user id
func (a *JWTAuthenticator) Verify(tokenString string) (int64, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID <= 0 {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}

// Verify interface compliance
var _ port.TokenVerifier = (*JWTAuthenticator)(nil)
