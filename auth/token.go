package auth

import (
	"codeshare/domain"
	"codeshare/errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "codeshare"

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator issues and checks HS256 tokens signed with a shared secret.
// It is the gateway's contract.Authenticator.
type TokenValidator struct {
	secret []byte
	now    func() time.Time
}

func NewTokenValidator(secret string) (TokenValidator, error) {
	if len(secret) < 32 {
		return TokenValidator{}, fmt.Errorf("auth secret must be at least 32 bytes, got %d", len(secret))
	}
	return TokenValidator{secret: []byte(secret), now: time.Now}, nil
}

// GenerateToken creates a signed JWT for a specific user.
func (v TokenValidator) GenerateToken(identity domain.Identity, duration time.Duration) (string, error) {
	now := v.now()
	claims := &CustomClaims{
		UserID:      identity.UserID,
		DisplayName: identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Authenticate parses and validates the signature and expiration of a JWT string.
func (v TokenValidator) Authenticate(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return domain.Identity{}, errors.ErrInvalidToken
	}
	return domain.Identity{UserID: claims.UserID, DisplayName: claims.DisplayName}, nil
}
