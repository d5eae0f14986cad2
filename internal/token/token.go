// Package token validates caller credentials. The host treats credential
// verification as an external concern; this JWT implementation is the default
// authority, swappable behind validate.CredentialChecker.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the JWT claims for host access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Wallet string `json:"wallet,omitempty"`
	jwt.RegisteredClaims
}

// Validator verifies HMAC-signed bearer tokens.
type Validator struct {
	signingKey []byte
	issuer     string
}

func NewValidator(signingKey string, issuer string) *Validator {
	return &Validator{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Generate issues a signed access token. Used by operators and tests; the
// host itself only validates.
func (v *Validator) Generate(userID string, wallet string, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Wallet: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    v.issuer,
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(v.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// Validate parses and verifies a token string, returning its claims.
func (v *Validator) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token has expired")
		}
		return nil, fmt.Errorf("invalid token")
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// Check implements validate.CredentialChecker.
func (v *Validator) Check(_ context.Context, credential string) error {
	_, err := v.Validate(credential)
	return err
}
