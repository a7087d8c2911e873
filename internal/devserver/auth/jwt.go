// Package auth issues and verifies the HS256 bearer tokens of the
// development server. The claims carry everything the client needs to know
// who it is: the account id in "sub", plus role, name and patient id.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/medchat/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims. The JSON names match what the client decodes.
type Claims struct {
	jwt.RegisteredClaims
	PatientID string `json:"patient_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Identity is the subject a token is issued for.
type Identity struct {
	ID        string
	PatientID string
	Role      string
	Name      string
}

func GenerateToken(id Identity, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		PatientID: id.PatientID,
		Role:      id.Role,
		Name:      id.Name,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns its identity. Expired tokens
// report common.ErrTokenExpired, anything else common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, common.ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return Identity{}, common.ErrInvalidToken
	}

	return Identity{
		ID:        claims.Subject,
		PatientID: claims.PatientID,
		Role:      claims.Role,
		Name:      claims.Name,
	}, nil
}
