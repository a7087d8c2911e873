// Package auth derives the viewer identity from the bearer token the API
// issued. The token is not verified here; the server does that on every
// request, the client only needs to know who it is talking as.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/medchat/internal/client/models"
	"github.com/dmitrijs2005/medchat/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of token claims the client reads. Subject is the
// account id.
type Claims struct {
	jwt.RegisteredClaims
	PatientID string `json:"patient_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Name      string `json:"name,omitempty"`
}

// UserFromToken decodes token (with or without the "Bearer " prefix) into
// the viewer identity. Unknown roles default to patient.
func UserFromToken(token string) (models.User, error) {
	token = strings.TrimSpace(token)
	if t := common.BearerToken(token); t != "" {
		token = t
	}
	if token == "" {
		return models.User{}, common.ErrInvalidToken
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.User{}, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return models.User{}, errors.Join(common.ErrInvalidToken, errors.New("token has no subject"))
	}

	role, ok := models.ParseRole(claims.Role)
	if !ok || (role != models.RolePatient && role != models.RoleDoctor) {
		role = models.RolePatient
	}
	return models.User{
		ID:        claims.Subject,
		PatientID: claims.PatientID,
		Role:      role,
		Name:      claims.Name,
	}, nil
}

// FillProfile completes u with fields from a /me record that the token did
// not carry.
func FillProfile(u models.User, me models.RawRecord) models.User {
	if me == nil {
		return u
	}
	if u.Name == "" {
		u.Name, _ = me.String("name", "full_name", "username")
	}
	if u.PatientID == "" {
		u.PatientID, _ = me.String("patient_id", "patientId")
	}
	return u
}
