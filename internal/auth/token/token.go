// Package token issues and verifies the signed bearer tokens that carry a
// user's id, email and role between requests.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "portalx/pkg/domain-errors"
)

const (
	issuer   = "portalx"
	audience = "portalx-users"
)

// Claims is the token payload. The id, email and role fields are all
// required; a structurally valid token missing any of them is rejected.
type Claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Payload is the verified content of an accepted token.
type Payload struct {
	UserID int64
	Email  string
	Role   string
}

// Service signs and verifies HS256 access tokens.
type Service struct {
	signingKey []byte
	expiry     time.Duration
}

func New(signingKey string, expiry time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		expiry:     expiry,
	}
}

// Generate signs a token for the given user.
func (s *Service) Generate(userID int64, email, role string) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  []string{audience},
		},
	})
	return t.SignedString(s.signingKey)
}

// Validate verifies signature and expiry and returns the token payload.
// An expired token and a malformed one fail with distinct error codes so
// clients can tell "log in again" apart from "this credential is garbage".
func (s *Service) Validate(tokenString string) (*Payload, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeTokenExpired, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeTokenMalformed, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeTokenMalformed, "invalid token")
	}
	if claims.UserID == 0 || claims.Email == "" || claims.Role == "" {
		return nil, dErrors.New(dErrors.CodeTokenMalformed, "incomplete token payload")
	}

	return &Payload{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
