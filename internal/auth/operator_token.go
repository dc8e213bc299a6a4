package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OperatorTokenService mints and verifies the bearer tokens used on the
// operator channel. These are ordinary HS256 JWTs, unrelated to preview
// tokens: the operator channel is trusted infrastructure, not a sandbox.
type OperatorTokenService struct {
	secret []byte
}

func NewOperatorTokenService(secret string) (*OperatorTokenService, error) {
	if secret == "" {
		return nil, errors.New("operator token secret is required")
	}
	return &OperatorTokenService{secret: []byte(secret)}, nil
}

// Issue mints a token identifying subject, valid for ttl.
func (s *OperatorTokenService) Issue(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(s.secret)
}

// Verify checks the token and returns its subject.
func (s *OperatorTokenService) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid operator token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("operator token has no subject")
	}

	return subject, nil
}
