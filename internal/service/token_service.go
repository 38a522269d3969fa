package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/league-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/league-scheduler-api/pkg/errors"
)

// TokenService issues and verifies HS256 access tokens signed with a shared secret.
type TokenService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(secret, issuer string, expiration time.Duration) *TokenService {
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}
	return &TokenService{
		secret:     []byte(secret),
		issuer:     issuer,
		expiration: expiration,
		now:        time.Now,
	}
}

// Issue signs a token for the given identity.
func (s *TokenService) Issue(userID string, role models.UserRole, email, fullName string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	if !validRole(role) {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", role))
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.expiration)
	claims := models.JWTClaims{
		UserID:   userID,
		Role:     role,
		Email:    email,
		FullName: fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return signed, expiresAt, nil
}

// Validate parses and validates an access token returning the claims.
func (s *TokenService) Validate(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if !validRole(claims.Role) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries an unknown role")
	}
	return claims, nil
}

func validRole(role models.UserRole) bool {
	switch role {
	case models.RoleAdmin, models.RoleCommissioner, models.RoleViewer:
		return true
	}
	return false
}
