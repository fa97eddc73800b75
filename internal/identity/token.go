package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/victornm/ecoquest/internal/domain"
)

// TokenConfig is the key material and validation parameters of bearer tokens.
type TokenConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
	TTL        time.Duration
}

// Claims carried by a bearer token. Subject is the login and Role is
// role+status for users ("masteractive", "adminactive") or "player".
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Role returns the role claim of a user with the given role and status.
func Role(role, status string) string {
	return role + status
}

const (
	RoleAdminActive    = domain.RoleAdmin + domain.StatusActive
	RoleMasterActive   = domain.RoleMaster + domain.StatusActive
	RoleMasterInactive = domain.RoleMaster + domain.StatusInactive
	RolePlayer         = domain.RolePlayer
)

// IssueToken signs an HS256 token for subject with the given role claim.
func IssueToken(c TokenConfig, subject, role string, now time.Time) (string, error) {
	if len(c.SigningKey) == 0 {
		return "", errors.New("identity: empty signing key")
	}

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.Issuer,
			Audience:  jwt.ClaimStrings{c.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.TTL)),
		},
	}

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.SigningKey)
	if err != nil {
		return "", fmt.Errorf("identity: sign token: %w", err)
	}
	return s, nil
}

// ParseToken validates signature, issuer, audience and lifetime of token.
func ParseToken(c TokenConfig, token string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.SigningKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.Issuer),
		jwt.WithAudience(c.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, fmt.Errorf("identity: parse token: %w", err)
	}
	return claims, nil
}
