// Package token creates and verifies access tokens: short-lived RS256 JWTs
// that carry a user profile. Holding a valid, unexpired token is proof of
// identity for profile reads; nothing is looked up in the store.
package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// claims is the signed payload. exp is embedded through RegisteredClaims.
type claims struct {
	Username     string `json:"username"`
	EmailAddress string `json:"email_address"`
	UserID       int64  `json:"user_id"`
	UserRole     string `json:"user_role"`
	jwt.RegisteredClaims
}

// AccessToken is a verified or freshly signed token.
type AccessToken struct {
	Profile   domain.UserProfile
	ExpiresAt time.Time
	raw       string
}

// String returns the compact serialized form.
func (t AccessToken) String() string { return t.raw }

// Create signs profile with key. The token expires ttl after now.
func Create(profile domain.UserProfile, key *rsa.PrivateKey, ttl time.Duration) (AccessToken, error) {
	return create(profile, key, ttl, time.Now())
}

func create(profile domain.UserProfile, key *rsa.PrivateKey, ttl time.Duration, now time.Time) (AccessToken, error) {
	if key == nil {
		return AccessToken{}, errors.New("create access token: nil private key")
	}

	expiresAt := now.Add(ttl)
	c := claims{
		Username:     profile.Username.String(),
		EmailAddress: profile.EmailAddress.String(),
		UserID:       profile.UserID.Int64(),
		UserRole:     profile.UserRole.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, c).SignedString(key)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}

	return AccessToken{
		Profile:   profile,
		ExpiresAt: c.ExpiresAt.Time,
		raw:       signed,
	}, nil
}

// Verify checks signature, algorithm and expiry, then rebuilds the profile
// through the domain parsers. Any failure wraps domain.ErrInvalidAccessToken.
func Verify(raw string, key *rsa.PublicKey) (AccessToken, error) {
	return verify(raw, key, time.Now)
}

func verify(raw string, key *rsa.PublicKey, now func() time.Time) (AccessToken, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: %w", domain.ErrInvalidAccessToken, err)
	}

	profile, err := c.profile()
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: claims: %w", domain.ErrInvalidAccessToken, err)
	}

	return AccessToken{
		Profile:   profile,
		ExpiresAt: c.ExpiresAt.Time,
		raw:       raw,
	}, nil
}

func (c claims) profile() (domain.UserProfile, error) {
	id, err := domain.NewUserID(c.UserID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	username, err := domain.ParseAndValidateUsername(domain.RawString(c.Username))
	if err != nil {
		return domain.UserProfile{}, err
	}
	email, err := domain.ParseAndValidateEmailAddress(domain.RawString(c.EmailAddress))
	if err != nil {
		return domain.UserProfile{}, err
	}
	role, err := domain.ParseUserRole(domain.RawString(c.UserRole))
	if err != nil {
		return domain.UserProfile{}, err
	}
	return domain.UserProfile{
		UserID:       id,
		Username:     username,
		EmailAddress: email,
		UserRole:     role,
	}, nil
}
