package token

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// Issuer binds the process-wide key pair and token lifetime loaded at startup.
type Issuer struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	ttl     time.Duration
	now     func() time.Time
}

// NewIssuer returns an Issuer. Both keys are required.
func NewIssuer(private *rsa.PrivateKey, public *rsa.PublicKey, ttl time.Duration) (*Issuer, error) {
	if private == nil || public == nil {
		return nil, errors.New("token issuer: key pair is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token issuer: ttl must be positive")
	}
	return &Issuer{private: private, public: public, ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for profile.
func (i *Issuer) Issue(profile domain.UserProfile) (AccessToken, error) {
	return create(profile, i.private, i.ttl, i.now())
}

// Verify checks raw against the issuer's public key.
func (i *Issuer) Verify(raw string) (AccessToken, error) {
	return verify(raw, i.public, i.now)
}
