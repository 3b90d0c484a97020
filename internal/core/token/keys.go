package token

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyBits is the smallest RSA modulus accepted for signing keys.
const MinKeyBits = 2048

// GenerateKeyPairPEM creates a fresh RSA key pair, PKCS#1 private and PKIX
// public, both PEM encoded.
func GenerateKeyPairPEM(bits int) (private, public []byte, err error) {
	if bits < MinKeyBits {
		return nil, nil, fmt.Errorf("rsa key size %d is below %d bits", bits, MinKeyBits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal public key: %w", err)
	}

	private = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	public = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return private, public, nil
}

// ParseKeyPairPEM decodes a PEM key pair and checks that the two halves
// belong together.
func ParseKeyPairPEM(private, public []byte) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(private)
	if err != nil {
		return nil, nil, fmt.Errorf("parse private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(public)
	if err != nil {
		return nil, nil, fmt.Errorf("parse public key: %w", err)
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, nil, errors.New("public key does not match private key")
	}
	return priv, pub, nil
}
