package token

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// SignerConfig describes the key material a Signer is built from.
type SignerConfig struct {
	Algorithm     string // HS256, HS384, HS512, RS256, RS384, RS512, ES256, ES384, ES512
	Secret        string // HMAC only
	KeyID         string // Key pair only, published as "kid"
	PrivateKeyPEM string // Key pair only
	PublicKeyPEM  string // Key pair only
}

// NewSigner builds the Signer matching the configured algorithm.
func NewSigner(cfg SignerConfig) (Signer, error) {
	algorithm := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if algorithm == "" {
		algorithm = "HS256"
	}

	switch algorithm {
	case "HS256", "HS384", "HS512":
		if cfg.Secret == "" {
			return nil, errors.Errorf("[NewSigner] %s requires a secret", algorithm)
		}
		method, _ := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
		return NewHMACSignerWithMethod(cfg.Secret, method), nil

	case "RS256", "RS384", "RS512", "ES256", "ES384", "ES512":
		if cfg.PrivateKeyPEM == "" || cfg.PublicKeyPEM == "" {
			return nil, errors.Errorf("[NewSigner] %s requires a private and public key", algorithm)
		}
		keyPair, err := LoadKeyPairFromPEM(cfg.KeyID, cfg.PrivateKeyPEM, cfg.PublicKeyPEM, algorithm)
		if err != nil {
			return nil, errors.Wrapf(err, "[NewSigner] failed to load %s key pair", algorithm)
		}
		return NewKeyPairSigner(keyPair), nil

	default:
		return nil, errors.Errorf("[NewSigner] unsupported signing algorithm: %s", cfg.Algorithm)
	}
}
