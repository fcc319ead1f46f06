package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const minRSABits = 2048

// asymmetricAlgorithm ties a JWS algorithm name to its signing method and,
// for ES*, the curve its keys must be on. A nil curve means RSA.
type asymmetricAlgorithm struct {
	method jwt.SigningMethod
	curve  elliptic.Curve
}

var asymmetricAlgorithms = map[string]asymmetricAlgorithm{
	"RS256": {method: jwt.SigningMethodRS256},
	"RS384": {method: jwt.SigningMethodRS384},
	"RS512": {method: jwt.SigningMethodRS512},
	"ES256": {method: jwt.SigningMethodES256, curve: elliptic.P256()},
	"ES384": {method: jwt.SigningMethodES384, curve: elliptic.P384()},
	"ES512": {method: jwt.SigningMethodES512, curve: elliptic.P521()},
}

func lookupAlgorithm(algorithm string, wantRSA bool) (asymmetricAlgorithm, error) {
	alg, ok := asymmetricAlgorithms[algorithm]
	if !ok || (alg.curve == nil) != wantRSA {
		family := "ECDSA"
		if wantRSA {
			family = "RSA"
		}
		return asymmetricAlgorithm{}, errors.Errorf("unsupported %s algorithm %q", family, algorithm)
	}
	return alg, nil
}

// KeyPair is the private and public key a KeyPairSigner signs and verifies with.
type KeyPair struct {
	KeyID      string
	PrivateKey crypto.PrivateKey
	PublicKey  crypto.PublicKey
	Algorithm  string
}

// JWKS is the document served at the well-known JWKS route.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK is the public half of a signing key (RFC 7517). RSA keys fill N and E,
// EC keys fill Crv, X and Y.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use,omitempty"`
	Kid string `json:"kid,omitempty"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n,omitempty"`
	E   string `json:"e,omitempty"`
	Crv string `json:"crv,omitempty"`
	X   string `json:"x,omitempty"`
	Y   string `json:"y,omitempty"`
}

// GenerateRSAKeyPair creates a fresh RSA key for an RS* algorithm. Sizes
// below 2048 bits are raised to 2048.
func GenerateRSAKeyPair(keyID, algorithm string, bits int) (*KeyPair, error) {
	if _, err := lookupAlgorithm(algorithm, true); err != nil {
		return nil, err
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, max(bits, minRSABits))
	if err != nil {
		return nil, errors.Wrap(err, "[GenerateRSAKeyPair]")
	}
	return &KeyPair{KeyID: keyID, PrivateKey: privateKey, PublicKey: &privateKey.PublicKey, Algorithm: algorithm}, nil
}

// GenerateECDSAKeyPair creates a fresh ECDSA key on the curve an ES* algorithm requires.
func GenerateECDSAKeyPair(keyID, algorithm string) (*KeyPair, error) {
	alg, err := lookupAlgorithm(algorithm, false)
	if err != nil {
		return nil, err
	}
	privateKey, err := ecdsa.GenerateKey(alg.curve, rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "[GenerateECDSAKeyPair]")
	}
	return &KeyPair{KeyID: keyID, PrivateKey: privateKey, PublicKey: &privateKey.PublicKey, Algorithm: algorithm}, nil
}

func (kp *KeyPair) GetSigningMethod() jwt.SigningMethod {
	if alg, ok := asymmetricAlgorithms[kp.Algorithm]; ok {
		return alg.method
	}
	return jwt.SigningMethodRS256
}

// ExportPublicKeyPEM encodes the public key as a PKIX "PUBLIC KEY" block.
func (kp *KeyPair) ExportPublicKeyPEM() (string, error) {
	der, err := x509.MarshalPKIXPublicKey(kp.PublicKey)
	if err != nil {
		return "", errors.Wrap(err, "[KeyPair.ExportPublicKeyPEM]")
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// ExportPrivateKeyPEM encodes the private key as a PKCS#8 "PRIVATE KEY" block.
func (kp *KeyPair) ExportPrivateKeyPEM() (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(kp.PrivateKey)
	if err != nil {
		return "", errors.Wrap(err, "[KeyPair.ExportPrivateKeyPEM]")
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})), nil
}

func (kp *KeyPair) ToJWK() (*JWK, error) {
	b64 := base64.RawURLEncoding.EncodeToString
	jwk := &JWK{Kid: kp.KeyID, Use: "sig", Alg: kp.Algorithm}

	switch pub := kp.PublicKey.(type) {
	case *rsa.PublicKey:
		jwk.Kty = "RSA"
		jwk.N = b64(pub.N.Bytes())
		jwk.E = b64(big.NewInt(int64(pub.E)).Bytes())
	case *ecdsa.PublicKey:
		params := pub.Curve.Params()
		size := (params.BitSize + 7) / 8
		jwk.Kty = "EC"
		jwk.Crv = params.Name
		jwk.X = b64(pub.X.FillBytes(make([]byte, size)))
		jwk.Y = b64(pub.Y.FillBytes(make([]byte, size)))
	default:
		return nil, errors.Errorf("[KeyPair.ToJWK] unsupported public key type %T", kp.PublicKey)
	}
	return jwk, nil
}

// LoadKeyPairFromPEM parses a private key (PKCS#1, SEC 1 or PKCS#8) and a
// PKIX public key, and checks that both halves match each other and the
// algorithm.
func LoadKeyPairFromPEM(keyID, privateKeyPEM, publicKeyPEM, algorithm string) (*KeyPair, error) {
	privateKey, err := parsePrivateKeyPEM(privateKeyPEM)
	if err != nil {
		return nil, err
	}
	publicKey, err := parsePublicKeyPEM(publicKeyPEM)
	if err != nil {
		return nil, err
	}

	switch priv := privateKey.(type) {
	case *rsa.PrivateKey:
		if _, err := lookupAlgorithm(algorithm, true); err != nil {
			return nil, err
		}
		if !priv.PublicKey.Equal(publicKey) {
			return nil, errors.New("[LoadKeyPairFromPEM] RSA public key does not match private key")
		}
	case *ecdsa.PrivateKey:
		alg, err := lookupAlgorithm(algorithm, false)
		if err != nil {
			return nil, err
		}
		if priv.Curve != alg.curve {
			return nil, errors.Errorf("[LoadKeyPairFromPEM] key curve %s does not suit %s", priv.Curve.Params().Name, algorithm)
		}
		if !priv.PublicKey.Equal(publicKey) {
			return nil, errors.New("[LoadKeyPairFromPEM] ECDSA public key does not match private key")
		}
	default:
		return nil, errors.Errorf("[LoadKeyPairFromPEM] unsupported private key type %T", privateKey)
	}

	return &KeyPair{KeyID: keyID, PrivateKey: privateKey, PublicKey: publicKey, Algorithm: algorithm}, nil
}

func decodePEM(data, what string) (*pem.Block, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, errors.Errorf("no PEM block found in %s", what)
	}
	return block, nil
}

func parsePublicKeyPEM(data string) (crypto.PublicKey, error) {
	block, err := decodePEM(data, "public key")
	if err != nil {
		return nil, err
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	return key, errors.Wrap(err, "failed to parse public key")
}

func parsePrivateKeyPEM(data string) (crypto.PrivateKey, error) {
	block, err := decodePEM(data, "private key")
	if err != nil {
		return nil, err
	}

	var key crypto.PrivateKey
	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	default:
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", block.Type)
	}
	return key, nil
}
