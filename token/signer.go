package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer signs access token claims and hands the parser the key to verify them with.
type Signer interface {
	Sign(claims jwt.Claims) (string, error)
	// GetVerificationKey is a jwt.Keyfunc. It must reject tokens whose
	// header names a different algorithm from GetSigningMethod.
	GetVerificationKey(token *jwt.Token) (any, error)
	GetSigningMethod() jwt.SigningMethod
}

var (
	_ Signer = (*HMACSigner)(nil)
	_ Signer = (*KeyPairSigner)(nil)
)

func checkAlgorithm(token *jwt.Token, want jwt.SigningMethod) error {
	if token.Method == nil || token.Method.Alg() != want.Alg() {
		return errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return nil
}

// HMACSigner signs with a shared secret.
type HMACSigner struct {
	secret []byte
	method *jwt.SigningMethodHMAC
}

// NewHMACSigner returns an HS256 signer.
func NewHMACSigner(secret string) *HMACSigner {
	return NewHMACSignerWithMethod(secret, jwt.SigningMethodHS256)
}

// NewHMACSignerWithMethod returns an HS256, HS384 or HS512 signer. A nil
// method means HS256.
func NewHMACSignerWithMethod(secret string, method *jwt.SigningMethodHMAC) *HMACSigner {
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	return &HMACSigner{secret: []byte(secret), method: method}
}

func (h *HMACSigner) Sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(h.method, claims).SignedString(h.secret)
	return signed, errors.Wrap(err, "[HMACSigner.Sign]")
}

func (h *HMACSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if err := checkAlgorithm(token, h.method); err != nil {
		return nil, err
	}
	return h.secret, nil
}

func (h *HMACSigner) GetSigningMethod() jwt.SigningMethod {
	return h.method
}

// KeyPairSigner signs with an RSA or ECDSA private key and publishes the
// public half as a JWKS.
type KeyPairSigner struct {
	keyPair *KeyPair
}

func NewKeyPairSigner(keyPair *KeyPair) *KeyPairSigner {
	return &KeyPairSigner{keyPair: keyPair}
}

func (a *KeyPairSigner) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(a.keyPair.GetSigningMethod(), claims)
	if a.keyPair.KeyID != "" {
		token.Header["kid"] = a.keyPair.KeyID
	}
	signed, err := token.SignedString(a.keyPair.PrivateKey)
	return signed, errors.Wrap(err, "[KeyPairSigner.Sign]")
}

func (a *KeyPairSigner) GetVerificationKey(token *jwt.Token) (any, error) {
	if err := checkAlgorithm(token, a.keyPair.GetSigningMethod()); err != nil {
		return nil, err
	}
	return a.keyPair.PublicKey, nil
}

func (a *KeyPairSigner) GetSigningMethod() jwt.SigningMethod {
	return a.keyPair.GetSigningMethod()
}

func (a *KeyPairSigner) GetJWKS() (*JWKS, error) {
	jwk, err := a.keyPair.ToJWK()
	if err != nil {
		return nil, errors.Wrap(err, "[KeyPairSigner.GetJWKS]")
	}
	return &JWKS{Keys: []JWK{*jwk}}, nil
}
