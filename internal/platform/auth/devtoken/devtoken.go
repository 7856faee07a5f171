// Package devtoken mints RS256 tokens and publishes matching JWKS documents for local
// development and tests. It is not an OIDC provider.
package devtoken

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Key struct {
	Kid     string
	Private *rsa.PrivateKey
}

func GenerateKey(kid string) (Key, error) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return Key{}, err
	}
	return Key{Kid: kid, Private: priv}, nil
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// MarshalJWKS renders the public halves of keys as a JWKS document.
func MarshalJWKS(keys ...Key) ([]byte, error) {
	enc := base64.RawURLEncoding
	set := jwks{Keys: make([]jwk, 0, len(keys))}
	for _, k := range keys {
		if k.Private == nil {
			return nil, errors.New("nil private key")
		}
		pub := k.Private.PublicKey
		set.Keys = append(set.Keys, jwk{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: k.Kid,
			N:   enc.EncodeToString(pub.N.Bytes()),
			// big-endian unsigned
			E: enc.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		})
	}
	return json.Marshal(set)
}

// Claims describes a token to mint. A nil NotBefore omits nbf.
type Claims struct {
	Issuer    string
	Audience  []string
	Subject   string
	IssuedAt  time.Time
	TTL       time.Duration
	NotBefore *time.Time
}

func Mint(k Key, c Claims) (string, error) {
	if k.Private == nil {
		return "", errors.New("nil private key")
	}
	rc := jwt.RegisteredClaims{
		Issuer:    c.Issuer,
		Subject:   c.Subject,
		Audience:  jwt.ClaimStrings(c.Audience),
		IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(c.IssuedAt.Add(c.TTL)),
	}
	if c.NotBefore != nil {
		rc.NotBefore = jwt.NewNumericDate(*c.NotBefore)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, rc)
	tok.Header["kid"] = k.Kid
	return tok.SignedString(k.Private)
}
