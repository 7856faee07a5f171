package devtoken

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestMint_RoundTripsWithPublicKey(t *testing.T) {
	t.Parallel()

	k, err := GenerateKey("kid-1")
	require.NoError(t, err)

	now := time.Now()
	raw, err := Mint(k, Claims{Issuer: "iss", Audience: []string{"aud"}, Subject: "sarah1", IssuedAt: now, TTL: time.Minute})
	require.NoError(t, err)

	tok, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (any, error) {
		require.Equal(t, "kid-1", tok.Header["kid"])
		return &k.Private.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithIssuer("iss"), jwt.WithAudience("aud"))
	require.NoError(t, err)
	sub, err := tok.Claims.GetSubject()
	require.NoError(t, err)
	require.Equal(t, "sarah1", sub)
}

func TestMarshalJWKS(t *testing.T) {
	t.Parallel()

	k1, err := GenerateKey("a")
	require.NoError(t, err)
	k2, err := GenerateKey("b")
	require.NoError(t, err)

	b, err := MarshalJWKS(k1, k2)
	require.NoError(t, err)

	var set jwks
	require.NoError(t, json.Unmarshal(b, &set))
	require.Len(t, set.Keys, 2)
	require.Equal(t, "a", set.Keys[0].Kid)
	require.Equal(t, "RSA", set.Keys[1].Kty)
	require.Equal(t, "AQAB", set.Keys[0].E)

	_, err = MarshalJWKS(Key{Kid: "x"})
	require.Error(t, err)
}
