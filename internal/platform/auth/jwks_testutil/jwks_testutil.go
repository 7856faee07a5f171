package jwks_testutil

import (
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Overland-East-Bay/cashcard-api/internal/platform/auth/devtoken"
)

type Keypair struct {
	Kid     string
	Private *rsa.PrivateKey
}

func GenerateRSAKeypair(kid string) (Keypair, error) {
	k, err := devtoken.GenerateKey(kid)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Kid: k.Kid, Private: k.Private}, nil
}

// NewRotatingJWKSServer returns a JWKS server whose key set can be swapped at runtime.
func NewRotatingJWKSServer() (*httptest.Server, func(keys []Keypair)) {
	var doc atomic.Value // []byte
	doc.Store([]byte(`{"keys":[]}`))

	setKeys := func(keys []Keypair) {
		dk := make([]devtoken.Key, 0, len(keys))
		for _, kp := range keys {
			dk = append(dk, devtoken.Key{Kid: kp.Kid, Private: kp.Private})
		}
		b, err := devtoken.MarshalJWKS(dk...)
		if err != nil {
			panic(err)
		}
		doc.Store(b)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc.Load().([]byte))
	}))

	return srv, setKeys
}

// NewStaticJWKSServer serves a fixed JWKS document until the test ends.
func NewStaticJWKSServer(tb testing.TB, doc []byte) *httptest.Server {
	tb.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	}))
	tb.Cleanup(srv.Close)
	return srv
}

// MintRS256JWT creates a signed JWT using RS256 with the given keypair.
func MintRS256JWT(kp Keypair, iss, aud, sub string, now time.Time, expDelta time.Duration, nbfDelta *time.Duration) (string, error) {
	c := devtoken.Claims{
		Issuer:   iss,
		Audience: []string{aud},
		Subject:  sub,
		IssuedAt: now,
		TTL:      expDelta,
	}
	if nbfDelta != nil {
		nbf := now.Add(*nbfDelta)
		c.NotBefore = &nbf
	}
	return devtoken.Mint(devtoken.Key{Kid: kp.Kid, Private: kp.Private}, c)
}
