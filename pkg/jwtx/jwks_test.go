package jwtx

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJWKPEMRoundTrip(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := NewRSAJWK("test-key-id", "sig", "RS256", &privateKey.PublicKey)

	pemStr, err := jwk.PEM()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(pemStr, "-----BEGIN PUBLIC KEY-----"))

	block, _ := pem.Decode([]byte(pemStr))
	require.NotNil(t, block)

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	rsaPub, ok := parsed.(*rsa.PublicKey)
	require.True(t, ok)
	require.True(t, privateKey.PublicKey.Equal(rsaPub))
}

func TestJWKRejectsOtherKeyTypes(t *testing.T) {
	_, err := JWK{Kty: "OKP", Kid: "x"}.PEM()
	require.ErrorContains(t, err, "unsupported kty")

	_, err = JWK{Kty: "RSA", N: "!!", E: "AQAB"}.RSAPublicKey()
	require.Error(t, err)
}

func TestParseJWKS(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	raw, err := json.Marshal(JWKS{Keys: []JWK{
		NewRSAJWK("primary", "sig", "RS256", &privateKey.PublicKey),
		{Kty: "EC", Kid: "ignored"},
	}})
	require.NoError(t, err)

	set, err := ParseJWKS(raw)
	require.NoError(t, err)
	require.Equal(t, "primary", set.FirstKID())
	require.Len(t, set.Keys, 2)

	ks := NewKeySet()
	require.NoError(t, ks.ResetFromJWKS(set))
	require.True(t, ks.IsReady())
	require.Len(t, ks.PublicJWKS().Keys, 1)

	_, err = ks.Get("ignored")
	require.ErrorIs(t, err, ErrNoKey)

	_, err = ParseJWKS([]byte("{"))
	require.Error(t, err)
	require.Empty(t, JWKS{}.FirstKID())
}

func TestKeySetAddReplacesKid(t *testing.T) {
	a, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	b, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	ks := NewKeySet()
	require.NoError(t, ks.AddJWK(NewRSAJWK("same", "sig", "RS256", &a.PublicKey)))
	require.NoError(t, ks.AddJWK(NewRSAJWK("same", "sig", "RS256", &b.PublicKey)))

	require.Len(t, ks.PublicJWKS().Keys, 1)
	got, err := ks.Get("same")
	require.NoError(t, err)
	require.True(t, b.PublicKey.Equal(got))
}
