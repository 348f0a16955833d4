package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/visageid/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewIDClaims(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0).UTC()
	authTime := now.Add(-30 * time.Second)
	c := jwtx.NewIDClaims("http://idp.test", "user-1", "client-1", "n-123", authTime, 10*time.Minute, now)

	require.Equal(t, "http://idp.test", c.Issuer)
	require.Equal(t, "user-1", c.Subject)
	require.Equal(t, jwt.ClaimStrings{"client-1"}, c.Audience)
	require.Equal(t, "n-123", c.Nonce)
	require.Equal(t, authTime.Unix(), c.AuthTime.Unix())
	require.Equal(t, now.Add(10*time.Minute).Unix(), c.ExpiresAt.Unix())
	require.Equal(t, jwtx.FaceACR, c.ACR)
	require.Equal(t, []string{"face"}, c.AMR)
	require.Empty(t, c.ID)
}

func TestNewAccessClaimsUniqueJTI(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	a := jwtx.NewAccessClaims("iss", "user-1", "client-1", "openid email", time.Minute, now)
	b := jwtx.NewAccessClaims("iss", "user-1", "client-1", "openid email", time.Minute, now)

	require.NotEmpty(t, a.ID)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, "openid email", a.Scope)
	require.Equal(t, "client-1", a.ClientID)
}

func TestPeekJTI(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, "peek")
	claims := jwtx.NewAccessClaims("iss", "user-1", "client-1", "openid", time.Minute, time.Now())
	token, err := signer.Sign(claims)
	require.NoError(t, err)
	require.True(t, jwtx.LooksLikeJWT(token))

	jti, err := jwtx.PeekJTI(token)
	require.NoError(t, err)
	require.Equal(t, claims.ID, jti)

	t.Run("expired tokens still yield jti", func(t *testing.T) {
		old := jwtx.NewAccessClaims("iss", "user-1", "client-1", "openid", time.Minute, time.Now().Add(-time.Hour))
		tok, err := signer.Sign(old)
		require.NoError(t, err)
		jti, err := jwtx.PeekJTI(tok)
		require.NoError(t, err)
		require.Equal(t, old.ID, jti)
	})

	t.Run("missing jti", func(t *testing.T) {
		tok, err := signer.Sign(jwtx.NewIDClaims("iss", "u", "c", "", time.Now(), time.Minute, time.Now()))
		require.NoError(t, err)
		_, err = jwtx.PeekJTI(tok)
		require.ErrorIs(t, err, jwtx.ErrInvalidClaim)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := jwtx.PeekJTI("not-a-jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
		require.False(t, jwtx.LooksLikeJWT("opaque-token"))
	})
}

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "http://idp.test"}}

	require.NoError(t, c.ValidateIssuer("http://idp.test"))
	require.NoError(t, c.ValidateIssuer(""))
	require.ErrorIs(t, c.ValidateIssuer("http://other.test"), jwtx.ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: []string{"client-a", "client-b"}}}

	t.Run("contains match", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"client-a"}))
	})

	t.Run("any of several", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience([]string{"foo", "client-b"}))
	})

	t.Run("no match", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateAudience([]string{"admin"}), jwtx.ErrAudience)
	})

	t.Run("empty expected list", func(t *testing.T) {
		require.NoError(t, c.ValidateAudience(nil))
	})
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid token", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))}}
		require.NoError(t, c.ValidateExpiry())
	})

	t.Run("expired token", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}}
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrExpired)
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{NotBefore: jwt.NewNumericDate(now.Add(time.Minute))}}
		require.ErrorIs(t, c.ValidateExpiry(), jwtx.ErrNotYetValid)
	})

	t.Run("leeway absorbs skew", func(t *testing.T) {
		c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second))}}
		require.NoError(t, c.ValidateExpiryWithLeeway(30*time.Second))
		require.ErrorIs(t, c.ValidateExpiryWithLeeway(5*time.Second), jwtx.ErrExpired)
	})
}
