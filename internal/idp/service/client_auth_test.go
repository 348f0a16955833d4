package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
)

func TestVerifyPKCE(t *testing.T) {
	t.Parallel()

	// base64url(sha256("verifier"))
	const challenge = "iMnq5o6zALKXGivsnlom_0F5_WYda32GHkxlV7mq7hQ"

	cases := []struct {
		name      string
		challenge string
		method    string
		verifier  string
		want      bool
	}{
		{"S256 match", challenge, PKCEMethodS256, "verifier", true},
		{"S256 mismatch", challenge, PKCEMethodS256, "verifier2", false},
		{"S256 empty verifier", challenge, PKCEMethodS256, "", false},
		{"plain match", "abc", PKCEMethodPlain, "abc", true},
		{"plain mismatch", "abc", PKCEMethodPlain, "abd", false},
		{"unknown method compares plain", "abc", "S512", "abc", true},
		{"no challenge", "", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, VerifyPKCE(tc.challenge, tc.method, tc.verifier))
		})
	}
}

func TestCheckPKCE(t *testing.T) {
	t.Parallel()

	enforced := domain.Client{PKCEEnforced: true}
	relaxed := domain.Client{}
	noChallenge := domain.AuthSession{}

	require.ErrorIs(t, CheckPKCE(enforced, noChallenge, ""), ErrPKCEFailed)
	require.NoError(t, CheckPKCE(enforced, noChallenge, "anything"))
	require.NoError(t, CheckPKCE(relaxed, noChallenge, ""))
	require.ErrorIs(t, CheckPKCE(relaxed, domain.AuthSession{CodeChallenge: "abc", CodeChallengeMethod: PKCEMethodPlain}, ""), ErrPKCEFailed)
}

func TestAuthenticatePublicClient(t *testing.T) {
	t.Parallel()

	client := domain.Client{ClientID: "abc"}
	require.NoError(t, AuthenticateClient(client, ClientCredentials{ClientID: "abc"}))
	require.ErrorIs(t, AuthenticateClient(client, ClientCredentials{ClientID: "abd"}), ErrInvalidClient)
	require.ErrorIs(t, AuthenticateClient(client, ClientCredentials{}), ErrInvalidClient)

	// A confidential client without a stored hash can never authenticate.
	client.IsConfidential = true
	require.ErrorIs(t, AuthenticateClient(client, ClientCredentials{ClientID: "abc", ClientSecret: "x"}), ErrInvalidClient)
}
