package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/aussiebroadwan/visageid/internal/idp/domain"
	"github.com/aussiebroadwan/visageid/pkg/cryptox"
)

// PKCE methods.
const (
	PKCEMethodS256  = "S256"
	PKCEMethodPlain = "plain"
)

// ClientCredentials are what the caller presented at the token endpoint,
// from HTTP basic auth or the request body.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// AuthenticateClient checks creds against the client the session was issued
// to. Every failure is ErrInvalidClient.
func AuthenticateClient(client domain.Client, creds ClientCredentials) error {
	if creds.ClientID == "" || subtle.ConstantTimeCompare([]byte(creds.ClientID), []byte(client.ClientID)) != 1 {
		return ErrInvalidClient
	}
	if !client.IsConfidential {
		return nil
	}
	if creds.ClientSecret == "" || client.SecretHash == "" {
		return ErrInvalidClient
	}
	if err := cryptox.VerifySecret(creds.ClientSecret, client.SecretHash); err != nil {
		return ErrInvalidClient
	}
	return nil
}

// CheckPKCE enforces the session's code challenge and the client's PKCE
// requirement.
func CheckPKCE(client domain.Client, session domain.AuthSession, verifier string) error {
	verifier = strings.TrimSpace(verifier)
	if client.PKCEEnforced && verifier == "" {
		return ErrPKCEFailed
	}
	if !VerifyPKCE(session.CodeChallenge, session.CodeChallengeMethod, verifier) {
		return ErrPKCEFailed
	}
	return nil
}

// VerifyPKCE compares verifier with challenge. S256 hashes the verifier;
// any other method compares plain text. An empty challenge accepts anything.
func VerifyPKCE(challenge, method, verifier string) bool {
	challenge = strings.TrimSpace(challenge)
	if challenge == "" {
		return true
	}
	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return false
	}

	expected := verifier
	if strings.EqualFold(strings.TrimSpace(method), PKCEMethodS256) {
		sum := sha256.Sum256([]byte(verifier))
		expected = base64.RawURLEncoding.EncodeToString(sum[:])
	}
	return subtle.ConstantTimeCompare([]byte(challenge), []byte(expected)) == 1
}

// normalizePKCEMethod defaults the method to plain when a challenge is given
// and canonicalises the S256 spelling.
func normalizePKCEMethod(challenge, method string) string {
	method = strings.TrimSpace(method)
	switch {
	case challenge == "":
		return ""
	case method == "":
		return PKCEMethodPlain
	case strings.EqualFold(method, PKCEMethodS256):
		return PKCEMethodS256
	case strings.EqualFold(method, PKCEMethodPlain):
		return PKCEMethodPlain
	}
	return method
}
