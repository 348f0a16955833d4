package jwtx

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/visageid/pkg/cryptox"
)

// DefaultKID is used when neither an explicit kid nor a published JWKS names one.
const DefaultKID = "dev"

// KeyManager owns the provider's signing key and the public key set served
// at the JWKS endpoint.
type KeyManager struct {
	Verifier Verifier
	KeySet   *KeySet

	signer    Signer
	published []byte
	ephemeral bool
}

// KeyManagerOptions configures NewKeyManager.
type KeyManagerOptions struct {
	// Issuer is checked by the verifier. Required.
	Issuer string

	// PrivateKeyPEM is the RS256 signing key. When empty and AllowEphemeral
	// is set a fresh key is generated.
	PrivateKeyPEM []byte

	// PublishedJWKS, when set, is served verbatim and its first kid becomes
	// the signing kid unless KeyID overrides it.
	PublishedJWKS []byte

	KeyID          string
	AllowEphemeral bool

	// RSABits for ephemeral keys. Defaults to 2048.
	RSABits int
}

// NewKeyManager loads or generates the signing key and builds the key set.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, errors.New("jwtx: Issuer is required")
	}

	var published JWKS
	if len(opts.PublishedJWKS) > 0 {
		var err error
		if published, err = ParseJWKS(opts.PublishedJWKS); err != nil {
			return nil, err
		}
	}
	publishedRaw := opts.PublishedJWKS
	if len(published.Keys) == 0 {
		publishedRaw = nil
	}

	kid := opts.KeyID
	if kid == "" {
		kid = published.FirstKID()
	}

	pemKey := opts.PrivateKeyPEM
	ephemeral := false
	if len(pemKey) == 0 {
		if !opts.AllowEphemeral {
			return nil, errors.New("jwtx: no signing key configured")
		}
		bits := opts.RSABits
		if bits == 0 {
			bits = 2048
		}
		var err error
		if pemKey, err = cryptox.GenerateRSAKey(bits); err != nil {
			return nil, fmt.Errorf("jwtx: generate ephemeral key: %w", err)
		}
		if kid == "" {
			if kid, err = generateRandomKeyID(); err != nil {
				return nil, err
			}
		}
		ephemeral = true
	}
	if kid == "" {
		kid = DefaultKID
	}

	signer, err := NewSignerRS256(kid, pemKey)
	if err != nil {
		return nil, err
	}
	if err := signer.Validate(); err != nil {
		return nil, fmt.Errorf("jwtx: invalid signing key: %w", err)
	}

	keyset := NewKeySet()
	if err := keyset.ResetFromJWKS(published); err != nil {
		return nil, err
	}
	if _, err := keyset.Get(kid); err != nil {
		if err := keyset.AddSigner(signer); err != nil {
			return nil, err
		}
	}

	return &KeyManager{
		Verifier:  NewVerifierRS256(keyset, opts.Issuer, nil),
		KeySet:    keyset,
		signer:    signer,
		published: publishedRaw,
		ephemeral: ephemeral,
	}, nil
}

// Signer returns the active signing key.
func (km *KeyManager) Signer() Signer { return km.signer }

// KID returns the kid placed in signed token headers.
func (km *KeyManager) KID() string { return km.signer.KID() }

// Ephemeral reports whether the signing key was generated at startup.
func (km *KeyManager) Ephemeral() bool { return km.ephemeral }

// IsReady returns true if the KeyManager has valid keys loaded.
func (km *KeyManager) IsReady() bool {
	return km.signer != nil && km.KeySet.IsReady()
}

// JWKSDocument returns the configured JWKS bytes when set, otherwise the
// key set derived from the signing key.
func (km *KeyManager) JWKSDocument() ([]byte, error) {
	if len(km.published) > 0 {
		return km.published, nil
	}
	return json.Marshal(km.KeySet.PublicJWKS())
}

// generateRandomKeyID returns "visageid-{128-bit token}".
func generateRandomKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to generate key ID: %w", err)
	}
	return "visageid-" + token, nil
}
