package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/visageid/pkg/cryptox"
	"github.com/aussiebroadwan/visageid/pkg/jwtx"
)

// InitSigningKeys loads the RS256 key from PRIVKEY_PEM or PRIVKEY_PEM_FILE.
// Outside dev a missing key is fatal. In dev a key is generated and every
// token it signs dies with the process.
func InitSigningKeys(cfg Config, logger *slog.Logger) (*jwtx.KeyManager, error) {
	pem := []byte(cfg.PrivateKeyPEM)
	if len(pem) == 0 && cfg.PrivateKeyFile != "" {
		raw, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read PRIVKEY_PEM_FILE: %w", err)
		}
		pem = raw
	}

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{
		Issuer:         cfg.Issuer,
		PrivateKeyPEM:  pem,
		PublishedJWKS:  []byte(cfg.PublishedJWKS),
		KeyID:          cfg.KeyID,
		AllowEphemeral: cfg.IsDev(),
	})
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}

	if km.Ephemeral() {
		logger.Warn("no PRIVKEY_PEM configured, generated an ephemeral signing key; tokens will not survive a restart",
			"kid", km.KID())
	} else {
		logger.Info("signing key loaded", "kid", km.KID(), "published_jwks", cfg.PublishedJWKS != "")
	}
	return km, nil
}

// InitKeyring parses ENCRYPTION_KEYS. In dev a missing list yields a fresh
// key, which makes embeddings stored during this run unreadable after it.
func InitKeyring(cfg Config, logger *slog.Logger) (*cryptox.Keyring, error) {
	list := cfg.EncryptionKeys
	if list == "" {
		if !cfg.IsDev() {
			return nil, fmt.Errorf("ENCRYPTION_KEYS is required when ENV=%s", cfg.Env)
		}
		material, err := cryptox.GenerateKeyMaterial()
		if err != nil {
			return nil, fmt.Errorf("generate embedding key: %w", err)
		}
		logger.Warn("no ENCRYPTION_KEYS configured, generated an ephemeral embedding key; enrolled faces will not survive a restart")
		list = material
	}

	kr, err := cryptox.ParseKeyring(list)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEYS: %w", err)
	}
	return kr, nil
}
