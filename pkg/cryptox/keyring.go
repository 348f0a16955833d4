package cryptox

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// Sealed payload layout: [1-byte version][4-byte key fingerprint][24-byte nonce][ciphertext+tag]
const (
	sealVersion       byte = 1
	fingerprintSize        = 4
	sealHeaderSize         = 1 + fingerprintSize + chacha20poly1305.NonceSizeX
	keyringDerivation      = "visageid/keyring/v1"
)

var (
	ErrEmptyKeyring     = errors.New("keyring has no keys")
	ErrCiphertextFormat = errors.New("ciphertext malformed")
	ErrNoMatchingKey    = errors.New("no key in keyring can open ciphertext")
)

type keyringEntry struct {
	fingerprint [fingerprintSize]byte
	aead        cipher.AEAD
}

// keyringSet is immutable once published; rotation swaps the whole value.
type keyringSet struct {
	entries []keyringEntry
}

// Keyring seals small payloads with XChaCha20-Poly1305 under the newest key
// and opens payloads sealed under any key still listed. It is safe for
// concurrent use.
type Keyring struct {
	set atomic.Pointer[keyringSet]
}

// NewKeyring builds a keyring from raw key material, newest first.
func NewKeyring(secrets ...[]byte) (*Keyring, error) {
	set, err := buildKeyringSet(secrets)
	if err != nil {
		return nil, err
	}
	k := &Keyring{}
	k.set.Store(set)
	return k, nil
}

// ParseKeyring reads a comma separated key list such as the ENCRYPTION_KEYS
// setting. Blank entries are ignored.
func ParseKeyring(list string) (*Keyring, error) {
	var secrets [][]byte
	for _, part := range strings.Split(list, ",") {
		if part = strings.TrimSpace(part); part != "" {
			secrets = append(secrets, []byte(part))
		}
	}
	return NewKeyring(secrets...)
}

// GenerateKeyMaterial returns 32 random bytes encoded for use in ENCRYPTION_KEYS.
func GenerateKeyMaterial() (string, error) {
	return GenerateToken(TokenSize256)
}

func buildKeyringSet(secrets [][]byte) (*keyringSet, error) {
	if len(secrets) == 0 {
		return nil, ErrEmptyKeyring
	}

	set := &keyringSet{entries: make([]keyringEntry, 0, len(secrets))}
	for i, secret := range secrets {
		if len(secret) == 0 {
			return nil, fmt.Errorf("keyring entry %d is empty", i)
		}
		entry, err := deriveKeyringEntry(secret)
		if err != nil {
			return nil, fmt.Errorf("keyring entry %d: %w", i, err)
		}
		set.entries = append(set.entries, entry)
	}
	return set, nil
}

func deriveKeyringEntry(secret []byte) (keyringEntry, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyringDerivation)), key); err != nil {
		return keyringEntry{}, fmt.Errorf("derive key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return keyringEntry{}, fmt.Errorf("create aead: %w", err)
	}

	var entry keyringEntry
	sum := sha256.Sum256(key)
	copy(entry.fingerprint[:], sum[:fingerprintSize])
	entry.aead = aead
	return entry, nil
}

// Seal encrypts plaintext with the newest key. aad is authenticated but not
// stored; the same value must be supplied to Open.
func (k *Keyring) Seal(plaintext, aad []byte) ([]byte, error) {
	set := k.set.Load()
	if set == nil || len(set.entries) == 0 {
		return nil, ErrEmptyKeyring
	}
	primary := set.entries[0]

	out := make([]byte, sealHeaderSize, sealHeaderSize+len(plaintext)+primary.aead.Overhead())
	out[0] = sealVersion
	copy(out[1:], primary.fingerprint[:])
	nonce := out[1+fingerprintSize : sealHeaderSize]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return primary.aead.Seal(out, nonce, plaintext, aad), nil
}

// Open decrypts a payload produced by Seal. The key whose fingerprint matches
// the header is tried first, then every other listed key.
func (k *Keyring) Open(sealed, aad []byte) ([]byte, error) {
	set := k.set.Load()
	if set == nil || len(set.entries) == 0 {
		return nil, ErrEmptyKeyring
	}
	if len(sealed) < sealHeaderSize+chacha20poly1305.Overhead || sealed[0] != sealVersion {
		return nil, ErrCiphertextFormat
	}

	fp := sealed[1 : 1+fingerprintSize]
	nonce := sealed[1+fingerprintSize : sealHeaderSize]
	body := sealed[sealHeaderSize:]

	for _, entry := range set.entries {
		if !bytes.Equal(entry.fingerprint[:], fp) {
			continue
		}
		if plaintext, err := entry.aead.Open(nil, nonce, body, aad); err == nil {
			return plaintext, nil
		}
	}
	for _, entry := range set.entries {
		if bytes.Equal(entry.fingerprint[:], fp) {
			continue
		}
		if plaintext, err := entry.aead.Open(nil, nonce, body, aad); err == nil {
			return plaintext, nil
		}
	}
	return nil, ErrNoMatchingKey
}

// SealedWithPrimary reports whether sealed was produced under the newest key.
func (k *Keyring) SealedWithPrimary(sealed []byte) bool {
	set := k.set.Load()
	if set == nil || len(set.entries) == 0 || len(sealed) < sealHeaderSize {
		return false
	}
	return bytes.Equal(set.entries[0].fingerprint[:], sealed[1:1+fingerprintSize])
}

// Rotate makes secret the newest key. Existing keys stay available for Open.
func (k *Keyring) Rotate(secret []byte) error {
	entry, err := deriveKeyringEntry(secret)
	if err != nil {
		return err
	}
	for {
		old := k.set.Load()
		next := &keyringSet{entries: make([]keyringEntry, 0, len(old.entries)+1)}
		next.entries = append(next.entries, entry)
		next.entries = append(next.entries, old.entries...)
		if k.set.CompareAndSwap(old, next) {
			return nil
		}
	}
}

// Replace swaps the full key list, newest first.
func (k *Keyring) Replace(secrets ...[]byte) error {
	set, err := buildKeyringSet(secrets)
	if err != nil {
		return err
	}
	k.set.Store(set)
	return nil
}

// Len returns the number of keys currently listed.
func (k *Keyring) Len() int {
	set := k.set.Load()
	if set == nil {
		return 0
	}
	return len(set.entries)
}

// PrimaryFingerprint identifies the newest key without revealing it.
func (k *Keyring) PrimaryFingerprint() string {
	set := k.set.Load()
	if set == nil || len(set.entries) == 0 {
		return ""
	}
	return hex.EncodeToString(set.entries[0].fingerprint[:])
}

// EncodeKeyMaterial renders raw bytes in the form accepted by ParseKeyring.
func EncodeKeyMaterial(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}
