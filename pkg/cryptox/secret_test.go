package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "visageid-test-pepper")
	_ = os.Remove(pepperPath)
	SetPepperPath(pepperPath)

	code := m.Run()
	_ = os.Remove(pepperPath)
	os.Exit(code)
}

func TestHashSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"generated secret", MustGenerateToken(TokenSize256)},
		{"symbols", "P@ssw0rd!#$%^&*()"},
		{"long", strings.Repeat("a", 100)},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashSecret(tt.secret)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
			require.Len(t, strings.Split(hash, "$"), 6)

			require.NoError(t, VerifySecret(tt.secret, hash))
		})
	}
}

func TestHashSecretUniqueSalts(t *testing.T) {
	a, err := HashSecret("same")
	require.NoError(t, err)
	b, err := HashSecret("same")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.NoError(t, VerifySecret("same", a))
	require.NoError(t, VerifySecret("same", b))
}

func TestVerifySecretMismatch(t *testing.T) {
	hash, err := HashSecret("correct-secret")
	require.NoError(t, err)

	for _, wrong := range []string{"wrong-secret", "Correct-Secret", "correct-secret ", "", strings.Repeat("x", 10000)} {
		require.ErrorIs(t, VerifySecret(wrong, hash), ErrSecretMismatch)
	}
}

func TestVerifySecretInvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"wrong algorithm", "$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
		{"missing parts", "$argon2id$v=19$m=19456"},
		{"malformed parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"invalid salt", "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA"},
		{"wrong version", "$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, VerifySecret("secret", tt.hash))
		})
	}
}

func TestPepperPersistsAcrossReload(t *testing.T) {
	hash, err := HashSecret("persisted")
	require.NoError(t, err)

	require.NoError(t, LoadPepper())
	require.NoError(t, VerifySecret("persisted", hash))
}

func TestNewClientID(t *testing.T) {
	id, err := NewClientID()
	require.NoError(t, err)
	require.Len(t, id, 32)

	other, err := NewClientID()
	require.NoError(t, err)
	require.NotEqual(t, id, other)
}
