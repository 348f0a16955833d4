package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, "http://localhost:8080", cfg.Issuer)
	require.True(t, cfg.AccessTokensAsJWT)
	require.Equal(t, 10*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 336*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, 10*time.Minute, cfg.AuthCodeTTL)
	require.Equal(t, "hog", cfg.Face.Embedder)
	require.Equal(t, "none", cfg.Face.Localizer)
	require.InDelta(t, 0.7, cfg.Face.MatchThreshold, 1e-9)
	require.Equal(t, 8<<20, cfg.Face.MaxImageBytes)
	require.Equal(t, 4096*4096, cfg.Face.MaxImagePixels)
	require.True(t, cfg.IsDev())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("FACE_MATCH_THRESHOLD", "0.55")
	t.Setenv("FACE_MATCH_MARGIN", "0.05")
	t.Setenv("FACE_PROVIDER", "http")
	t.Setenv("FACE_PROVIDER_URL", "http://faces:9000")
	t.Setenv("AUTH_CODE_TTL", "2m")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.False(t, cfg.IsDev())
	require.InDelta(t, 0.55, cfg.Face.MatchThreshold, 1e-9)
	require.InDelta(t, 0.05, cfg.Face.MatchMargin, 1e-9)
	require.Equal(t, "http://faces:9000", cfg.Face.ProviderURL)
	require.Equal(t, 2*time.Minute, cfg.AuthCodeTTL)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	base, err := LoadConfig()
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"threshold too high", func(c *Config) { c.Face.MatchThreshold = 1.5 }, "FACE_MATCH_THRESHOLD"},
		{"threshold too low", func(c *Config) { c.Face.MatchThreshold = -2 }, "FACE_MATCH_THRESHOLD"},
		{"negative margin", func(c *Config) { c.Face.MatchMargin = -0.1 }, "FACE_MATCH_MARGIN"},
		{"http provider without url", func(c *Config) { c.Face.Provider = "http" }, "FACE_PROVIDER_URL"},
		{"http localizer without url", func(c *Config) { c.Face.Localizer = "http" }, "FACE_PROVIDER_URL"},
		{"unknown embedder", func(c *Config) { c.Face.Embedder = "resnet" }, "FACE_EMBEDDER"},
		{"zero pixel cap", func(c *Config) { c.Face.MaxImagePixels = 0 }, "FACE_MAX_IMAGE_PIXELS"},
		{"zero code ttl", func(c *Config) { c.AuthCodeTTL = 0 }, "AUTH_CODE_TTL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("boundaries are valid", func(t *testing.T) {
		t.Parallel()
		cfg := base
		cfg.Face.MatchThreshold = -1
		cfg.Face.MatchMargin = 0
		require.NoError(t, cfg.Validate())
		cfg.Face.MatchThreshold = 1
		require.NoError(t, cfg.Validate())
	})
}
