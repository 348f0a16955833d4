package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/aussiebroadwan/visageid/pkg/facekit"
)

// Config is read from the environment by LoadConfig.
type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	HTTPAddr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	VerifyTimeout       time.Duration `env:"VERIFY_TIMEOUT" envDefault:"15s"`

	DatabaseFile string `env:"DATABASE_FILE" envDefault:"visageid.db"`
	PepperFile   string `env:"PEPPER_FILE"`

	Issuer         string `env:"OIDC_ISSUER" envDefault:"http://localhost:8080"`
	PrivateKeyPEM  string `env:"PRIVKEY_PEM"`
	PrivateKeyFile string `env:"PRIVKEY_PEM_FILE"`
	PublishedJWKS  string `env:"PUBKEY_JWKS"`
	KeyID          string `env:"OIDC_KEY_ID"`

	AccessTokensAsJWT bool          `env:"ACCESS_TOKENS_AS_JWT" envDefault:"true"`
	AccessTokenTTL    time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"600s"`
	RefreshTokenTTL   time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"336h"`
	IDTokenTTL        time.Duration `env:"ID_TOKEN_TTL" envDefault:"600s"`
	AuthCodeTTL       time.Duration `env:"AUTH_CODE_TTL" envDefault:"10m"`

	// EncryptionKeys is the embedding keyring, newest first.
	EncryptionKeys string `env:"ENCRYPTION_KEYS"`

	Face FaceConfig `envPrefix:"FACE_"`

	AdminToken string `env:"ADMIN_TOKEN"`

	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// FaceConfig selects and tunes the perception pipeline.
type FaceConfig struct {
	// Provider "http" delegates liveness, detection and embedding to
	// ProviderURL. Empty keeps everything in process.
	Provider        string        `env:"PROVIDER"`
	ProviderURL     string        `env:"PROVIDER_URL"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"5s"`
	ProviderModel   string        `env:"PROVIDER_MODEL" envDefault:"remote"`

	Embedder  string `env:"EMBEDDER" envDefault:"hog"`
	Localizer string `env:"LOCALIZER" envDefault:"none"`

	MatchThreshold float64 `env:"MATCH_THRESHOLD" envDefault:"0.7"`
	MatchMargin    float64 `env:"MATCH_MARGIN" envDefault:"0.0"`
	Debug          bool    `env:"DEBUG" envDefault:"false"`

	LivenessMinMean     float64 `env:"LIVENESS_MIN_MEAN" envDefault:"35"`
	LivenessMinStd      float64 `env:"LIVENESS_MIN_STD" envDefault:"12"`
	LivenessMinMotion   float64 `env:"LIVENESS_MIN_MOTION" envDefault:"2.0"`
	DetectMinConfidence float64 `env:"DETECT_MIN_CONFIDENCE" envDefault:"0.85"`

	MaxActivePerUser int `env:"MAX_ACTIVE_PER_USER" envDefault:"0"`
	MaxImageBytes    int `env:"MAX_IMAGE_BYTES" envDefault:"8388608"`
	MaxImagePixels   int `env:"MAX_IMAGE_PIXELS" envDefault:"16777216"`
}

// LoadConfig parses the environment and validates the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDev reports whether missing key material may be generated at startup.
func (c Config) IsDev() bool { return c.Env == "dev" }

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	var errs []error

	f := c.Face
	if f.MatchThreshold < -1 || f.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("FACE_MATCH_THRESHOLD must be within [-1, 1], got %v", f.MatchThreshold))
	}
	if f.MatchMargin < 0 {
		errs = append(errs, fmt.Errorf("FACE_MATCH_MARGIN must not be negative, got %v", f.MatchMargin))
	}
	switch f.Provider {
	case "":
	case "http":
		if f.ProviderURL == "" {
			errs = append(errs, errors.New("FACE_PROVIDER=http requires FACE_PROVIDER_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown FACE_PROVIDER %q", f.Provider))
	}
	switch f.Localizer {
	case "none", "":
	case "http":
		if f.ProviderURL == "" {
			errs = append(errs, errors.New("FACE_LOCALIZER=http requires FACE_PROVIDER_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown FACE_LOCALIZER %q", f.Localizer))
	}
	if f.Provider != "http" {
		if _, ok := facekit.EmbedderByName(f.Embedder); !ok {
			errs = append(errs, fmt.Errorf("unknown FACE_EMBEDDER %q", f.Embedder))
		}
	}
	if f.MaxActivePerUser < 0 {
		errs = append(errs, errors.New("FACE_MAX_ACTIVE_PER_USER must not be negative"))
	}
	if f.MaxImageBytes <= 0 {
		errs = append(errs, errors.New("FACE_MAX_IMAGE_BYTES must be positive"))
	}
	if f.MaxImagePixels <= 0 {
		errs = append(errs, errors.New("FACE_MAX_IMAGE_PIXELS must be positive"))
	}

	if c.Issuer == "" {
		errs = append(errs, errors.New("OIDC_ISSUER is required"))
	}
	for name, d := range map[string]time.Duration{
		"ACCESS_TOKEN_TTL":  c.AccessTokenTTL,
		"REFRESH_TOKEN_TTL": c.RefreshTokenTTL,
		"ID_TOKEN_TTL":      c.IDTokenTTL,
		"AUTH_CODE_TTL":     c.AuthCodeTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	return errors.Join(errs...)
}
