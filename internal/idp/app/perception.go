package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/visageid/pkg/facekit"
)

// NewPipeline assembles liveness, localisation and embedding from cfg.
func NewPipeline(cfg FaceConfig, logger *slog.Logger) (*facekit.Pipeline, error) {
	if cfg.Provider == "http" {
		p := facekit.NewHTTPProvider(cfg.ProviderURL, cfg.ProviderModel, cfg.ProviderTimeout)
		logger.Info("face provider selected", "provider", "http", "url", cfg.ProviderURL, "model", p.ModelID())
		return &facekit.Pipeline{
			Liveness:      p,
			Localizer:     p,
			Embedder:      p,
			MinConfidence: cfg.DetectMinConfidence,
		}, nil
	}

	embedder, ok := facekit.EmbedderByName(cfg.Embedder)
	if !ok {
		return nil, fmt.Errorf("unknown face embedder %q", cfg.Embedder)
	}

	pipeline := &facekit.Pipeline{
		Liveness: &facekit.HeuristicLiveness{
			MinMean:   cfg.LivenessMinMean,
			MinStd:    cfg.LivenessMinStd,
			MinMotion: cfg.LivenessMinMotion,
		},
		Embedder:      embedder,
		MinConfidence: cfg.DetectMinConfidence,
	}
	if cfg.Localizer == "http" {
		pipeline.Localizer = facekit.NewHTTPProvider(cfg.ProviderURL, embedder.ModelID(), cfg.ProviderTimeout)
	}

	logger.Info("face pipeline selected",
		"embedder", embedder.ModelID(),
		"localizer", cfg.Localizer,
		"threshold", cfg.MatchThreshold,
		"margin", cfg.MatchMargin,
	)
	return pipeline, nil
}
