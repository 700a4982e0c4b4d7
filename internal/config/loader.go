package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/longscribe/longscribe/internal/preset"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.Preset == "" {
		cfg.Preset = string(preset.Balanced)
	}
	if cfg.Filters.Scorer == "" {
		cfg.Filters.Scorer = ScorerLexical
	}
	if cfg.Diagnostics.EmbeddingDimensions <= 0 {
		cfg.Diagnostics.EmbeddingDimensions = 1536
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if !preset.Name(cfg.Preset).IsValid() {
		errs = append(errs, fmt.Errorf("preset %q is invalid; valid values: %v", cfg.Preset, preset.Names()))
	}
	if !cfg.Filters.Scorer.IsValid() {
		errs = append(errs, fmt.Errorf("filters.scorer %q is invalid; valid values: lexical, embedding", cfg.Filters.Scorer))
	}
	if cfg.Filters.Scorer == ScorerEmbedding && cfg.Embeddings.Model == "" {
		errs = append(errs, errors.New("filters.scorer is \"embedding\" but embeddings.model is not set"))
	}

	for i, h := range cfg.Recognizers.OpenAI {
		prefix := fmt.Sprintf("recognizers.openai[%d]", i)
		if h.ServeAs == "" {
			errs = append(errs, fmt.Errorf("%s.serve_as is required", prefix))
		}
		if h.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model is required", prefix))
		}
	}

	if len(cfg.Recognizers.Whisper.Models) == 0 && len(cfg.Recognizers.OpenAI) == 0 {
		errs = append(errs, errors.New("no recognizer configured; declare recognizers.whisper.models or recognizers.openai"))
	}

	// Duplicate model IDs across backends: the last registration would win
	// silently, which is never what the operator meant.
	seen := make(map[string]string)
	for id := range cfg.Recognizers.Whisper.Models {
		seen[id] = "whisper"
	}
	for i, h := range cfg.Recognizers.OpenAI {
		if prev, ok := seen[h.ServeAs]; ok {
			errs = append(errs, fmt.Errorf("recognizers.openai[%d].serve_as %q already declared by %s backend", i, h.ServeAs, prev))
		}
		seen[h.ServeAs] = "openai"
	}

	if cfg.VAD.SileroModelPath == "" {
		slog.Warn("vad.silero_model_path is empty; speech detection falls back to the energy strategy")
	}
	if cfg.Diagnostics.PostgresDSN == "" {
		slog.Debug("diagnostics.postgres_dsn is empty; run diagnostics will not be recorded")
	}

	return errors.Join(errs...)
}

// SlogLevel converts the configured level to a [slog.Level].
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
