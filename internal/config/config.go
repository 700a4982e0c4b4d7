// Package config provides the configuration schema and loader for the
// longscribe transcription pipeline.
package config

import (
	"github.com/longscribe/longscribe/internal/preset"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// ScorerKind selects the semantic similarity scorer.
type ScorerKind string

const (
	// ScorerLexical uses string similarity only and needs no network.
	ScorerLexical ScorerKind = "lexical"

	// ScorerEmbedding scores with embedding cosine similarity and requires
	// an embeddings provider.
	ScorerEmbedding ScorerKind = "embedding"
)

// IsValid reports whether s is a recognised scorer kind.
func (s ScorerKind) IsValid() bool {
	return s == ScorerLexical || s == ScorerEmbedding
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// Preset names the parameter bundle the run starts from. Default:
	// balanced.
	Preset string `yaml:"preset"`

	// Overrides replaces individual preset values.
	Overrides *preset.Overrides `yaml:"overrides"`

	// Language is the expected language hint ("en", "de", ...), empty for
	// auto-detect.
	Language string `yaml:"language"`

	// InitialPrompt biases decoding of the first chunk.
	InitialPrompt string `yaml:"initial_prompt"`

	VAD         VADConfig         `yaml:"vad"`
	Recognizers RecognizersConfig `yaml:"recognizers"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings"`
	Filters     FiltersConfig     `yaml:"filters"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// VADConfig configures speech-region detection.
type VADConfig struct {
	// SileroModelPath points at the Silero VAD ONNX model. Empty disables
	// the Silero strategy, leaving only the energy fallback.
	SileroModelPath string `yaml:"silero_model_path"`
}

// RecognizersConfig declares the available recognition backends. A model
// referenced by the fallback chain but declared nowhere is silently skipped;
// a chain with no declared model at all fails the run.
type RecognizersConfig struct {
	Whisper WhisperConfig  `yaml:"whisper"`
	OpenAI  []HostedConfig `yaml:"openai"`
}

// WhisperConfig maps model IDs to local whisper.cpp model files.
type WhisperConfig struct {
	// Models maps a model ID ("large-v3", "medium", ...) to its ggml
	// weights path.
	Models map[string]string `yaml:"models"`
}

// HostedConfig declares one hosted recognition backend.
type HostedConfig struct {
	// ServeAs is the model ID this backend fills in the fallback chain
	// (e.g. "large-v3").
	ServeAs string `yaml:"serve_as"`

	// Model is the provider-side model name (e.g. "whisper-1").
	Model string `yaml:"model"`

	// APIKey authenticates against the provider. Empty falls back to the
	// provider SDK's environment lookup.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`
}

// EmbeddingsConfig configures the embeddings provider used by the embedding
// scorer and for verdict embeddings in diagnostics.
type EmbeddingsConfig struct {
	// Model is the embedding model name. Empty disables embeddings.
	Model string `yaml:"model"`

	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// FiltersConfig holds filter settings independent of the preset.
type FiltersConfig struct {
	// Scorer selects the semantic similarity scorer. Default: lexical.
	Scorer ScorerKind `yaml:"scorer"`
}

// DiagnosticsConfig configures the optional PostgreSQL diagnostics store.
type DiagnosticsConfig struct {
	// PostgresDSN enables diagnostics recording when non-empty.
	PostgresDSN string `yaml:"postgres_dsn"`

	// EmbeddingDimensions sizes the verdict embedding column. Required
	// when both diagnostics and embeddings are configured. Default: 1536.
	EmbeddingDimensions int `yaml:"embedding_dimensions"`
}

// MetricsConfig configures the OpenTelemetry metrics provider.
type MetricsConfig struct {
	// Enabled turns on the Prometheus exporter bridge.
	Enabled bool `yaml:"enabled"`
}
