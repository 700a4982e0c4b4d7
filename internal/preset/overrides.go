package preset

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Overrides is an explicit parameter bundle that replaces any subset of a
// preset's values. Nil fields keep the preset's value. This is the second
// form of the upstream run contract: callers either name a preset or hand in
// a preset plus overrides.
type Overrides struct {
	ChunkLength                 *time.Duration `yaml:"chunk_length"`
	Overlap                     *time.Duration `yaml:"overlap"`
	VADAggressiveness           *float64       `yaml:"vad_aggressiveness"`
	CompressionRatioThreshold   *float64       `yaml:"compression_ratio_threshold"`
	SemanticSimilarityThreshold *float64       `yaml:"semantic_similarity_threshold"`
	LoopingWindow               *int           `yaml:"looping_window"`
	Model                       *string        `yaml:"model"`
	ModelFallbackOrder          []string       `yaml:"model_fallback_order"`
	MaxConcurrency              *int           `yaml:"max_concurrency"`
	ChunkTimeout                *time.Duration `yaml:"chunk_timeout"`
}

// yamlOverrides mirrors Overrides with durations as strings, because the
// YAML decoder has no native representation for [time.Duration].
type yamlOverrides struct {
	ChunkLength                 *string  `yaml:"chunk_length"`
	Overlap                     *string  `yaml:"overlap"`
	VADAggressiveness           *float64 `yaml:"vad_aggressiveness"`
	CompressionRatioThreshold   *float64 `yaml:"compression_ratio_threshold"`
	SemanticSimilarityThreshold *float64 `yaml:"semantic_similarity_threshold"`
	LoopingWindow               *int     `yaml:"looping_window"`
	Model                       *string  `yaml:"model"`
	ModelFallbackOrder          []string `yaml:"model_fallback_order"`
	MaxConcurrency              *int     `yaml:"max_concurrency"`
	ChunkTimeout                *string  `yaml:"chunk_timeout"`
}

// UnmarshalYAML implements [yaml.Unmarshaler]. Duration fields accept Go
// duration strings ("20s", "1.5m").
func (o *Overrides) UnmarshalYAML(value *yaml.Node) error {
	var raw yamlOverrides
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parse := func(field string, s *string) (*time.Duration, error) {
		if s == nil {
			return nil, nil
		}
		d, err := time.ParseDuration(*s)
		if err != nil {
			return nil, fmt.Errorf("overrides.%s: %w", field, err)
		}
		return &d, nil
	}
	var err error
	if o.ChunkLength, err = parse("chunk_length", raw.ChunkLength); err != nil {
		return err
	}
	if o.Overlap, err = parse("overlap", raw.Overlap); err != nil {
		return err
	}
	if o.ChunkTimeout, err = parse("chunk_timeout", raw.ChunkTimeout); err != nil {
		return err
	}
	o.VADAggressiveness = raw.VADAggressiveness
	o.CompressionRatioThreshold = raw.CompressionRatioThreshold
	o.SemanticSimilarityThreshold = raw.SemanticSimilarityThreshold
	o.LoopingWindow = raw.LoopingWindow
	o.Model = raw.Model
	o.ModelFallbackOrder = raw.ModelFallbackOrder
	o.MaxConcurrency = raw.MaxConcurrency
	return nil
}

// Apply returns p with every non-nil override substituted. A non-empty
// ModelFallbackOrder pins the exact recogniser chain, bypassing the model
// table; it is stored by setting Model to the first entry and disabling
// auto selection, with the full order retained by the caller.
func (o *Overrides) Apply(p Params) Params {
	if o == nil {
		return p
	}
	if o.ChunkLength != nil {
		p.ChunkLength = *o.ChunkLength
	}
	if o.Overlap != nil {
		p.Overlap = *o.Overlap
	}
	if o.VADAggressiveness != nil {
		p.VADAggressiveness = *o.VADAggressiveness
	}
	if o.CompressionRatioThreshold != nil {
		p.CompressionRatioThreshold = *o.CompressionRatioThreshold
	}
	if o.SemanticSimilarityThreshold != nil {
		p.SemanticSimilarityThreshold = *o.SemanticSimilarityThreshold
	}
	if o.LoopingWindow != nil {
		p.LoopingWindow = *o.LoopingWindow
	}
	if o.Model != nil {
		p.Model = *o.Model
	}
	if len(o.ModelFallbackOrder) > 0 {
		p.Model = o.ModelFallbackOrder[0]
		p.AutoModelSelection = false
	}
	if o.MaxConcurrency != nil {
		p.MaxConcurrency = *o.MaxConcurrency
	}
	if o.ChunkTimeout != nil {
		p.ChunkTimeout = *o.ChunkTimeout
	}
	return p
}

// Chain returns the explicit fallback order when one was provided, otherwise
// nil (meaning: use the model table).
func (o *Overrides) Chain() []string {
	if o == nil || len(o.ModelFallbackOrder) == 0 {
		return nil
	}
	out := make([]string, len(o.ModelFallbackOrder))
	copy(out, o.ModelFallbackOrder)
	return out
}
