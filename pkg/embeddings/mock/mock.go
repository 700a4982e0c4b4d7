// Package mock provides a deterministic [embeddings.Provider] for tests.
package mock

import (
	"context"

	"github.com/longscribe/longscribe/pkg/embeddings"
)

// Compile-time assertion that Provider satisfies embeddings.Provider.
var _ embeddings.Provider = (*Provider)(nil)

// Provider returns scripted vectors. Vectors maps exact input text to its
// embedding; unmapped texts get a deterministic hash-derived vector, so two
// equal strings always embed identically and two different strings almost
// never do.
type Provider struct {
	Vectors map[string][]float32
	Dim     int
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := p.Vectors[text]; ok {
		return v, nil
	}
	return p.hashVector(text), nil
}

// EmbedBatch implements embeddings.Provider.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	if p.Dim > 0 {
		return p.Dim
	}
	return 8
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string { return "mock" }

// hashVector derives a stable pseudo-embedding from the text bytes (FNV-1a
// spread over the vector slots).
func (p *Provider) hashVector(text string) []float32 {
	dim := p.Dimensions()
	v := make([]float32, dim)
	var h uint64 = 14695981039346656037
	for i := 0; i < len(text); i++ {
		h ^= uint64(text[i])
		h *= 1099511628211
		v[i%dim] += float32(h%1000)/1000.0 - 0.5
	}
	return v
}
