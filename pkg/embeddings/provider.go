// Package embeddings defines the Provider interface for text-embedding
// backends.
//
// The hallucination filter pipeline can score semantic similarity either
// lexically or as cosine similarity between embedding vectors; this package
// is the boundary for the latter. The diagnostic store also embeds dropped
// segment texts so that filter thresholds can be calibrated offline.
//
// Implementations must be safe for concurrent use.
package embeddings

import (
	"context"
	"math"
)

// Provider is the abstraction over any text-embedding backend. Every vector
// returned by one Provider instance has the same dimensionality; callers
// must not mix vectors from different instances in one similarity
// computation.
type Provider interface {
	// Embed computes the embedding vector for a single text string.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch computes vectors for several texts in one backend call.
	// The i-th result corresponds to texts[i]; partial results are never
	// returned.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed vector length produced by this provider.
	Dimensions() int

	// ModelID returns the backend model identifier, for logging and for
	// keeping the diagnostic store's vector column consistent.
	ModelID() string
}

// Cosine returns the cosine similarity of two vectors in [-1, 1]. Returns 0
// when either vector is zero or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
