// internal/embedding/local.go
package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/textutil"
)

func init() {
	Register("local", func() Provider { return &HashingProvider{} })
}

// HashingProvider is an in-process embedder over word unigrams and bigrams.
// Each feature is keyed by its full 64-bit FNV-1a hash in a sparse vector, so
// texts without shared content words score exactly zero. It needs no model
// download and is deterministic.
type HashingProvider struct{}

func NewHashingProvider() *HashingProvider {
	return &HashingProvider{}
}

func (p *HashingProvider) Initialize(map[string]string) error { return nil }

func (p *HashingProvider) GetName() string { return "local" }

func (p *HashingProvider) Model() string { return "hashing-fnv64" }

func (p *HashingProvider) EmbedDocuments(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.embed(text)
	}
	return out, nil
}

func (p *HashingProvider) embed(text string) Vector {
	weights := make(map[uint64]float64)

	var content []string
	for _, w := range textutil.Words(text) {
		if len(w) > 1 && !textutil.IsStopword(w) {
			content = append(content, w)
		}
	}
	for i, w := range content {
		weights[featureKey(w)] += 1.0
		if i > 0 {
			weights[featureKey(content[i-1]+" "+w)] += 0.5
		}
	}

	var norm float64
	for _, v := range weights {
		norm += v * v
	}
	out := Vector{Sparse: make(map[uint64]float32, len(weights))}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for k, v := range weights {
		out.Sparse[k] = float32(v / norm)
	}
	return out
}

func featureKey(feature string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(feature))
	return h.Sum64()
}
