// internal/embedding/engine.go
package embedding

import (
	"context"
	"fmt"
	"strconv"
	"time"

	apperrors "github.com/Mohammedfaiz-27/newspaper-PDF/internal/errors"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

// Options selects and configures the provider behind an Engine.
type Options struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	BatchSize int
	Cache     Cache
	Logger    *utils.Logger
}

// Engine is the shared embedding model. It is built once at startup, never
// mutated afterwards, and safe for concurrent use by all jobs.
type Engine struct {
	provider Provider
	cache    Cache
	dims     int
	logger   *utils.Logger
}

// New builds the configured provider and probes it once, so an unreachable
// model fails at startup rather than in the middle of a job.
func New(ctx context.Context, opts Options) (*Engine, error) {
	config := map[string]string{
		"model":    opts.Model,
		"base_url": opts.BaseURL,
		"api_key":  opts.APIKey,
	}
	if opts.BatchSize > 0 {
		config["batch_size"] = strconv.Itoa(opts.BatchSize)
	}

	provider, err := NewProvider(opts.Provider, config)
	if err != nil {
		return nil, apperrors.NewUnavailableError(fmt.Sprintf("embedding provider %q", opts.Provider), err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	probe, err := provider.EmbedDocuments(probeCtx, []string{"newspaper"})
	if err != nil {
		return nil, apperrors.NewUnavailableError(fmt.Sprintf("embedding model %q unavailable", provider.Model()), err)
	}
	if len(probe) != 1 || probe[0].IsZero() {
		return nil, apperrors.NewUnavailableError(fmt.Sprintf("embedding model %q returned no vector", provider.Model()), nil)
	}

	engine := NewEngine(provider, opts.Cache, opts.Logger)
	if !probe[0].IsSparse() {
		engine.dims = len(probe[0].Dense)
	}
	return engine, nil
}

// NewEngine wraps an already initialised provider. cache may be nil.
func NewEngine(provider Provider, cache Cache, logger *utils.Logger) *Engine {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &Engine{provider: provider, cache: cache, logger: logger}
}

func (e *Engine) Model() string { return e.provider.Model() }

func (e *Engine) ProviderName() string { return e.provider.GetName() }

// Dimensions is the dense vector length reported by the startup probe, 0 for
// sparse providers or when unknown.
func (e *Engine) Dimensions() int { return e.dims }

// Embed embeds a single text.
func (e *Engine) Embed(ctx context.Context, text string) (Vector, error) {
	vectors, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return Vector{}, err
	}
	return vectors[0], nil
}

// EmbedMany embeds texts in one provider call, serving repeats from the cache.
// The result is aligned with texts.
func (e *Engine) EmbedMany(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	model := e.provider.Model()
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if e.cache != nil {
			if vec, ok := e.cache.Get(ctx, CacheKey(model, text)); ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	start := time.Now()
	vectors, err := e.provider.EmbedDocuments(ctx, missing)
	if err != nil {
		return nil, apperrors.NewUnavailableError("embedding failed", err)
	}
	if len(vectors) != len(missing) {
		return nil, apperrors.NewProcessingError(
			fmt.Sprintf("embedding returned %d vectors for %d texts", len(vectors), len(missing)), nil)
	}
	e.logger.Debug("embedded texts", map[string]interface{}{
		"model":    model,
		"count":    len(missing),
		"cached":   len(texts) - len(missing),
		"duration": time.Since(start).Milliseconds(),
	})

	for j, vec := range vectors {
		out[missingIdx[j]] = vec
		if e.cache != nil {
			e.cache.Set(ctx, CacheKey(model, missing[j]), vec)
		}
	}
	return out, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either vector is zero or they come from different spaces.
func CosineSimilarity(a, b Vector) float64 {
	d, ok := dot(a, b)
	if !ok {
		return 0
	}
	na, nb := a.norm(), b.norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return d / (na * nb)
}

// SimilarityMatrix returns the pairwise cosine similarities. Each pair is
// computed once, so the matrix is exactly symmetric.
func SimilarityMatrix(vectors []Vector) [][]float64 {
	n := len(vectors)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s := CosineSimilarity(vectors[i], vectors[j])
			m[i][j] = s
			m[j][i] = s
		}
	}
	return m
}
