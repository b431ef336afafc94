package services

import (
	"context"
	"io"
	"sync"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/embedding"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/textutil"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

// vocabProvider gives every distinct content word its own dimension, so texts
// without shared words are exactly orthogonal.
type vocabProvider struct {
	mu    sync.Mutex
	index map[string]int
}

func newVocabEngine() *embedding.Engine {
	return embedding.NewEngine(&vocabProvider{index: map[string]int{}}, nil, quietLogger())
}

func (p *vocabProvider) Initialize(map[string]string) error { return nil }
func (p *vocabProvider) GetName() string                    { return "vocab" }
func (p *vocabProvider) Model() string                      { return "vocab" }

func (p *vocabProvider) EmbedDocuments(_ context.Context, texts []string) ([]embedding.Vector, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]embedding.Vector, len(texts))
	for i, text := range texts {
		vec := embedding.Vector{Sparse: map[uint64]float32{}}
		for _, w := range textutil.Words(text) {
			if textutil.IsStopword(w) {
				continue
			}
			idx, ok := p.index[w]
			if !ok {
				idx = len(p.index)
				p.index[w] = idx
			}
			vec.Sparse[uint64(idx)]++
		}
		out[i] = vec
	}
	return out, nil
}

func quietLogger() *utils.Logger {
	return utils.NewLogger(io.Discard, utils.ERROR)
}

func testMetrics() *utils.PipelineMetrics {
	return utils.NewPipelineMetricsWith(utils.NewMetricsCollector(), quietLogger())
}
