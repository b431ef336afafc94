// internal/embedding/langchain.go
package embedding

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

func init() {
	Register("ollama", func() Provider { return &LangChainProvider{name: "ollama"} })
	Register("openai", func() Provider { return &LangChainProvider{name: "openai"} })
}

// LangChainProvider embeds through a langchaingo client (Ollama or OpenAI).
type LangChainProvider struct {
	name     string
	model    string
	embedder embeddings.Embedder
}

func (p *LangChainProvider) Initialize(config map[string]string) error {
	batchSize := 32
	if v := config["batch_size"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			batchSize = n
		}
	}

	var client embeddings.EmbedderClient
	switch p.name {
	case "ollama":
		p.model = config["model"]
		if p.model == "" {
			p.model = "nomic-embed-text"
		}
		opts := []ollama.Option{ollama.WithModel(p.model)}
		if url := config["base_url"]; url != "" {
			opts = append(opts, ollama.WithServerURL(url))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return fmt.Errorf("create ollama client: %w", err)
		}
		client = llm
	case "openai":
		p.model = config["model"]
		if p.model == "" {
			p.model = "text-embedding-3-small"
		}
		if config["api_key"] == "" {
			return fmt.Errorf("openai embeddings need an API key")
		}
		opts := []openai.Option{
			openai.WithToken(config["api_key"]),
			openai.WithEmbeddingModel(p.model),
		}
		if url := config["base_url"]; url != "" {
			opts = append(opts, openai.WithBaseURL(url))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return fmt.Errorf("create openai client: %w", err)
		}
		client = llm
	default:
		return ErrUnknownProvider
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(true),
	)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}
	p.embedder = embedder
	return nil
}

func (p *LangChainProvider) GetName() string { return p.name }

func (p *LangChainProvider) Model() string { return p.model }

func (p *LangChainProvider) EmbedDocuments(ctx context.Context, texts []string) ([]Vector, error) {
	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%s embeddings: %w", p.name, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%s embeddings: got %d vectors for %d texts", p.name, len(vectors), len(texts))
	}
	out := make([]Vector, len(vectors))
	for i, v := range vectors {
		out[i] = DenseVector(v)
	}
	return out, nil
}
