// internal/llm/providers/ollama/ollama.go
package ollama

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	lcollama "github.com/tmc/langchaingo/llms/ollama"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/llm"
)

func init() {
	llm.Register("ollama", func() llm.Provider { return &Provider{} })
}

// Provider runs completions against a local Ollama server through langchaingo.
type Provider struct {
	model     string
	serverURL string
	client    llms.Model
}

func (p *Provider) Initialize(config map[string]string) error {
	p.model = config["default_model"]
	if p.model == "" {
		p.model = "llama3.1"
	}
	p.serverURL = config["base_url"]

	opts := []lcollama.Option{lcollama.WithModel(p.model)}
	if p.serverURL != "" {
		opts = append(opts, lcollama.WithServerURL(p.serverURL))
	}
	client, err := lcollama.New(opts...)
	if err != nil {
		return fmt.Errorf("create ollama client: %w", err)
	}
	p.client = client
	return nil
}

func (p *Provider) GetName() string { return "ollama" }

func (p *Provider) DefaultModel() string { return p.model }

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var messages []llms.MessageContent
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	callOpts := []llms.CallOption{llms.WithTemperature(float64(req.Temperature))}
	if req.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.TopP > 0 {
		callOpts = append(callOpts, llms.WithTopP(float64(req.TopP)))
	}
	if len(req.StopWords) > 0 {
		callOpts = append(callOpts, llms.WithStopWords(req.StopWords))
	}
	if req.JSONOutput {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	completion, err := p.client.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("ollama completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("ollama returned no choices")
	}

	choice := completion.Choices[0]
	resp := &llm.CompletionResponse{
		Text:         choice.Content,
		FinishReason: choice.StopReason,
		ModelName:    p.model,
		ProviderName: p.GetName(),
	}
	if v, ok := choice.GenerationInfo["TotalTokens"].(int); ok {
		resp.TokensUsed = v
	}
	return resp, nil
}
