// internal/llm/providers/google/google.go
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/llm"
)

func init() {
	llm.Register("google", func() llm.Provider {
		return &Provider{baseURL: "https://generativelanguage.googleapis.com/v1beta"}
	})
}

// Provider talks to the Gemini generateContent REST endpoint.
type Provider struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	defaultModel string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey := config["api_key"]
	if apiKey == "" {
		return errors.New("gemini API key not provided")
	}
	p.apiKey = apiKey
	p.client = &http.Client{Timeout: 60 * time.Second}

	p.defaultModel = "gemini-2.5-flash"
	if model := config["default_model"]; model != "" {
		p.defaultModel = strings.TrimPrefix(model, "models/")
	}
	if baseURL := config["base_url"]; baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}
	return nil
}

func (p *Provider) GetName() string {
	return "google gemini"
}

func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	generationConfig := map[string]interface{}{
		"temperature": req.Temperature,
	}
	if req.MaxTokens > 0 {
		generationConfig["maxOutputTokens"] = req.MaxTokens
	}
	if req.TopP > 0 {
		generationConfig["topP"] = req.TopP
	}
	if len(req.StopWords) > 0 {
		generationConfig["stopSequences"] = req.StopWords
	}
	if req.JSONOutput {
		generationConfig["responseMimeType"] = "application/json"
	}

	requestBody := map[string]interface{}{
		"contents":         []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		"generationConfig": generationConfig,
	}
	if req.SystemPrompt != "" {
		requestBody["systemInstruction"] = content{Parts: []part{{Text: req.SystemPrompt}}}
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	apiURL := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 64<<10))
		var errorResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &errorResp) == nil && errorResp.Error.Message != "" {
			return nil, fmt.Errorf("gemini API error (%d): %s", httpResp.StatusCode, errorResp.Error.Message)
		}
		return nil, fmt.Errorf("gemini API error (%d): %s", httpResp.StatusCode, string(body))
	}

	var response struct {
		Candidates []struct {
			Content      content `json:"content"`
			FinishReason string  `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(response.Candidates) == 0 {
		return nil, errors.New("gemini returned no candidates")
	}

	var resultText strings.Builder
	for _, pt := range response.Candidates[0].Content.Parts {
		resultText.WriteString(pt.Text)
	}

	return &llm.CompletionResponse{
		Text:         resultText.String(),
		FinishReason: response.Candidates[0].FinishReason,
		TokensUsed:   response.UsageMetadata.TotalTokenCount,
		PromptTokens: response.UsageMetadata.PromptTokenCount,
		OutputTokens: response.UsageMetadata.CandidatesTokenCount,
		ModelName:    model,
		ProviderName: p.GetName(),
	}, nil
}
