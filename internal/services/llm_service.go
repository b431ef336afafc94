// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/llm"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

var ErrLLMNotReady = errors.New("llm service not ready")

// LLMService wraps one text-generation provider with a response cache and
// JSON extraction. It is constructed once and shared by all jobs.
type LLMService struct {
	provider     llm.Provider
	providerName string
	cache        *LLMCache
	metrics      *utils.PipelineMetrics
	readyState   string
}

// LLMCache keeps cleaned completion texts keyed by request hash.
type LLMCache struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
	maxEntries int
}

type CacheEntry struct {
	Text      string
	CreatedAt time.Time
}

// NewLLMService initialises the named provider. A failed initialisation
// returns an error together with a disabled service, so callers can decide
// whether to run without enhancement.
func NewLLMService(providerName string, config map[string]string, metrics *utils.PipelineMetrics) (*LLMService, error) {
	s := NewEmptyLLMService(metrics)
	provider, err := llm.GetProvider(providerName, config)
	if err != nil {
		s.readyState = fmt.Sprintf("provider %s unavailable: %v", providerName, err)
		return s, err
	}
	s.provider = provider
	s.providerName = providerName
	s.readyState = "ready"
	return s, nil
}

// NewLLMServiceWithProvider wraps an initialised provider.
func NewLLMServiceWithProvider(provider llm.Provider, metrics *utils.PipelineMetrics) *LLMService {
	s := NewEmptyLLMService(metrics)
	s.provider = provider
	s.providerName = provider.GetName()
	s.readyState = "ready"
	return s
}

// NewEmptyLLMService returns a service that reports not ready.
func NewEmptyLLMService(metrics *utils.PipelineMetrics) *LLMService {
	if metrics == nil {
		metrics = utils.NewPipelineMetrics()
	}
	return &LLMService{
		cache: &LLMCache{
			cache:      make(map[string]*CacheEntry),
			expiration: 30 * time.Minute,
			maxEntries: 1000,
		},
		metrics:    metrics,
		readyState: "not configured",
	}
}

func (s *LLMService) IsReady() bool {
	return s != nil && s.provider != nil
}

func (s *LLMService) GetReadyState() string {
	if s == nil {
		return "not configured"
	}
	return s.readyState
}

func (s *LLMService) GetProviderName() string {
	return s.providerName
}

// CompleteText runs a plain completion and returns the trimmed text.
func (s *LLMService) CompleteText(ctx context.Context, prompt, systemPrompt string, temperature float32) (string, error) {
	if !s.IsReady() {
		return "", ErrLLMNotReady
	}
	resp, err := s.complete(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Temperature:  temperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// CreateStructuredCompletion asks for a JSON answer and decodes it into outputSchema.
func (s *LLMService) CreateStructuredCompletion(ctx context.Context, prompt string, systemPrompt string, outputSchema interface{}) error {
	if !s.IsReady() {
		return ErrLLMNotReady
	}

	model := s.provider.DefaultModel()
	cacheKey := s.generateCacheKey(prompt, systemPrompt, model)
	if text, ok := s.cache.get(cacheKey); ok {
		if json.Unmarshal([]byte(text), outputSchema) == nil {
			return nil
		}
	}

	structuredSystemPrompt := systemPrompt
	if systemPrompt != "" {
		structuredSystemPrompt += "\n\n"
	}
	structuredSystemPrompt += "Return your response in valid JSON format, following the provided output schema, without adding explanations or preambles."

	resp, err := s.complete(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: structuredSystemPrompt,
		Temperature:  0.3,
		Model:        model,
		JSONOutput:   true,
	})
	if err != nil {
		return err
	}

	text := cleanJSONString(resp.Text)
	if err := json.Unmarshal([]byte(text), outputSchema); err != nil {
		return fmt.Errorf("failed to parse AI response into structured data: %w", err)
	}

	s.cache.save(cacheKey, text)
	return nil
}

func (s *LLMService) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := s.provider.CompleteText(ctx, req)
	if err != nil {
		s.metrics.RecordError("llm", s.providerName)
		return nil, err
	}
	s.metrics.RecordLLMRequest(s.providerName, resp.ModelName, resp.TokensUsed, time.Since(start))
	return resp, nil
}

func (s *LLMService) generateCacheKey(prompt, systemPrompt, model string) string {
	hashInput := fmt.Sprintf("%s:::%s:::%s:::%s", prompt, systemPrompt, model, s.providerName)
	return fmt.Sprintf("%x", md5.Sum([]byte(hashInput)))
}

func (c *LLMCache) get(key string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[key]
	if !exists || time.Since(entry.CreatedAt) > c.expiration {
		return "", false
	}
	return entry.Text, true
}

func (c *LLMCache) save(key, text string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = &CacheEntry{Text: text, CreatedAt: time.Now()}
	if len(c.cache) > c.maxEntries {
		c.cleanupOldest(c.maxEntries / 10)
	}
}

func (c *LLMCache) cleanupOldest(count int) {
	type keyAge struct {
		key string
		age time.Time
	}

	entries := make([]keyAge, 0, len(c.cache))
	for k, v := range c.cache {
		entries = append(entries, keyAge{k, v.CreatedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].age.Before(entries[j].age)
	})

	for i := 0; i < count && i < len(entries); i++ {
		delete(c.cache, entries[i].key)
	}
}

var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\ufeff", "",
	"\u00a0", " ",
	"\u2028", "\n",
	"\u2029", "\n",
)

// cleanJSONString cuts the first balanced JSON object or array out of a model
// answer, dropping markdown fences, zero-width characters and any preamble.
func cleanJSONString(s string) string {
	if s == "" {
		return s
	}

	s = jsonNoiseReplacer.Replace(s)
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	s = s[start:]

	openCh, closeCh := byte('{'), byte('}')
	if s[0] == '[' {
		openCh, closeCh = '[', ']'
	}

	balance := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		char := s[i]
		if escaped {
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch char {
		case openCh:
			balance++
		case closeCh:
			balance--
			if balance == 0 {
				return strings.TrimSpace(s[:i+1])
			}
		}
	}

	if end := strings.LastIndexByte(s, closeCh); end != -1 {
		return strings.TrimSpace(s[:end+1])
	}
	return s
}
