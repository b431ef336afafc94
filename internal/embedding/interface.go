// internal/embedding/interface.go
package embedding

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrUnknownProvider = errors.New("unknown embedding provider")

// Provider turns texts into vectors. Implementations must be safe for
// concurrent use once initialised.
type Provider interface {
	// Initialize configures the provider. Recognised keys depend on the provider
	// (model, base_url, api_key, batch_size).
	Initialize(config map[string]string) error

	GetName() string

	// Model names the underlying model; it is part of cache keys.
	Model() string

	EmbedDocuments(ctx context.Context, texts []string) ([]Vector, error)
}

// ProviderFactory creates an uninitialised provider.
type ProviderFactory func() Provider

var (
	registryMu sync.RWMutex
	providers  = make(map[string]ProviderFactory)
)

// Register makes a provider available under name.
func Register(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	providers[name] = factory
}

// NewProvider creates and initialises the named provider.
func NewProvider(name string, config map[string]string) (Provider, error) {
	registryMu.RLock()
	factory, exists := providers[name]
	registryMu.RUnlock()
	if !exists {
		return nil, ErrUnknownProvider
	}

	provider := factory()
	if err := provider.Initialize(config); err != nil {
		return nil, err
	}
	return provider, nil
}

// ListProviders returns registered provider names, sorted.
func ListProviders() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
