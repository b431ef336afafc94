// internal/di/container.go
package di

import (
	"sort"
	"sync"
)

// Names under which the application registers its services.
const (
	ServiceConfig    = "config"
	ServiceLogger    = "logger"
	ServiceMetrics   = "metrics"
	ServiceStore     = "store"
	ServiceEmbedding = "embedding"
	ServiceLLM       = "llm"
	ServiceEnhancer  = "enhancer"
	ServiceKeywords  = "keywords"
	ServiceRelated   = "related"
	ServiceSearch    = "search"
	ServiceProgress  = "progress"
	ServiceJobs      = "jobs"
)

// Container is a name-keyed service registry shared by app wiring and the router.
type Container struct {
	services map[string]interface{}
	mutex    sync.RWMutex
}

var (
	globalContainer *Container
	once            sync.Once
)

func NewContainer() *Container {
	return &Container{
		services: make(map[string]interface{}),
	}
}

// GetContainer returns the process-wide container.
func GetContainer() *Container {
	once.Do(func() {
		globalContainer = NewContainer()
	})
	return globalContainer
}

// Register stores service under name, replacing any previous entry.
func (c *Container) Register(name string, service interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.services[name] = service
}

// Get returns the service registered under name, or nil.
func (c *Container) Get(name string) interface{} {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.services[name]
}

func (c *Container) Has(name string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	_, exists := c.services[name]
	return exists
}

// GetNames lists registered names in sorted order.
func (c *Container) GetNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
