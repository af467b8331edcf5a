package sources

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string]Provider)
	mu       sync.RWMutex
)

// Register registers a provider for a specific source type
func Register(provider Provider) {
	mu.Lock()
	defer mu.Unlock()
	registry[provider.Type()] = provider
}

// Get retrieves a provider for a specific source type
func Get(sourceType string) (Provider, error) {
	mu.RLock()
	defer mu.RUnlock()
	provider, ok := registry[sourceType]
	if !ok {
		return nil, fmt.Errorf("provider not found for source type: %s", sourceType)
	}
	return provider, nil
}

// List returns all registered source types, sorted
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
