package quote

import (
	"strings"
	"sync"
)

// Asset is a tradable instrument known to a provider.
type Asset struct {
	Symbol string
	Name   string
}

// Registry caches resolved symbols and the provider's asset list in a
// thread-safe manner.
type Registry struct {
	mu       sync.RWMutex
	resolved map[string]string // normalized query → ticker
	assets   []Asset
}

func NewRegistry() *Registry {
	return &Registry{resolved: make(map[string]string)}
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Lookup returns a cached resolution for text.
func (r *Registry) Lookup(text string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.resolved[normalize(text)]
	return t, ok
}

// Remember caches text → ticker.
func (r *Registry) Remember(text, ticker string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved[normalize(text)] = ticker
}

// HasAssets reports whether an asset list has been loaded.
func (r *Registry) HasAssets() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets) > 0
}

// SetAssets replaces the asset list.
func (r *Registry) SetAssets(assets []Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets = append([]Asset(nil), assets...)
}

// Add appends one asset.
func (r *Registry) Add(a Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets = append(r.assets, a)
}

// Search finds an asset by exact ticker, then by exact name, then by the
// shortest name containing text. Matching is case-insensitive.
func (r *Registry) Search(text string) (Asset, bool) {
	q := normalize(text)
	if q == "" {
		return Asset{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.assets {
		if strings.ToLower(a.Symbol) == q {
			return a, true
		}
	}
	for _, a := range r.assets {
		if strings.ToLower(a.Name) == q {
			return a, true
		}
	}
	var best Asset
	found := false
	for _, a := range r.assets {
		if strings.Contains(strings.ToLower(a.Name), q) {
			if !found || len(a.Name) < len(best.Name) {
				best, found = a, true
			}
		}
	}
	return best, found
}
