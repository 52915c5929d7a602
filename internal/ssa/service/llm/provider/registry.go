package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kiosk404/sankhya-agent/internal/ssa/service/llm/spi"
)

// Registry is a thread-safe registry of completion provider plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]spi.Plugin
}

func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]spi.Plugin)}
}

// Register adds a plugin. Returns an error if the name is taken.
func (r *Registry) Register(p spi.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[p.Name]; ok {
		return fmt.Errorf("provider %s is already registered", p.Name)
	}
	r.plugins[p.Name] = p
	return nil
}

// MustRegister adds a plugin and panics if the name is taken.
func (r *Registry) MustRegister(p spi.Plugin) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (spi.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	if !ok {
		return spi.Plugin{}, fmt.Errorf("provider %s is not registered", name)
	}
	return p, nil
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge adds every plugin of other.
func (r *Registry) Merge(other *Registry) error {
	for _, name := range other.List() {
		p, _ := other.Get(name)
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}
