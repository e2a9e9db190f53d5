package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sondera-ai/sondera/pkg/provider/faceattr"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	faceattr map[string]func(ProviderEntry) (faceattr.Analyzer, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		faceattr: make(map[string]func(ProviderEntry) (faceattr.Analyzer, error)),
	}
}

// RegisterFaceAttr registers a face attribute analyzer factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterFaceAttr(name string, factory func(ProviderEntry) (faceattr.Analyzer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.faceattr[name] = factory
}

// CreateFaceAttr instantiates an analyzer using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateFaceAttr(entry ProviderEntry) (faceattr.Analyzer, error) {
	r.mu.RLock()
	factory, ok := r.faceattr[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: faceattr/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
