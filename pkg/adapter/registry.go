package adapter

import (
	"context"
	"sort"
	"sync"

	"github.com/Sternrassler/commerce-client/pkg/client"
	"github.com/Sternrassler/commerce-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultMetaKey is the reserved top-level key carrying response metadata.
const DefaultMetaKey = "meta"

// Doer executes API requests. *client.Executor implements it.
type Doer interface {
	Do(ctx context.Context, req client.Request) (*client.Response, error)
}

// Factory builds the adapter of one resource type for a session.
type Factory func(s *Session) *Adapter

// Registry maps resource tags (collection keys such as "price_lists") to
// adapter factories. It is populated once at start-up.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a factory to a tag, replacing any previous binding.
func (r *Registry) Register(tag string, f Factory) {
	if f == nil {
		panic("adapter factory cannot be nil")
	}
	r.factories[tag] = f
}

// Resource registers a plain adapter for res under its collection key.
func (r *Registry) Resource(res Resource) {
	r.Register(res.CollectionKey, func(s *Session) *Adapter {
		return New(s, res)
	})
}

// Lookup returns the factory bound to tag.
func (r *Registry) Lookup(tag string) (Factory, bool) {
	f, ok := r.factories[tag]
	return f, ok
}

// Names returns the registered tags, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SessionConfig holds the API conventions shared by a session's adapters.
type SessionConfig struct {
	// PaginationHeader names the header carrying listing metadata (default: X-Pagination).
	PaginationHeader string
	// MetaKey is the reserved body key skipped by sideloading (default: meta).
	MetaKey string
	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Session is the client context of one API session: it owns one adapter per
// registered resource type, created on first use.
type Session struct {
	doer     Doer
	registry *Registry
	config   SessionConfig
	logger   zerolog.Logger

	mu       sync.Mutex
	adapters map[string]*Adapter
}

// NewSession creates a session executing requests through doer.
func NewSession(doer Doer, registry *Registry, cfg SessionConfig) *Session {
	if registry == nil {
		registry = NewRegistry()
	}
	if cfg.MetaKey == "" {
		cfg.MetaKey = DefaultMetaKey
	}
	if cfg.PaginationHeader == "" {
		cfg.PaginationHeader = pagination.DefaultHeader
	}

	logger := log.With().Str("component", "commerce-adapter").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Session{
		doer:     doer,
		registry: registry,
		config:   cfg,
		logger:   logger,
		adapters: make(map[string]*Adapter),
	}
}

// Adapter returns the session's adapter for tag, building it on first use.
func (s *Session) Adapter(tag string) (*Adapter, bool) {
	s.mu.Lock()
	a, ok := s.adapters[tag]
	s.mu.Unlock()
	if ok {
		return a, true
	}

	factory, ok := s.registry.Lookup(tag)
	if !ok {
		return nil, false
	}
	built := factory(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.adapters[tag]; ok {
		return a, true
	}
	s.adapters[tag] = built
	return built, true
}

// adapterForKey resolves a body key naming a resource by collection key or by
// singular root key.
func (s *Session) adapterForKey(key string) (*Adapter, bool) {
	if a, ok := s.Adapter(key); ok {
		return a, true
	}
	for _, tag := range s.registry.Names() {
		a, ok := s.Adapter(tag)
		if ok && a.resource.RootKey == key {
			return a, true
		}
	}
	return nil, false
}
