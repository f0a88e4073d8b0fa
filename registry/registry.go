// Package registry resolves logical backend names to shared backend.Backend
// handles. A Registry is an ordinary value owned by the application: build one
// at startup, register the handles the program needs, hand it to collection
// constructors, and Close it on shutdown.
//
// When nothing is registered as default, Default lazily dials a Redis handle
// from PYREDIS_HOST / PYREDIS_PORT (falling back to localhost:6379) and
// caches it for the lifetime of the Registry.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/ggoodman/redis-collections-go/backend"
	"github.com/ggoodman/redis-collections-go/backend/redisbackend"
)

// DefaultName is the name used by Register when none is given.
const DefaultName = "default"

var (
	// ErrNotFound is returned when no handle is registered under a name.
	ErrNotFound = errors.New("registry: backend not found")
	// ErrDuplicateName is returned when registering a name twice.
	ErrDuplicateName = errors.New("registry: backend name already registered")
	// ErrClosed is returned by every method once Close has been called.
	ErrClosed = errors.New("registry: closed")
)

// Factory builds the default handle on first use.
type Factory func(ctx context.Context) (backend.Backend, error)

// Option configures a Registry.
type Option func(*Registry)

// WithDefaultFactory replaces the env-derived Redis factory used to build the
// default handle lazily.
func WithDefaultFactory(f Factory) Option {
	return func(r *Registry) { r.factory = f }
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// Registry maps logical names to backend handles plus one default handle.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	handles map[string]backend.Backend
	def     backend.Backend
	factory Factory
	log     *slog.Logger
	closed  bool
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		handles: make(map[string]backend.Backend),
		factory: defaultFactory,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultFactory(ctx context.Context) (backend.Backend, error) {
	return redisbackend.NewFromEnv(ctx)
}

// Register binds b to name ("" means DefaultName). If isDefault is set, b also
// becomes the default handle, replacing any previous default.
func (r *Registry) Register(b backend.Backend, name string, isDefault bool) error {
	if b == nil {
		return fmt.Errorf("registry: nil backend for %q", name)
	}
	if name == "" {
		name = DefaultName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, ok := r.handles[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	r.handles[name] = b
	if isDefault {
		r.def = b
	}
	r.log.Debug("registry.register", slog.String("name", name), slog.Bool("default", isDefault))
	return nil
}

// Resolve returns the default handle when name is empty, otherwise the handle
// registered under name.
func (r *Registry) Resolve(ctx context.Context, name string) (backend.Backend, error) {
	if name == "" {
		return r.Default(ctx)
	}
	return r.Get(name)
}

// Get returns the handle registered under name, or ErrNotFound.
func (r *Registry) Get(name string) (backend.Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	b, ok := r.handles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return b, nil
}

// Default returns the default handle, building it with the factory on first
// use. Construction is serialized so concurrent first callers share one
// handle; a failed construction is not cached and will be retried by the next
// caller.
func (r *Registry) Default(ctx context.Context) (backend.Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.def != nil {
		return r.def, nil
	}
	b, err := r.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: build default backend: %w", err)
	}
	r.def = b
	r.log.Info("registry.default.created")
	return b, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.handles))
	for name := range r.handles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Close closes every distinct handle held by the registry, including a lazily
// built default, and joins their errors.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	seen := make(map[backend.Backend]struct{})
	var toClose []backend.Backend
	collect := func(b backend.Backend) {
		if b == nil {
			return
		}
		if _, ok := seen[b]; ok {
			return
		}
		seen[b] = struct{}{}
		toClose = append(toClose, b)
	}
	for _, name := range slices.Sorted(maps.Keys(r.handles)) {
		collect(r.handles[name])
	}
	collect(r.def)
	r.handles = nil
	r.def = nil
	r.mu.Unlock()

	var errs []error
	for _, b := range toClose {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
