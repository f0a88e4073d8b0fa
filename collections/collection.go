package collections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ggoodman/redis-collections-go/backend"
	"github.com/ggoodman/redis-collections-go/internal/logctx"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultAnonymousNamespace prefixes the keys of anonymous collections and is
// also the key of the set that records their ids.
const DefaultAnonymousNamespace = "collections:anonymous"

// Kind names a collection flavor.
type Kind string

const (
	KindList Kind = "list"
	KindSet  Kind = "set"
)

// Resolver resolves a logical backend name to a handle; "" selects the
// default handle. *registry.Registry implements it.
type Resolver interface {
	Resolve(ctx context.Context, name string) (backend.Backend, error)
}

// Option configures a collection at construction time.
type Option func(*options)

type options struct {
	name        string
	backend     backend.Backend
	backendName string
	namespace   string
	log         *slog.Logger
}

// WithName binds the collection to an explicit key, which may already exist.
// Without it the collection is anonymous.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithBackend binds the collection to b directly, bypassing the Resolver.
func WithBackend(b backend.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithBackendName selects a named handle from the Resolver.
func WithBackendName(name string) Option {
	return func(o *options) { o.backendName = name }
}

// WithAnonymousNamespace overrides DefaultAnonymousNamespace.
func WithAnonymousNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithLogger sets the logger for algorithm tracing (Debug level).
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Collection binds a key in the store to a borrowed backend handle. It is the
// shared base of Set and List.
type Collection struct {
	name      string
	anonID    string
	namespace string
	kind      Kind
	b         backend.Backend
	log       *slog.Logger

	commands map[string]commandFunc
	proxies  *xsync.MapOf[string, *Command]
}

func newCollection(ctx context.Context, kind Kind, commands map[string]commandFunc, r Resolver, opts []Option) (*Collection, error) {
	o := options{namespace: DefaultAnonymousNamespace}
	for _, opt := range opts {
		opt(&o)
	}

	b := o.backend
	if b == nil {
		if r == nil {
			return nil, errors.New("collections: no backend and no resolver")
		}
		var err error
		b, err = r.Resolve(ctx, o.backendName)
		if err != nil {
			return nil, err
		}
	}

	log := o.log
	if log == nil {
		log = slog.Default()
	}

	c := &Collection{
		name:      o.name,
		namespace: o.namespace,
		kind:      kind,
		b:         b,
		log:       log,
		commands:  commands,
		proxies:   xsync.NewMapOf[string, *Command](),
	}

	if c.name == "" {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")
		c.anonID = id
		c.name = c.namespace + ":" + id
		if _, err := b.SAdd(ctx, c.namespace, id); err != nil {
			return nil, fmt.Errorf("register anonymous %s %s: %w", kind, c.name, err)
		}
		log.DebugContext(c.opContext(ctx, "new"), "collections.anonymous.registered")
	}

	return c, nil
}

// Name returns the key the collection is stored under.
func (c *Collection) Name() string { return c.name }

// Kind returns the collection flavor.
func (c *Collection) Kind() Kind { return c.kind }

// Backend returns the borrowed handle.
func (c *Collection) Backend() backend.Backend { return c.b }

// Anonymous reports whether the name was generated.
func (c *Collection) Anonymous() bool { return c.anonID != "" }

// Exists reports whether the key currently exists in the store. Empty
// collections have no key.
func (c *Collection) Exists(ctx context.Context) (bool, error) {
	return c.b.Exists(ctx, c.name)
}

// Delete removes the key and, for anonymous collections, its discovery entry.
// The collection value stays usable; the next write recreates the key.
func (c *Collection) Delete(ctx context.Context) error {
	if _, err := c.b.Del(ctx, c.name); err != nil {
		return err
	}
	if c.anonID != "" {
		if _, err := c.b.SRem(ctx, c.namespace, c.anonID); err != nil {
			return err
		}
	}
	return nil
}

// Command returns the backend command called name (case-insensitive) bound to
// this collection's key. Only commands in the kind's allow-list are available;
// others fail with *UnsupportedOperationError. The same *Command is returned
// for repeated lookups of a name.
func (c *Collection) Command(name string) (*Command, error) {
	lname := strings.ToLower(name)
	fn, ok := c.commands[lname]
	if !ok {
		return nil, &UnsupportedOperationError{Kind: c.kind, Operation: name}
	}
	cmd, _ := c.proxies.LoadOrCompute(lname, func() *Command {
		return &Command{name: lname, key: c.name, b: c.b, fn: fn}
	})
	return cmd, nil
}

// Call is shorthand for Command(name) followed by Call.
func (c *Collection) Call(ctx context.Context, name string, args ...any) (any, error) {
	cmd, err := c.Command(name)
	if err != nil {
		return nil, err
	}
	return cmd.Call(ctx, args...)
}

// Commands lists the names accepted by Command.
func (c *Collection) Commands() []string {
	return commandNames(c.commands)
}

func (c *Collection) opContext(ctx context.Context, op string) context.Context {
	ctx = logctx.WithCollection(ctx, &logctx.CollectionData{Name: c.name, Kind: string(c.kind), Anonymous: c.Anonymous()})
	return logctx.WithOperation(ctx, &logctx.OperationData{Name: op})
}

// marker returns a value unique to one call, used as a temporary placeholder
// inside the list.
func (c *Collection) marker(op string) string {
	return c.namespace + ":marker:" + op + ":" + uuid.NewString()
}

// copyOptions derives options for a copy of c: same handle and namespace
// unless opts override them. A named target must not exist yet.
func (c *Collection) copyOptions(ctx context.Context, opts []Option) ([]Option, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	target := c.b
	if o.backend != nil {
		target = o.backend
	}
	if o.name != "" {
		exists, err := target.Exists(ctx, o.name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("%w: %s", ErrKeyExists, o.name)
		}
	}
	base := []Option{WithBackend(c.b), WithAnonymousNamespace(c.namespace), WithLogger(c.log)}
	return append(base, opts...), nil
}

// AnonymousIDs returns the ids recorded in the discovery set ns (use
// DefaultAnonymousNamespace unless collections were built with
// WithAnonymousNamespace). The collection keys are ns + ":" + id.
func AnonymousIDs(ctx context.Context, b backend.Backend, ns string) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	var cursor uint64
	for {
		page, next, err := b.SScan(ctx, ns, cursor, "", scanCount)
		if err != nil {
			return nil, err
		}
		for _, id := range page {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}

// CollectAnonymous deletes every anonymous collection recorded under ns and
// drops its id from the discovery set. It returns how many collection keys
// were actually deleted; ids whose collection was empty count for nothing.
func CollectAnonymous(ctx context.Context, b backend.Backend, ns string) (int64, error) {
	ids, err := AnonymousIDs(ctx, b, ns)
	if err != nil {
		return 0, err
	}
	var deleted int64
	for _, id := range ids {
		n, err := b.Del(ctx, ns+":"+id)
		if err != nil {
			return deleted, err
		}
		deleted += n
		if _, err := b.SRem(ctx, ns, id); err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}
