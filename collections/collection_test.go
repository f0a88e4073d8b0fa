package collections

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ggoodman/redis-collections-go/backend"
	"github.com/ggoodman/redis-collections-go/backend/memorybackend"
	"github.com/ggoodman/redis-collections-go/backend/redisbackend"
	"github.com/ggoodman/redis-collections-go/internal/logctx"
	"github.com/ggoodman/redis-collections-go/registry"
	"github.com/redis/go-redis/v9"
)

// forEachBackend runs fn against a fresh in-memory backend and a fresh
// miniredis-backed Redis backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, ctx context.Context, b backend.Backend)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		fn(t, testContext(t), memorybackend.New())
	})
	t.Run("miniredis", func(t *testing.T) {
		srv := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		fn(t, testContext(t), redisbackend.NewFromClient(client))
	})
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestAnonymousCollectionIsRegistered(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		l, err := NewList(ctx, nil, WithBackend(b))
		if err != nil {
			t.Fatalf("NewList: %v", err)
		}
		if !l.Anonymous() {
			t.Fatalf("expected anonymous list")
		}
		prefix := DefaultAnonymousNamespace + ":"
		if !strings.HasPrefix(l.Name(), prefix) {
			t.Fatalf("expected name with prefix %q, got %q", prefix, l.Name())
		}
		id := strings.TrimPrefix(l.Name(), prefix)
		if len(id) != 32 || strings.Contains(id, "-") {
			t.Fatalf("expected 32 hex chars, got %q", id)
		}

		ids, err := AnonymousIDs(ctx, b, DefaultAnonymousNamespace)
		if err != nil {
			t.Fatalf("AnonymousIDs: %v", err)
		}
		if !slices.Contains(ids, id) {
			t.Fatalf("expected %q in %v", id, ids)
		}

		// Registration alone does not create the collection key.
		exists, err := l.Exists(ctx)
		if err != nil {
			t.Fatalf("Exists: %v", err)
		}
		if exists {
			t.Fatalf("expected empty anonymous list to have no key")
		}
	})
}

func TestAnonymousNamespaceOverride(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		s, err := NewSet(ctx, nil, WithBackend(b), WithAnonymousNamespace("scratch"))
		if err != nil {
			t.Fatalf("NewSet: %v", err)
		}
		if !strings.HasPrefix(s.Name(), "scratch:") {
			t.Fatalf("expected scratch namespace, got %q", s.Name())
		}
		n, err := b.SCard(ctx, DefaultAnonymousNamespace)
		if err != nil {
			t.Fatalf("SCard: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected default namespace untouched, got %d ids", n)
		}
	})
}

func TestNamedCollectionIsNotRegistered(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		l, err := NewList(ctx, nil, WithBackend(b), WithName("jobs"))
		if err != nil {
			t.Fatalf("NewList: %v", err)
		}
		if l.Anonymous() || l.Name() != "jobs" {
			t.Fatalf("expected named list jobs, got %q (anonymous=%v)", l.Name(), l.Anonymous())
		}
		n, err := b.SCard(ctx, DefaultAnonymousNamespace)
		if err != nil {
			t.Fatalf("SCard: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected no anonymous ids, got %d", n)
		}
	})
}

func TestNewWithoutBackendOrResolver(t *testing.T) {
	if _, err := NewList(context.Background(), nil, WithName("x")); err == nil {
		t.Fatalf("expected error without backend or resolver")
	}
}

func TestResolverSelectsHandle(t *testing.T) {
	ctx := context.Background()
	primary := memorybackend.New()
	cache := memorybackend.New()

	reg := registry.New()
	t.Cleanup(func() { _ = reg.Close() })
	if err := reg.Register(primary, "", true); err != nil {
		t.Fatalf("Register primary: %v", err)
	}
	if err := reg.Register(cache, "cache", false); err != nil {
		t.Fatalf("Register cache: %v", err)
	}

	def, err := NewSet(ctx, reg, WithName("s"))
	if err != nil {
		t.Fatalf("NewSet default: %v", err)
	}
	if def.Backend() != primary {
		t.Fatalf("expected default handle")
	}

	named, err := NewSet(ctx, reg, WithName("s"), WithBackendName("cache"))
	if err != nil {
		t.Fatalf("NewSet cache: %v", err)
	}
	if named.Backend() != cache {
		t.Fatalf("expected cache handle")
	}

	if _, err := NewSet(ctx, reg, WithBackendName("missing")); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected registry.ErrNotFound, got %v", err)
	}
}

func TestCommandIsMemoized(t *testing.T) {
	l, err := NewList(context.Background(), nil, WithBackend(memorybackend.New()), WithName("l"))
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	first, err := l.Command("LLEN")
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	second, err := l.Command("llen")
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same bound command for repeated lookups")
	}
	if first.Name() != "llen" {
		t.Fatalf("expected lower-case name, got %q", first.Name())
	}
}

func TestCommandOutsideAllowList(t *testing.T) {
	ctx := context.Background()
	b := memorybackend.New()
	l, err := NewList(ctx, nil, WithBackend(b), WithName("l"))
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	s, err := NewSet(ctx, nil, WithBackend(b), WithName("s"))
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}

	_, err = l.Command("sadd")
	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("expected ErrUnsupportedOperation, got %v", err)
	}
	var uoe *UnsupportedOperationError
	if !errors.As(err, &uoe) || uoe.Kind != KindList || uoe.Operation != "sadd" {
		t.Fatalf("expected *UnsupportedOperationError for list sadd, got %#v", err)
	}

	if _, err := s.Call(ctx, "lpush", "x"); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("expected ErrUnsupportedOperation, got %v", err)
	}
	if _, err := l.Call(ctx, "flushall"); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("expected ErrUnsupportedOperation, got %v", err)
	}

	if !slices.Contains(l.Commands(), "rpoplpush") || slices.Contains(l.Commands(), "sadd") {
		t.Fatalf("unexpected list commands %v", l.Commands())
	}
	if !slices.Contains(s.Commands(), "sscan") || !slices.Contains(s.Commands(), "del") {
		t.Fatalf("unexpected set commands %v", s.Commands())
	}
}

func TestCommandForwarding(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		l, err := NewList(ctx, nil, WithBackend(b), WithName("fwd"))
		if err != nil {
			t.Fatalf("NewList: %v", err)
		}

		got, err := l.Call(ctx, "RPUSH", "a", 2, "c")
		if err != nil {
			t.Fatalf("rpush: %v", err)
		}
		if got != int64(3) {
			t.Fatalf("expected length 3, got %#v", got)
		}

		got, err = l.Call(ctx, "lindex", "1")
		if err != nil {
			t.Fatalf("lindex: %v", err)
		}
		if got != "2" {
			t.Fatalf("expected \"2\", got %#v", got)
		}

		got, err = l.Call(ctx, "lindex", 10)
		if err != nil {
			t.Fatalf("lindex out of range: %v", err)
		}
		if got != nil {
			t.Fatalf("expected nil reply, got %#v", got)
		}

		if _, err := l.Call(ctx, "rpoplpush"); err != nil {
			t.Fatalf("rpoplpush: %v", err)
		}
		got, err = l.Call(ctx, "lrange", 0, -1)
		if err != nil {
			t.Fatalf("lrange: %v", err)
		}
		if !slices.Equal(got.([]string), []string{"c", "a", "2"}) {
			t.Fatalf("unexpected list after rotation: %v", got)
		}

		if _, err := l.Call(ctx, "lindex"); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for missing index, got %v", err)
		}
		if _, err := l.Call(ctx, "lindex", "one"); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument for bad index, got %v", err)
		}
		if _, err := l.Call(ctx, "linsert", "AFTER", "a", "x"); !errors.Is(err, ErrUnsupportedOperation) {
			t.Fatalf("expected ErrUnsupportedOperation for linsert AFTER, got %v", err)
		}

		got, err = l.Call(ctx, "linsert", "before", "a", "x")
		if err != nil {
			t.Fatalf("linsert: %v", err)
		}
		if got != int64(4) {
			t.Fatalf("expected length 4, got %#v", got)
		}

		got, err = l.Call(ctx, "exists")
		if err != nil {
			t.Fatalf("exists: %v", err)
		}
		if got != true {
			t.Fatalf("expected exists, got %#v", got)
		}
	})
}

func TestDeleteDropsDiscoveryEntry(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		s, err := NewSet(ctx, nil, WithBackend(b))
		if err != nil {
			t.Fatalf("NewSet: %v", err)
		}
		if err := s.Add(ctx, "x"); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if err := s.Delete(ctx); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		exists, err := s.Exists(ctx)
		if err != nil {
			t.Fatalf("Exists: %v", err)
		}
		if exists {
			t.Fatalf("expected key removed")
		}
		ids, err := AnonymousIDs(ctx, b, DefaultAnonymousNamespace)
		if err != nil {
			t.Fatalf("AnonymousIDs: %v", err)
		}
		if len(ids) != 0 {
			t.Fatalf("expected no ids, got %v", ids)
		}
	})
}

func TestCollectAnonymous(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		var filled []*List
		for i := 0; i < 3; i++ {
			l, err := NewList(ctx, nil, WithBackend(b))
			if err != nil {
				t.Fatalf("NewList: %v", err)
			}
			if i < 2 {
				if err := l.Append(ctx, "v"); err != nil {
					t.Fatalf("Append: %v", err)
				}
				filled = append(filled, l)
			}
		}
		named, err := NewList(ctx, nil, WithBackend(b), WithName("keep"))
		if err != nil {
			t.Fatalf("NewList: %v", err)
		}
		if err := named.Append(ctx, "v"); err != nil {
			t.Fatalf("Append: %v", err)
		}

		deleted, err := CollectAnonymous(ctx, b, DefaultAnonymousNamespace)
		if err != nil {
			t.Fatalf("CollectAnonymous: %v", err)
		}
		if deleted != 2 {
			t.Fatalf("expected 2 deleted keys, got %d", deleted)
		}
		for _, l := range filled {
			if exists, _ := l.Exists(ctx); exists {
				t.Fatalf("expected %s to be deleted", l.Name())
			}
		}
		if exists, _ := named.Exists(ctx); !exists {
			t.Fatalf("expected named list to survive")
		}
		n, err := b.SCard(ctx, DefaultAnonymousNamespace)
		if err != nil {
			t.Fatalf("SCard: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected empty discovery set, got %d", n)
		}
	})
}

func TestAlgorithmLogsCarryCollectionContext(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logctx.Handler{Handler: slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})})

	ctx := context.Background()
	l, err := NewList(ctx, nil, WithBackend(memorybackend.New()), WithName("traced"), WithLogger(log))
	if err != nil {
		t.Fatalf("NewList: %v", err)
	}
	if err := l.Extend(ctx, "a", "c"); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if err := l.Insert(ctx, 1, "b"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		`"msg":"list.sentinel_insert"`,
		`"coll":{"name":"traced","kind":"list","anonymous":false}`,
		`"op":{"name":"insert"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %s, got:\n%s", want, out)
		}
	}
}
