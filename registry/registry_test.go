package registry

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ggoodman/redis-collections-go/backend"
	"github.com/ggoodman/redis-collections-go/backend/memorybackend"
	"github.com/ggoodman/redis-collections-go/backend/redisbackend"
)

type closeCounter struct {
	*memorybackend.Backend
	closed atomic.Int32
	err    error
}

func (c *closeCounter) Close() error {
	c.closed.Add(1)
	return c.err
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	cache := memorybackend.New()
	if err := r.Register(cache, "cache", false); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := r.Get("cache")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != cache {
		t.Fatal("expected registered handle back")
	}

	got, err = r.Resolve(context.Background(), "cache")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != cache {
		t.Fatal("expected Resolve to return the named handle")
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	r := New()
	if err := r.Register(memorybackend.New(), "data", false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(memorybackend.New(), "data", true)
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestRegisterEmptyNameMeansDefaultName(t *testing.T) {
	r := New()
	b := memorybackend.New()
	if err := r.Register(b, "", false); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got, err := r.Get(DefaultName); err != nil || got != b {
		t.Fatalf("expected handle under %q (err=%v)", DefaultName, err)
	}
	if err := r.Register(memorybackend.New(), DefaultName, false); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestGetUnknownName(t *testing.T) {
	r := New()
	if _, err := r.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := r.Resolve(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Resolve, got %v", err)
	}
}

func TestRegisterAsDefaultOverridesSilently(t *testing.T) {
	var built atomic.Int32
	r := New(WithDefaultFactory(func(ctx context.Context) (backend.Backend, error) {
		built.Add(1)
		return memorybackend.New(), nil
	}))
	first := memorybackend.New()
	second := memorybackend.New()
	if err := r.Register(first, "first", true); err != nil {
		t.Fatalf("Register first: %v", err)
	}
	if err := r.Register(second, "second", true); err != nil {
		t.Fatalf("Register second: %v", err)
	}

	got, err := r.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != second {
		t.Fatal("expected the most recently registered default")
	}
	if built.Load() != 0 {
		t.Fatal("expected the factory not to run when a default is registered")
	}
}

func TestDefaultIsBuiltOnceFromEnvironment(t *testing.T) {
	t.Setenv("PYREDIS_URL", "")
	t.Setenv("PYREDIS_HOST", "")
	t.Setenv("PYREDIS_PORT", "")

	var addrs []string
	r := New(WithDefaultFactory(func(ctx context.Context) (backend.Backend, error) {
		cfg, err := redisbackend.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, cfg.Addr())
		return memorybackend.New(), nil
	}))

	first, err := r.Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := r.Default(context.Background())
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached default handle on the second call")
	}
	if !slices.Equal(addrs, []string{"localhost:6379"}) {
		t.Fatalf("expected exactly one construction against localhost:6379, got %q", addrs)
	}
}

func TestDefaultConnectsFromEnvironment(t *testing.T) {
	srv := miniredis.RunT(t)
	t.Setenv("PYREDIS_URL", "")
	t.Setenv("PYREDIS_HOST", srv.Host())
	t.Setenv("PYREDIS_PORT", srv.Port())
	t.Setenv("PYREDIS_DB", "")
	t.Setenv("PYREDIS_PASSWORD", "")

	ctx := context.Background()
	r := New()
	b, err := r.Default(ctx)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if _, ok := b.(*redisbackend.Backend); !ok {
		t.Fatalf("expected a redis backend, got %T", b)
	}
	again, err := r.Default(ctx)
	if err != nil || again != b {
		t.Fatalf("expected the cached default handle, got %v (err=%v)", again, err)
	}
	if _, err := b.RPush(ctx, "jobs", "a"); err != nil {
		t.Fatalf("RPush: %v", err)
	}
	if got, err := srv.List("jobs"); err != nil || !slices.Equal(got, []string{"a"}) {
		t.Fatalf("expected [a] in the server, got %v (err=%v)", got, err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestDefaultConcurrentFirstUse(t *testing.T) {
	var built atomic.Int32
	r := New(WithDefaultFactory(func(ctx context.Context) (backend.Backend, error) {
		built.Add(1)
		return memorybackend.New(), nil
	}))

	const n = 16
	handles := make([]backend.Backend, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := r.Default(context.Background())
			if err != nil {
				t.Errorf("Default: %v", err)
				return
			}
			handles[i] = b
		}(i)
	}
	wg.Wait()

	if built.Load() != 1 {
		t.Fatalf("expected one construction, got %d", built.Load())
	}
	for i := 1; i < n; i++ {
		if handles[i] != handles[0] {
			t.Fatal("expected every caller to share the same handle")
		}
	}
}

func TestDefaultFailureIsNotCached(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	r := New(WithDefaultFactory(func(ctx context.Context) (backend.Backend, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return memorybackend.New(), nil
	}))

	if _, err := r.Default(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}
	if _, err := r.Default(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	r := New()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(memorybackend.New(), name, false); err != nil {
			t.Fatalf("Register %s: %v", name, err)
		}
	}
	if got := r.Names(); !slices.Equal(got, []string{"alpha", "mid", "zeta"}) {
		t.Fatalf("unexpected names %q", got)
	}
}

func TestCloseClosesEachHandleOnce(t *testing.T) {
	shared := &closeCounter{Backend: memorybackend.New()}
	failing := &closeCounter{Backend: memorybackend.New(), err: errors.New("close failed")}

	r := New()
	if err := r.Register(shared, "a", true); err != nil {
		t.Fatalf("Register a: %v", err)
	}
	if err := r.Register(shared, "b", false); err != nil {
		t.Fatalf("Register b: %v", err)
	}
	if err := r.Register(failing, "c", false); err != nil {
		t.Fatalf("Register c: %v", err)
	}

	err := r.Close()
	if err == nil || err.Error() != "close failed" {
		t.Fatalf("expected joined close error, got %v", err)
	}
	if shared.closed.Load() != 1 {
		t.Fatalf("expected shared handle closed once, got %d", shared.closed.Load())
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := r.Get("a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
	if err := r.Register(memorybackend.New(), "d", false); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from Register, got %v", err)
	}
}
