package backendtest

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/ggoodman/redis-collections-go/backend"
)

// BackendFactory creates a Backend instance for testing. Instances may share
// state with each other; every test uses keys derived from its own name.
type BackendFactory func(t *testing.T) backend.Backend

// RunBackendTests runs the complete Backend test suite against the provided factory.
func RunBackendTests(t *testing.T, factory BackendFactory) {
	t.Run("Sets_AddContainsRemove", func(t *testing.T) { testSetAddContainsRemove(t, factory) })
	t.Run("Sets_PopEmptyIsNil", func(t *testing.T) { testSetPopEmpty(t, factory) })
	t.Run("Sets_PopDrainsSet", func(t *testing.T) { testSetPopDrains(t, factory) })
	t.Run("Sets_ScanVisitsEveryMember", func(t *testing.T) { testSetScan(t, factory) })

	t.Run("Lists_PushAndRange", func(t *testing.T) { testListPushAndRange(t, factory) })
	t.Run("Lists_IndexNegativeAndOutOfRange", func(t *testing.T) { testListIndex(t, factory) })
	t.Run("Lists_SetOutOfRange", func(t *testing.T) { testListSetOutOfRange(t, factory) })
	t.Run("Lists_PopEmptyIsNil", func(t *testing.T) { testListPopEmpty(t, factory) })
	t.Run("Lists_RotateSameKey", func(t *testing.T) { testListRotate(t, factory) })
	t.Run("Lists_InsertBefore", func(t *testing.T) { testListInsertBefore(t, factory) })
	t.Run("Lists_RemDirection", func(t *testing.T) { testListRemDirection(t, factory) })
	t.Run("Lists_Trim", func(t *testing.T) { testListTrim(t, factory) })
	t.Run("Lists_EmptyKeyIsRemoved", func(t *testing.T) { testListEmptyKeyRemoved(t, factory) })

	t.Run("Keys_DelAndExists", func(t *testing.T) { testDelAndExists(t, factory) })
	t.Run("Keys_WrongType", func(t *testing.T) { testWrongType(t, factory) })
	t.Run("Keys_NoValuesCreatesNothing", func(t *testing.T) { testNoValues(t, factory) })
}

func keyFor(t *testing.T, suffix string) string {
	return "backendtest:" + t.Name() + ":" + suffix
}

func setup(t *testing.T, factory BackendFactory) (context.Context, backend.Backend) {
	t.Helper()
	b := factory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx, b
}

func mustRange(t *testing.T, ctx context.Context, b backend.Backend, key string) []string {
	t.Helper()
	vals, err := b.LRange(ctx, key, 0, -1)
	if err != nil {
		t.Fatalf("lrange %s: %v", key, err)
	}
	return vals
}

func mustRPush(t *testing.T, ctx context.Context, b backend.Backend, key string, values ...string) {
	t.Helper()
	if _, err := b.RPush(ctx, key, values...); err != nil {
		t.Fatalf("rpush %s: %v", key, err)
	}
}

func expectList(t *testing.T, got []string, want ...string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

// --- Sets ---

func testSetAddContainsRemove(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "set")
	defer b.Del(ctx, key)

	n, err := b.SAdd(ctx, key, "a", "b")
	if err != nil {
		t.Fatalf("sadd: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 added, got %d", n)
	}
	n, err = b.SAdd(ctx, key, "a")
	if err != nil {
		t.Fatalf("sadd again: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected re-adding to be a no-op, got %d added", n)
	}

	ok, err := b.SIsMember(ctx, key, "a")
	if err != nil || !ok {
		t.Fatalf("expected a to be a member (ok=%v err=%v)", ok, err)
	}
	card, err := b.SCard(ctx, key)
	if err != nil || card != 2 {
		t.Fatalf("expected cardinality 2, got %d (err=%v)", card, err)
	}

	removed, err := b.SRem(ctx, key, "a", "missing")
	if err != nil {
		t.Fatalf("srem: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	ok, err = b.SIsMember(ctx, key, "a")
	if err != nil || ok {
		t.Fatalf("expected a to be gone (ok=%v err=%v)", ok, err)
	}
}

func testSetPopEmpty(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	_, err := b.SPop(ctx, keyFor(t, "set"))
	if !errors.Is(err, backend.ErrNil) {
		t.Fatalf("expected ErrNil, got %v", err)
	}
}

func testSetPopDrains(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "set")
	defer b.Del(ctx, key)

	want := []string{"x", "y", "z"}
	if _, err := b.SAdd(ctx, key, want...); err != nil {
		t.Fatalf("sadd: %v", err)
	}
	var got []string
	for range want {
		v, err := b.SPop(ctx, key)
		if err != nil {
			t.Fatalf("spop: %v", err)
		}
		got = append(got, v)
	}
	slices.Sort(got)
	expectList(t, got, want...)

	exists, err := b.Exists(ctx, key)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("expected drained set key to be removed")
	}
}

func testSetScan(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "set")
	defer b.Del(ctx, key)

	var want []string
	for i := 0; i < 37; i++ {
		want = append(want, "m"+strconv.Itoa(i))
	}
	if _, err := b.SAdd(ctx, key, want...); err != nil {
		t.Fatalf("sadd: %v", err)
	}

	seen := make(map[string]struct{})
	var cursor uint64
	for {
		page, next, err := b.SScan(ctx, key, cursor, "", 5)
		if err != nil {
			t.Fatalf("sscan: %v", err)
		}
		for _, m := range page {
			seen[m] = struct{}{}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	if len(seen) != len(want) {
		t.Fatalf("expected %d members from scan, got %d", len(want), len(seen))
	}
	for _, m := range want {
		if _, ok := seen[m]; !ok {
			t.Fatalf("scan missed member %s", m)
		}
	}
}

// --- Lists ---

func testListPushAndRange(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "list")
	defer b.Del(ctx, key)

	n, err := b.RPush(ctx, key, "a", "b", "c")
	if err != nil {
		t.Fatalf("rpush: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected length 3, got %d", n)
	}
	if _, err := b.LPush(ctx, key, "y", "z"); err != nil {
		t.Fatalf("lpush: %v", err)
	}
	expectList(t, mustRange(t, ctx, b, key), "z", "y", "a", "b", "c")

	vals, err := b.LRange(ctx, key, 1, -2)
	if err != nil {
		t.Fatalf("lrange: %v", err)
	}
	expectList(t, vals, "y", "a", "b")

	vals, err = b.LRange(ctx, key, 3, 100)
	if err != nil {
		t.Fatalf("lrange past end: %v", err)
	}
	expectList(t, vals, "b", "c")

	vals, err = b.LRange(ctx, key, 4, 2)
	if err != nil {
		t.Fatalf("lrange inverted: %v", err)
	}
	if len(vals) != 0 {
		t.Fatalf("expected empty range, got %q", vals)
	}

	length, err := b.LLen(ctx, key)
	if err != nil || length != 5 {
		t.Fatalf("expected length 5, got %d (err=%v)", length, err)
	}
}

func testListIndex(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "list")
	defer b.Del(ctx, key)
	mustRPush(t, ctx, b, key, "a", "b", "c")

	v, err := b.LIndex(ctx, key, -1)
	if err != nil || v != "c" {
		t.Fatalf("expected c at -1, got %q (err=%v)", v, err)
	}
	v, err = b.LIndex(ctx, key, 1)
	if err != nil || v != "b" {
		t.Fatalf("expected b at 1, got %q (err=%v)", v, err)
	}
	if _, err := b.LIndex(ctx, key, 3); !errors.Is(err, backend.ErrNil) {
		t.Fatalf("expected ErrNil past the end, got %v", err)
	}
	if _, err := b.LIndex(ctx, key, -4); !errors.Is(err, backend.ErrNil) {
		t.Fatalf("expected ErrNil before the head, got %v", err)
	}
}

func testListSetOutOfRange(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "list")
	defer b.Del(ctx, key)

	if err := b.LSet(ctx, key, 0, "x"); !errors.Is(err, backend.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange on missing key, got %v", err)
	}
	mustRPush(t, ctx, b, key, "a", "b")
	if err := b.LSet(ctx, key, 2, "x"); !errors.Is(err, backend.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange past the end, got %v", err)
	}
	if err := b.LSet(ctx, key, -1, "x"); err != nil {
		t.Fatalf("lset -1: %v", err)
	}
	expectList(t, mustRange(t, ctx, b, key), "a", "x")
}

func testListPopEmpty(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "list")
	if _, err := b.LPop(ctx, key); !errors.Is(err, backend.ErrNil) {
		t.Fatalf("expected ErrNil from lpop, got %v", err)
	}
	if _, err := b.RPop(ctx, key); !errors.Is(err, backend.ErrNil) {
		t.Fatalf("expected ErrNil from rpop, got %v", err)
	}
	if _, err := b.RPopLPush(ctx, key, key); !errors.Is(err, backend.ErrNil) {
		t.Fatalf("expected ErrNil from rpoplpush, got %v", err)
	}
}

func testListRotate(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "list")
	defer b.Del(ctx, key)
	mustRPush(t, ctx, b, key, "a", "b", "c")

	v, err := b.RPopLPush(ctx, key, key)
	if err != nil {
		t.Fatalf("rpoplpush: %v", err)
	}
	if v != "c" {
		t.Fatalf("expected c to move, got %q", v)
	}
	expectList(t, mustRange(t, ctx, b, key), "c", "a", "b")

	single := keyFor(t, "single")
	defer b.Del(ctx, single)
	mustRPush(t, ctx, b, single, "only")
	if _, err := b.RPopLPush(ctx, single, single); err != nil {
		t.Fatalf("rpoplpush single: %v", err)
	}
	expectList(t, mustRange(t, ctx, b, single), "only")
}

func testListInsertBefore(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "list")
	defer b.Del(ctx, key)

	n, err := b.LInsertBefore(ctx, key, "a", "x")
	if err != nil {
		t.Fatalf("linsert on missing key: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 for missing key, got %d", n)
	}

	mustRPush(t, ctx, b, key, "a", "b", "b")
	n, err = b.LInsertBefore(ctx, key, "b", "x")
	if err != nil {
		t.Fatalf("linsert: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected new length 4, got %d", n)
	}
	expectList(t, mustRange(t, ctx, b, key), "a", "x", "b", "b")

	n, err = b.LInsertBefore(ctx, key, "missing", "y")
	if err != nil {
		t.Fatalf("linsert missing pivot: %v", err)
	}
	if n != -1 {
		t.Fatalf("expected -1 for missing pivot, got %d", n)
	}
}

func testListRemDirection(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "list")
	defer b.Del(ctx, key)
	mustRPush(t, ctx, b, key, "x", "a", "x", "b", "x")

	n, err := b.LRem(ctx, key, -1, "x")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 removed from tail, got %d (err=%v)", n, err)
	}
	expectList(t, mustRange(t, ctx, b, key), "x", "a", "x", "b")

	n, err = b.LRem(ctx, key, 1, "x")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 removed from head, got %d (err=%v)", n, err)
	}
	expectList(t, mustRange(t, ctx, b, key), "a", "x", "b")

	n, err = b.LRem(ctx, key, 1, "missing")
	if err != nil || n != 0 {
		t.Fatalf("expected 0 removed, got %d (err=%v)", n, err)
	}

	mustRPush(t, ctx, b, key, "x")
	n, err = b.LRem(ctx, key, 0, "x")
	if err != nil || n != 2 {
		t.Fatalf("expected every occurrence removed, got %d (err=%v)", n, err)
	}
	expectList(t, mustRange(t, ctx, b, key), "a", "b")
}

func testListTrim(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "list")
	defer b.Del(ctx, key)
	mustRPush(t, ctx, b, key, "a", "b", "c", "d", "e")

	if err := b.LTrim(ctx, key, 2, -1); err != nil {
		t.Fatalf("ltrim: %v", err)
	}
	expectList(t, mustRange(t, ctx, b, key), "c", "d", "e")

	if err := b.LTrim(ctx, key, 5, -1); err != nil {
		t.Fatalf("ltrim past end: %v", err)
	}
	exists, err := b.Exists(ctx, key)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("expected fully trimmed list key to be removed")
	}
}

func testListEmptyKeyRemoved(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "list")
	defer b.Del(ctx, key)
	mustRPush(t, ctx, b, key, "a")

	if _, err := b.LPop(ctx, key); err != nil {
		t.Fatalf("lpop: %v", err)
	}
	exists, err := b.Exists(ctx, key)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("expected empty list key to be removed")
	}
	length, err := b.LLen(ctx, key)
	if err != nil || length != 0 {
		t.Fatalf("expected length 0, got %d (err=%v)", length, err)
	}
}

// --- Keys ---

func testDelAndExists(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	list := keyFor(t, "list")
	set := keyFor(t, "set")
	mustRPush(t, ctx, b, list, "a")
	if _, err := b.SAdd(ctx, set, "a"); err != nil {
		t.Fatalf("sadd: %v", err)
	}

	n, err := b.Del(ctx, list, set, keyFor(t, "missing"))
	if err != nil {
		t.Fatalf("del: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 keys deleted, got %d", n)
	}
	for _, k := range []string{list, set} {
		exists, err := b.Exists(ctx, k)
		if err != nil {
			t.Fatalf("exists: %v", err)
		}
		if exists {
			t.Fatalf("expected %s to be deleted", k)
		}
	}
}

func testNoValues(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "empty")

	calls := map[string]func() (int64, error){
		"sadd":  func() (int64, error) { return b.SAdd(ctx, key) },
		"srem":  func() (int64, error) { return b.SRem(ctx, key) },
		"lpush": func() (int64, error) { return b.LPush(ctx, key) },
		"rpush": func() (int64, error) { return b.RPush(ctx, key) },
	}
	for name, call := range calls {
		if _, err := call(); !errors.Is(err, backend.ErrNoValues) {
			t.Fatalf("%s without values: expected ErrNoValues, got %v", name, err)
		}
		exists, err := b.Exists(ctx, key)
		if err != nil {
			t.Fatalf("exists: %v", err)
		}
		if exists {
			t.Fatalf("%s without values created %s", name, key)
		}
	}

	if n, err := b.Del(ctx); err != nil || n != 0 {
		t.Fatalf("del without keys: expected (0, nil), got (%d, %v)", n, err)
	}
}

func testWrongType(t *testing.T, factory BackendFactory) {
	ctx, b := setup(t, factory)
	key := keyFor(t, "list")
	defer b.Del(ctx, key)
	mustRPush(t, ctx, b, key, "a")

	if _, err := b.SAdd(ctx, key, "a"); !errors.Is(err, backend.ErrWrongType) {
		t.Fatalf("expected ErrWrongType from sadd on a list, got %v", err)
	}
	if _, err := b.SCard(ctx, key); !errors.Is(err, backend.ErrWrongType) {
		t.Fatalf("expected ErrWrongType from scard on a list, got %v", err)
	}
}
