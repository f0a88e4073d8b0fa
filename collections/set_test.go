package collections

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/ggoodman/redis-collections-go/backend"
)

func newTestSet(t *testing.T, ctx context.Context, b backend.Backend, members ...string) *Set {
	t.Helper()
	s, err := NewSet(ctx, nil, WithBackend(b), WithName("set:"+t.Name()))
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	if err := s.Add(ctx, members...); err != nil {
		t.Fatalf("Add: %v", err)
	}
	return s
}

func sortedMembers(t *testing.T, ctx context.Context, s *Set) []string {
	t.Helper()
	members, err := s.Members(ctx)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	slices.Sort(members)
	return members
}

func TestSetAddContainsDiscard(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		s := newTestSet(t, ctx, b)

		if err := s.Add(ctx, "x"); err != nil {
			t.Fatalf("Add: %v", err)
		}
		ok, err := s.Contains(ctx, "x")
		if err != nil {
			t.Fatalf("Contains: %v", err)
		}
		if !ok {
			t.Fatalf("expected x to be a member after Add")
		}

		if err := s.Discard(ctx, "x"); err != nil {
			t.Fatalf("Discard: %v", err)
		}
		ok, err = s.Contains(ctx, "x")
		if err != nil {
			t.Fatalf("Contains: %v", err)
		}
		if ok {
			t.Fatalf("expected x to be gone after Discard")
		}

		// Discarding an absent member is not an error.
		if err := s.Discard(ctx, "x"); err != nil {
			t.Fatalf("Discard absent: %v", err)
		}
	})
}

func TestSetAddIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		s := newTestSet(t, ctx, b, "a", "b")

		before, err := s.Len(ctx)
		if err != nil {
			t.Fatalf("Len: %v", err)
		}
		if err := s.Add(ctx, "x"); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if err := s.Add(ctx, "x"); err != nil {
			t.Fatalf("Add: %v", err)
		}
		after, err := s.Len(ctx)
		if err != nil {
			t.Fatalf("Len: %v", err)
		}
		if after != before+1 {
			t.Fatalf("expected size %d, got %d", before+1, after)
		}
	})
}

func TestSetPop(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		s := newTestSet(t, ctx, b)

		if _, err := s.Pop(ctx); !errors.Is(err, ErrEmptyCollection) {
			t.Fatalf("expected ErrEmptyCollection, got %v", err)
		}

		want := []string{"a", "b", "c"}
		if err := s.Add(ctx, want...); err != nil {
			t.Fatalf("Add: %v", err)
		}
		var got []string
		for range want {
			v, err := s.Pop(ctx)
			if err != nil {
				t.Fatalf("Pop: %v", err)
			}
			got = append(got, v)
		}
		slices.Sort(got)
		if !slices.Equal(got, want) {
			t.Fatalf("expected to pop %v, got %v", want, got)
		}
		if _, err := s.Pop(ctx); !errors.Is(err, ErrEmptyCollection) {
			t.Fatalf("expected ErrEmptyCollection after draining, got %v", err)
		}
	})
}

func TestSetRemove(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		s := newTestSet(t, ctx, b, "a")

		if err := s.Remove(ctx, "a"); err != nil {
			t.Fatalf("Remove: %v", err)
		}
		err := s.Remove(ctx, "a")
		if !errors.Is(err, ErrValueNotFound) {
			t.Fatalf("expected ErrValueNotFound, got %v", err)
		}
		if !strings.Contains(err.Error(), `"a"`) {
			t.Fatalf("expected the missing value in the error, got %q", err)
		}
	})
}

func TestSetAllSpansPages(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		var want []string
		for i := 0; i < 3*scanCount+7; i++ {
			want = append(want, "m"+strconv.Itoa(i))
		}
		s := newTestSet(t, ctx, b, want...)
		slices.Sort(want)

		if got := sortedMembers(t, ctx, s); !slices.Equal(got, want) {
			t.Fatalf("expected %d members, got %d", len(want), len(got))
		}

		seen := 0
		for _, err := range s.All(ctx) {
			if err != nil {
				t.Fatalf("All: %v", err)
			}
			seen++
			if seen == 5 {
				break
			}
		}
		if seen != 5 {
			t.Fatalf("expected early break after 5 members, got %d", seen)
		}
	})
}

func TestSetAllOnMissingKey(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		s := newTestSet(t, ctx, b)
		for m, err := range s.All(ctx) {
			t.Fatalf("expected no members, got %q (err %v)", m, err)
		}
	})
}

func TestSetAllReportsWrongType(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		s := newTestSet(t, ctx, b)
		if _, err := b.RPush(ctx, s.Name(), "not-a-set"); err != nil {
			t.Fatalf("RPush: %v", err)
		}
		var got error
		for _, err := range s.All(ctx) {
			got = err
		}
		if !errors.Is(got, backend.ErrWrongType) {
			t.Fatalf("expected backend.ErrWrongType, got %v", got)
		}
	})
}

func TestSetClear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		s := newTestSet(t, ctx, b, "a", "b")
		if err := s.Clear(ctx); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		n, err := s.Len(ctx)
		if err != nil {
			t.Fatalf("Len: %v", err)
		}
		if n != 0 {
			t.Fatalf("expected empty set, got %d", n)
		}
	})
}

func TestSetCopy(t *testing.T) {
	forEachBackend(t, func(t *testing.T, ctx context.Context, b backend.Backend) {
		s := newTestSet(t, ctx, b, "a", "b", "c")

		anon, err := s.Copy(ctx)
		if err != nil {
			t.Fatalf("Copy: %v", err)
		}
		if !anon.Anonymous() || anon.Name() == s.Name() {
			t.Fatalf("expected an anonymous copy, got %q", anon.Name())
		}
		if got := sortedMembers(t, ctx, anon); !slices.Equal(got, []string{"a", "b", "c"}) {
			t.Fatalf("unexpected copy members %v", got)
		}

		named, err := s.Copy(ctx, WithName("copy"))
		if err != nil {
			t.Fatalf("Copy named: %v", err)
		}
		if named.Name() != "copy" {
			t.Fatalf("expected name copy, got %q", named.Name())
		}

		// The copy is independent of the source.
		if err := s.Discard(ctx, "a"); err != nil {
			t.Fatalf("Discard: %v", err)
		}
		if ok, _ := named.Contains(ctx, "a"); !ok {
			t.Fatalf("expected copy to keep a")
		}

		if _, err := s.Copy(ctx, WithName("copy")); !errors.Is(err, ErrKeyExists) {
			t.Fatalf("expected ErrKeyExists, got %v", err)
		}
	})
}
