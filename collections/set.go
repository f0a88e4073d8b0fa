package collections

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/ggoodman/redis-collections-go/backend"
)

// scanCount is the COUNT hint used for SSCAN pages.
const scanCount = 100

// Set is an unordered collection of unique strings stored in a Redis set.
// Every method is a single round trip unless documented otherwise.
type Set struct {
	*Collection
}

// NewSet binds a Set to a key. Without WithName the set is anonymous and its
// generated id is recorded in the namespace's discovery set.
func NewSet(ctx context.Context, r Resolver, opts ...Option) (*Set, error) {
	c, err := newCollection(ctx, KindSet, setCommands, r, opts)
	if err != nil {
		return nil, err
	}
	return &Set{Collection: c}, nil
}

// Contains reports whether item is a member (SISMEMBER, O(1)).
func (s *Set) Contains(ctx context.Context, item string) (bool, error) {
	return s.b.SIsMember(ctx, s.name, item)
}

// Add adds items; adding an existing member is a no-op (SADD).
func (s *Set) Add(ctx context.Context, items ...string) error {
	if len(items) == 0 {
		return nil
	}
	_, err := s.b.SAdd(ctx, s.name, items...)
	return err
}

// Discard removes item if present (SREM).
func (s *Set) Discard(ctx context.Context, item string) error {
	_, err := s.b.SRem(ctx, s.name, item)
	return err
}

// Remove removes item, failing with ErrValueNotFound if it was not a member.
func (s *Set) Remove(ctx context.Context, item string) error {
	n, err := s.b.SRem(ctx, s.name, item)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrValueNotFound, item)
	}
	return nil
}

// Pop removes and returns a random member (SPOP), or ErrEmptyCollection.
func (s *Set) Pop(ctx context.Context) (string, error) {
	v, err := s.b.SPop(ctx, s.name)
	if errors.Is(err, backend.ErrNil) {
		return "", ErrEmptyCollection
	}
	return v, err
}

// Len returns the cardinality (SCARD).
func (s *Set) Len(ctx context.Context) (int64, error) {
	return s.b.SCard(ctx, s.name)
}

// All iterates the members lazily with SSCAN, one page per round trip. Each
// call starts a fresh scan. Order is up to the store, and a set mutated during
// the scan may yield a member more than once or miss one. Iteration stops at
// the first error, which is yielded with an empty member.
func (s *Set) All(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var cursor uint64
		for {
			page, next, err := s.b.SScan(ctx, s.name, cursor, "", scanCount)
			if err != nil {
				yield("", err)
				return
			}
			for _, m := range page {
				if !yield(m, nil) {
					return
				}
			}
			if next == 0 {
				return
			}
			cursor = next
		}
	}
}

// Members collects a full scan into a slice without duplicates.
func (s *Set) Members(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for m, err := range s.All(ctx) {
		if err != nil {
			return nil, err
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out, nil
}

// Clear removes every member by deleting the key. An anonymous set stays
// registered for discovery.
func (s *Set) Clear(ctx context.Context) error {
	_, err := s.b.Del(ctx, s.name)
	return err
}

// Copy reads every member and writes them to a new set on the same handle.
// The copy is anonymous unless WithName is given; a named target must not
// exist yet (ErrKeyExists).
func (s *Set) Copy(ctx context.Context, opts ...Option) (*Set, error) {
	members, err := s.Members(ctx)
	if err != nil {
		return nil, err
	}
	copyOpts, err := s.copyOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	dst, err := NewSet(ctx, nil, copyOpts...)
	if err != nil {
		return nil, err
	}
	if err := dst.Add(ctx, members...); err != nil {
		return nil, err
	}
	return dst, nil
}
