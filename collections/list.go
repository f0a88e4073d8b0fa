package collections

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/ggoodman/redis-collections-go/backend"
)

// pageSize bounds the LRANGE window used by All.
const pageSize = 100

// List is an ordered sequence of strings stored in a Redis list. Nothing is
// cached locally: every read is a round trip.
//
// Random-access mutations (Insert, Delete, DeleteSlice, PopAt, Reverse, Sort)
// are sequences of several commands and are not atomic. They assume a single
// writer per key; a concurrent writer can interleave with the steps and
// corrupt the order. A backend failure in the middle leaves the list partially
// rearranged.
type List struct {
	*Collection
}

// NewList binds a List to a key. Without WithName the list is anonymous and
// its generated id is recorded in the namespace's discovery set.
func NewList(ctx context.Context, r Resolver, opts ...Option) (*List, error) {
	c, err := newCollection(ctx, KindList, listCommands, r, opts)
	if err != nil {
		return nil, err
	}
	return &List{Collection: c}, nil
}

// Len returns the list length (LLEN).
func (l *List) Len(ctx context.Context) (int64, error) {
	return l.b.LLen(ctx, l.name)
}

// Get returns the element at index i (LINDEX). Negative indices count from
// the tail.
func (l *List) Get(ctx context.Context, i int64) (string, error) {
	v, err := l.b.LIndex(ctx, l.name, i)
	if errors.Is(err, backend.ErrNil) {
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return v, err
}

// GetSlice returns the elements selected by s. The covered window is read
// with a single LRANGE and the step, including negative steps, is applied
// locally.
func (l *List) GetSlice(ctx context.Context, s Slice) ([]string, error) {
	n, err := l.Len(ctx)
	if err != nil {
		return nil, err
	}
	positions := s.positions(n)
	if len(positions) == 0 {
		return []string{}, nil
	}
	lo, hi := slices.Min(positions), slices.Max(positions)
	window, err := l.b.LRange(ctx, l.name, lo, hi)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(positions))
	for _, p := range positions {
		// The list may have shrunk since LLEN.
		if p-lo >= int64(len(window)) {
			continue
		}
		out = append(out, window[p-lo])
	}
	return out, nil
}

// GetItem dispatches on the key type: an Index returns a one-element slice,
// a Slice behaves like GetSlice.
func (l *List) GetItem(ctx context.Context, key Key) ([]string, error) {
	switch k := key.(type) {
	case Index:
		v, err := l.Get(ctx, int64(k))
		if err != nil {
			return nil, err
		}
		return []string{v}, nil
	case Slice:
		return l.GetSlice(ctx, k)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKeyType, key)
	}
}

// Set overwrites the element at index i (LSET).
func (l *List) Set(ctx context.Context, i int64, value string) error {
	err := l.b.LSet(ctx, l.name, i, value)
	if errors.Is(err, backend.ErrIndexOutOfRange) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	return err
}

// SetItem is Set for a Key. Assignment through a Slice is not supported and
// fails with ErrUnsupportedKeyType.
func (l *List) SetItem(ctx context.Context, key Key, value string) error {
	k, ok := key.(Index)
	if !ok {
		return fmt.Errorf("%w: only an Index can be assigned, got %T", ErrUnsupportedKeyType, key)
	}
	return l.Set(ctx, int64(k), value)
}

// Delete removes the element at index i. The head and tail are single pops;
// any other position costs a full rotation of the list (see DeleteSlice).
func (l *List) Delete(ctx context.Context, i int64) error {
	n, err := l.Len(ctx)
	if err != nil {
		return err
	}
	if i < -n || i >= n {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	if i < 0 {
		i += n
	}
	switch i {
	case 0:
		_, err = l.b.LPop(ctx, l.name)
	case n - 1:
		_, err = l.b.RPop(ctx, l.name)
	default:
		err = l.rotateRemove(l.opContext(ctx, "delete"), i, i+1, n)
	}
	return err
}

// DeleteSlice removes the elements in s using only rotations and pops. Bounds
// are normalized like any slice; if the normalized start is past the stop the
// two are swapped, so Span(5, 2) removes positions 2 to 4. Only a step of 1 is
// supported; any other step fails with ErrUnsupportedOperation before touching
// the list.
//
// The cost is one command per element of the list regardless of how many
// elements are removed.
func (l *List) DeleteSlice(ctx context.Context, s Slice) error {
	if s.step() != 1 {
		return &UnsupportedOperationError{Kind: KindList, Operation: "delete", Reason: fmt.Sprintf("slice step %d", s.Step)}
	}
	n, err := l.Len(ctx)
	if err != nil {
		return err
	}
	start, stop, _ := s.Indices(n)
	if start > stop {
		start, stop = stop, start
	}
	return l.rotateRemove(l.opContext(ctx, "delete_slice"), start, stop, n)
}

// DeleteItem dispatches to Delete or DeleteSlice on the key type.
func (l *List) DeleteItem(ctx context.Context, key Key) error {
	switch k := key.(type) {
	case Index:
		return l.Delete(ctx, int64(k))
	case Slice:
		return l.DeleteSlice(ctx, k)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedKeyType, key)
	}
}

// rotateRemove drops positions [start, stop) from a list of length n:
//
//	[a0 .. a(start-1), a(start) .. a(stop-1), a(stop) .. a(n-1)]
//	rotate n-stop times -> [a(stop) .. a(n-1), a0 .. a(stop-1)]
//	pop stop-start times -> [a(stop) .. a(n-1), a0 .. a(start-1)]
//	rotate start times  -> [a0 .. a(start-1), a(stop) .. a(n-1)]
func (l *List) rotateRemove(ctx context.Context, start, stop, n int64) error {
	if start >= stop {
		return nil
	}
	l.log.DebugContext(ctx, "list.rotate_remove", slog.Int64("start", start), slog.Int64("stop", stop), slog.Int64("len", n))

	if err := l.rotate(ctx, n-stop); err != nil {
		return err
	}
	for k := start; k < stop; k++ {
		if _, err := l.b.RPop(ctx, l.name); err != nil {
			return fmt.Errorf("rotate-remove pop %d of %d: %w", k-start+1, stop-start, err)
		}
	}
	return l.rotate(ctx, start)
}

// rotate moves the tail element to the head, times times.
func (l *List) rotate(ctx context.Context, times int64) error {
	for k := int64(0); k < times; k++ {
		if _, err := l.b.RPopLPush(ctx, l.name, l.name); err != nil {
			return fmt.Errorf("rotate %d of %d: %w", k+1, times, err)
		}
	}
	return nil
}

// Insert places item before position i, like inserting into a slice: indices
// are clamped to [0, len], so a large i appends and a very negative i
// prepends. Interior positions use a temporary marker unique to the call: the
// element at i is swapped for the marker, item is inserted before the marker,
// and the original element is written back after it.
func (l *List) Insert(ctx context.Context, i int64, item string) error {
	n, err := l.Len(ctx)
	if err != nil {
		return err
	}
	if i < 0 {
		i += n
		if i < 0 {
			i = 0
		}
	}
	if i > n {
		i = n
	}

	switch i {
	case 0:
		_, err = l.b.LPush(ctx, l.name, item)
		return err
	case n:
		_, err = l.b.RPush(ctx, l.name, item)
		return err
	}

	ctx = l.opContext(ctx, "insert")
	marker := l.marker("insert")
	l.log.DebugContext(ctx, "list.sentinel_insert", slog.Int64("index", i), slog.Int64("len", n))

	pivot, err := l.Get(ctx, i)
	if err != nil {
		return err
	}
	if err := l.Set(ctx, i, marker); err != nil {
		return err
	}
	pos, err := l.b.LInsertBefore(ctx, l.name, marker, item)
	if err != nil {
		return err
	}
	if pos <= 0 {
		return fmt.Errorf("insert at %d: marker vanished from %s", i, l.name)
	}
	return l.Set(ctx, i+1, pivot)
}

// Append adds item at the tail (RPUSH).
func (l *List) Append(ctx context.Context, item string) error {
	_, err := l.b.RPush(ctx, l.name, item)
	return err
}

// Extend appends items in order, one RPUSH per item.
func (l *List) Extend(ctx context.Context, items ...string) error {
	for _, item := range items {
		if err := l.Append(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the first occurrence of item (LREM 1), failing with
// ErrValueNotFound if there is none.
func (l *List) Remove(ctx context.Context, item string) error {
	n, err := l.b.LRem(ctx, l.name, 1, item)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrValueNotFound, item)
	}
	return nil
}

// Pop removes and returns the last element (RPOP).
func (l *List) Pop(ctx context.Context) (string, error) {
	v, err := l.b.RPop(ctx, l.name)
	if errors.Is(err, backend.ErrNil) {
		return "", ErrEmptyCollection
	}
	return v, err
}

// PopAt removes and returns the element at index i. The ends are single pops.
// An interior element is read, its slot overwritten with a marker unique to
// the call, and the marker removed with LREM scanning from whichever end is
// closer.
func (l *List) PopAt(ctx context.Context, i int64) (string, error) {
	n, err := l.Len(ctx)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrEmptyCollection
	}
	if i < -n || i >= n {
		return "", fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	}
	if i < 0 {
		i += n
	}

	var v string
	switch i {
	case 0:
		v, err = l.b.LPop(ctx, l.name)
	case n - 1:
		v, err = l.b.RPop(ctx, l.name)
	default:
		v, err = l.popInterior(l.opContext(ctx, "pop"), i, n)
	}
	if errors.Is(err, backend.ErrNil) {
		return "", ErrEmptyCollection
	}
	return v, err
}

func (l *List) popInterior(ctx context.Context, i, n int64) (string, error) {
	v, err := l.Get(ctx, i)
	if err != nil {
		return "", err
	}
	marker := l.marker("pop")
	if err := l.Set(ctx, i, marker); err != nil {
		return "", err
	}
	direction := int64(1)
	if i >= n/2 {
		direction = -1
	}
	l.log.DebugContext(ctx, "list.marker_pop", slog.Int64("index", i), slog.Int64("direction", direction))
	removed, err := l.b.LRem(ctx, l.name, direction, marker)
	if err != nil {
		return "", err
	}
	if removed == 0 {
		return "", fmt.Errorf("pop at %d: marker vanished from %s", i, l.name)
	}
	return v, nil
}

// Values reads the whole list (LRANGE 0 -1).
func (l *List) Values(ctx context.Context) ([]string, error) {
	return l.b.LRange(ctx, l.name, 0, -1)
}

// All iterates the list lazily in pages of LRANGE. A list modified during
// iteration may skip or repeat elements. Iteration stops at the first error,
// which is yielded with an empty element.
func (l *List) All(ctx context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for start := int64(0); ; start += pageSize {
			page, err := l.b.LRange(ctx, l.name, start, start+pageSize-1)
			if err != nil {
				yield("", err)
				return
			}
			for _, v := range page {
				if !yield(v, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
		}
	}
}

// Count returns how many elements equal item.
func (l *List) Count(ctx context.Context, item string) (int64, error) {
	vals, err := l.Values(ctx)
	if err != nil {
		return 0, err
	}
	var c int64
	for _, v := range vals {
		if v == item {
			c++
		}
	}
	return c, nil
}

// Index returns the position of the first element equal to item, or
// ErrValueNotFound.
func (l *List) Index(ctx context.Context, item string) (int64, error) {
	vals, err := l.Values(ctx)
	if err != nil {
		return 0, err
	}
	if i := slices.Index(vals, item); i >= 0 {
		return int64(i), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrValueNotFound, item)
}

// IndexRange is Index restricted to positions [start, stop), with slice
// bound rules. The returned position is relative to the whole list.
func (l *List) IndexRange(ctx context.Context, item string, start, stop int64) (int64, error) {
	n, err := l.Len(ctx)
	if err != nil {
		return 0, err
	}
	lo, hi, _ := Span(start, stop).Indices(n)
	if lo < hi {
		vals, err := l.b.LRange(ctx, l.name, lo, hi-1)
		if err != nil {
			return 0, err
		}
		if i := slices.Index(vals, item); i >= 0 {
			return lo + int64(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrValueNotFound, item)
}

// Contains reports whether any element equals item.
func (l *List) Contains(ctx context.Context, item string) (bool, error) {
	_, err := l.Index(ctx, item)
	if errors.Is(err, ErrValueNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Reverse reverses the list in place: the elements are read, pushed back onto
// the tail in reverse order, and the original prefix is trimmed away.
func (l *List) Reverse(ctx context.Context) error {
	return l.rewrite(l.opContext(ctx, "reverse"), func(vals []string) {
		slices.Reverse(vals)
	})
}

// Sort sorts the list in place in ascending byte order.
func (l *List) Sort(ctx context.Context) error {
	return l.rewrite(l.opContext(ctx, "sort"), func(vals []string) {
		slices.Sort(vals)
	})
}

// SortFunc sorts the list in place with a comparison function, as
// slices.SortFunc does. The sort is stable.
func (l *List) SortFunc(ctx context.Context, cmpFn func(a, b string) int) error {
	if cmpFn == nil {
		cmpFn = cmp.Compare[string]
	}
	return l.rewrite(l.opContext(ctx, "sort"), func(vals []string) {
		slices.SortStableFunc(vals, cmpFn)
	})
}

// rewrite replaces the list with transform applied to its current contents,
// keeping the same key: the new order is appended one RPUSH per element, then
// the first n elements are trimmed away.
func (l *List) rewrite(ctx context.Context, transform func([]string)) error {
	vals, err := l.Values(ctx)
	if err != nil {
		return err
	}
	n := int64(len(vals))
	if n < 2 {
		return nil
	}
	transform(vals)
	l.log.DebugContext(ctx, "list.rewrite", slog.Int64("len", n))
	for _, v := range vals {
		if _, err := l.b.RPush(ctx, l.name, v); err != nil {
			return err
		}
	}
	return l.b.LTrim(ctx, l.name, n, -1)
}

// Clear pops from the head until the list is empty.
func (l *List) Clear(ctx context.Context) error {
	for {
		_, err := l.b.LPop(ctx, l.name)
		if errors.Is(err, backend.ErrNil) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Copy reads the list and writes it to a new list on the same handle in a
// single RPUSH. The copy is anonymous unless WithName is given; a named
// target must not exist yet (ErrKeyExists).
func (l *List) Copy(ctx context.Context, opts ...Option) (*List, error) {
	vals, err := l.Values(ctx)
	if err != nil {
		return nil, err
	}
	copyOpts, err := l.copyOptions(ctx, opts)
	if err != nil {
		return nil, err
	}
	dst, err := NewList(ctx, nil, copyOpts...)
	if err != nil {
		return nil, err
	}
	if len(vals) > 0 {
		if _, err := dst.b.RPush(ctx, dst.name, vals...); err != nil {
			return nil, err
		}
	}
	return dst, nil
}
