package memorybackend

import (
	"context"
	"path"
	"slices"
	"sync"

	"github.com/ggoodman/redis-collections-go/backend"
)

const defaultScanCount = 10

// Backend is an in-memory implementation of backend.Backend.
type Backend struct {
	mu    sync.Mutex
	lists map[string][]string
	sets  map[string]map[string]struct{}

	// calls counts executed commands by name; tests use it to check how many
	// round trips an algorithm needs.
	calls map[string]int
}

// New returns an empty in-memory Backend.
func New() *Backend {
	return &Backend{
		lists: make(map[string][]string),
		sets:  make(map[string]map[string]struct{}),
		calls: make(map[string]int),
	}
}

// Calls returns how many times the named command (e.g. "RPOPLPUSH") ran.
func (b *Backend) Calls(command string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[command]
}

// ResetCalls zeroes every command counter.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	b.calls = make(map[string]int)
	b.mu.Unlock()
}

func (b *Backend) Close() error { return nil }

// --- Sets ---

func (b *Backend) SIsMember(ctx context.Context, key, member string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["SISMEMBER"]++
	s, err := b.setLocked(key, false)
	if err != nil || s == nil {
		return false, err
	}
	_, ok := s[member]
	return ok, nil
}

func (b *Backend) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["SADD"]++
	if len(members) == 0 {
		return 0, backend.ErrNoValues
	}
	s, err := b.setLocked(key, true)
	if err != nil {
		return 0, err
	}
	var added int64
	for _, m := range members {
		if _, ok := s[m]; !ok {
			s[m] = struct{}{}
			added++
		}
	}
	return added, nil
}

func (b *Backend) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["SREM"]++
	if len(members) == 0 {
		return 0, backend.ErrNoValues
	}
	s, err := b.setLocked(key, false)
	if err != nil || s == nil {
		return 0, err
	}
	var removed int64
	for _, m := range members {
		if _, ok := s[m]; ok {
			delete(s, m)
			removed++
		}
	}
	b.dropEmptyLocked(key)
	return removed, nil
}

func (b *Backend) SPop(ctx context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["SPOP"]++
	s, err := b.setLocked(key, false)
	if err != nil {
		return "", err
	}
	// Map iteration order is randomized, which is all SPOP promises.
	for m := range s {
		delete(s, m)
		b.dropEmptyLocked(key)
		return m, nil
	}
	return "", backend.ErrNil
}

func (b *Backend) SCard(ctx context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["SCARD"]++
	s, err := b.setLocked(key, false)
	if err != nil {
		return 0, err
	}
	return int64(len(s)), nil
}

// SScan pages through the members in sorted order; the cursor is the offset
// of the next page.
func (b *Backend) SScan(ctx context.Context, key string, cursor uint64, match string, count int64) ([]string, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["SSCAN"]++
	s, err := b.setLocked(key, false)
	if err != nil {
		return nil, 0, err
	}
	if count <= 0 {
		count = defaultScanCount
	}
	all := make([]string, 0, len(s))
	for m := range s {
		all = append(all, m)
	}
	slices.Sort(all)
	if cursor >= uint64(len(all)) {
		return nil, 0, nil
	}
	end := cursor + uint64(count)
	if end > uint64(len(all)) {
		end = uint64(len(all))
	}
	page := make([]string, 0, end-cursor)
	for _, m := range all[cursor:end] {
		if match != "" {
			if ok, _ := path.Match(match, m); !ok {
				continue
			}
		}
		page = append(page, m)
	}
	next := end
	if next == uint64(len(all)) {
		next = 0
	}
	return page, next, nil
}

// --- Lists ---

func (b *Backend) LLen(ctx context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["LLEN"]++
	l, err := b.listLocked(key)
	if err != nil {
		return 0, err
	}
	return int64(len(l)), nil
}

func (b *Backend) LIndex(ctx context.Context, key string, index int64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["LINDEX"]++
	l, err := b.listLocked(key)
	if err != nil {
		return "", err
	}
	i, ok := position(index, len(l))
	if !ok {
		return "", backend.ErrNil
	}
	return l[i], nil
}

func (b *Backend) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["LRANGE"]++
	l, err := b.listLocked(key)
	if err != nil {
		return nil, err
	}
	lo, hi := window(start, stop, len(l))
	if lo > hi {
		return []string{}, nil
	}
	return slices.Clone(l[lo : hi+1]), nil
}

func (b *Backend) LSet(ctx context.Context, key string, index int64, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["LSET"]++
	l, err := b.listLocked(key)
	if err != nil {
		return err
	}
	i, ok := position(index, len(l))
	if !ok {
		return backend.ErrIndexOutOfRange
	}
	l[i] = value
	return nil
}

func (b *Backend) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["LPUSH"]++
	if len(values) == 0 {
		return 0, backend.ErrNoValues
	}
	l, err := b.listLocked(key)
	if err != nil {
		return 0, err
	}
	head := make([]string, 0, len(values)+len(l))
	for i := len(values) - 1; i >= 0; i-- {
		head = append(head, values[i])
	}
	l = append(head, l...)
	b.lists[key] = l
	return int64(len(l)), nil
}

func (b *Backend) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["RPUSH"]++
	if len(values) == 0 {
		return 0, backend.ErrNoValues
	}
	l, err := b.listLocked(key)
	if err != nil {
		return 0, err
	}
	l = append(l, values...)
	b.lists[key] = l
	return int64(len(l)), nil
}

func (b *Backend) LPop(ctx context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["LPOP"]++
	l, err := b.listLocked(key)
	if err != nil {
		return "", err
	}
	if len(l) == 0 {
		return "", backend.ErrNil
	}
	v := l[0]
	b.lists[key] = l[1:]
	b.dropEmptyLocked(key)
	return v, nil
}

func (b *Backend) RPop(ctx context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["RPOP"]++
	return b.rpopLocked(key)
}

func (b *Backend) RPopLPush(ctx context.Context, source, destination string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["RPOPLPUSH"]++
	if _, err := b.listLocked(destination); err != nil {
		return "", err
	}
	v, err := b.rpopLocked(source)
	if err != nil {
		return "", err
	}
	b.lists[destination] = append([]string{v}, b.lists[destination]...)
	return v, nil
}

func (b *Backend) LInsertBefore(ctx context.Context, key, pivot, value string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["LINSERT"]++
	l, err := b.listLocked(key)
	if err != nil {
		return 0, err
	}
	if len(l) == 0 {
		return 0, nil
	}
	i := slices.Index(l, pivot)
	if i < 0 {
		return -1, nil
	}
	l = slices.Insert(l, i, value)
	b.lists[key] = l
	return int64(len(l)), nil
}

func (b *Backend) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["LREM"]++
	l, err := b.listLocked(key)
	if err != nil {
		return 0, err
	}
	limit := count
	if limit < 0 {
		limit = -limit
	}
	var removed int64
	if count >= 0 {
		for i := 0; i < len(l); {
			if l[i] == value && (limit == 0 || removed < limit) {
				l = slices.Delete(l, i, i+1)
				removed++
				continue
			}
			i++
		}
	} else {
		for i := len(l) - 1; i >= 0; i-- {
			if l[i] == value && removed < limit {
				l = slices.Delete(l, i, i+1)
				removed++
			}
		}
	}
	b.lists[key] = l
	b.dropEmptyLocked(key)
	return removed, nil
}

func (b *Backend) LTrim(ctx context.Context, key string, start, stop int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["LTRIM"]++
	l, err := b.listLocked(key)
	if err != nil {
		return err
	}
	lo, hi := window(start, stop, len(l))
	if lo > hi {
		b.lists[key] = nil
	} else {
		b.lists[key] = slices.Clone(l[lo : hi+1])
	}
	b.dropEmptyLocked(key)
	return nil
}

// --- Keys ---

func (b *Backend) Del(ctx context.Context, keys ...string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["DEL"]++
	var n int64
	for _, k := range keys {
		if _, ok := b.lists[k]; ok {
			delete(b.lists, k)
			n++
		}
		if _, ok := b.sets[k]; ok {
			delete(b.sets, k)
			n++
		}
	}
	return n, nil
}

func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["EXISTS"]++
	_, isList := b.lists[key]
	_, isSet := b.sets[key]
	return isList || isSet, nil
}

// Interface compliance
var _ backend.Backend = (*Backend)(nil)

// --- Helpers ---

func (b *Backend) listLocked(key string) ([]string, error) {
	if _, ok := b.sets[key]; ok {
		return nil, backend.ErrWrongType
	}
	return b.lists[key], nil
}

func (b *Backend) setLocked(key string, create bool) (map[string]struct{}, error) {
	if _, ok := b.lists[key]; ok {
		return nil, backend.ErrWrongType
	}
	s, ok := b.sets[key]
	if !ok && create {
		s = make(map[string]struct{})
		b.sets[key] = s
	}
	return s, nil
}

func (b *Backend) rpopLocked(key string) (string, error) {
	l, err := b.listLocked(key)
	if err != nil {
		return "", err
	}
	if len(l) == 0 {
		return "", backend.ErrNil
	}
	v := l[len(l)-1]
	b.lists[key] = l[:len(l)-1]
	b.dropEmptyLocked(key)
	return v, nil
}

// dropEmptyLocked removes key once its list or set is empty, as Redis does.
func (b *Backend) dropEmptyLocked(key string) {
	if l, ok := b.lists[key]; ok && len(l) == 0 {
		delete(b.lists, key)
	}
	if s, ok := b.sets[key]; ok && len(s) == 0 {
		delete(b.sets, key)
	}
}

// position resolves a possibly negative Redis index against a list of length n.
func position(index int64, n int) (int, bool) {
	if index < 0 {
		index += int64(n)
	}
	if index < 0 || index >= int64(n) {
		return 0, false
	}
	return int(index), true
}

// window resolves inclusive LRANGE/LTRIM bounds; lo > hi means empty.
func window(start, stop int64, n int) (int, int) {
	length := int64(n)
	if start < 0 {
		start += length
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += length
	}
	if stop >= length {
		stop = length - 1
	}
	if start > stop || start >= length {
		return 1, 0
	}
	return int(start), int(stop)
}
