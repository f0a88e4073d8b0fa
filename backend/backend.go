package backend

import (
	"context"
	"errors"
)

var (
	// ErrNil is returned when the store replies with an absent value: popping
	// from an empty list or set, or reading a list index that does not exist.
	ErrNil = errors.New("backend: nil reply")
	// ErrIndexOutOfRange is returned by LSet when the index is outside the list
	// or the key does not exist.
	ErrIndexOutOfRange = errors.New("backend: index out of range")
	// ErrWrongType is returned when a command is applied to a key holding a
	// value of another kind (for example a list command on a set).
	ErrWrongType = errors.New("backend: operation against a key holding the wrong kind of value")
	// ErrNoValues is returned by SAdd, SRem, LPush and RPush when called
	// without any member or value. Nothing is sent to the store and no key is
	// created.
	ErrNoValues = errors.New("backend: command needs at least one value")
)

// Backend is the fixed vocabulary of primitive commands the collections layer
// consumes. Every method is a single atomic round trip against the store.
// Index arguments follow Redis semantics: negative values count from the tail
// (-1 is the last element) and LRange bounds are inclusive.
//
// Implementations must be safe for concurrent use; no ordering is guaranteed
// between calls issued by different goroutines.
type Backend interface {
	// Unordered sets.
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SAdd(ctx context.Context, key string, members ...string) (added int64, err error)
	SRem(ctx context.Context, key string, members ...string) (removed int64, err error)
	// SPop removes and returns a random member, or ErrNil if the set is empty.
	SPop(ctx context.Context, key string) (string, error)
	SCard(ctx context.Context, key string) (int64, error)
	// SScan returns one page of members and the cursor for the next page. A
	// returned cursor of 0 means the iteration is complete.
	SScan(ctx context.Context, key string, cursor uint64, match string, count int64) (members []string, next uint64, err error)

	// Lists.
	LLen(ctx context.Context, key string) (int64, error)
	// LIndex returns ErrNil when index is out of range.
	LIndex(ctx context.Context, key string, index int64) (string, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// LSet returns ErrIndexOutOfRange when index is out of range or the key
	// does not exist.
	LSet(ctx context.Context, key string, index int64, value string) error
	LPush(ctx context.Context, key string, values ...string) (length int64, err error)
	RPush(ctx context.Context, key string, values ...string) (length int64, err error)
	// LPop and RPop return ErrNil when the list is empty.
	LPop(ctx context.Context, key string) (string, error)
	RPop(ctx context.Context, key string) (string, error)
	// RPopLPush atomically moves the tail of source to the head of
	// destination. With source == destination it rotates the list by one.
	RPopLPush(ctx context.Context, source, destination string) (string, error)
	// LInsertBefore inserts value before the first occurrence of pivot and
	// returns the new length, or -1 if pivot was not found.
	LInsertBefore(ctx context.Context, key, pivot, value string) (int64, error)
	// LRem removes up to |count| occurrences of value. A positive count scans
	// from the head, a negative count from the tail, zero removes all.
	LRem(ctx context.Context, key string, count int64, value string) (removed int64, err error)
	// LTrim keeps the inclusive range [start, stop] and drops the rest.
	LTrim(ctx context.Context, key string, start, stop int64) error

	// Keys.
	Del(ctx context.Context, keys ...string) (deleted int64, err error)
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the resources held by the handle.
	Close() error
}
