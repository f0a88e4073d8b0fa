package collections

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ggoodman/redis-collections-go/backend"
	"github.com/spf13/cast"
)

// Command is a backend command with the collection key already bound as its
// first argument.
type Command struct {
	name string
	key  string
	b    backend.Backend
	fn   commandFunc
}

// Name returns the lower-case command name.
func (c *Command) Name() string { return c.name }

// Call runs the command with args following the key. Arguments are coerced to
// the types the command expects, so Call(ctx, "2") and Call(ctx, 2) both work
// for an integer index. The result is the backend's reply: bool, int64, string,
// []string or nil.
func (c *Command) Call(ctx context.Context, args ...any) (any, error) {
	return c.fn(ctx, c.b, c.key, args)
}

type commandFunc func(ctx context.Context, b backend.Backend, key string, args []any) (any, error)

var keyCommands = map[string]commandFunc{
	"del": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("del", args, 0, 0); err != nil {
			return nil, err
		}
		return b.Del(ctx, key)
	},
	"exists": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("exists", args, 0, 0); err != nil {
			return nil, err
		}
		return b.Exists(ctx, key)
	},
}

var setCommands = withKeyCommands(map[string]commandFunc{
	"sismember": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		member, err := oneString("sismember", args)
		if err != nil {
			return nil, err
		}
		return b.SIsMember(ctx, key, member)
	},
	"sadd": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		members, err := someStrings("sadd", args)
		if err != nil {
			return nil, err
		}
		return b.SAdd(ctx, key, members...)
	},
	"srem": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		members, err := someStrings("srem", args)
		if err != nil {
			return nil, err
		}
		return b.SRem(ctx, key, members...)
	},
	"spop": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("spop", args, 0, 0); err != nil {
			return nil, err
		}
		return nilable(b.SPop(ctx, key))
	},
	"scard": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("scard", args, 0, 0); err != nil {
			return nil, err
		}
		return b.SCard(ctx, key)
	},
	// sscan [cursor [match [count]]] returns the page of members only; use
	// Set.All for a complete iteration.
	"sscan": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("sscan", args, 0, 3); err != nil {
			return nil, err
		}
		var (
			cursor uint64
			match  string
			count  int64
			err    error
		)
		if len(args) > 0 {
			if cursor, err = cast.ToUint64E(args[0]); err != nil {
				return nil, badArg("sscan", 0, err)
			}
		}
		if len(args) > 1 {
			if match, err = cast.ToStringE(args[1]); err != nil {
				return nil, badArg("sscan", 1, err)
			}
		}
		if len(args) > 2 {
			if count, err = cast.ToInt64E(args[2]); err != nil {
				return nil, badArg("sscan", 2, err)
			}
		}
		members, _, err := b.SScan(ctx, key, cursor, match, count)
		return members, err
	},
})

var listCommands = withKeyCommands(map[string]commandFunc{
	"llen": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("llen", args, 0, 0); err != nil {
			return nil, err
		}
		return b.LLen(ctx, key)
	},
	"lindex": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("lindex", args, 1, 1); err != nil {
			return nil, err
		}
		index, err := cast.ToInt64E(args[0])
		if err != nil {
			return nil, badArg("lindex", 0, err)
		}
		return nilable(b.LIndex(ctx, key, index))
	},
	"lrange": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("lrange", args, 2, 2); err != nil {
			return nil, err
		}
		start, err := cast.ToInt64E(args[0])
		if err != nil {
			return nil, badArg("lrange", 0, err)
		}
		stop, err := cast.ToInt64E(args[1])
		if err != nil {
			return nil, badArg("lrange", 1, err)
		}
		return b.LRange(ctx, key, start, stop)
	},
	"lset": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("lset", args, 2, 2); err != nil {
			return nil, err
		}
		index, err := cast.ToInt64E(args[0])
		if err != nil {
			return nil, badArg("lset", 0, err)
		}
		value, err := cast.ToStringE(args[1])
		if err != nil {
			return nil, badArg("lset", 1, err)
		}
		return nil, b.LSet(ctx, key, index, value)
	},
	"lpush": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		values, err := someStrings("lpush", args)
		if err != nil {
			return nil, err
		}
		return b.LPush(ctx, key, values...)
	},
	"rpush": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		values, err := someStrings("rpush", args)
		if err != nil {
			return nil, err
		}
		return b.RPush(ctx, key, values...)
	},
	"lpop": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("lpop", args, 0, 0); err != nil {
			return nil, err
		}
		return nilable(b.LPop(ctx, key))
	},
	"rpop": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("rpop", args, 0, 0); err != nil {
			return nil, err
		}
		return nilable(b.RPop(ctx, key))
	},
	// rpoplpush [destination] defaults the destination to the key itself,
	// which rotates the list by one.
	"rpoplpush": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("rpoplpush", args, 0, 1); err != nil {
			return nil, err
		}
		dest := key
		if len(args) == 1 {
			var err error
			if dest, err = cast.ToStringE(args[0]); err != nil {
				return nil, badArg("rpoplpush", 0, err)
			}
		}
		return nilable(b.RPopLPush(ctx, key, dest))
	},
	// linsert BEFORE pivot value; AFTER is not part of the vocabulary.
	"linsert": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("linsert", args, 3, 3); err != nil {
			return nil, err
		}
		strs, err := cast.ToStringSliceE(args)
		if err != nil {
			return nil, badArg("linsert", 0, err)
		}
		if !strings.EqualFold(strs[0], "before") {
			return nil, &UnsupportedOperationError{Kind: KindList, Operation: "linsert", Reason: "only BEFORE is supported"}
		}
		return b.LInsertBefore(ctx, key, strs[1], strs[2])
	},
	"lrem": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("lrem", args, 2, 2); err != nil {
			return nil, err
		}
		count, err := cast.ToInt64E(args[0])
		if err != nil {
			return nil, badArg("lrem", 0, err)
		}
		value, err := cast.ToStringE(args[1])
		if err != nil {
			return nil, badArg("lrem", 1, err)
		}
		return b.LRem(ctx, key, count, value)
	},
	"ltrim": func(ctx context.Context, b backend.Backend, key string, args []any) (any, error) {
		if err := arity("ltrim", args, 2, 2); err != nil {
			return nil, err
		}
		start, err := cast.ToInt64E(args[0])
		if err != nil {
			return nil, badArg("ltrim", 0, err)
		}
		stop, err := cast.ToInt64E(args[1])
		if err != nil {
			return nil, badArg("ltrim", 1, err)
		}
		return nil, b.LTrim(ctx, key, start, stop)
	},
})

func withKeyCommands(m map[string]commandFunc) map[string]commandFunc {
	for name, fn := range keyCommands {
		m[name] = fn
	}
	return m
}

func commandNames(m map[string]commandFunc) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// --- Argument helpers ---

func arity(name string, args []any, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrInvalidArgument, name, lo, len(args))
		}
		return fmt.Errorf("%w: %s takes %d to %d arguments, got %d", ErrInvalidArgument, name, lo, hi, len(args))
	}
	return nil
}

func badArg(name string, pos int, err error) error {
	return fmt.Errorf("%w: %s argument %d: %v", ErrInvalidArgument, name, pos, err)
}

func oneString(name string, args []any) (string, error) {
	if err := arity(name, args, 1, 1); err != nil {
		return "", err
	}
	s, err := cast.ToStringE(args[0])
	if err != nil {
		return "", badArg(name, 0, err)
	}
	return s, nil
}

func someStrings(name string, args []any) ([]string, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s needs at least one value", ErrInvalidArgument, name)
	}
	out := make([]string, len(args))
	for i, a := range args {
		s, err := cast.ToStringE(a)
		if err != nil {
			return nil, badArg(name, i, err)
		}
		out[i] = s
	}
	return out, nil
}

// nilable turns backend.ErrNil into a nil reply, the way a raw command
// surfaces an absent value.
func nilable(v string, err error) (any, error) {
	if errors.Is(err, backend.ErrNil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
