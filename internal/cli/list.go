package cli

import (
	"fmt"
	"strings"

	"github.com/ggoodman/redis-collections-go/collections"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

func newListCommand(a *app) *cobra.Command {
	list := &cobra.Command{
		Use:   "list",
		Short: "Read and edit list collections",
		Long: `Read and edit list collections.

Indices count from zero; negative indices count from the tail and must follow
"--" so they are not read as flags, as in: rcoll list get jobs -- -1`,
	}

	list.AddCommand(
		&cobra.Command{
			Use:   "get [key] [index|start:stop[:step]]",
			Short: "Print the whole list, one element, or a slice",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := a.list(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(args) == 1 {
					vals, err := l.Values(cmd.Context())
					if err != nil {
						return err
					}
					printLines(cmd.OutOrStdout(), vals)
					return nil
				}
				key, err := parseKey(args[1])
				if err != nil {
					return err
				}
				vals, err := l.GetItem(cmd.Context(), key)
				if err != nil {
					return err
				}
				printLines(cmd.OutOrStdout(), vals)
				return nil
			},
		},
		&cobra.Command{
			Use:   "push [key] [values...]",
			Short: "Append values to the tail of the list",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := a.list(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := l.Extend(cmd.Context(), args[1:]...); err != nil {
					return err
				}
				n, err := l.Len(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "(integer) %d\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "insert [key] [index] [value]",
			Short: "Insert a value before the given position",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := a.list(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				i, err := cast.ToInt64E(args[1])
				if err != nil {
					return fmt.Errorf("index must be a number: %w", err)
				}
				return l.Insert(cmd.Context(), i, args[2])
			},
		},
		&cobra.Command{
			Use:   "del [key] [index|start:stop]",
			Short: "Delete one element or a slice",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := a.list(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				key, err := parseKey(args[1])
				if err != nil {
					return err
				}
				return l.DeleteItem(cmd.Context(), key)
			},
		},
		&cobra.Command{
			Use:   "pop [key] [index]",
			Short: "Remove and print the last element, or the element at index",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := a.list(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				var v string
				if len(args) == 1 {
					v, err = l.Pop(cmd.Context())
				} else {
					var i int64
					if i, err = cast.ToInt64E(args[1]); err != nil {
						return fmt.Errorf("index must be a number: %w", err)
					}
					v, err = l.PopAt(cmd.Context(), i)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "reverse [key]",
			Short: "Reverse the list in place",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := a.list(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return l.Reverse(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "sort [key]",
			Short: "Sort the list in place",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := a.list(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return l.Sort(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "call [key] [command] [args...]",
			Short: "Run a raw list command with the key bound",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				l, err := a.list(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return callCommand(cmd, l.Collection, args[1], args[2:])
			},
		},
	)

	return list
}

// parseKey reads "3" as an Index and "start:stop[:step]" as a Slice, with
// empty parts left open.
func parseKey(s string) (collections.Key, error) {
	if !strings.Contains(s, ":") {
		i, err := cast.ToInt64E(s)
		if err != nil {
			return nil, fmt.Errorf("index must be a number: %w", err)
		}
		return collections.Index(i), nil
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return nil, fmt.Errorf("invalid slice %q", s)
	}
	bound := func(p string) (*int64, error) {
		if p == "" {
			return nil, nil
		}
		v, err := cast.ToInt64E(p)
		if err != nil {
			return nil, fmt.Errorf("invalid slice bound %q: %w", p, err)
		}
		return &v, nil
	}

	var sl collections.Slice
	var err error
	if sl.Start, err = bound(parts[0]); err != nil {
		return nil, err
	}
	if sl.Stop, err = bound(parts[1]); err != nil {
		return nil, err
	}
	if len(parts) == 3 && parts[2] != "" {
		if sl.Step, err = cast.ToInt64E(parts[2]); err != nil {
			return nil, fmt.Errorf("invalid slice step %q: %w", parts[2], err)
		}
	}
	return sl, nil
}

func callCommand(cmd *cobra.Command, c *collections.Collection, name string, rawArgs []string) error {
	args := make([]any, len(rawArgs))
	for i, v := range rawArgs {
		args[i] = v
	}
	reply, err := c.Call(cmd.Context(), name, args...)
	if err != nil {
		return err
	}
	printReply(cmd.OutOrStdout(), reply)
	return nil
}
