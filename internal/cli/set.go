package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

func newSetCommand(a *app) *cobra.Command {
	set := &cobra.Command{
		Use:   "set",
		Short: "Read and edit set collections",
	}

	set.AddCommand(
		&cobra.Command{
			Use:   "add [key] [members...]",
			Short: "Add members to the set",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.set(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if err := s.Add(cmd.Context(), args[1:]...); err != nil {
					return err
				}
				n, err := s.Len(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "(integer) %d\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "members [key]",
			Short: "Print every member, sorted",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.set(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				members, err := s.Members(cmd.Context())
				if err != nil {
					return err
				}
				slices.Sort(members)
				printLines(cmd.OutOrStdout(), members)
				return nil
			},
		},
		&cobra.Command{
			Use:   "pop [key]",
			Short: "Remove and print a random member",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.set(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				v, err := s.Pop(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "call [key] [command] [args...]",
			Short: "Run a raw set command with the key bound",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.set(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return callCommand(cmd, s.Collection, args[1], args[2:])
			},
		},
	)

	return set
}
