package cli

import (
	"fmt"

	"github.com/ggoodman/redis-collections-go/collections"
	"github.com/spf13/cobra"
)

func newAnonCommand(a *app) *cobra.Command {
	anon := &cobra.Command{
		Use:   "anon",
		Short: "Find and remove anonymous collections",
	}

	anon.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "List the keys of anonymous collections",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := a.backend(cmd.Context())
				if err != nil {
					return err
				}
				ids, err := collections.AnonymousIDs(cmd.Context(), b, a.namespace)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), a.namespace+":"+id)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "gc",
			Short: "Delete every anonymous collection and its discovery entry",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				b, err := a.backend(cmd.Context())
				if err != nil {
					return err
				}
				n, err := collections.CollectAnonymous(cmd.Context(), b, a.namespace)
				if err != nil {
					return err
				}
				a.log.InfoContext(cmd.Context(), "anon.gc", "namespace", a.namespace, "deleted", n)
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d collection(s)\n", n)
				return nil
			},
		},
	)

	return anon
}
