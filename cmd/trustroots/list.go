package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/trustroots/internal"
)

func newListCmd(a *app) *cobra.Command {
	var (
		format      string
		onlyExpired bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the root certificates in the loaded store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.roots()
			if err != nil {
				return err
			}
			infos := internal.DescribeStore(store, time.Now())
			if onlyExpired {
				infos = slices.DeleteFunc(infos, func(r internal.RootInfo) bool {
					return !r.Expired && !r.Expiring
				})
			}
			out, err := internal.FormatRoots(infos, format)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, text, json")
	cmd.Flags().BoolVar(&onlyExpired, "expired", false, "Only list expired or soon expiring roots")
	registerCompletion(cmd, completionInput{"format", fixedCompletion("table", "text", "json")})
	return cmd
}
