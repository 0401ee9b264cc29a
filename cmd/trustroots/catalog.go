package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/trustroots/internal"
)

func newCatalogCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:               "catalog <db>",
		Short:             "List the roots of an exported SQLite catalog",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: fileCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := internal.LoadCatalog(args[0])
			if err != nil {
				return err
			}
			store, err := internal.CatalogStore(rows)
			if err != nil {
				return err
			}
			out, err := internal.FormatRoots(internal.DescribeStore(store, time.Now()), format)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, text, json")
	registerCompletion(cmd, completionInput{"format", fixedCompletion("table", "text", "json")})
	return cmd
}
