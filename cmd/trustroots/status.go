package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/trustroots/internal"
)

var errStoreAbsent = errors.New("no root certificate store available")

func newStatusCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show which source was loaded and how many roots it produced",
		Long:  "Load the root store and report the selected source, the valid and invalid certificate counts and the store size. Exits non-zero when no store is available.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.loadRoots(a.sources)
			r := internal.Status(a.sources.Select(), store, err, time.Now())
			out, ferr := internal.FormatStatus(r, format)
			if ferr != nil {
				return ferr
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			if !r.Loaded {
				return errStoreAbsent
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")
	registerCompletion(cmd, completionInput{"format", fixedCompletion("text", "json")})
	return cmd
}
