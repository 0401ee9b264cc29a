package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/trustroots"
	"github.com/sensiblebit/trustroots/internal"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format   string
		outPath  string
		password string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the loaded store as PEM, PKCS#7, JKS, PKCS#12 or an SQLite catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.roots()
			if err != nil {
				return err
			}
			if err := internal.WriteExport(internal.ExportInput{
				Store:    store,
				Format:   format,
				Password: password,
				OutPath:  outPath,
				Stdout:   cmd.OutOrStdout(),
			}); err != nil {
				return err
			}
			if outPath != "" && outPath != "-" {
				slog.Info("exported roots", "format", format, "path", outPath, "count", store.Len())
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "pem", "Export format: pem, p7b, jks, p12, sqlite")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&password, "password", trustroots.DefaultJKSPassword, "Store password for jks and p12")
	registerCompletion(cmd, completionInput{"format", fixedCompletion(internal.ExportFormats...)})
	registerCompletion(cmd, completionInput{"out", fileCompletion})
	return cmd
}
