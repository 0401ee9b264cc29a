package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/trustroots/internal"
)

var errVerificationFailed = errors.New("verification failed")

var verifyFormats = []string{"text", "json"}

// parseDuration extends time.ParseDuration to support a "d" suffix for days.
func parseDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") {
		trimmed := strings.TrimSuffix(s, "d")
		days, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q: %w", s, err)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func newVerifyCmd(a *app) *cobra.Command {
	var (
		timeout    time.Duration
		expiry     string
		serverName string
		format     string
	)
	cmd := &cobra.Command{
		Use:   "verify <https-url|host[:port]>",
		Short: "Verify a TLS endpoint's chain against the loaded store",
		Long:  "Connect to a TLS endpoint, verify its certificate chain and hostname against the loaded root store, and print the verified chain.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(verifyFormats, format) {
				return fmt.Errorf("unsupported output format %q (use text or json)", format)
			}

			var expiryDuration time.Duration
			if expiry != "" {
				var err error
				expiryDuration, err = parseDuration(expiry)
				if err != nil {
					return fmt.Errorf("invalid --expiry value: %w", err)
				}
			}

			store, err := a.roots()
			if err != nil {
				return err
			}

			result, err := internal.VerifyEndpoint(cmd.Context(), internal.VerifyInput{
				Target:         args[0],
				Store:          store,
				Timeout:        timeout,
				ServerName:     serverName,
				ExpiryDuration: expiryDuration,
			})
			if err != nil {
				return err
			}

			if format == "json" {
				out, err := internal.MarshalJSON(result)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
			} else {
				fmt.Fprint(cmd.OutOrStdout(), internal.FormatVerifyResult(result))
			}

			if len(result.Errors) > 0 {
				return errVerificationFailed
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Connection timeout")
	cmd.Flags().StringVarP(&expiry, "expiry", "e", "", "Check if the leaf expires within duration (e.g., 30d, 720h)")
	cmd.Flags().StringVar(&serverName, "servername", "", "Server name for SNI and hostname verification (default: target host)")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")
	registerCompletion(cmd, completionInput{"format", fixedCompletion(verifyFormats...)})
	return cmd
}
