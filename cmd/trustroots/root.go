package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sensiblebit/trustroots"
	"github.com/sensiblebit/trustroots/internal"
)

// app holds the persistent flag values and the resolved source
// configuration shared by every subcommand.
type app struct {
	logLevel   string
	logFormat  string
	configPath string
	embedded   bool
	native     bool
	prefer     string
	certFiles  []string
	certDirs   []string

	// sources is resolved from the config file and flags before any
	// subcommand runs.
	sources trustroots.SourceConfig
	// loadRoots installs sources and returns the store they produce.
	loadRoots func(trustroots.SourceConfig) (*trustroots.Store, error)
}

// loadDefaultRoots installs cfg as the process-wide source configuration and
// returns the process-wide store.
func loadDefaultRoots(cfg trustroots.SourceConfig) (*trustroots.Store, error) {
	if err := trustroots.SetDefaultSources(cfg); err != nil {
		return nil, err
	}
	return trustroots.Roots(), trustroots.RootsErr()
}

// roots returns the loaded store, or an error when there is none.
func (a *app) roots() (*trustroots.Store, error) {
	store, err := a.loadRoots(a.sources)
	if store != nil {
		return store, nil
	}
	if err == nil {
		err = fmt.Errorf("%w (source: %s)", trustroots.ErrNoRoots, a.sources.Select())
	}
	return nil, err
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "trustroots",
		Short:         "Trusted root CA store tool",
		Long:          "Load the trusted root CA store from the embedded Mozilla bundle or the host trust store, then inspect, verify against and export it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.resolve(cmd.Flags())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.logLevel, "log-level", "l", "info", "Log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "text", "Log format: text, json")
	flags.StringVarP(&a.configPath, "config", "c", "", "Configuration file (.yaml or .toml)")
	flags.BoolVar(&a.embedded, "embedded", true, "Enable the embedded Mozilla root bundle")
	flags.BoolVar(&a.native, "native", false, "Enable the host operating system trust store")
	flags.StringVar(&a.prefer, "prefer", "embedded", "Source used when both are enabled: embedded, native")
	flags.StringSliceVar(&a.certFiles, "cert-file", nil, "Bundle files for the native source (first readable wins)")
	flags.StringSliceVar(&a.certDirs, "cert-dir", nil, "Certificate directories for the native source")

	registerCompletion(rootCmd, completionInput{"log-level", fixedCompletion("debug", "info", "warn", "error")})
	registerCompletion(rootCmd, completionInput{"log-format", fixedCompletion("text", "json")})
	registerCompletion(rootCmd, completionInput{"prefer", fixedCompletion("embedded", "native")})
	registerCompletion(rootCmd, completionInput{"config", fileCompletion})
	registerCompletion(rootCmd, completionInput{"cert-file", fileCompletion})
	registerCompletion(rootCmd, completionInput{"cert-dir", directoryCompletion})

	rootCmd.AddCommand(newStatusCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newVerifyCmd(a))
	rootCmd.AddCommand(newExportCmd(a))
	rootCmd.AddCommand(newCatalogCmd())
	return rootCmd
}

// resolve layers the defaults, the config file and explicitly set flags into
// a source configuration, and sets up logging.
func (a *app) resolve(flags *pflag.FlagSet) error {
	sources := trustroots.DefaultSourceConfig()
	level, format := a.logLevel, a.logFormat

	if a.configPath != "" {
		cfg, err := internal.LoadConfig(a.configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if sources, err = cfg.SourceConfig(sources); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if !flags.Changed("log-level") && cfg.Log.Level != "" {
			level = cfg.Log.Level
		}
		if !flags.Changed("log-format") && cfg.Log.Format != "" {
			format = cfg.Log.Format
		}
	}

	if flags.Changed("embedded") {
		sources.Embedded = a.embedded
	}
	if flags.Changed("native") {
		sources.Native = a.native
	}
	if flags.Changed("prefer") {
		p, err := trustroots.ParsePrecedence(a.prefer)
		if err != nil {
			return fmt.Errorf("invalid --prefer value: %w", err)
		}
		sources.Prefer = p
	}
	if flags.Changed("cert-file") {
		sources.CertFiles = a.certFiles
	}
	if flags.Changed("cert-dir") {
		sources.CertDirs = a.certDirs
	}

	internal.SetupLogger(level, format)
	a.sources = sources
	return nil
}
