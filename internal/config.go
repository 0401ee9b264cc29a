package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/sensiblebit/trustroots"
)

// SourcesConfig selects the root certificate sources.
type SourcesConfig struct {
	Embedded *bool  `yaml:"embedded,omitempty" toml:"embedded,omitempty"`
	Native   *bool  `yaml:"native,omitempty" toml:"native,omitempty"`
	Prefer   string `yaml:"prefer,omitempty" toml:"prefer,omitempty"` // "embedded" or "native"
}

// NativeConfig overrides the native trust store locations on Unix.
type NativeConfig struct {
	CertFiles []string `yaml:"certFiles,omitempty" toml:"certFiles,omitempty"`
	CertDirs  []string `yaml:"certDirs,omitempty" toml:"certDirs,omitempty"`
}

// LogConfig sets the default log level and format.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" toml:"level,omitempty"`
	Format string `yaml:"format,omitempty" toml:"format,omitempty"`
}

// Config represents the trustroots configuration file.
type Config struct {
	Sources SourcesConfig `yaml:"sources" toml:"sources"`
	Native  NativeConfig  `yaml:"native,omitempty" toml:"native,omitempty"`
	Log     LogConfig     `yaml:"log,omitempty" toml:"log,omitempty"`
}

// LoadConfig loads the configuration from the specified file: TOML when the
// extension is .toml, YAML otherwise. Unknown keys are rejected so typos do
// not silently change the source selection. An empty file is an empty
// configuration.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else {
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if _, err := trustroots.ParsePrecedence(cfg.Sources.Prefer); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// SourceConfig converts the file into a trustroots.SourceConfig on top of
// base. Only fields present in the file override base.
func (c *Config) SourceConfig(base trustroots.SourceConfig) (trustroots.SourceConfig, error) {
	out := base
	if c == nil {
		return out, nil
	}
	if c.Sources.Embedded != nil {
		out.Embedded = *c.Sources.Embedded
	}
	if c.Sources.Native != nil {
		out.Native = *c.Sources.Native
	}
	if c.Sources.Prefer != "" {
		p, err := trustroots.ParsePrecedence(c.Sources.Prefer)
		if err != nil {
			return out, err
		}
		out.Prefer = p
	}
	if len(c.Native.CertFiles) > 0 {
		out.CertFiles = c.Native.CertFiles
	}
	if len(c.Native.CertDirs) > 0 {
		out.CertDirs = c.Native.CertDirs
	}
	return out, nil
}
