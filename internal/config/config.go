// Package config holds the run configuration of spectrumindex.
// Priority: defaults < config file < environment < command line flags
package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/524D/spectrumindex/internal/scanindex"
)

// DefaultCacheRoot is the repository that holds previously computed indexes
const DefaultCacheRoot = `/data/massive`

// EnvPrefix is the prefix of environment variables that override the config
const EnvPrefix = `SPECTRUMINDEX_`

// Config holds all settings of an index run
type Config struct {
	OutputDir string `yaml:"output_dir"`
	ErrorDir  string `yaml:"error_dir"`
	InputRoot string `yaml:"input_root"`
	// DefaultMSLevel is kept as text, as it is given on the command line
	DefaultMSLevel string `yaml:"default_ms_level"`
	CacheRoot      string `yaml:"cache_root"`
	Jobs           int    `yaml:"jobs"`
	FailFast       bool   `yaml:"fail_fast"`
	Progress       bool   `yaml:"progress"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		DefaultMSLevel: `0`,
		CacheRoot:      DefaultCacheRoot,
		Jobs:           1,
	}
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == `` {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, errors.Wrap(err, "read config")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return c, errors.Wrapf(err, "parse config %s", path)
	}
	return c, nil
}

// field binds a config value to its flag and environment variable
type field struct {
	flag string
	env  string
	set  func(c *Config, v string) error
}

func setString(p func(c *Config) *string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		*p(c) = v
		return nil
	}
}

var fields = []field{
	{`output_folder`, `OUTPUT_DIR`,
		setString(func(c *Config) *string { return &c.OutputDir })},
	{`error_folder`, `ERROR_DIR`,
		setString(func(c *Config) *string { return &c.ErrorDir })},
	{`input_root`, `INPUT_ROOT`,
		setString(func(c *Config) *string { return &c.InputRoot })},
	{`default_ms_level`, `DEFAULT_MS_LEVEL`,
		setString(func(c *Config) *string { return &c.DefaultMSLevel })},
	{`cache_root`, `CACHE_ROOT`,
		setString(func(c *Config) *string { return &c.CacheRoot })},
	{`jobs`, `JOBS`,
		func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(err, "jobs %q", v)
			}
			c.Jobs = n
			return nil
		}},
	{`fail_fast`, `FAIL_FAST`,
		func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(err, "fail_fast %q", v)
			}
			c.FailFast = b
			return nil
		}},
	{`progress`, `PROGRESS`,
		func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(err, "progress %q", v)
			}
			c.Progress = b
			return nil
		}},
}

// ApplyEnv overrides values with SPECTRUMINDEX_* environment variables
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, f := range fields {
		if v, ok := lookup(EnvPrefix + f.env); ok {
			if err := f.set(c, v); err != nil {
				return errors.WithMessage(err, EnvPrefix+f.env)
			}
		}
	}
	return nil
}

// ApplyFlags overrides values with the flags of fs that were set on the
// command line. Flags are matched on their name, with '-' and '_' treated
// the same.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	for _, f := range fields {
		flag := fs.Lookup(flagName(f.flag))
		if flag == nil || !flag.Changed {
			continue
		}
		if err := f.set(c, flag.Value.String()); err != nil {
			return errors.WithMessage(err, "--"+flag.Name)
		}
	}
	return nil
}

func flagName(name string) string {
	return strings.ReplaceAll(name, `_`, `-`)
}

// MSLevel returns the default MS level as integer
func (c *Config) MSLevel() (int, error) {
	level, err := strconv.Atoi(c.DefaultMSLevel)
	if err != nil || level < 0 {
		return 0, errors.Errorf("invalid default MS level %q", c.DefaultMSLevel)
	}
	return level, nil
}

// CheckInput verifies that an input and an output directory were given.
// It returns scanindex.ErrMissingInput otherwise.
func (c *Config) CheckInput(inputs ...string) error {
	if c.OutputDir == `` {
		return scanindex.ErrMissingInput
	}
	for _, in := range inputs {
		if in != `` {
			return nil
		}
	}
	return scanindex.ErrMissingInput
}

// IndexOptions converts the config to scanindex options
func (c *Config) IndexOptions() (scanindex.Options, error) {
	level, err := c.MSLevel()
	if err != nil {
		return scanindex.Options{}, err
	}
	return scanindex.Options{
		OutputDir:      c.OutputDir,
		ErrorDir:       c.ErrorDir,
		InputRoot:      c.InputRoot,
		DefaultMSLevel: level,
	}, nil
}
