package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"

	// SourceServer reads targets from the marks server. Any other source value is a bookmarks.yaml path.
	SourceServer = "server"
)

// ClientConfig drives the linkcheck CLI.
type ClientConfig struct {
	Server       string        `mapstructure:"server"`
	Source       string        `mapstructure:"source"`
	Concurrency  int           `mapstructure:"concurrency"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache-ttl"`
	ForceRefresh bool          `mapstructure:"force-refresh"`
	CacheFile    string        `mapstructure:"cache-file"`
	CacheRedis   string        `mapstructure:"cache-redis"`
	Report       bool          `mapstructure:"report"`
	Output       string        `mapstructure:"output"`
	LogLevel     string        `mapstructure:"log-level"`
	Quiet        bool          `mapstructure:"quiet"`
}

// ErrHelp is returned when --help was requested.
var ErrHelp = pflag.ErrHelp

// LoadClient resolves the CLI configuration. Precedence is flags, then
// LINKCHECK_* environment variables, then the YAML config file, then defaults.
func LoadClient(args []string) (*ClientConfig, error) {
	fs := newClientFlags()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("LINKCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if err := readConfigFile(v, v.GetString("config")); err != nil {
		return nil, err
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.CacheFile == "" {
		cfg.CacheFile = defaultCacheFile()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newClientFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("linkcheck", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.String("config", "", "path to a YAML config file (default $XDG_CONFIG_HOME/marks/linkcheck.yaml)")
	fs.String("server", "", "base URL of the marks server; empty checks links directly")
	fs.String("source", SourceServer, `where targets come from: "server" or a bookmarks.yaml path`)
	fs.IntP("concurrency", "c", 20, "concurrent checks")
	fs.DurationP("timeout", "t", 5*time.Second, "overall timeout per link")
	fs.Duration("cache-ttl", 12*time.Hour, "reuse cached verdicts younger than this")
	fs.BoolP("force-refresh", "f", false, "ignore cached verdicts")
	fs.String("cache-file", "", "cache file (default $XDG_CACHE_HOME/marks/linkhealth.json)")
	fs.String("cache-redis", "", "store the cache in redis at this address instead of a file")
	fs.Bool("report", false, "send results back to the server")
	fs.StringP("output", "o", OutputTable, "output format: table or json")
	fs.String("log-level", "warn", "debug, info, warn or error")
	fs.BoolP("quiet", "q", false, "no progress line")
	return fs
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("linkcheck")
	v.SetConfigType("yaml")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "marks"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func defaultCacheFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "marks", "linkhealth.json")
}

func (c *ClientConfig) validate() error {
	switch {
	case c.Source == "":
		return errors.New("source is empty")
	case c.Source == SourceServer && c.Server == "":
		return errors.New(`source "server" needs --server`)
	case c.Report && c.Server == "":
		return errors.New("--report needs --server")
	case c.Concurrency < 1:
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	case c.CacheTTL <= 0:
		return fmt.Errorf("cache-ttl must be > 0, got %v", c.CacheTTL)
	case c.Output != OutputTable && c.Output != OutputJSON:
		return fmt.Errorf("unknown output %q", c.Output)
	}
	return nil
}

// ClientUsage renders the flag help.
func ClientUsage() string {
	return "Usage: linkcheck [flags]\n\n" + newClientFlags().FlagUsages()
}
