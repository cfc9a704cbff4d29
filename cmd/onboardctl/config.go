package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/alljoyn/services-onboarding/pkg/onboarding"
)

// Config is the onboardctl configuration file. YAML and TOML are accepted,
// picked by file extension.
type Config struct {
	// Interface is the wireless interface to drive. Empty lets
	// NetworkManager pick.
	Interface string `yaml:"interface" toml:"interface"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// TraceFile receives CBOR trace events when set.
	TraceFile string `yaml:"trace_file" toml:"trace_file"`

	// StateFile records onboarded devices when set.
	StateFile string `yaml:"state_file" toml:"state_file"`

	// MetricsAddr serves Prometheus metrics when set (e.g. ":9101").
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`

	Engine EngineConfig `yaml:"engine" toml:"engine"`

	// Onboarding holds the default request. Flags override it.
	Onboarding onboarding.Request `yaml:"onboarding" toml:"onboarding"`
}

// EngineConfig tunes the engine.
type EngineConfig struct {
	PoolSize         int           `yaml:"pool_size" toml:"pool_size"`
	JoinTimeout      time.Duration `yaml:"join_timeout" toml:"join_timeout"`
	AnnounceTimeout  time.Duration `yaml:"announce_timeout" toml:"announce_timeout"`
	ConfigureTimeout time.Duration `yaml:"configure_timeout" toml:"configure_timeout"`
	RestoreTimeout   time.Duration `yaml:"restore_timeout" toml:"restore_timeout"`
	PollInterval     time.Duration `yaml:"poll_interval" toml:"poll_interval"`
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() *Config {
	def := onboarding.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Engine: EngineConfig{
			PoolSize:         def.PoolSize,
			JoinTimeout:      def.JoinTimeout,
			AnnounceTimeout:  def.AnnounceTimeout,
			ConfigureTimeout: def.ConfigureTimeout,
			RestoreTimeout:   def.RestoreTimeout,
			PollInterval:     2 * time.Second,
		},
	}
}

// LoadConfig reads path on top of the defaults. An empty path returns the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}
