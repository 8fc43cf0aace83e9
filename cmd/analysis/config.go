package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jcalabro/minhash"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".minhash-analysis"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for analysis settings.
const envPrefix = "MINHASH_ANALYSIS"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Defaults.
const (
	DefaultSetSize   = 1000
	DefaultOverlap   = 500
	DefaultTrials    = 32
	DefaultTolerance = 0.05
	DefaultHasher    = "metro"
	DefaultFormat    = formatTable
	DefaultLogLevel  = "info"
	DefaultLaneKeys  = 1000
)

// DefaultRegisters are the register counts measured when none are configured.
var DefaultRegisters = []int{64, 128, 256, 512, 1024}

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the settings shared by all analysis commands.
type Config struct {
	Registers []int   `mapstructure:"registers"`
	SetSize   int     `mapstructure:"set_size"`
	Overlap   int     `mapstructure:"overlap"`
	Trials    int     `mapstructure:"trials"`
	Tolerance float64 `mapstructure:"tolerance"`
	Hasher    string  `mapstructure:"hasher"`
	Seed      uint64  `mapstructure:"seed"`
	LaneKeys  int     `mapstructure:"lane_keys"`
	Format    string  `mapstructure:"format"`
	LogLevel  string  `mapstructure:"log_level"`
}

// flagKeys maps config keys to the command-line flags that override them.
var flagKeys = map[string]string{
	"registers": "registers",
	"set_size":  "set-size",
	"overlap":   "overlap",
	"trials":    "trials",
	"tolerance": "tolerance",
	"hasher":    "hasher",
	"seed":      "seed",
	"lane_keys": "keys",
	"format":    "format",
	"log_level": "log-level",
}

// LoadConfig loads configuration from defaults, the config file, env vars
// and flags, in increasing order of precedence.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// A missing config file is not an error unless configPath names it.
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			bindErr := viperCfg.BindPFlag(key, flag)
			if bindErr != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, bindErr)
			}
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("registers", DefaultRegisters)
	viperCfg.SetDefault("set_size", DefaultSetSize)
	viperCfg.SetDefault("overlap", DefaultOverlap)
	viperCfg.SetDefault("trials", DefaultTrials)
	viperCfg.SetDefault("tolerance", DefaultTolerance)
	viperCfg.SetDefault("hasher", DefaultHasher)
	viperCfg.SetDefault("seed", minhash.DefaultSeed)
	viperCfg.SetDefault("lane_keys", DefaultLaneKeys)
	viperCfg.SetDefault("format", DefaultFormat)
	viperCfg.SetDefault("log_level", DefaultLogLevel)
}

// Validate checks that every setting is in range.
func (c *Config) Validate() error {
	if len(c.Registers) == 0 {
		return fmt.Errorf("%w: registers must not be empty", ErrInvalidConfig)
	}
	for _, n := range c.Registers {
		if n <= 0 || uint64(n) > uint64(^uint32(0)) {
			return fmt.Errorf("%w: register count %d out of range", ErrInvalidConfig, n)
		}
	}
	if c.SetSize <= 0 {
		return fmt.Errorf("%w: set_size must be positive, got %d", ErrInvalidConfig, c.SetSize)
	}
	if c.Overlap < 0 || c.Overlap > c.SetSize {
		return fmt.Errorf("%w: overlap must be in [0, %d], got %d", ErrInvalidConfig, c.SetSize, c.Overlap)
	}
	if c.Trials <= 0 {
		return fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidConfig, c.Trials)
	}
	if c.Tolerance <= 0 || c.Tolerance >= 1 {
		return fmt.Errorf("%w: tolerance must be in (0, 1), got %v", ErrInvalidConfig, c.Tolerance)
	}
	if c.LaneKeys <= 0 {
		return fmt.Errorf("%w: lane_keys must be positive, got %d", ErrInvalidConfig, c.LaneKeys)
	}
	if _, err := minhash.ParseHasher(c.Hasher); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !validFormat(c.Format) {
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Options returns the sketch options selected by the config.
func (c *Config) Options() ([]minhash.Option, error) {
	hasher, err := minhash.ParseHasher(c.Hasher)
	if err != nil {
		return nil, err
	}

	return []minhash.Option{minhash.WithHasher(hasher), minhash.WithSeed(c.Seed)}, nil
}

// TrueJaccard returns the Jaccard similarity of the two generated sets.
func (c *Config) TrueJaccard() float64 {
	return float64(c.Overlap) / float64(2*c.SetSize-c.Overlap)
}
