package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zeu5/qfuzz/fuzzing"
	"github.com/zeu5/qfuzz/oracle"
	"gopkg.in/yaml.v3"
)

// SeedEnv names the environment variable holding the random seed
const SeedEnv = "R"

var ErrInvalidConfig = errors.New("invalid config")

// Config of a trainer. Loaded from YAML, then overridden by command line flags.
type Config struct {
	// Trainer is the directory holding policy.json and results.txt
	Trainer  string        `yaml:"trainer"`
	LogLevel string        `yaml:"log_level"`
	Oracle   OracleConfig  `yaml:"oracle"`
	Search   SearchConfig  `yaml:"search"`
	Redis    RedisConfig   `yaml:"redis"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

type OracleConfig struct {
	Command     []string      `yaml:"command"`
	WorkingDir  string        `yaml:"working_dir"`
	ErrorPrefix string        `yaml:"error_prefix"`
	Timeout     time.Duration `yaml:"timeout"`
}

type SearchConfig struct {
	MaxLength       int     `yaml:"max_length"`
	MaxIterations   int     `yaml:"max_iterations"`
	MinAcceptLength int     `yaml:"min_accept_length"`
	CompleteCap     float64 `yaml:"complete_cap"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
	Key  string `yaml:"key"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Default() *Config {
	return &Config{
		Trainer:  "mjs_s",
		LogLevel: "info",
		Oracle: OracleConfig{
			Command:     []string{"./mjs", "-e", oracle.InputPlaceholder},
			ErrorPrefix: oracle.DefaultErrorPrefix,
			Timeout:     10 * time.Second,
		},
		Search: SearchConfig{
			MaxLength:       fuzzing.DefaultMaxLength,
			MaxIterations:   fuzzing.DefaultMaxIterations,
			MinAcceptLength: fuzzing.DefaultMinAcceptLength,
			CompleteCap:     fuzzing.DefaultCompleteCap,
		},
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(bs, c); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Trainer == "" {
		errs = append(errs, errors.New("trainer must be set"))
	}
	if len(c.Oracle.Command) == 0 {
		errs = append(errs, errors.New("oracle.command must be set"))
	} else if !strings.Contains(strings.Join(c.Oracle.Command, " "), oracle.InputPlaceholder) {
		errs = append(errs, fmt.Errorf("oracle.command must contain %s", oracle.InputPlaceholder))
	}
	if c.Oracle.Timeout < 0 {
		errs = append(errs, errors.New("oracle.timeout must not be negative"))
	}
	if c.Search.MaxLength <= 0 {
		errs = append(errs, errors.New("search.max_length must be positive"))
	}
	if c.Search.MaxIterations <= 0 {
		errs = append(errs, errors.New("search.max_iterations must be positive"))
	}
	if c.Search.MinAcceptLength < 0 {
		errs = append(errs, errors.New("search.min_accept_length must not be negative"))
	}
	if c.Search.CompleteCap <= 0 {
		errs = append(errs, errors.New("search.complete_cap must be positive"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// RedisKey is the list receiving accepted inputs
func (c *Config) RedisKey() string {
	if c.Redis.Key != "" {
		return c.Redis.Key
	}
	return c.Trainer + ":results"
}

func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}

// SeedFromEnv returns the seed in SeedEnv. ok is false when it is unset.
func SeedFromEnv() (seed uint64, ok bool, err error) {
	v := strings.TrimSpace(os.Getenv(SeedEnv))
	if v == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, SeedEnv, v)
	}
	return uint64(n), true, nil
}
