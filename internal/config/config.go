package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/erfi/loadcompare/internal/thresholds"
)

// Config holds everything the CLI and the server need
type Config struct {
	ResultsDir string              `yaml:"results_dir"`
	Targets    []string            `yaml:"targets"`
	Scenarios  []string            `yaml:"scenarios"`
	LogLevel   string              `yaml:"log_level"`
	Cache      CacheConfig         `yaml:"cache"`
	Parser     ParserConfig        `yaml:"parser"`
	Server     ServerConfig        `yaml:"server"`
	Thresholds map[string][]string `yaml:"thresholds"`
}

// CacheConfig bounds the parsed results cache
type CacheConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity"`
}

// ParserConfig tunes event log parsing
type ParserConfig struct {
	MaxLines      int           `yaml:"max_lines"`
	MaxLineSize   int           `yaml:"max_line_size"`
	DefaultWindow time.Duration `yaml:"default_window"`
}

// ServerConfig holds listener, shutdown and watcher settings for serve
type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	WatchDebounce   time.Duration   `yaml:"watch_debounce"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds requests per client IP. RPS zero disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		ResultsDir: "results",
		Targets:    []string{"coordix", "mediatR", "wolverine"},
		Scenarios:  []string{"smoke", "rampup", "load-steady", "spike", "stress", "overnight"},
		LogLevel:   "info",
		Cache: CacheConfig{
			TTL:      5 * time.Minute,
			Capacity: 50,
		},
		Parser: ParserConfig{
			MaxLines:      5_000_000,
			MaxLineSize:   16 << 20,
			DefaultWindow: 45 * time.Second,
		},
		Server: ServerConfig{
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			WatchDebounce:   500 * time.Millisecond,
			RateLimit: RateLimitConfig{
				RPS:   20,
				Burst: 40,
			},
		},
		Thresholds: thresholds.Defaults(),
	}
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	LoadFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate rejects configurations the aggregator cannot work with
func (c Config) Validate() error {
	var errs []error

	if c.ResultsDir == "" {
		errs = append(errs, errors.New("results_dir must not be empty"))
	}
	if len(c.Targets) == 0 {
		errs = append(errs, errors.New("at least one target is required"))
	}
	if len(c.Scenarios) == 0 {
		errs = append(errs, errors.New("at least one scenario is required"))
	}
	if dup := firstDuplicate(c.Targets); dup != "" {
		errs = append(errs, fmt.Errorf("duplicate target %q", dup))
	}
	if dup := firstDuplicate(c.Scenarios); dup != "" {
		errs = append(errs, fmt.Errorf("duplicate scenario %q", dup))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL))
	}
	if c.Cache.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity))
	}
	if c.Parser.MaxLineSize < 0 {
		errs = append(errs, fmt.Errorf("parser.max_line_size must not be negative, got %d", c.Parser.MaxLineSize))
	}
	if c.Parser.MaxLines < 0 {
		errs = append(errs, fmt.Errorf("parser.max_lines must not be negative, got %d", c.Parser.MaxLines))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit.RPS < 0 || c.Server.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("server.rate_limit values must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func firstDuplicate(values []string) string {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return v
		}
		seen[v] = struct{}{}
	}
	return ""
}
