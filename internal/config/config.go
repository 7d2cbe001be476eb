// Package config loads and validates the sitegraph configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Content    ContentConfig    `yaml:"content"`
	Output     OutputConfig     `yaml:"output"`
	Build      BuildConfig      `yaml:"build"`
	References ReferencesConfig `yaml:"references"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ContentConfig describes where and what to scan.
type ContentConfig struct {
	Root       string   `yaml:"root"`
	Extensions []string `yaml:"extensions,omitempty"`
}

// OutputConfig describes the output tree and cache location.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	CachePath string `yaml:"cache_path,omitempty"`
}

// BuildConfig tunes the scheduler.
type BuildConfig struct {
	Workers       int           `yaml:"workers,omitempty"`
	RenderTimeout time.Duration `yaml:"render_timeout,omitempty"`
}

// ReferencesConfig controls reference resolution.
//
// TagLinks decides whether implicit same-tag neighbour references are
// structural (cycle-checked graph edges) or presentational (ignored by the
// graph).
type ReferencesConfig struct {
	TagLinks string `yaml:"tag_links,omitempty"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	QuietWindow     time.Duration `yaml:"quiet_window,omitempty"`
	MaxDelay        time.Duration `yaml:"max_delay,omitempty"`
	RebuildInterval time.Duration `yaml:"rebuild_interval,omitempty"` // 0 disables periodic full rebuilds
}

// Load loads configuration from the specified file and applies defaults.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists; absence is not an error.
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath) // #nosec G304 - path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns a usable configuration without a config file.
func Default(contentRoot, outputDir string) *Config {
	cfg := &Config{
		Content: ContentConfig{Root: contentRoot},
		Output:  OutputConfig{Directory: outputDir},
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Content.Root == "" {
		c.Content.Root = "./content"
	}
	if c.Output.Directory == "" {
		c.Output.Directory = "./public"
	}
	if c.Output.CachePath == "" {
		c.Output.CachePath = ".sitegraph/cache.db"
	}
	if c.Build.Workers == 0 {
		c.Build.Workers = 4
	}
	if c.Build.RenderTimeout == 0 {
		c.Build.RenderTimeout = 30 * time.Second
	}
	if c.References.TagLinks == "" {
		c.References.TagLinks = "structural"
	}
	if c.Watch.QuietWindow == 0 {
		c.Watch.QuietWindow = 500 * time.Millisecond
	}
	if c.Watch.MaxDelay == 0 {
		c.Watch.MaxDelay = 5 * time.Second
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Content,
		validation.Field(&c.Content.Root, validation.Required),
	); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if err := validation.ValidateStruct(&c.Output,
		validation.Field(&c.Output.Directory, validation.Required),
		validation.Field(&c.Output.CachePath, validation.Required),
	); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := validation.ValidateStruct(&c.References,
		validation.Field(&c.References.TagLinks, validation.In("structural", "presentational")),
	); err != nil {
		return fmt.Errorf("references: %w", err)
	}
	if err := validation.ValidateStruct(&c.Build,
		validation.Field(&c.Build.Workers, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return nil
}
