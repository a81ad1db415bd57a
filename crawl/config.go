package crawl

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config configures the crawl service.
type Config struct {
	// MaxDepth is the default depth bound (inclusive) when a request does
	// not specify one. Seeds are depth 0.
	MaxDepth int `yaml:"max_depth"`
	// Concurrency bounds simultaneous fetches within a crawl level.
	Concurrency int `yaml:"concurrency"`
	// RecentLimit caps the recent-links lists in stats snapshots.
	RecentLimit int `yaml:"recent_limit"`

	// OutputDir receives the .md and .html artifacts.
	OutputDir string `yaml:"output_dir"`

	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`

	// UseBrowser renders pages through headless Chrome instead of plain
	// HTTP. BrowserURL optionally points at an external Chrome's
	// WebSocket endpoint.
	UseBrowser bool   `yaml:"use_browser"`
	BrowserURL string `yaml:"browser_url"`
}

func (c *Config) defaults() {
	if c.MaxDepth <= 0 {
		c.MaxDepth = 2
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = 10
	}
	if c.OutputDir == "" {
		c.OutputDir = "crawled_pages"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "crawld/1.0"
	}
}

func defaultConfig() *Config {
	c := &Config{}
	c.defaults()
	return c
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
