package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TimeCyber/DeepManus/browser"
	"github.com/TimeCyber/DeepManus/crawler"
	"github.com/TimeCyber/DeepManus/graph"
	"github.com/TimeCyber/DeepManus/retry"
	"github.com/TimeCyber/DeepManus/server"
	"github.com/TimeCyber/DeepManus/source"
	"github.com/TimeCyber/DeepManus/tracing"
	"github.com/TimeCyber/DeepManus/workflow"
)

const defaultObserver = "slog"

// Config holds initialization parameters for every subsystem. Each section
// is merged by its own package. Retry is the acquisition policy of the
// per-run browser session; fetch retries live under Crawler.
type Config struct {
	Workflow workflow.Config  `json:"workflow" yaml:"workflow"`
	Retry    retry.Config     `json:"retry" yaml:"retry"`
	Browser  browser.Config   `json:"browser" yaml:"browser"`
	Crawler  crawler.Config   `json:"crawler" yaml:"crawler"`
	Server   server.Config    `json:"server" yaml:"server"`
	Tracing  tracing.Config   `json:"tracing" yaml:"tracing"`
	Upstream source.SSEConfig `json:"upstream" yaml:"upstream"`
	Graph    graph.Config     `json:"graph" yaml:"graph"`
	Observer string           `json:"observer,omitempty" yaml:"observer,omitempty"`
	Debug    bool             `json:"debug,omitempty" yaml:"debug,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Workflow: workflow.DefaultConfig(),
		Retry: retry.Config{
			MaxAttempts: 3,
			BaseDelay:   retry.Duration(2 * time.Second),
			JitterMax:   retry.Duration(time.Second),
		},
		Browser:  browser.DefaultConfig(),
		Crawler:  crawler.DefaultConfig(),
		Server:   server.DefaultConfig(),
		Tracing:  tracing.DefaultConfig(),
		Graph:    graph.DefaultConfig(),
		Observer: defaultObserver,
	}
}

// Merge applies non-zero values from source into c, delegating to each
// section's Merge method.
func (c *Config) Merge(source *Config) {
	c.Workflow.Merge(&source.Workflow)
	c.Retry.Merge(&source.Retry)
	c.Browser.Merge(&source.Browser)
	c.Crawler.Merge(&source.Crawler)
	c.Server.Merge(&source.Server)
	c.Tracing.Merge(&source.Tracing)
	c.Graph.Merge(&source.Graph)

	if source.Upstream.Endpoint != "" {
		c.Upstream.Endpoint = source.Upstream.Endpoint
	}
	if source.Upstream.Timeout > 0 {
		c.Upstream.Timeout = source.Upstream.Timeout
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.Debug {
		c.Debug = true
	}
}

// LoadConfig reads a JSON or YAML config file, chosen by extension, and
// merges it over the defaults.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	case ".json", "":
		err = json.Unmarshal(data, &loaded)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
