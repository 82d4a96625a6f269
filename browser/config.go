package browser

import (
	"time"

	"github.com/TimeCyber/DeepManus/retry"
)

const (
	defaultEndpoint    = "ws://127.0.0.1:3000/"
	defaultHistoryDir  = "browser_history"
	defaultTaskTimeout = 5 * time.Minute
	defaultLaunchWait  = 30 * time.Second
)

// ProxyConfig routes browser traffic through an HTTP proxy.
type ProxyConfig struct {
	Server   string `json:"server,omitempty" yaml:"server,omitempty"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// Config locates the automation server and shapes the browser it launches.
// Headless is a pointer so a loaded file can turn it off.
type Config struct {
	Endpoint    string         `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Headless    *bool          `json:"headless,omitempty" yaml:"headless,omitempty"`
	ChromePath  string         `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	Proxy       ProxyConfig    `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	HistoryDir  string         `json:"history_dir,omitempty" yaml:"history_dir,omitempty"`
	TaskTimeout retry.Duration `json:"task_timeout,omitempty" yaml:"task_timeout,omitempty"`
	LaunchWait  retry.Duration `json:"launch_wait,omitempty" yaml:"launch_wait,omitempty"`
}

func DefaultConfig() Config {
	headless := true
	return Config{
		Endpoint:    defaultEndpoint,
		Headless:    &headless,
		HistoryDir:  defaultHistoryDir,
		TaskTimeout: retry.Duration(defaultTaskTimeout),
		LaunchWait:  retry.Duration(defaultLaunchWait),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Endpoint != "" {
		c.Endpoint = source.Endpoint
	}
	if source.Headless != nil {
		headless := *source.Headless
		c.Headless = &headless
	}
	if source.ChromePath != "" {
		c.ChromePath = source.ChromePath
	}
	if source.Proxy.Server != "" {
		c.Proxy = source.Proxy
	}
	if source.HistoryDir != "" {
		c.HistoryDir = source.HistoryDir
	}
	if source.TaskTimeout > 0 {
		c.TaskTimeout = source.TaskTimeout
	}
	if source.LaunchWait > 0 {
		c.LaunchWait = source.LaunchWait
	}
}

// IsHeadless reports the effective headless setting; unset means headless.
func (c Config) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}
