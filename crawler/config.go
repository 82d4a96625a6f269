package crawler

import (
	"time"

	"github.com/TimeCyber/DeepManus/retry"
)

const (
	defaultTimeout        = 15 * time.Second
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/98.0.4758.102 Safari/537.36"
	defaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	defaultAcceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8,en-US;q=0.7"
)

// Config controls request headers, pacing and retries of the fetch client.
// Proxy overrides the HTTP_PROXY/HTTPS_PROXY environment.
type Config struct {
	Timeout        retry.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	UserAgent      string         `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	AcceptLanguage string         `json:"accept_language,omitempty" yaml:"accept_language,omitempty"`
	Proxy          string         `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Retry          retry.Config   `json:"retry" yaml:"retry"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:        retry.Duration(defaultTimeout),
		UserAgent:      defaultUserAgent,
		AcceptLanguage: defaultAcceptLanguage,
		Retry:          retry.DefaultConfig(),
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
	if source.UserAgent != "" {
		c.UserAgent = source.UserAgent
	}
	if source.AcceptLanguage != "" {
		c.AcceptLanguage = source.AcceptLanguage
	}
	if source.Proxy != "" {
		c.Proxy = source.Proxy
	}
	c.Retry.Merge(&source.Retry)
}
