package server

import (
	"fmt"
	"time"

	"github.com/TimeCyber/DeepManus/retry"
)

// RateLimit bounds admissions per client address.
type RateLimit struct {
	RPS   float64 `json:"rps,omitempty" yaml:"rps,omitempty"`
	Burst int     `json:"burst,omitempty" yaml:"burst,omitempty"`
}

type Config struct {
	Host            string         `json:"host,omitempty" yaml:"host,omitempty"`
	Port            int            `json:"port,omitempty" yaml:"port,omitempty"`
	RateLimit       RateLimit      `json:"rate_limit" yaml:"rate_limit"`
	ShutdownTimeout retry.Duration `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Host: "0.0.0.0",
		Port: 8000,
		RateLimit: RateLimit{
			RPS:   5,
			Burst: 10,
		},
		ShutdownTimeout: retry.Duration(10 * time.Second),
	}
}

// Merge applies non-zero values from source.
func (c *Config) Merge(source *Config) {
	if source.Host != "" {
		c.Host = source.Host
	}
	if source.Port > 0 {
		c.Port = source.Port
	}
	if source.RateLimit.RPS > 0 {
		c.RateLimit.RPS = source.RateLimit.RPS
	}
	if source.RateLimit.Burst > 0 {
		c.RateLimit.Burst = source.RateLimit.Burst
	}
	if source.ShutdownTimeout > 0 {
		c.ShutdownTimeout = source.ShutdownTimeout
	}
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
