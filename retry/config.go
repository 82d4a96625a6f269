package retry

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration that reads and writes "5s"-style strings in
// JSON and YAML configuration.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid duration %s", data)
		}
		*d = Duration(time.Duration(n * float64(time.Second)))
		return nil
	}
	return d.set(s)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	return d.set(string(text))
}

func (d *Duration) set(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the file form of a Policy plus its Throttle.
type Config struct {
	MaxAttempts       int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	BaseDelay         Duration `json:"base_delay,omitempty" yaml:"base_delay,omitempty"`
	JitterMax         Duration `json:"jitter_max,omitempty" yaml:"jitter_max,omitempty"`
	MinInterval       Duration `json:"min_interval,omitempty" yaml:"min_interval,omitempty"`
	IntervalJitterMin Duration `json:"interval_jitter_min,omitempty" yaml:"interval_jitter_min,omitempty"`
	IntervalJitterMax Duration `json:"interval_jitter_max,omitempty" yaml:"interval_jitter_max,omitempty"`
}

// DefaultConfig returns the network fetch defaults: three retries after the
// first attempt, 5s base delay with up to 2s jitter, and at least 2s between
// requests plus 0.5-1.5s jitter.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       4,
		BaseDelay:         Duration(5 * time.Second),
		JitterMax:         Duration(2 * time.Second),
		MinInterval:       Duration(2 * time.Second),
		IntervalJitterMin: Duration(500 * time.Millisecond),
		IntervalJitterMax: Duration(1500 * time.Millisecond),
	}
}

// Merge applies non-zero values from source.
func (c *Config) Merge(source *Config) {
	if source.MaxAttempts > 0 {
		c.MaxAttempts = source.MaxAttempts
	}
	if source.BaseDelay > 0 {
		c.BaseDelay = source.BaseDelay
	}
	if source.JitterMax > 0 {
		c.JitterMax = source.JitterMax
	}
	if source.MinInterval > 0 {
		c.MinInterval = source.MinInterval
	}
	if source.IntervalJitterMin > 0 {
		c.IntervalJitterMin = source.IntervalJitterMin
	}
	if source.IntervalJitterMax > 0 {
		c.IntervalJitterMax = source.IntervalJitterMax
	}
}

// Policy builds the backoff policy described by c.
func (c Config) Policy() Policy {
	return Policy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   time.Duration(c.BaseDelay),
		JitterMax:   time.Duration(c.JitterMax),
	}
}

// Throttle builds the minimum-interval limiter described by c.
func (c Config) Throttle() *Throttle {
	return NewThrottle(time.Duration(c.MinInterval), time.Duration(c.IntervalJitterMin), time.Duration(c.IntervalJitterMax))
}
