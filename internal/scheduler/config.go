package scheduler

import "time"

// Config controls scheduler intervals and per-job timeouts.
type Config struct {
	RunInterval         time.Duration
	JobTimeout          time.Duration
	RateRefreshInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:         time.Minute,
		JobTimeout:          5 * time.Minute,
		RateRefreshInterval: 12 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.RateRefreshInterval <= 0 {
		c.RateRefreshInterval = defaults.RateRefreshInterval
	}
	return c
}
