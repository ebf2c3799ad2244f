package config

import "time"

type Limits struct {
	MaxRetries            int             `yaml:"max_retries" validate:"required,min=1,max=10"`
	MaxConcurrentSessions int             `yaml:"max_concurrent_sessions" validate:"required,min=1,max=100"`
	SessionTimeout        time.Duration   `yaml:"session_timeout" validate:"required,min=1m,max=24h"`
	RateLimit             RateLimitConfig `yaml:"rate_limit" validate:"required"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"required,min=1,max=1000"`
	BurstSize         int `yaml:"burst_size" validate:"required,min=1,max=100"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxRetries:            3,
		MaxConcurrentSessions: 2,
		SessionTimeout:        6 * time.Hour,
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 30,
			BurstSize:         10,
		},
	}
}
