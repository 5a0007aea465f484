package config

import "time"

// GitHubConfig holds GitHub-specific configuration
type GitHubConfig struct {
	APIBaseURL string `yaml:"api_base_url" env:"GITHUB_API_URL"`
	GitHost    string `yaml:"git_host" env:"GIT_HOST"`
	// RequestTimeout bounds one HTTP exchange with the API
	RequestTimeout time.Duration   `yaml:"request_timeout" env:"GITHUB_REQUEST_TIMEOUT"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds rate limit configuration
type RateLimitConfig struct {
	MaxRetries      int           `yaml:"max_retries" env:"GITHUB_MAX_RETRIES"`
	InitialBackoff  time.Duration `yaml:"initial_backoff" env:"GITHUB_INITIAL_BACKOFF"`
	MaxBackoff      time.Duration `yaml:"max_backoff" env:"GITHUB_MAX_BACKOFF"`
	RetryMultiplier float64       `yaml:"retry_multiplier" env:"GITHUB_RETRY_MULTIPLIER"`
}

// DefaultGitHubConfig returns the default GitHub configuration
func DefaultGitHubConfig() *GitHubConfig {
	return &GitHubConfig{
		APIBaseURL:     "https://api.github.com",
		GitHost:        "github.com",
		RequestTimeout: 2 * time.Minute,
		RateLimit: RateLimitConfig{
			MaxRetries:      3,
			InitialBackoff:  time.Second,
			MaxBackoff:      time.Minute,
			RetryMultiplier: 2.0,
		},
	}
}
