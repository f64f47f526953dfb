package graphql

import "fmt"

// LimitConfig bounds list fields that take a limit argument.
type LimitConfig struct {
	DefaultLimit int // used when no limit is given
	MaxLimit     int
}

// DefaultLimits returns 20 by default and at most 200.
func DefaultLimits() LimitConfig {
	return LimitConfig{DefaultLimit: 20, MaxLimit: 200}
}

// ValidateLimitConfig validates the limit configuration
func ValidateLimitConfig(config *LimitConfig) error {
	if config.MaxLimit <= 0 {
		return fmt.Errorf("max limit must be greater than 0, got %d", config.MaxLimit)
	}
	if config.DefaultLimit > config.MaxLimit {
		return fmt.Errorf("default limit (%d) cannot exceed max limit (%d)", config.DefaultLimit, config.MaxLimit)
	}
	if config.DefaultLimit <= 0 {
		return fmt.Errorf("default limit must be greater than 0, got %d", config.DefaultLimit)
	}
	return nil
}

// applyLimit maps a requested limit onto the configured bounds. A negative
// request means "not given".
func applyLimit(requestedLimit int, config *LimitConfig) int {
	if requestedLimit < 0 {
		return config.DefaultLimit
	}
	if requestedLimit == 0 {
		return 0
	}
	if requestedLimit > config.MaxLimit {
		return config.MaxLimit
	}
	return requestedLimit
}
