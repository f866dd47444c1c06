package riverlevel

import (
	"fmt"
	"log/slog"
	"time"
)

// exporterConfig holds optional settings applied by Option values.
type exporterConfig struct {
	logger         *slog.Logger
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option configures an Exporter.
type Option func(*exporterConfig) error

// WithLogger sets the structured logger used by the exporter and all of its
// components. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *exporterConfig) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithRetry overrides the per-request retry policy. maxAttempts counts the
// initial attempt, so 1 disables retries.
func WithRetry(maxAttempts int, initialBackoff, maxBackoff time.Duration) Option {
	return func(c *exporterConfig) error {
		if maxAttempts < 1 {
			return fmt.Errorf("maxAttempts must be at least 1, got %d", maxAttempts)
		}
		if initialBackoff <= 0 {
			return fmt.Errorf("initialBackoff must be positive, got %v", initialBackoff)
		}
		if maxBackoff < initialBackoff {
			return fmt.Errorf("maxBackoff %v cannot be less than initialBackoff %v", maxBackoff, initialBackoff)
		}
		c.maxAttempts = maxAttempts
		c.initialBackoff = initialBackoff
		c.maxBackoff = maxBackoff
		return nil
	}
}
