package community

import (
	"github.com/okian/dengue/pkg/logger"
)

// Option applies a configuration option to the Community.
type Option func(*Community)

// WithLogger sets the logger used for lifecycle and per-day messages.
func WithLogger(l logger.Logger) Option {
	return func(c *Community) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics toggles reporting to the global Prometheus registry.
func WithMetrics(enabled bool) Option {
	return func(c *Community) {
		c.metrics = enabled
	}
}
