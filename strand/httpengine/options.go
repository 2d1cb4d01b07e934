package httpengine

import (
	"github.com/strand-db/strand-client-go/strand"
)

// Option defines a functional option for configuring a Client.
type Option func(*Client) error

// WithEndpoint points the client at a different service endpoint, for
// example a region-local or self-hosted deployment.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) error {
		if endpoint == "" {
			return strand.ErrEmptyEndpoint
		}

		c.endpoint = endpoint

		return nil
	}
}

// WithAPIVersion overrides the protocol version marker the client sends with
// every exchange.
func WithAPIVersion(version string) Option {
	return func(c *Client) error {
		if version == "" {
			return strand.ErrEmptyAPIVersion
		}

		c.apiVersion = version

		return nil
	}
}

// WithLogger routes the client's log output to the given logger, which
// decides through its own level what is kept. Debug carries each wire
// exchange with its timing, info the operation outcomes, warn any
// disagreement between HTTP status and body variant, and error the exchanges
// that failed outright.
func WithLogger(logger strand.Logger) Option {
	return func(c *Client) error {
		c.logger = logger

		return nil
	}
}

// WithContextualLogger routes log output through a context-aware logger, so
// records pick up trace and span correlation from the exchange context when
// tracing is enabled. When both logger kinds are configured the contextual
// one wins.
func WithContextualLogger(logger strand.ContextualLogger) Option {
	return func(c *Client) error {
		c.contextualLogger = logger

		return nil
	}
}

// WithMetrics wires a metrics collector into the client. The client measures
// exchange durations and response sizes and counts failures and status/body
// disagreements, all labeled by operation and outcome.
func WithMetrics(collector strand.MetricsCollector) Option {
	return func(c *Client) error {
		c.metricsCollector = collector

		return nil
	}
}

// WithTracing wires a tracing collector into the client. Every exchange runs
// inside one span carrying the endpoint, the request id, and how the
// exchange ended.
func WithTracing(collector strand.TracingCollector) Option {
	return func(c *Client) error {
		c.tracingCollector = collector

		return nil
	}
}
