package storefront

import (
	"time"

	"github.com/basti564/LauncherIcons/pkg/log"
)

type Option func(c *Client)

// WithHeaders sets static headers sent on every request, e.g. the
// device fingerprint the Pico backend insists on.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = &userAgent
	}
}

func WithHTTPTimeout(httpTimeout time.Duration) Option {
	return func(c *Client) {
		c.Timeout = httpTimeout
	}
}

func WithRetryCount(retryCount int) Option {
	return func(c *Client) {
		c.retryCount = &retryCount
	}
}

func WithRetryDelay(retryDelay time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = &retryDelay
	}
}

func WithRetryJitter(retryJitter time.Duration) Option {
	return func(c *Client) {
		c.retryJitter = &retryJitter
	}
}

func WithLogger(logger log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
