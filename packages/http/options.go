package http

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/abdul-hamid-achik/rede/packages/core/logging"
)

const (
	// DefaultTimeout is the default budget for a whole exchange, redirects included
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultUserAgent is sent when the definition sets no User-Agent
	DefaultUserAgent = "rede"
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Options are the runtime options of one invocation. They are built once and
// not modified afterwards.
type Options struct {
	Timeout         time.Duration
	MaxRedirects    int
	FollowRedirects bool
	// ContentType, when set, replaces any content type coming from the body
	// or the definition.
	ContentType string
	// Headers are appended after the definition headers.
	Headers   []Header
	UserAgent string
	Insecure  bool
	Proxy     string
	// BaseDir anchors relative body file paths.
	BaseDir string
}

func DefaultOptions() Options {
	return Options{
		Timeout:         DefaultTimeout,
		MaxRedirects:    DefaultMaxRedirects,
		FollowRedirects: true,
		UserAgent:       DefaultUserAgent,
	}
}

type ClientOption func(*Client)

// WithOptions replaces every runtime option at once.
func WithOptions(o Options) ClientOption {
	return func(c *Client) {
		c.options = o
	}
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.options.Timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.options.FollowRedirects = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.options.MaxRedirects = max
	}
}

// WithInsecure disables TLS certificate verification
func WithInsecure(insecure bool) ClientOption {
	return func(c *Client) {
		c.options.Insecure = insecure
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.options.Proxy = proxyURL
	}
}

func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		if logger == nil {
			logger = logging.Discard()
		}
		c.log = logger
	}
}
