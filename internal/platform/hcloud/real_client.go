package hcloud

import (
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/util/retry"
)

// RealClient wraps the Hetzner Cloud API client.
type RealClient struct {
	client   *hcloud.Client
	timeouts *config.Timeouts
}

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// WithTimeouts sets custom timeouts for the client.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(c *RealClient) {
		c.timeouts = t
	}
}

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *RealClient) {
		c.client = hc
	}
}

// NewRealClient creates a new RealClient with optional configuration.
func NewRealClient(token string, opts ...ClientOption) *RealClient {
	c := &RealClient{
		client:   hcloud.NewClient(hcloud.WithToken(token), hcloud.WithApplication("k8postal", "")),
		timeouts: config.LoadTimeouts(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RealClient) retryOptions(operation string) []retry.Option {
	return []retry.Option{
		retry.WithMaxRetries(c.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeouts.RetryInitialDelay),
		retry.WithMaxDelay(30 * time.Second),
		retry.WithOperation(operation),
	}
}
