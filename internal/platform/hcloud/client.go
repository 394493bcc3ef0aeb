package hcloud

import (
	"context"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/simrun/internal/config"
	"github.com/imamik/simrun/internal/provider"
)

// Version is sent in the user agent of every API request.
var Version = "dev"

// RealClient implements provider.ComputeAPI using the Hetzner Cloud API.
type RealClient struct {
	client   *hcloud.Client
	timeouts *config.Timeouts
	log      logr.Logger
}

var _ provider.ComputeAPI = (*RealClient)(nil)

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// WithTimeouts sets custom timeouts for the client.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(c *RealClient) {
		c.timeouts = t
	}
}

// WithHCloudClient replaces the API client, e.g. with one pointed at a test server.
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *RealClient) {
		c.client = hc
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) ClientOption {
	return func(c *RealClient) {
		c.log = log
	}
}

// NewRealClient returns a client authenticated with token. Timeouts come
// from the environment unless WithTimeouts is given.
func NewRealClient(token string, opts ...ClientOption) *RealClient {
	c := &RealClient{
		client: hcloud.NewClient(
			hcloud.WithToken(token),
			hcloud.WithApplication("simrun", Version),
		),
		timeouts: config.LoadTimeouts(),
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factory returns a provider.ComputeFactory that opens a RealClient with
// the connection token of the provider config.
func Factory(opts ...ClientOption) provider.ComputeFactory {
	return func(_ context.Context, cfg provider.Config) (provider.ComputeAPI, error) {
		return NewRealClient(cfg.Token, opts...), nil
	}
}

func parseID(kind, id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, &provider.NotFoundError{Kind: kind, Name: id}
	}
	return n, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
