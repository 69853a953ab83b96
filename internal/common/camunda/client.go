// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"powerbi-tom-skill/internal/common/config"
)

// Client wraps the Zeebe gRPC client the skill job workers poll through.
type Client struct {
	client  zbc.Client
	address string
	timeout time.Duration
}

// NewClient dials the gateway and checks the broker topology once. A failed
// check is returned as is; the skill never retries it.
func NewClient(cfg config.CamundaConfig) (*Client, error) {
	timeout := time.Duration(cfg.ConnectTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: !cfg.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	c := &Client{client: zeebeClient, address: cfg.BrokerAddress, timeout: timeout}
	if err := c.HealthCheck(context.Background()); err != nil {
		zeebeClient.Close()
		return nil, err
	}
	return c, nil
}

// GetClient returns the raw Zeebe client for job polling.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck asks the gateway for the broker topology.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe broker at %s unreachable: %w", c.address, err)
	}
	return nil
}
