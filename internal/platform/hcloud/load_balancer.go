package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k8postal/internal/util/retry"
)

// LoadBalancer is the subset of a Hetzner load balancer k8postal uses.
type LoadBalancer struct {
	ID   int64
	Name string
	IPv4 string
	IPv6 string
}

// IPs returns the public addresses, IPv4 first.
func (lb *LoadBalancer) IPs() []string {
	var ips []string
	if lb.IPv4 != "" {
		ips = append(ips, lb.IPv4)
	}
	if lb.IPv6 != "" {
		ips = append(ips, lb.IPv6)
	}
	return ips
}

// GetLoadBalancer looks up a load balancer by name. The cloud controller
// creates it asynchronously, so a missing load balancer is retried.
func (c *RealClient) GetLoadBalancer(ctx context.Context, name string) (*LoadBalancer, error) {
	var out *LoadBalancer

	opts := append(c.retryOptions("get load balancer "+name), retry.WithLogger(log.FromContext(ctx)))
	err := retry.WithExponentialBackoff(ctx, func(ctx context.Context) error {
		lb, _, err := c.client.LoadBalancer.Get(ctx, name)
		if err != nil {
			if hcloud.IsError(err, hcloud.ErrorCodeUnauthorized) {
				return retry.Fatal(fmt.Errorf("hcloud token rejected: %w", err))
			}
			return err
		}
		if lb == nil {
			return fmt.Errorf("load balancer %q not found", name)
		}

		out = &LoadBalancer{ID: lb.ID, Name: lb.Name}
		if ip := lb.PublicNet.IPv4.IP; ip != nil && !ip.IsUnspecified() {
			out.IPv4 = ip.String()
		}
		if ip := lb.PublicNet.IPv6.IP; ip != nil && !ip.IsUnspecified() {
			out.IPv6 = ip.String()
		}
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
