package hcloud

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k8postal/internal/util/retry"
)

// SetLoadBalancerRDNS points the PTR record of one load balancer address at
// dnsPtr and waits until Hetzner has applied the change.
func (c *RealClient) SetLoadBalancerRDNS(ctx context.Context, lbID int64, ipAddress, dnsPtr string) error {
	addr, err := netip.ParseAddr(ipAddress)
	if err != nil {
		return fmt.Errorf("invalid IP address %q for load balancer %d", ipAddress, lbID)
	}

	lb := &hcloud.LoadBalancer{ID: lbID}
	opts := append(c.retryOptions("set reverse DNS for "+ipAddress), retry.WithLogger(log.FromContext(ctx)))
	return retry.WithExponentialBackoff(ctx, func(ctx context.Context) error {
		action, _, err := c.client.LoadBalancer.ChangeDNSPtr(ctx, lb, addr.String(), hcloud.Ptr(dnsPtr))
		if err != nil {
			if hcloud.IsError(err, hcloud.ErrorCodeUnauthorized, hcloud.ErrorCodeInvalidInput) {
				return retry.Fatal(fmt.Errorf("failed to set PTR %s -> %s: %w", ipAddress, dnsPtr, err))
			}
			return err
		}
		if action == nil {
			return nil
		}
		if err := c.client.Action.WaitFor(ctx, action); err != nil {
			return fmt.Errorf("reverse DNS action for %s did not finish: %w", ipAddress, err)
		}
		return nil
	}, opts...)
}
