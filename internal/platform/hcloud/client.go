package hcloud

import "context"

// RDNSManager manages reverse DNS of the SMTP load balancer.
type RDNSManager interface {
	// GetLoadBalancer returns the named load balancer and its public addresses.
	GetLoadBalancer(ctx context.Context, name string) (*LoadBalancer, error)

	// SetLoadBalancerRDNS points the PTR record of ipAddress at dnsPtr.
	SetLoadBalancerRDNS(ctx context.Context, lbID int64, ipAddress, dnsPtr string) error
}

var _ RDNSManager = (*RealClient)(nil)
