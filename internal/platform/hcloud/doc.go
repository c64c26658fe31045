// Package hcloud talks to the Hetzner Cloud API for the SMTP load balancer
// that hcloud-cloud-controller-manager creates for the SMTP Service.
//
// Mail servers need a matching reverse DNS entry for their sending address,
// so after apply the PTR records of the load balancer are pointed at the
// SMTP hostname.
package hcloud
