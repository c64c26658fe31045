// Package dns computes the DNS records a Postal installation needs and
// applies them to a DNS provider.
//
// The plan covers the web and SMTP hostnames, the MX host customer domains
// point at, the SPF include, the return path, the route and track domains,
// and the DKIM record derived from the signing key.
package dns
