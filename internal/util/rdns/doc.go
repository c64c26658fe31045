// Package rdns renders the reverse DNS (PTR) name for the SMTP load balancer.
//
// Receiving mail servers reject senders whose PTR does not match the HELO
// hostname, so the default template is the SMTP hostname itself. Templates
// are Go text/template strings with the sprig function map.
package rdns
