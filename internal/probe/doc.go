// Package probe checks that a deployed Postal SMTP endpoint answers, at
// the TCP level and with an SMTP handshake.
package probe
