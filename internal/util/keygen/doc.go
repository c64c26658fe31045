// Package keygen generates and inspects the RSA signing key Postal uses for
// DKIM signatures and webhook payloads.
//
// Keys are produced in PEM PKCS#1 format. The public half is exposed as a DKIM
// record value and as an OpenSSH fingerprint for quick identification.
package keygen
