// Package retry provides exponential backoff retry logic for transient failures.
//
// [WithExponentialBackoff] retries an operation with configurable max attempts,
// initial delay, and maximum delay. It wraps Kubernetes API writes that race
// with namespace creation and the Hetzner, S3, and Cloudflare calls made
// after apply.
package retry
