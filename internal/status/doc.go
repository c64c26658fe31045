// Package status waits for workloads to converge, using the
// controller-runtime client.
//
// Waits poll the object until its readiness condition holds, the context is
// cancelled, or the timeout elapses. Transient API errors on each read are
// retried with exponential backoff; a missing object counts as not ready.
package status
