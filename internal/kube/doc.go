// Package kube provides the Kubernetes operations k8postal needs: Server-Side
// Apply of typed objects, deletion that tolerates missing objects, one-shot
// Job replacement, and a few read helpers for secrets and load balancers.
package kube
