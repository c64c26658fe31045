// Package naming provides consistent naming functions for the Kubernetes
// objects of a Postal deployment.
//
// Every object name is derived from a single prefix (default "postal") so
// that several installations can share a namespace and teardown can find
// every object again without listing the cluster.
package naming
