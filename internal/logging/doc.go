// Package logging builds the logr.Logger the CLI attaches to its context.
//
// The logger is controller-runtime's zap backend, so the same structured
// output comes from k8postal's own packages and from the Kubernetes client
// libraries it drives.
package logging
