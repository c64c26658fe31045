// Package labels provides consistent labeling for the Kubernetes objects of a
// Postal deployment.
//
// Labels follow the app.kubernetes.io recommended keys and use a builder
// pattern for constructing label sets with instance, component, and manager
// identification.
package labels
