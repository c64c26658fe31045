// Package manifest converts typed Kubernetes objects to and from
// multi-document YAML.
//
// Typed objects are converted to unstructured form first so the output
// carries no empty status blocks or null timestamps. Server-Side Apply
// consumes the same unstructured form.
package manifest
