// Package helm renders Helm charts offline into Kubernetes manifests.
//
// Charts are pulled from OCI registries (or loaded from a local path),
// cached on disk, and rendered with the Helm template engine. Nothing is
// installed as a Helm release: the rendered objects are applied like every
// other object with Server-Side Apply.
package helm
