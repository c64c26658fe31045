package kube

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// PrunableKinds are the namespaced kinds an installation is made of.
var PrunableKinds = []schema.GroupVersionKind{
	{Group: "batch", Version: "v1", Kind: "CronJob"},
	{Group: "batch", Version: "v1", Kind: "Job"},
	{Group: "networking.k8s.io", Version: "v1", Kind: "Ingress"},
	{Group: "apps", Version: "v1", Kind: "Deployment"},
	{Group: "apps", Version: "v1", Kind: "StatefulSet"},
	{Group: "", Version: "v1", Kind: "Service"},
	{Group: "", Version: "v1", Kind: "ConfigMap"},
	{Group: "", Version: "v1", Kind: "Secret"},
	{Group: "", Version: "v1", Kind: "PersistentVolumeClaim"},
}

// DeleteMatching deletes every object of kinds in namespace whose labels
// match selector, except those keep returns true for. Kinds the cluster
// does not serve are skipped. It returns "Kind/name" of each deleted object.
func (c *client) DeleteMatching(ctx context.Context, namespace, selector string, kinds []schema.GroupVersionKind, keep func(kind, name string) bool) ([]string, error) {
	logger := log.FromContext(ctx)
	policy := metav1.DeletePropagationBackground

	var deleted []string
	for _, gvk := range kinds {
		mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
		if meta.IsNoMatchError(err) {
			logger.V(1).Info("Kind not served, skipping", "kind", gvk.Kind)
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("failed to get REST mapping for %v: %w", gvk, err)
		}

		resource := c.dynamicClient.Resource(mapping.Resource).Namespace(namespace)
		list, err := resource.List(ctx, metav1.ListOptions{LabelSelector: selector})
		if err != nil {
			return deleted, fmt.Errorf("failed to list %s in %s: %w", mapping.Resource.Resource, namespace, err)
		}

		for _, item := range list.Items {
			name := item.GetName()
			if keep != nil && keep(gvk.Kind, name) {
				continue
			}
			err := resource.Delete(ctx, name, metav1.DeleteOptions{PropagationPolicy: &policy})
			if err != nil && !apierrors.IsNotFound(err) {
				return deleted, fmt.Errorf("failed to delete %s %s/%s: %w", gvk.Kind, namespace, name, err)
			}
			deleted = append(deleted, gvk.Kind+"/"+name)
		}
	}
	return deleted, nil
}
