package kube

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/k8postal/internal/manifest"
)

// Apply applies obj using Server-Side Apply.
func (c *client) Apply(ctx context.Context, obj ctrlclient.Object) error {
	u, err := manifest.ToUnstructured(obj)
	if err != nil {
		return err
	}
	if err := c.applyObject(ctx, u); err != nil {
		return fmt.Errorf("failed to apply %s %s/%s: %w", u.GetKind(), u.GetNamespace(), u.GetName(), err)
	}
	return nil
}

// resourceFor maps obj to its dynamic resource interface.
func (c *client) resourceFor(obj *unstructured.Unstructured) (dynamic.ResourceInterface, error) {
	gvk := obj.GroupVersionKind()
	if gvk.Kind == "" {
		return nil, fmt.Errorf("object has no kind set")
	}

	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to get REST mapping for %v: %w", gvk, err)
	}

	resource := c.dynamicClient.Resource(mapping.Resource)
	if mapping.Scope.Name() != meta.RESTScopeNameNamespace {
		return resource, nil
	}

	namespace := obj.GetNamespace()
	if namespace == "" {
		return nil, fmt.Errorf("namespaced object %s has no namespace", obj.GetName())
	}
	return resource.Namespace(namespace), nil
}

// applyObject applies a single unstructured object using Server-Side Apply.
func (c *client) applyObject(ctx context.Context, obj *unstructured.Unstructured) error {
	resource, err := c.resourceFor(obj)
	if err != nil {
		return err
	}

	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal object to JSON: %w", err)
	}

	force := true
	_, err = resource.Patch(ctx, obj.GetName(), types.ApplyPatchType, data, metav1.PatchOptions{
		FieldManager: FieldManager,
		Force:        &force,
	})
	if err != nil {
		return fmt.Errorf("server-side apply failed: %w", err)
	}
	return nil
}

// Delete deletes obj in the background, returning nil if not found.
func (c *client) Delete(ctx context.Context, obj ctrlclient.Object) error {
	u, err := manifest.ToUnstructured(obj)
	if err != nil {
		return err
	}
	resource, err := c.resourceFor(u)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s/%s: %w", u.GetKind(), u.GetNamespace(), u.GetName(), err)
	}

	policy := metav1.DeletePropagationBackground
	err = resource.Delete(ctx, u.GetName(), metav1.DeleteOptions{PropagationPolicy: &policy})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete %s %s/%s: %w", u.GetKind(), u.GetNamespace(), u.GetName(), err)
	}
	return nil
}
