package kube

import (
	"context"
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
)

// FieldManager identifies k8postal in managedFields.
const FieldManager = "k8postal"

// Client provides the cluster operations used by apply, destroy and outputs.
type Client interface {
	// Apply applies one object using Server-Side Apply.
	Apply(ctx context.Context, obj ctrlclient.Object) error

	// Delete deletes one object, returning nil if it does not exist.
	Delete(ctx context.Context, obj ctrlclient.Object) error

	// ReplaceJob deletes a previous run of job, waits until it is gone,
	// and applies job again.
	ReplaceJob(ctx context.Context, job *batchv1.Job) error

	// GetSecret returns the secret, or nil if it does not exist.
	GetSecret(ctx context.Context, namespace, name string) (*corev1.Secret, error)

	// DeleteNamespace deletes a namespace, returning nil if not found.
	DeleteNamespace(ctx context.Context, name string) error

	// LoadBalancerAddress returns the first ingress IP or hostname of a
	// LoadBalancer service, or "" while it is pending.
	LoadBalancerAddress(ctx context.Context, namespace, name string) (string, error)

	// HasIngressClass checks if an IngressClass with the given name exists.
	HasIngressClass(ctx context.Context, name string) (bool, error)

	// DeleteMatching deletes labelled objects of kinds in namespace that
	// keep does not retain, returning "Kind/name" of each deleted object.
	DeleteMatching(ctx context.Context, namespace, selector string, kinds []schema.GroupVersionKind, keep func(kind, name string) bool) ([]string, error)
}

// client implements Client using k8s.io/client-go.
type client struct {
	clientset     kubernetes.Interface
	dynamicClient dynamic.Interface
	mapper        meta.RESTMapper
}

// RESTConfig loads a client configuration the way kubectl does: an explicit
// path wins over $KUBECONFIG, which wins over ~/.kube/config.
func RESTConfig(kubeconfigPath, contextName string) (*rest.Config, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfigPath != "" {
		rules.ExplicitPath = kubeconfigPath
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return cfg, nil
}

// NewForConfig creates a Client for restConfig.
func NewForConfig(restConfig *rest.Config) (Client, error) {
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	groupResources, err := restmapper.GetAPIGroupResources(discoveryClient)
	if err != nil {
		return nil, fmt.Errorf("failed to get API group resources: %w", err)
	}

	return &client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        restmapper.NewDiscoveryRESTMapper(groupResources),
	}, nil
}

// NewFromClients creates a Client from pre-configured clients.
// This is useful for testing with fake clients.
func NewFromClients(
	clientset kubernetes.Interface,
	dynamicClient dynamic.Interface,
	mapper meta.RESTMapper,
) Client {
	return &client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        mapper,
	}
}
