package status

import (
	"context"
	"fmt"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/rest"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k8postal/internal/util/retry"
)

// DefaultInterval between readiness checks.
const DefaultInterval = 5 * time.Second

// Waiter waits for Deployments, StatefulSets and Jobs.
type Waiter struct {
	client    ctrlclient.Client
	interval  time.Duration
	retryOpts []retry.Option
}

// NewWaiter creates a Waiter. retryOpts tune the backoff used for each read.
func NewWaiter(c ctrlclient.Client, retryOpts ...retry.Option) *Waiter {
	return &Waiter{client: c, interval: DefaultInterval, retryOpts: retryOpts}
}

// NewForConfig creates a Waiter backed by a controller-runtime client.
func NewForConfig(cfg *rest.Config, retryOpts ...retry.Option) (*Waiter, error) {
	c, err := ctrlclient.New(cfg, ctrlclient.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to create controller-runtime client: %w", err)
	}
	return NewWaiter(c, retryOpts...), nil
}

// WithInterval overrides the polling interval.
func (w *Waiter) WithInterval(d time.Duration) *Waiter {
	w.interval = d
	return w
}

// get reads obj, retrying transient errors. found is false when the object
// does not exist yet.
func (w *Waiter) get(ctx context.Context, key types.NamespacedName, obj ctrlclient.Object) (found bool, err error) {
	opts := append([]retry.Option{
		retry.WithLogger(log.FromContext(ctx)),
		retry.WithOperation(fmt.Sprintf("get %T %s", obj, key)),
	}, w.retryOpts...)

	err = retry.WithExponentialBackoff(ctx, func(ctx context.Context) error {
		err := w.client.Get(ctx, key, obj)
		if apierrors.IsNotFound(err) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	}, opts...)
	return found, err
}

func (w *Waiter) poll(ctx context.Context, what string, timeout time.Duration, check func(ctx context.Context) (bool, error)) error {
	logger := log.FromContext(ctx)
	start := time.Now()

	err := wait.PollUntilContextTimeout(ctx, w.interval, timeout, true, check)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("stopped waiting for %s: %w", what, ctx.Err())
		}
		if wait.Interrupted(err) {
			return fmt.Errorf("timed out after %s waiting for %s", timeout, what)
		}
		return fmt.Errorf("waiting for %s: %w", what, err)
	}
	logger.V(1).Info("Ready", "object", what, "elapsed", time.Since(start).Round(time.Second).String())
	return nil
}

// WaitForDeployment waits until the Deployment reports Available with all
// replicas of its current generation.
func (w *Waiter) WaitForDeployment(ctx context.Context, namespace, name string, timeout time.Duration) error {
	key := types.NamespacedName{Namespace: namespace, Name: name}
	return w.poll(ctx, "Deployment "+key.String(), timeout, func(ctx context.Context) (bool, error) {
		var d appsv1.Deployment
		found, err := w.get(ctx, key, &d)
		if err != nil || !found {
			return false, err
		}
		return DeploymentAvailable(&d), nil
	})
}

// WaitForStatefulSet waits until every replica of the StatefulSet is ready.
func (w *Waiter) WaitForStatefulSet(ctx context.Context, namespace, name string, timeout time.Duration) error {
	key := types.NamespacedName{Namespace: namespace, Name: name}
	return w.poll(ctx, "StatefulSet "+key.String(), timeout, func(ctx context.Context) (bool, error) {
		var s appsv1.StatefulSet
		found, err := w.get(ctx, key, &s)
		if err != nil || !found {
			return false, err
		}
		return StatefulSetReady(&s), nil
	})
}

// WaitForJob waits until the Job completes. A failed Job ends the wait
// with an error.
func (w *Waiter) WaitForJob(ctx context.Context, namespace, name string, timeout time.Duration) error {
	key := types.NamespacedName{Namespace: namespace, Name: name}
	return w.poll(ctx, "Job "+key.String(), timeout, func(ctx context.Context) (bool, error) {
		var j batchv1.Job
		found, err := w.get(ctx, key, &j)
		if err != nil || !found {
			return false, err
		}
		return JobComplete(&j)
	})
}

// DeploymentAvailable reports whether d is Available at its current generation.
func DeploymentAvailable(d *appsv1.Deployment) bool {
	if d.Status.ObservedGeneration < d.Generation {
		return false
	}
	want := int32(1)
	if d.Spec.Replicas != nil {
		want = *d.Spec.Replicas
	}
	if d.Status.AvailableReplicas < want {
		return false
	}
	for _, c := range d.Status.Conditions {
		if c.Type == appsv1.DeploymentAvailable {
			return c.Status == corev1.ConditionTrue
		}
	}
	return false
}

// StatefulSetReady reports whether every replica of s is ready.
func StatefulSetReady(s *appsv1.StatefulSet) bool {
	if s.Status.ObservedGeneration < s.Generation {
		return false
	}
	want := int32(1)
	if s.Spec.Replicas != nil {
		want = *s.Spec.Replicas
	}
	return s.Status.ReadyReplicas >= want
}

// JobComplete reports whether j finished. It returns an error if j failed.
func JobComplete(j *batchv1.Job) (bool, error) {
	for _, c := range j.Status.Conditions {
		if c.Status != corev1.ConditionTrue {
			continue
		}
		switch c.Type {
		case batchv1.JobComplete:
			return true, nil
		case batchv1.JobFailed:
			return false, fmt.Errorf("job %s/%s failed: %s: %s", j.Namespace, j.Name, c.Reason, c.Message)
		}
	}
	return false, nil
}
