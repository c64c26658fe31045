package kube

import (
	"context"
	"fmt"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// jobGoneTimeout bounds the wait for a deleted Job and its pods.
var jobGoneTimeout = 2 * time.Minute

// ReplaceJob deletes the previous run of job and applies a fresh one.
// Job templates are immutable, so an in-place apply would be rejected.
func (c *client) ReplaceJob(ctx context.Context, job *batchv1.Job) error {
	logger := log.FromContext(ctx).WithValues("job", job.Name, "namespace", job.Namespace)
	jobs := c.clientset.BatchV1().Jobs(job.Namespace)

	policy := metav1.DeletePropagationForeground
	err := jobs.Delete(ctx, job.Name, metav1.DeleteOptions{PropagationPolicy: &policy})
	switch {
	case apierrors.IsNotFound(err):
	case err != nil:
		return fmt.Errorf("failed to delete previous job %s/%s: %w", job.Namespace, job.Name, err)
	default:
		logger.V(1).Info("Deleted previous job, waiting for removal")
		err = wait.PollUntilContextTimeout(ctx, time.Second, jobGoneTimeout, true, func(ctx context.Context) (bool, error) {
			_, err := jobs.Get(ctx, job.Name, metav1.GetOptions{})
			if apierrors.IsNotFound(err) {
				return true, nil
			}
			return false, nil
		})
		if err != nil {
			return fmt.Errorf("previous job %s/%s was not removed: %w", job.Namespace, job.Name, err)
		}
	}

	return c.Apply(ctx, job)
}
