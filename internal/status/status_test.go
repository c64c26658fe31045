package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/imamik/k8postal/internal/util/retry"
)

func testWaiter(objs ...ctrlclient.Object) *Waiter {
	c := fake.NewClientBuilder().WithObjects(objs...).WithStatusSubresource(objs...).Build()
	return NewWaiter(c, retry.WithMaxRetries(0)).WithInterval(10 * time.Millisecond)
}

func replicas(n int32) *int32 { return &n }

func availableDeployment() *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "postal-mariadb", Namespace: "postal", Generation: 1},
		Spec:       appsv1.DeploymentSpec{Replicas: replicas(1)},
		Status: appsv1.DeploymentStatus{
			ObservedGeneration: 1,
			AvailableReplicas:  1,
			Conditions: []appsv1.DeploymentCondition{
				{Type: appsv1.DeploymentAvailable, Status: corev1.ConditionTrue},
			},
		},
	}
}

func TestDeploymentAvailable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*appsv1.Deployment)
		want   bool
	}{
		{"available", func(*appsv1.Deployment) {}, true},
		{"stale generation", func(d *appsv1.Deployment) { d.Generation = 2 }, false},
		{"missing replicas", func(d *appsv1.Deployment) { d.Status.AvailableReplicas = 0 }, false},
		{"condition false", func(d *appsv1.Deployment) {
			d.Status.Conditions[0].Status = corev1.ConditionFalse
		}, false},
		{"no conditions", func(d *appsv1.Deployment) { d.Status.Conditions = nil }, false},
		{"scaled to zero", func(d *appsv1.Deployment) {
			d.Spec.Replicas = replicas(0)
			d.Status.AvailableReplicas = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := availableDeployment()
			tt.mutate(d)
			assert.Equal(t, tt.want, DeploymentAvailable(d))
		})
	}
}

func TestStatefulSetReady(t *testing.T) {
	t.Parallel()
	s := &appsv1.StatefulSet{
		Spec:   appsv1.StatefulSetSpec{Replicas: replicas(1)},
		Status: appsv1.StatefulSetStatus{ReadyReplicas: 1},
	}
	assert.True(t, StatefulSetReady(s))

	s.Status.ReadyReplicas = 0
	assert.False(t, StatefulSetReady(s))
}

func TestJobComplete(t *testing.T) {
	t.Parallel()
	job := &batchv1.Job{ObjectMeta: metav1.ObjectMeta{Name: "postal-init", Namespace: "postal"}}

	done, err := JobComplete(job)
	require.NoError(t, err)
	assert.False(t, done)

	job.Status.Conditions = []batchv1.JobCondition{{Type: batchv1.JobComplete, Status: corev1.ConditionTrue}}
	done, err = JobComplete(job)
	require.NoError(t, err)
	assert.True(t, done)

	job.Status.Conditions = []batchv1.JobCondition{{
		Type: batchv1.JobFailed, Status: corev1.ConditionTrue,
		Reason: "BackoffLimitExceeded", Message: "Job has reached the specified backoff limit",
	}}
	_, err = JobComplete(job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job postal/postal-init failed: BackoffLimitExceeded")
}

func TestWaitForDeployment(t *testing.T) {
	t.Parallel()
	w := testWaiter(availableDeployment())
	require.NoError(t, w.WaitForDeployment(context.Background(), "postal", "postal-mariadb", time.Second))
}

func TestWaitForDeployment_Timeout(t *testing.T) {
	t.Parallel()
	d := availableDeployment()
	d.Status.AvailableReplicas = 0
	w := testWaiter(d)

	err := w.WaitForDeployment(context.Background(), "postal", "postal-mariadb", 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Contains(t, err.Error(), "Deployment postal/postal-mariadb")
}

func TestWaitForDeployment_NotFound(t *testing.T) {
	t.Parallel()
	w := testWaiter()
	err := w.WaitForDeployment(context.Background(), "postal", "missing", 50*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestWaitForDeployment_Cancelled(t *testing.T) {
	t.Parallel()
	w := testWaiter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.WaitForDeployment(ctx, "postal", "missing", time.Minute)
	require.Error(t, err)
}

func TestWaitForStatefulSet(t *testing.T) {
	t.Parallel()
	s := &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{Name: "postal-mariadb", Namespace: "postal"},
		Spec:       appsv1.StatefulSetSpec{Replicas: replicas(1)},
		Status:     appsv1.StatefulSetStatus{ReadyReplicas: 1},
	}
	w := testWaiter(s)
	require.NoError(t, w.WaitForStatefulSet(context.Background(), "postal", "postal-mariadb", time.Second))
}

func TestWaitForJob(t *testing.T) {
	t.Parallel()
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: "postal-init", Namespace: "postal"},
		Status: batchv1.JobStatus{Conditions: []batchv1.JobCondition{
			{Type: batchv1.JobComplete, Status: corev1.ConditionTrue},
		}},
	}
	w := testWaiter(job)
	require.NoError(t, w.WaitForJob(context.Background(), "postal", "postal-init", time.Second))
}

func TestWaitForJob_Failed(t *testing.T) {
	t.Parallel()
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Name: "postal-init", Namespace: "postal"},
		Status: batchv1.JobStatus{Conditions: []batchv1.JobCondition{
			{Type: batchv1.JobFailed, Status: corev1.ConditionTrue, Reason: "BackoffLimitExceeded"},
		}},
	}
	w := testWaiter(job)

	err := w.WaitForJob(context.Background(), "postal", "postal-init", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BackoffLimitExceeded")
	assert.NotContains(t, err.Error(), "timed out")
}
