package manifest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

func testObjects() []client.Object {
	return []client.Object{
		&corev1.Namespace{
			TypeMeta:   metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
			ObjectMeta: metav1.ObjectMeta{Name: "postal"},
		},
		&appsv1.Deployment{
			TypeMeta:   metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
			ObjectMeta: metav1.ObjectMeta{Name: "postal-web", Namespace: "postal"},
			Spec: appsv1.DeploymentSpec{
				Template: corev1.PodTemplateSpec{
					Spec: corev1.PodSpec{Containers: []corev1.Container{{Name: "web", Image: "postal"}}},
				},
			},
		},
	}
}

func TestToUnstructured(t *testing.T) {
	t.Parallel()
	u, err := ToUnstructured(testObjects()[1])
	require.NoError(t, err)

	assert.Equal(t, "Deployment", u.GetKind())
	assert.Equal(t, "postal", u.GetNamespace())
	_, hasStatus := u.Object["status"]
	assert.False(t, hasStatus)

	meta := u.Object["metadata"].(map[string]any)
	_, hasTimestamp := meta["creationTimestamp"]
	assert.False(t, hasTimestamp)
}

func TestToUnstructured_MissingTypeMeta(t *testing.T) {
	t.Parallel()
	_, err := ToUnstructured(&corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no apiVersion/kind")
}

func TestEncodeDecode(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, testObjects()))

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "---\n"))
	assert.NotContains(t, out, "creationTimestamp")
	assert.NotContains(t, out, "status:")

	objs, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, objs, 2)
	assert.Equal(t, "Namespace", objs[0].GetKind())
	assert.Equal(t, "postal-web", objs[1].GetName())
}

func TestDecode_SkipsEmptyDocuments(t *testing.T) {
	t.Parallel()
	objs, err := Decode([]byte("---\n---\napiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: a\n---\n"))
	require.NoError(t, err)
	require.Len(t, objs, 1)
	assert.Equal(t, "a", objs[0].GetName())
}

func TestDecode_MissingKind(t *testing.T) {
	t.Parallel()
	_, err := Decode([]byte("metadata:\n  name: a\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no kind")
}

func TestWriteDir(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "out")

	paths, err := WriteDir(dir, testObjects())
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "00-namespace-postal.yaml"), paths[0])
	assert.Equal(t, filepath.Join(dir, "01-deployment-postal-web.yaml"), paths[1])

	info, err := os.Stat(paths[1])
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
