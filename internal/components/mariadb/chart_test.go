package mariadb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/helm"
)

const renderedChart = `apiVersion: v1
kind: ServiceAccount
metadata:
  name: postal-mariadb
  namespace: postal
---
apiVersion: v1
kind: Secret
metadata:
  name: postal-mariadb-secret
---
apiVersion: apps/v1
kind: StatefulSet
metadata:
  name: postal-mariadb
spec:
  replicas: 1
`

func helmSettings(mutate ...func(*config.Settings)) *config.Settings {
	return testSettings(append([]func(*config.Settings){func(s *config.Settings) {
		s.Database.Provider = config.ProviderHelm
	}}, mutate...)...)
}

func TestNew_Helm(t *testing.T) {
	t.Parallel()
	c, err := New(helmSettings(), []byte(renderedChart))
	require.NoError(t, err)

	assert.Nil(t, c.Deployment)
	assert.Nil(t, c.VolumeClaim)
	require.Len(t, c.Chart, 2)
	assert.Equal(t, "ServiceAccount", c.Chart[0].GetKind())
	assert.Equal(t, "StatefulSet", c.Chart[1].GetKind())
	assert.Equal(t, "postal", c.Chart[1].GetNamespace())

	assert.Equal(t, Workload{Kind: KindStatefulSet, Namespace: "postal", Name: "postal-mariadb"}, c.Workload)
	assert.Equal(t, chartSelector("postal"), c.Service.Spec.Selector)

	assert.Equal(t, "root-pass", string(c.Secret.Data[chartKeyRootPassword]))
	assert.Equal(t, "db-pass", string(c.Secret.Data[chartKeyPassword]))
	assert.Equal(t, "db-pass", string(c.Secret.Data[KeyPassword]))

	assert.Len(t, c.Objects(), 5)
}

func TestNew_HelmNotRendered(t *testing.T) {
	t.Parallel()
	_, err := New(helmSettings(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "was not rendered")
}

func TestNew_HelmForeignNamespace(t *testing.T) {
	t.Parallel()
	rendered := "apiVersion: v1\nkind: ConfigMap\nmetadata:\n  name: x\n  namespace: kube-system\n"
	_, err := New(helmSettings(), []byte(rendered))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `targets namespace "kube-system"`)
}

func TestChartValues(t *testing.T) {
	t.Parallel()
	s := helmSettings(func(s *config.Settings) {
		s.Database.Storage.ClassName = "fast"
		s.Database.Chart.Values = map[string]any{
			"primary": map[string]any{"resources": map[string]any{"limits": map[string]any{"memory": "2Gi"}}},
		}
	})

	v := ChartValues(s)
	assert.Equal(t, "postal-mariadb", v["fullnameOverride"])
	assert.Equal(t, "postal-mariadb-init", v["initdbScriptsConfigMap"])

	auth := v["auth"].(helm.Values)
	assert.Equal(t, "postal-mariadb-secret", auth["existingSecret"])
	assert.Equal(t, "postal", auth["username"])

	primary := v["primary"].(helm.Values)
	persistence := primary["persistence"].(helm.Values)
	assert.Equal(t, "10Gi", persistence["size"])
	assert.Equal(t, "fast", persistence["storageClass"])
	assert.Contains(t, primary, "resources")
}

func TestChartRef(t *testing.T) {
	t.Parallel()
	ref := ChartRef(helmSettings())
	assert.Equal(t, "oci://registry-1.docker.io/bitnamicharts/mariadb:20.5.3", ref.String())
	assert.Equal(t, "postal", ReleaseName(helmSettings()))
}
