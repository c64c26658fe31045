package mariadb

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/helm"
	"github.com/imamik/k8postal/internal/manifest"
	"github.com/imamik/k8postal/internal/util/labels"
	"github.com/imamik/k8postal/internal/util/naming"
)

// Keys the Bitnami chart reads from auth.existingSecret.
const (
	chartKeyRootPassword        = "mariadb-root-password"
	chartKeyPassword            = "mariadb-password"
	chartKeyReplicationPassword = "mariadb-replication-password"
)

// ChartRef returns the chart configured for the helm provider.
func ChartRef(s *config.Settings) helm.ChartRef {
	return helm.ChartRef{
		Repository: s.Database.Chart.Repository,
		Name:       s.Database.Chart.Name,
		Version:    s.Database.Chart.Version,
	}
}

// ReleaseName is the release the chart is rendered as.
func ReleaseName(s *config.Settings) string {
	return s.Name
}

// ChartValues returns the values that bind the chart to the shared
// credentials Secret and init script. User values from the settings file
// are merged last.
func ChartValues(s *config.Settings) helm.Values {
	persistence := helm.Values{
		"enabled": true,
		"size":    s.Database.Storage.Size,
	}
	if s.Database.Storage.ClassName != "" {
		persistence["storageClass"] = s.Database.Storage.ClassName
	}

	values := helm.Values{
		"fullnameOverride": naming.MariaDB(s.Name),
		"architecture":     "standalone",
		"auth": helm.Values{
			"database":       s.Database.Name,
			"username":       s.Database.User,
			"existingSecret": naming.MariaDBSecret(s.Name),
		},
		"initdbScriptsConfigMap": naming.MariaDBInitScript(s.Name),
		"primary": helm.Values{
			"persistence": persistence,
		},
		"commonLabels": helm.Values{
			labels.KeyPartOf:    labels.AppPostal,
			labels.KeyManagedBy: labels.ManagedByK8postal,
		},
	}

	return helm.Merge(values, helm.Values(s.Database.Chart.Values))
}

// chartSelector matches the primary pod of the chart release.
func chartSelector(release string) map[string]string {
	return map[string]string{
		labels.KeyName:      "mariadb",
		labels.KeyInstance:  release,
		labels.KeyComponent: "primary",
	}
}

func chartSecretData(s *config.Settings) map[string][]byte {
	return map[string][]byte{
		chartKeyRootPassword:        []byte(s.Secrets.DatabaseRootPassword),
		chartKeyPassword:            []byte(s.Secrets.DatabasePassword),
		chartKeyReplicationPassword: []byte(s.Secrets.DatabaseRootPassword),
	}
}

// chartObjects decodes the rendered chart and pins every object to the
// installation namespace.
func chartObjects(s *config.Settings, rendered []byte) ([]*unstructured.Unstructured, error) {
	if len(rendered) == 0 {
		return nil, fmt.Errorf("helm provider selected but chart %s was not rendered", ChartRef(s))
	}

	objs, err := manifest.Decode(rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered chart: %w", err)
	}

	var out []*unstructured.Unstructured
	for _, obj := range objs {
		// The shared credentials Secret is declared by this package.
		if obj.GetKind() == "Secret" && obj.GetName() == naming.MariaDBSecret(s.Name) {
			continue
		}
		if obj.GetNamespace() == "" {
			obj.SetNamespace(s.Namespace)
		}
		if obj.GetNamespace() != s.Namespace {
			return nil, fmt.Errorf("chart object %s %s targets namespace %q, want %q",
				obj.GetKind(), obj.GetName(), obj.GetNamespace(), s.Namespace)
		}
		out = append(out, obj)
	}
	return out, nil
}
