package helm

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chartutil"
	"helm.sh/helm/v3/pkg/engine"
)

// KubeVersion is the cluster version charts are rendered against.
const KubeVersion = "v1.31.0"

// Renderer renders one release of a chart.
type Renderer struct {
	releaseName string
	namespace   string
}

// NewRenderer creates a renderer for the given release name and namespace.
func NewRenderer(releaseName, namespace string) *Renderer {
	return &Renderer{releaseName: releaseName, namespace: namespace}
}

// RenderRef fetches a chart and renders it with the provided values.
func (r *Renderer) RenderRef(ctx context.Context, f *Fetcher, ref ChartRef, values Values) ([]byte, error) {
	ch, err := f.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart: %w", err)
	}

	manifests, err := r.Render(ch, values)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart %s: %w", ref, err)
	}
	return manifests, nil
}

// Render renders ch with values merged over the chart defaults.
// Output documents are ordered by template name so renders are reproducible.
func (r *Renderer) Render(ch *chart.Chart, values Values) ([]byte, error) {
	merged := Merge(Values(ch.Values), values)

	releaseOptions := chartutil.ReleaseOptions{
		Name:      r.releaseName,
		Namespace: r.namespace,
		IsInstall: true,
	}

	capabilities := chartutil.DefaultCapabilities.Copy()
	capabilities.KubeVersion.Version = KubeVersion
	capabilities.KubeVersion.Major = "1"
	capabilities.KubeVersion.Minor = "31"

	valuesToRender, err := chartutil.ToRenderValues(ch, chartutil.Values(merged.ToMap()), releaseOptions, capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare values: %w", err)
	}

	rendered, err := engine.Engine{}.Render(ch, valuesToRender)
	if err != nil {
		return nil, fmt.Errorf("failed to render templates: %w", err)
	}

	names := make([]string, 0, len(rendered))
	for name := range rendered {
		names = append(names, name)
	}
	sort.Strings(names)

	var combined bytes.Buffer
	for _, name := range names {
		if filepath.Base(name) == "NOTES.txt" {
			continue
		}
		trimmed := strings.TrimSpace(rendered[name])
		if trimmed == "" {
			continue
		}

		if combined.Len() > 0 {
			combined.WriteString("\n---\n")
		}
		combined.WriteString(trimmed)
		combined.WriteString("\n")
	}

	return combined.Bytes(), nil
}
