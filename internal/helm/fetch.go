package helm

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/downloader"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/registry"
)

// ChartRef identifies a chart version.
// Repository is an oci:// registry path or a local directory.
type ChartRef struct {
	Repository string
	Name       string
	Version    string
}

// String returns the full reference, e.g. oci://registry/charts/mariadb:20.5.3.
func (r ChartRef) String() string {
	return fmt.Sprintf("%s/%s:%s", strings.TrimSuffix(r.Repository, "/"), r.Name, r.Version)
}

// IsOCI reports whether the chart is pulled from an OCI registry.
func (r ChartRef) IsOCI() bool {
	return registry.IsOCI(r.Repository)
}

// Fetcher loads charts, downloading them into a cache directory when needed.
type Fetcher struct {
	CacheDir string
	Offline  bool
	Out      io.Writer
}

// DefaultCacheDir returns the per-user chart cache.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "k8postal", "charts")
	}
	return filepath.Join(dir, "k8postal", "charts")
}

// NewFetcher creates a Fetcher with the default cache directory.
func NewFetcher() *Fetcher {
	return &Fetcher{CacheDir: DefaultCacheDir(), Out: io.Discard}
}

// Fetch returns the loaded chart for ref.
func (f *Fetcher) Fetch(ctx context.Context, ref ChartRef) (*chart.Chart, error) {
	if ref.Name == "" || ref.Version == "" {
		return nil, fmt.Errorf("chart name and version are required")
	}

	if !ref.IsOCI() {
		ch, err := loader.Load(filepath.Join(ref.Repository, ref.Name))
		if err != nil {
			return nil, fmt.Errorf("failed to load chart from %s: %w", ref.Repository, err)
		}
		if ch.Metadata.Version != ref.Version {
			return nil, fmt.Errorf("chart %s has version %s, want %s", ref.Name, ch.Metadata.Version, ref.Version)
		}
		return ch, nil
	}

	archive, err := f.ensureArchive(ctx, ref)
	if err != nil {
		return nil, err
	}

	ch, err := loader.Load(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart archive %s: %w", archive, err)
	}
	return ch, nil
}

// ensureArchive downloads the chart archive unless it is already cached.
func (f *Fetcher) ensureArchive(ctx context.Context, ref ChartRef) (string, error) {
	if err := os.MkdirAll(f.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create chart cache: %w", err)
	}

	archive := filepath.Join(f.CacheDir, fmt.Sprintf("%s-%s.tgz", ref.Name, ref.Version))
	if fi, err := os.Stat(archive); err == nil && fi.Size() > 0 {
		return archive, nil
	}
	if f.Offline {
		return "", fmt.Errorf("offline mode and chart not cached: %s", archive)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	settings := cli.New()
	settings.RepositoryCache = filepath.Join(f.CacheDir, "repo-cache")
	settings.RepositoryConfig = filepath.Join(f.CacheDir, "repositories.yaml")
	settings.RegistryConfig = filepath.Join(f.CacheDir, "registry.json")

	rc, err := registry.NewClient(registry.ClientOptDebug(false))
	if err != nil {
		return "", fmt.Errorf("failed to create registry client: %w", err)
	}

	out := f.Out
	if out == nil {
		out = io.Discard
	}
	cd := downloader.ChartDownloader{
		Out:              out,
		Getters:          getter.All(settings),
		RegistryClient:   rc,
		RepositoryConfig: settings.RepositoryConfig,
		RepositoryCache:  settings.RepositoryCache,
	}

	ociRef := strings.TrimSuffix(ref.Repository, "/") + "/" + ref.Name
	saved, _, err := cd.DownloadTo(ociRef, ref.Version, f.CacheDir)
	if err != nil {
		return "", fmt.Errorf("failed to download chart %s: %w", ref, err)
	}
	if saved != archive {
		if err := os.Rename(saved, archive); err != nil {
			return "", fmt.Errorf("failed to cache chart archive: %w", err)
		}
	}
	return archive, nil
}
