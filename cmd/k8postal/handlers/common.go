package handlers

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k8postal/internal/components/mariadb"
	"github.com/imamik/k8postal/internal/components/postal"
	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/helm"
	"github.com/imamik/k8postal/internal/kube"
	"github.com/imamik/k8postal/internal/stack"
	"github.com/imamik/k8postal/internal/util/naming"
)

// KubeOptions select the cluster to talk to.
type KubeOptions struct {
	Kubeconfig string
	Context    string
}

// resolveConfigPath returns path, or the k8postal.yaml found by walking up
// from the working directory.
func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	found, err := findConfigFile()
	if err != nil {
		return "", fmt.Errorf("no config file found: %w\nRun 'k8postal init' to create one", err)
	}
	return found, nil
}

// loadFull loads settings including secrets.
func loadFull(path string) (*config.Settings, error) {
	path, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	return loadSettings(path)
}

// loadPlain loads settings without reading secrets.
func loadPlain(path string) (*config.Settings, error) {
	path, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	return loadSettingsWithoutSecrets(path)
}

// connect creates the kube client for opts.
func connect(opts KubeOptions) (kube.Client, error) {
	cfg, err := loadRESTConfig(opts.Kubeconfig, opts.Context)
	if err != nil {
		return nil, err
	}
	return newKubeClient(cfg)
}

// renderMariaDBChart renders the MariaDB chart when the helm provider is
// selected and returns nil otherwise.
func renderMariaDBChart(ctx context.Context, s *config.Settings, offline bool) ([]byte, error) {
	if s.Database.External || s.Database.Provider != config.ProviderHelm {
		return nil, nil
	}

	fetcher := helm.NewFetcher()
	fetcher.Offline = offline

	ref := mariadb.ChartRef(s)
	log.FromContext(ctx).V(1).Info("Rendering MariaDB chart", "chart", ref.String())

	out, err := helm.NewRenderer(mariadb.ReleaseName(s), s.Namespace).RenderRef(ctx, fetcher, ref, mariadb.ChartValues(s))
	if err != nil {
		return nil, fmt.Errorf("failed to render MariaDB chart: %w", err)
	}
	return out, nil
}

// resolveAdminPassword picks the admin password: the environment first,
// then the Secret of a previous apply, then a generated one.
func resolveAdminPassword(ctx context.Context, s *config.Settings, kc kube.Client) (string, error) {
	if s.Secrets.AdminPassword != "" {
		return s.Secrets.AdminPassword, nil
	}

	logger := log.FromContext(ctx)
	name := naming.AdminSecret(s.Name)
	if kc != nil {
		secret, err := kc.GetSecret(ctx, s.Namespace, name)
		if err != nil {
			return "", fmt.Errorf("failed to read admin secret: %w", err)
		}
		if secret != nil && len(secret.Data[postal.KeyAdminPassword]) > 0 {
			logger.V(1).Info("Reusing admin password", "secret", s.Namespace+"/"+name)
			return string(secret.Data[postal.KeyAdminPassword]), nil
		}
	}

	pw, err := generatePassword()
	if err != nil {
		return "", fmt.Errorf("failed to generate admin password: %w", err)
	}
	logger.Info("Generated admin password", "secret", s.Namespace+"/"+name, "hint", "set "+config.EnvAdminPassword+" to choose one")
	return pw, nil
}

// declare builds the stack for s and logs its warnings.
func declare(ctx context.Context, s *config.Settings, adminPassword string, offline bool) (*stack.Stack, error) {
	chart, err := renderChart(ctx, s, offline)
	if err != nil {
		return nil, err
	}

	st, err := stack.Build(s, stack.Resolved{AdminPassword: adminPassword, ChartManifests: chart})
	if err != nil {
		return nil, err
	}

	logger := log.FromContext(ctx)
	for _, w := range st.Warnings {
		logger.Info("Warning", "detail", w)
	}
	return st, nil
}

// placeholderSecrets fills missing secrets for commands that only need
// object names and kinds.
func placeholderSecrets(s *config.Settings) {
	const unused = "unused"
	if s.Secrets.DatabasePassword == "" {
		s.Secrets.DatabasePassword = unused
	}
	if s.Secrets.DatabaseRootPassword == "" {
		s.Secrets.DatabaseRootPassword = unused
	}
	if len(s.Secrets.SigningKey) == 0 {
		s.Secrets.SigningKey = []byte(unused)
	}
	if s.Secrets.SecretKey == "" {
		s.Secrets.SecretKey = unused
	}
}
