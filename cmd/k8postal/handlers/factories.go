// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework. External clients are created through
// package-level factory variables so tests can replace them.
package handlers

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"k8s.io/client-go/rest"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/dns"
	"github.com/imamik/k8postal/internal/kube"
	"github.com/imamik/k8postal/internal/platform/cloudflare"
	"github.com/imamik/k8postal/internal/platform/hcloud"
	"github.com/imamik/k8postal/internal/platform/s3"
	"github.com/imamik/k8postal/internal/probe"
	"github.com/imamik/k8postal/internal/status"
	"github.com/imamik/k8postal/internal/ui/tui"
	"github.com/imamik/k8postal/internal/util/keygen"
	"github.com/imamik/k8postal/internal/util/password"
	"github.com/imamik/k8postal/internal/util/retry"
)

// Waiter waits for workloads to become ready.
type Waiter interface {
	WaitForDeployment(ctx context.Context, namespace, name string, timeout time.Duration) error
	WaitForStatefulSet(ctx context.Context, namespace, name string, timeout time.Duration) error
	WaitForJob(ctx context.Context, namespace, name string, timeout time.Duration) error
}

// BackupStore manages the bucket MariaDB dumps are uploaded to.
type BackupStore interface {
	EnsureBucket(ctx context.Context, bucket string) (bool, error)
	SetExpiration(ctx context.Context, bucket, prefix string, days int) error
	LatestObject(ctx context.Context, bucket, prefix string) (*s3.Object, error)
}

// SMTPChecker performs an SMTP handshake.
type SMTPChecker interface {
	Check(ctx context.Context, host string, port int) (*probe.SMTPResult, error)
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// findConfigFile locates k8postal.yaml.
	findConfigFile = config.FindConfigFile

	// loadSettings loads settings and secrets and validates both.
	loadSettings = config.Load

	// loadSettingsWithoutSecrets loads and validates plain settings.
	loadSettingsWithoutSecrets = config.LoadWithoutSecrets

	// loadSecrets reads secret values from the environment.
	loadSecrets = config.SecretsFromEnv

	// loadTimeouts reads timeouts from the environment.
	loadTimeouts = config.LoadTimeouts

	// loadRESTConfig resolves the kubeconfig.
	loadRESTConfig = kube.RESTConfig

	// newKubeClient creates the apply/delete client.
	newKubeClient = kube.NewForConfig

	// newWaiter creates the readiness waiter.
	newWaiter = func(cfg *rest.Config, t *config.Timeouts) (Waiter, error) {
		return status.NewForConfig(cfg,
			retry.WithMaxRetries(t.RetryMaxAttempts),
			retry.WithInitialDelay(t.RetryInitialDelay),
		)
	}

	// renderChart renders the MariaDB chart for the helm provider.
	renderChart = renderMariaDBChart

	// newRDNSClient creates the Hetzner Cloud client used for reverse DNS.
	newRDNSClient = func(token string, t *config.Timeouts) hcloud.RDNSManager {
		return hcloud.NewRealClient(token, hcloud.WithTimeouts(t))
	}

	// newDNSProvider creates the Cloudflare client.
	newDNSProvider = func(token string) dns.Provider {
		return cloudflare.NewClient(token)
	}

	// newBackupStore creates the S3 client for the backup bucket.
	newBackupStore = func(ctx context.Context, b config.BackupSpec, secrets config.Secrets) (BackupStore, error) {
		return s3.NewClient(ctx, b.Endpoint, b.Region, secrets.BackupAccessKey, secrets.BackupSecretKey)
	}

	// newSMTPChecker creates the SMTP handshake checker.
	newSMTPChecker = func(localName string) SMTPChecker {
		return &probe.SMTPChecker{LocalName: localName}
	}

	// waitForTCP waits for a TCP port to open.
	waitForTCP = probe.WaitForTCP

	// generatePassword creates the admin password when none exists.
	generatePassword = func() (string, error) {
		return password.Generate(password.DefaultBytes)
	}

	// generateSigningKey creates a Postal signing key.
	generateSigningKey = keygen.GenerateSigningKey

	// runWizard runs the interactive init wizard.
	runWizard = config.RunWizard

	// saveSettings writes the settings file.
	saveSettings = config.Save

	// writeFile writes data to a file (for testing injection).
	writeFile = os.WriteFile

	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// isTerminal reports whether stdout is an interactive terminal.
	isTerminal = func() bool {
		fd := os.Stdout.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}

	// runTUI shows apply progress in a terminal UI.
	runTUI = func(ctx context.Context, title, namespace string, steps []tui.Step, fn func(context.Context, tui.Reporter) error) error {
		return tui.Run(ctx, title, namespace, steps, fn)
	}

	// pollInterval between load balancer and port checks.
	pollInterval = 5 * time.Second

	// stdout receives human-facing output.
	stdout io.Writer = os.Stdout
)
