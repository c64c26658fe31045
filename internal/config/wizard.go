package config

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/huh"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/validation"
)

// WizardResult holds the user's choices from the init wizard.
type WizardResult struct {
	Domain           string
	Namespace        string
	SMTPServiceType  ServiceType
	IngressEnabled   bool
	ExternalDatabase bool
	DatabaseHost     string
	Provider         DatabaseProvider
	StorageSize      string
	CloudflareDNS    bool
	Backup           bool
}

// RunWizard asks for the handful of settings most installations change.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{
		Namespace:       DefaultNamespace,
		SMTPServiceType: ServiceTypeLoadBalancer,
		IngressEnabled:  true,
		Provider:        ProviderManifest,
		StorageSize:     DefaultStorageSize,
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Domain").
				Description("Public hostname of the Postal web interface").
				Placeholder("postal.example.com").
				Value(&result.Domain).
				Validate(validateDomain),
			huh.NewInput().
				Title("Namespace").
				Description("Kubernetes namespace for all Postal objects").
				Value(&result.Namespace).
				Validate(validateNamespace),
		),

		huh.NewGroup(
			huh.NewSelect[ServiceType]().
				Title("SMTP service type").
				Description("How port 25 is exposed").
				Options(
					huh.NewOption("LoadBalancer (public IP from the cloud provider)", ServiceTypeLoadBalancer),
					huh.NewOption("NodePort (reach nodes directly)", ServiceTypeNodePort),
					huh.NewOption("ClusterIP (internal only)", ServiceTypeClusterIP),
				).
				Value(&result.SMTPServiceType),
			huh.NewConfirm().
				Title("Create an Ingress for the web interface?").
				Description("TLS is issued by cert-manager").
				Value(&result.IngressEnabled),
		),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Use an external MariaDB server?").
				Description("No: k8postal deploys a single-replica MariaDB").
				Value(&result.ExternalDatabase),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Database host").
				Placeholder("db.internal").
				Value(&result.DatabaseHost).
				Validate(validateDatabaseHost),
		).WithHideFunc(func() bool { return !result.ExternalDatabase }),

		huh.NewGroup(
			huh.NewSelect[DatabaseProvider]().
				Title("MariaDB provider").
				Options(
					huh.NewOption("Plain manifests", ProviderManifest),
					huh.NewOption("Bitnami Helm chart", ProviderHelm),
				).
				Value(&result.Provider),
			huh.NewInput().
				Title("Storage size").
				Value(&result.StorageSize).
				Validate(validateStorageSize),
			huh.NewConfirm().
				Title("Enable nightly database backups?").
				Description("Dumps to S3-compatible object storage").
				Value(&result.Backup),
		).WithHideFunc(func() bool { return result.ExternalDatabase }),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Manage DNS records in Cloudflare?").
				Description("Requires CF_API_TOKEN").
				Value(&result.CloudflareDNS),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	return result, nil
}

// ToSettings converts the wizard result to Settings with defaults applied,
// so the written YAML is explicit and self-documenting.
func (r *WizardResult) ToSettings() *Settings {
	ingress := r.IngressEnabled
	s := &Settings{
		Domain:    strings.ToLower(strings.TrimSpace(r.Domain)),
		Namespace: r.Namespace,
		Ingress:   IngressSpec{Enabled: &ingress},
		SMTP:      SMTPSpec{ServiceType: r.SMTPServiceType},
	}

	if r.ExternalDatabase {
		s.Database.External = true
		s.Database.Host = r.DatabaseHost
	} else {
		s.Database.Provider = r.Provider
		s.Database.Storage.Size = r.StorageSize
		s.Database.Backup.Enabled = r.Backup
	}

	if r.CloudflareDNS {
		s.DNS.Provider = DNSProviderCloudflare
	}

	s.ApplyDefaults()
	return s
}

func validateDomain(s string) error {
	if s == "" {
		return fmt.Errorf("domain is required")
	}
	if !domainRegex.MatchString(strings.TrimSpace(s)) {
		return fmt.Errorf("invalid domain format")
	}
	return nil
}

func validateNamespace(s string) error {
	if errs := validation.IsDNS1123Label(s); len(errs) > 0 {
		return fmt.Errorf("invalid namespace: %s", strings.Join(errs, ", "))
	}
	return nil
}

func validateDatabaseHost(s string) error {
	if s == "" {
		return fmt.Errorf("database host is required")
	}
	if net.ParseIP(s) == nil && len(validation.IsDNS1123Subdomain(s)) > 0 {
		return fmt.Errorf("database host must be a hostname or IP address")
	}
	return nil
}

func validateStorageSize(s string) error {
	if _, err := resource.ParseQuantity(s); err != nil {
		return fmt.Errorf("invalid storage size: %w", err)
	}
	return nil
}
