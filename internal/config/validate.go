package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/imamik/k8postal/internal/util/keygen"
)

// domainRegex is compiled once at package init for domain validation.
var domainRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*\.[a-zA-Z]{2,}$`)

// cronRegex accepts the five field cron syntax Kubernetes CronJobs use.
var cronRegex = regexp.MustCompile(`^(@(yearly|annually|monthly|weekly|daily|midnight|hourly)|(\S+\s+){4}\S+)$`)

// Validate checks settings and secrets, returning the first problem found.
// ApplyDefaults must run first.
func (s *Settings) Validate() error {
	if err := s.ValidateSettings(); err != nil {
		return err
	}
	return s.validateSecrets()
}

// ValidateSettings checks the plain settings only. Commands that never touch
// secret values (outputs, dns without --apply) use it directly.
func (s *Settings) ValidateSettings() error {
	if s.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if !domainRegex.MatchString(s.Domain) {
		return fmt.Errorf("domain %q is not a valid hostname", s.Domain)
	}

	if errs := validation.IsDNS1123Label(s.Namespace); len(errs) > 0 {
		return fmt.Errorf("namespace %q is invalid: %s", s.Namespace, strings.Join(errs, ", "))
	}
	// The longest derived name is {name}-mariadb-backup-s3, which must stay a DNS label.
	if errs := validation.IsDNS1123Label(s.Name + "-mariadb-backup-s3"); len(errs) > 0 {
		return fmt.Errorf("name %q is invalid: %s", s.Name, strings.Join(errs, ", "))
	}
	if !strings.Contains(s.AdminEmail, "@") {
		return fmt.Errorf("admin_email %q is not an email address", s.AdminEmail)
	}

	if s.Image.Repository == "" || s.Image.Tag == "" {
		return fmt.Errorf("image repository and tag are required")
	}

	if err := s.validateReplicas(); err != nil {
		return fmt.Errorf("replicas validation failed: %w", err)
	}
	if err := s.validateSMTP(); err != nil {
		return fmt.Errorf("smtp validation failed: %w", err)
	}
	if err := s.validateDatabase(); err != nil {
		return fmt.Errorf("database validation failed: %w", err)
	}
	if err := s.validateDNS(); err != nil {
		return fmt.Errorf("dns validation failed: %w", err)
	}

	return nil
}

func (s *Settings) validateReplicas() error {
	for role, v := range map[string]*int32{"web": s.Replicas.Web, "smtp": s.Replicas.SMTP, "worker": s.Replicas.Worker} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s replicas must not be negative, got %d", role, *v)
		}
	}
	return nil
}

func (s *Settings) validateSMTP() error {
	if !s.SMTP.ServiceType.IsValid() {
		return fmt.Errorf("invalid service_type %q: must be one of ClusterIP, NodePort, LoadBalancer", s.SMTP.ServiceType)
	}
	if !domainRegex.MatchString(s.SMTP.Hostname) {
		return fmt.Errorf("hostname %q is not a valid hostname", s.SMTP.Hostname)
	}
	if s.SMTP.LoadBalancerIP != "" {
		if s.SMTP.ServiceType != ServiceTypeLoadBalancer {
			return fmt.Errorf("load_balancer_ip requires service_type LoadBalancer")
		}
		if net.ParseIP(s.SMTP.LoadBalancerIP) == nil {
			return fmt.Errorf("load_balancer_ip %q is not an IP address", s.SMTP.LoadBalancerIP)
		}
	}
	if s.SMTP.Hetzner != nil && s.SMTP.ServiceType != ServiceTypeLoadBalancer {
		return fmt.Errorf("hetzner settings require service_type LoadBalancer")
	}
	return nil
}

func (s *Settings) validateDatabase() error {
	db := s.Database
	if db.Port < 1 || db.Port > 65535 {
		return fmt.Errorf("port %d is out of range", db.Port)
	}

	if db.External {
		if db.Host == "" {
			return fmt.Errorf("host is required when external is set")
		}
		if db.Backup.Enabled {
			return fmt.Errorf("backup is only supported for the integrated database")
		}
		return nil
	}

	if db.Host != "" {
		return fmt.Errorf("host is only allowed when external is set")
	}
	switch db.Provider {
	case ProviderManifest, ProviderHelm:
	default:
		return fmt.Errorf("invalid provider %q: must be manifest or helm", db.Provider)
	}
	if _, err := resource.ParseQuantity(db.Storage.Size); err != nil {
		return fmt.Errorf("storage size %q is invalid: %w", db.Storage.Size, err)
	}

	if db.Backup.Enabled {
		if db.Provider != ProviderManifest {
			return fmt.Errorf("backup is only supported with the manifest provider")
		}
		if !cronRegex.MatchString(db.Backup.Schedule) {
			return fmt.Errorf("backup schedule %q is not a cron expression", db.Backup.Schedule)
		}
		if db.Backup.Retention < 1 {
			return fmt.Errorf("backup retention must be at least 1")
		}
	}
	return nil
}

func (s *Settings) validateDNS() error {
	switch s.DNS.Provider {
	case "", DNSProviderCloudflare:
	default:
		return fmt.Errorf("invalid provider %q: must be empty or cloudflare", s.DNS.Provider)
	}
	if s.DNS.Zone != s.Domain && !strings.HasSuffix(s.Domain, "."+s.DNS.Zone) {
		return fmt.Errorf("zone %q does not contain domain %q", s.DNS.Zone, s.Domain)
	}
	return nil
}

func (s *Settings) validateSecrets() error {
	sec := s.Secrets
	if sec.DatabasePassword == "" {
		return fmt.Errorf("%s is required", EnvDatabasePassword)
	}
	if !s.Database.External && sec.DatabaseRootPassword == "" {
		return fmt.Errorf("%s is required", EnvDatabaseRootPassword)
	}
	if len(sec.SigningKey) == 0 {
		return fmt.Errorf("%s or %s is required", EnvSigningKey, EnvSigningKeyFile)
	}
	if _, err := keygen.ParseSigningKey(sec.SigningKey); err != nil {
		return fmt.Errorf("%s is invalid: %w", EnvSigningKey, err)
	}
	if s.DNS.Provider == DNSProviderCloudflare && sec.CloudflareToken == "" {
		return fmt.Errorf("%s is required for dns provider cloudflare", EnvCloudflareToken)
	}
	if s.Database.Backup.Enabled && (sec.BackupAccessKey == "" || sec.BackupSecretKey == "") {
		return fmt.Errorf("%s and %s are required when backup is enabled", EnvBackupAccessKey, EnvBackupSecretKey)
	}
	return nil
}
