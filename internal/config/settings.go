package config

import (
	"fmt"
	"strings"
)

// Default values applied by ApplyDefaults.
const (
	DefaultNamespace       = "postal"
	DefaultName            = "postal"
	DefaultImageRepository = "ghcr.io/postalserver/postal"
	DefaultImageTag        = "3.3.4"
	DefaultReplicas        = int32(1)
	DefaultIngressClass    = "nginx"
	DefaultClusterIssuer   = "letsencrypt-prod"
	DefaultDatabasePort    = 3306
	DefaultDatabaseName    = "postal"
	DefaultDatabaseUser    = "postal"
	DefaultDatabaseImage   = "mariadb:10.11"
	DefaultStorageSize     = "10Gi"
	DefaultBackupSchedule  = "0 3 * * *"
	DefaultBackupRegion    = "fsn1"
	DefaultBackupRetention = 14
	DefaultChartRepository = "oci://registry-1.docker.io/bitnamicharts"
	DefaultChartName       = "mariadb"
	DefaultChartVersion    = "20.5.3"
)

// Settings is the k8postal configuration for one Postal installation.
type Settings struct {
	// Domain is the public hostname of the Postal web interface, e.g. mail.example.com.
	Domain string `yaml:"domain"`

	// Namespace all objects are created in (default: postal).
	Namespace string `yaml:"namespace,omitempty"`

	// Name is the prefix of every object name (default: postal).
	Name string `yaml:"name,omitempty"`

	// AdminEmail is the initial admin account (default: admin@{domain}).
	AdminEmail string `yaml:"admin_email,omitempty"`

	Image    ImageSpec    `yaml:"image,omitempty"`
	Replicas ReplicaSpec  `yaml:"replicas,omitempty"`
	Ingress  IngressSpec  `yaml:"ingress,omitempty"`
	SMTP     SMTPSpec     `yaml:"smtp,omitempty"`
	Database DatabaseSpec `yaml:"database,omitempty"`
	DNS      DNSSpec      `yaml:"dns,omitempty"`

	// Secrets are read from the environment, never from the settings file.
	Secrets Secrets `yaml:"-"`
}

// ImageSpec selects the Postal container image.
type ImageSpec struct {
	Repository string `yaml:"repository,omitempty"`
	Tag        string `yaml:"tag,omitempty"`
}

// Reference returns repository:tag.
func (i ImageSpec) Reference() string {
	return fmt.Sprintf("%s:%s", i.Repository, i.Tag)
}

// ReplicaSpec holds per-role replica counts. Nil means default.
type ReplicaSpec struct {
	Web    *int32 `yaml:"web,omitempty"`
	SMTP   *int32 `yaml:"smtp,omitempty"`
	Worker *int32 `yaml:"worker,omitempty"`
}

// IngressSpec configures the optional web Ingress.
type IngressSpec struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`

	// ClassName is the ingressClassName (default: nginx).
	ClassName string `yaml:"class_name,omitempty"`

	// ClusterIssuer is the cert-manager ClusterIssuer for the TLS certificate.
	ClusterIssuer string `yaml:"cluster_issuer,omitempty"`
}

// IsEnabled reports whether the Ingress should be declared.
func (i IngressSpec) IsEnabled() bool {
	return i.Enabled == nil || *i.Enabled
}

// ServiceType is the Kubernetes service type of the SMTP endpoint.
type ServiceType string

const (
	ServiceTypeClusterIP    ServiceType = "ClusterIP"
	ServiceTypeNodePort     ServiceType = "NodePort"
	ServiceTypeLoadBalancer ServiceType = "LoadBalancer"
)

// IsValid returns true for the supported service types.
func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceTypeClusterIP, ServiceTypeNodePort, ServiceTypeLoadBalancer:
		return true
	default:
		return false
	}
}

// IsExternal reports whether the service is reachable from outside the cluster.
func (t ServiceType) IsExternal() bool {
	return t == ServiceTypeNodePort || t == ServiceTypeLoadBalancer
}

// SMTPSpec configures the SMTP role and its Service.
type SMTPSpec struct {
	// Hostname is the HELO name and smtp_hostname (default: domain).
	Hostname string `yaml:"hostname,omitempty"`

	// ServiceType defaults to LoadBalancer.
	ServiceType ServiceType `yaml:"service_type,omitempty"`

	// LoadBalancerIP pins the service to a static address.
	LoadBalancerIP string `yaml:"load_balancer_ip,omitempty"`

	// Hetzner adds hcloud-cloud-controller-manager annotations and rDNS.
	Hetzner *HetznerSpec `yaml:"hetzner,omitempty"`
}

// HetznerSpec configures the Hetzner Cloud load balancer behind the SMTP service.
type HetznerSpec struct {
	// LoadBalancerName defaults to {name}-smtp.
	LoadBalancerName string `yaml:"load_balancer_name,omitempty"`

	// Location of the load balancer, e.g. fsn1.
	Location string `yaml:"location,omitempty"`

	// RDNS is the PTR template (default: the SMTP hostname).
	RDNS string `yaml:"rdns,omitempty"`
}

// DatabaseProvider selects how the integrated database is declared.
type DatabaseProvider string

const (
	// ProviderManifest builds the MariaDB objects directly.
	ProviderManifest DatabaseProvider = "manifest"
	// ProviderHelm renders the Bitnami MariaDB chart.
	ProviderHelm DatabaseProvider = "helm"
)

// DatabaseSpec configures MariaDB, integrated or external.
type DatabaseSpec struct {
	// External points Postal at an existing server and skips the database component.
	External bool `yaml:"external,omitempty"`

	// Host is required when External is set.
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
	Name string `yaml:"name,omitempty"`
	User string `yaml:"user,omitempty"`

	Provider DatabaseProvider `yaml:"provider,omitempty"`
	Image    string           `yaml:"image,omitempty"`
	Storage  StorageSpec      `yaml:"storage,omitempty"`
	Chart    ChartSpec        `yaml:"chart,omitempty"`
	Backup   BackupSpec       `yaml:"backup,omitempty"`
}

// StorageSpec configures the MariaDB PersistentVolumeClaim.
type StorageSpec struct {
	Size string `yaml:"size,omitempty"`

	// ClassName is empty for the cluster default StorageClass.
	ClassName string `yaml:"class_name,omitempty"`
}

// ChartSpec selects the chart used by the helm provider.
type ChartSpec struct {
	Repository string         `yaml:"repository,omitempty"`
	Name       string         `yaml:"name,omitempty"`
	Version    string         `yaml:"version,omitempty"`
	Values     map[string]any `yaml:"values,omitempty"`
}

// BackupSpec configures scheduled MariaDB dumps to S3-compatible storage.
type BackupSpec struct {
	Enabled   bool   `yaml:"enabled,omitempty"`
	Schedule  string `yaml:"schedule,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Retention int    `yaml:"retention,omitempty"`
}

// DNSSpec configures DNS record automation.
type DNSSpec struct {
	// Provider is empty (print only) or "cloudflare".
	Provider string `yaml:"provider,omitempty"`

	// Zone defaults to the parent of domain.
	Zone string `yaml:"zone,omitempty"`
}

// DNSProviderCloudflare enables Cloudflare record management.
const DNSProviderCloudflare = "cloudflare"

// ApplyDefaults fills every optional field that is unset.
func (s *Settings) ApplyDefaults() {
	if s.Namespace == "" {
		s.Namespace = DefaultNamespace
	}
	if s.Name == "" {
		s.Name = DefaultName
	}
	if s.AdminEmail == "" && s.Domain != "" {
		s.AdminEmail = "admin@" + s.Domain
	}

	if s.Image.Repository == "" {
		s.Image.Repository = DefaultImageRepository
	}
	if s.Image.Tag == "" {
		s.Image.Tag = DefaultImageTag
	}

	s.Replicas.Web = defaultReplicas(s.Replicas.Web)
	s.Replicas.SMTP = defaultReplicas(s.Replicas.SMTP)
	s.Replicas.Worker = defaultReplicas(s.Replicas.Worker)

	if s.Ingress.Enabled == nil {
		enabled := true
		s.Ingress.Enabled = &enabled
	}
	if s.Ingress.ClassName == "" {
		s.Ingress.ClassName = DefaultIngressClass
	}
	if s.Ingress.ClusterIssuer == "" {
		s.Ingress.ClusterIssuer = DefaultClusterIssuer
	}

	if s.SMTP.Hostname == "" {
		s.SMTP.Hostname = s.Domain
	}
	if s.SMTP.ServiceType == "" {
		s.SMTP.ServiceType = ServiceTypeLoadBalancer
	}
	if s.SMTP.Hetzner != nil && s.SMTP.Hetzner.LoadBalancerName == "" {
		s.SMTP.Hetzner.LoadBalancerName = s.Name + "-smtp"
	}

	s.applyDatabaseDefaults()

	if s.DNS.Zone == "" {
		s.DNS.Zone = parentZone(s.Domain)
	}
}

func (s *Settings) applyDatabaseDefaults() {
	db := &s.Database
	if db.Port == 0 {
		db.Port = DefaultDatabasePort
	}
	if db.Name == "" {
		db.Name = DefaultDatabaseName
	}
	if db.User == "" {
		db.User = DefaultDatabaseUser
	}
	if db.External {
		return
	}

	if db.Provider == "" {
		db.Provider = ProviderManifest
	}
	if db.Image == "" {
		db.Image = DefaultDatabaseImage
	}
	if db.Storage.Size == "" {
		db.Storage.Size = DefaultStorageSize
	}
	if db.Chart.Repository == "" {
		db.Chart.Repository = DefaultChartRepository
	}
	if db.Chart.Name == "" {
		db.Chart.Name = DefaultChartName
	}
	if db.Chart.Version == "" {
		db.Chart.Version = DefaultChartVersion
	}

	if db.Backup.Enabled {
		if db.Backup.Schedule == "" {
			db.Backup.Schedule = DefaultBackupSchedule
		}
		if db.Backup.Region == "" {
			db.Backup.Region = DefaultBackupRegion
		}
		if db.Backup.Endpoint == "" {
			db.Backup.Endpoint = fmt.Sprintf("https://%s.your-objectstorage.com", db.Backup.Region)
		}
		if db.Backup.Bucket == "" {
			db.Backup.Bucket = s.Name + "-mariadb-backups"
		}
		if db.Backup.Retention == 0 {
			db.Backup.Retention = DefaultBackupRetention
		}
	}
}

func defaultReplicas(v *int32) *int32 {
	if v != nil {
		return v
	}
	r := DefaultReplicas
	return &r
}

// parentZone strips the first label: mail.example.com -> example.com.
// Two-label domains are their own zone.
func parentZone(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return domain
	}
	return strings.Join(parts[1:], ".")
}
