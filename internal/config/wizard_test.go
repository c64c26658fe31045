package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWizardResult_ToSettings_Integrated(t *testing.T) {
	t.Parallel()
	r := &WizardResult{
		Domain:          " Postal.Example.com ",
		Namespace:       "mail",
		SMTPServiceType: ServiceTypeNodePort,
		IngressEnabled:  false,
		Provider:        ProviderHelm,
		StorageSize:     "20Gi",
		CloudflareDNS:   true,
	}

	s := r.ToSettings()
	assert.Equal(t, "postal.example.com", s.Domain)
	assert.Equal(t, "mail", s.Namespace)
	assert.Equal(t, ServiceTypeNodePort, s.SMTP.ServiceType)
	assert.False(t, s.Ingress.IsEnabled())
	assert.Equal(t, ProviderHelm, s.Database.Provider)
	assert.Equal(t, "20Gi", s.Database.Storage.Size)
	assert.Equal(t, DNSProviderCloudflare, s.DNS.Provider)
	assert.Equal(t, "admin@postal.example.com", s.AdminEmail)
	assert.NoError(t, s.ValidateSettings())
}

func TestWizardResult_ToSettings_External(t *testing.T) {
	t.Parallel()
	r := &WizardResult{
		Domain:           "mail.example.com",
		Namespace:        "postal",
		SMTPServiceType:  ServiceTypeLoadBalancer,
		IngressEnabled:   true,
		ExternalDatabase: true,
		DatabaseHost:     "db.internal",
		Provider:         ProviderManifest,
		StorageSize:      "10Gi",
		Backup:           true,
	}

	s := r.ToSettings()
	assert.True(t, s.Database.External)
	assert.Equal(t, "db.internal", s.Database.Host)
	assert.False(t, s.Database.Backup.Enabled)
	assert.Empty(t, s.Database.Storage.Size)
	assert.NoError(t, s.ValidateSettings())
}

func TestWizardValidators(t *testing.T) {
	t.Parallel()
	assert.Error(t, validateDomain(""))
	assert.Error(t, validateDomain("no_dots"))
	assert.NoError(t, validateDomain("mail.example.com"))

	assert.Error(t, validateNamespace("Bad_NS"))
	assert.NoError(t, validateNamespace("postal"))

	assert.Error(t, validateDatabaseHost(""))
	assert.Error(t, validateDatabaseHost("bad host!"))
	assert.NoError(t, validateDatabaseHost("db.internal"))
	assert.NoError(t, validateDatabaseHost("10.0.0.5"))

	assert.Error(t, validateStorageSize("lots"))
	assert.NoError(t, validateStorageSize("5Gi"))
}
