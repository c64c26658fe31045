package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables holding secret values.
const (
	EnvDatabasePassword     = "POSTAL_DB_PASSWORD"
	EnvDatabaseRootPassword = "POSTAL_DB_ROOT_PASSWORD"
	EnvSigningKey           = "POSTAL_SIGNING_KEY"
	EnvSigningKeyFile       = "POSTAL_SIGNING_KEY_FILE"
	EnvSecretKey            = "POSTAL_SECRET_KEY"
	EnvAdminPassword        = "POSTAL_ADMIN_PASSWORD"
	EnvHCloudToken          = "HCLOUD_TOKEN"
	EnvCloudflareToken      = "CF_API_TOKEN"
	EnvBackupAccessKey      = "POSTAL_BACKUP_S3_ACCESS_KEY"
	EnvBackupSecretKey      = "POSTAL_BACKUP_S3_SECRET_KEY"
)

// Secrets holds values that must never be persisted in the settings file.
type Secrets struct {
	DatabasePassword     string
	DatabaseRootPassword string

	// SigningKey is the PEM encoded RSA key Postal signs with.
	SigningKey []byte

	// SecretKey is the rails secret_key_base. Empty means derive a fallback.
	SecretKey string

	// AdminPassword is empty when the caller should generate or reuse one.
	AdminPassword string

	HCloudToken     string
	CloudflareToken string

	BackupAccessKey string
	BackupSecretKey string
}

// readSecretFile reads a secret file (for testing injection).
var readSecretFile = os.ReadFile

// SecretsFromEnv reads all secret values from the process environment.
func SecretsFromEnv() (Secrets, error) {
	return loadSecrets(os.Getenv, readSecretFile)
}

func loadSecrets(getenv func(string) string, readFile func(string) ([]byte, error)) (Secrets, error) {
	s := Secrets{
		DatabasePassword:     getenv(EnvDatabasePassword),
		DatabaseRootPassword: getenv(EnvDatabaseRootPassword),
		SecretKey:            getenv(EnvSecretKey),
		AdminPassword:        getenv(EnvAdminPassword),
		HCloudToken:          getenv(EnvHCloudToken),
		CloudflareToken:      getenv(EnvCloudflareToken),
		BackupAccessKey:      getenv(EnvBackupAccessKey),
		BackupSecretKey:      getenv(EnvBackupSecretKey),
	}

	if key := getenv(EnvSigningKey); key != "" {
		s.SigningKey = []byte(normalizePEM(key))
	} else if path := getenv(EnvSigningKeyFile); path != "" {
		data, err := readFile(path)
		if err != nil {
			return Secrets{}, fmt.Errorf("failed to read %s: %w", EnvSigningKeyFile, err)
		}
		s.SigningKey = data
	}

	return s, nil
}

// normalizePEM accepts keys pasted with literal \n sequences, as CI systems
// often store multi-line secrets that way.
func normalizePEM(key string) string {
	if !strings.Contains(key, "\n") && strings.Contains(key, `\n`) {
		key = strings.ReplaceAll(key, `\n`, "\n")
	}
	if !strings.HasSuffix(key, "\n") {
		key += "\n"
	}
	return key
}
