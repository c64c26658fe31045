package naming

import "fmt"

// Naming functions for Postal and MariaDB objects.
// All names follow {prefix}-{role}[-{kind}].

func MariaDB(prefix string) string {
	return fmt.Sprintf("%s-mariadb", prefix)
}

func MariaDBService(prefix string) string {
	return fmt.Sprintf("%s-mariadb-service", prefix)
}

func MariaDBSecret(prefix string) string {
	return fmt.Sprintf("%s-mariadb-secret", prefix)
}

func MariaDBInitScript(prefix string) string {
	return fmt.Sprintf("%s-mariadb-init", prefix)
}

func MariaDBVolumeClaim(prefix string) string {
	return fmt.Sprintf("%s-mariadb-pvc", prefix)
}

func MariaDBBackup(prefix string) string {
	return fmt.Sprintf("%s-mariadb-backup", prefix)
}

func MariaDBBackupCredentials(prefix string) string {
	return fmt.Sprintf("%s-mariadb-backup-s3", prefix)
}

func Config(prefix string) string {
	return fmt.Sprintf("%s-config", prefix)
}

func AdminSecret(prefix string) string {
	return fmt.Sprintf("%s-admin", prefix)
}

func Web(prefix string) string {
	return fmt.Sprintf("%s-web", prefix)
}

func WebService(prefix string) string {
	return fmt.Sprintf("%s-web-service", prefix)
}

func WebIngress(prefix string) string {
	return fmt.Sprintf("%s-web-ingress", prefix)
}

func WebTLS(prefix string) string {
	return fmt.Sprintf("%s-web-tls", prefix)
}

func SMTP(prefix string) string {
	return fmt.Sprintf("%s-smtp", prefix)
}

func SMTPService(prefix string) string {
	return fmt.Sprintf("%s-smtp-service", prefix)
}

func Worker(prefix string) string {
	return fmt.Sprintf("%s-worker", prefix)
}

func InitJob(prefix string) string {
	return fmt.Sprintf("%s-init", prefix)
}

// ServiceHost returns the in-cluster DNS name of a service.
func ServiceHost(service, namespace string) string {
	return fmt.Sprintf("%s.%s.svc.cluster.local", service, namespace)
}
