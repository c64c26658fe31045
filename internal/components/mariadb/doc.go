// Package mariadb declares the integrated MariaDB database for Postal.
//
// Two providers are supported. The manifest provider builds a single-replica
// Deployment with its PersistentVolumeClaim and Service directly. The helm
// provider renders the Bitnami MariaDB chart offline and fronts it with the
// same Service name, so Postal never sees the difference.
//
// Both providers share the credentials Secret and the init script ConfigMap
// that grants the application user rights on the postal-% message databases.
// An optional CronJob dumps every database to S3-compatible storage.
package mariadb
