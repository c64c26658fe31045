// Package config loads and validates k8postal settings.
//
// Plain values come from a YAML settings file (k8postal.yaml by default).
// Secret values (database passwords, the Postal signing key, API tokens)
// come from environment variables and are never written back to disk.
// Defaults are applied before validation so every consumer sees a fully
// populated [Settings].
package config
