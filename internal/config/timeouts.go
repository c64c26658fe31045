package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
type Timeouts struct {
	DatabaseReady     time.Duration // Waiting for the MariaDB Deployment to become Available
	InitJob           time.Duration // Waiting for the init Job to complete
	Delete            time.Duration // Waiting for objects to disappear on destroy
	LoadBalancer      time.Duration // Waiting for the SMTP address and port 25
	RetryMaxAttempts  int           // Maximum number of retry attempts for API calls
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - K8POSTAL_TIMEOUT_DATABASE_READY (default: 5m)
//   - K8POSTAL_TIMEOUT_INIT_JOB (default: 10m)
//   - K8POSTAL_TIMEOUT_DELETE (default: 2m)
//   - K8POSTAL_TIMEOUT_LOAD_BALANCER (default: 5m)
//   - K8POSTAL_RETRY_MAX_ATTEMPTS (default: 5)
//   - K8POSTAL_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		DatabaseReady:     parseDuration("K8POSTAL_TIMEOUT_DATABASE_READY", 5*time.Minute),
		InitJob:           parseDuration("K8POSTAL_TIMEOUT_INIT_JOB", 10*time.Minute),
		Delete:            parseDuration("K8POSTAL_TIMEOUT_DELETE", 2*time.Minute),
		LoadBalancer:      parseDuration("K8POSTAL_TIMEOUT_LOAD_BALANCER", 5*time.Minute),
		RetryMaxAttempts:  parseInt("K8POSTAL_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("K8POSTAL_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}
