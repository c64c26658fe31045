package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFilename is the default settings filename.
const DefaultConfigFilename = "k8postal.yaml"

// Load reads settings from a file, reads secrets from the environment,
// applies defaults, and validates everything.
func Load(path string) (*Settings, error) {
	s, err := LoadWithoutSecrets(path)
	if err != nil {
		return nil, err
	}

	secrets, err := SecretsFromEnv()
	if err != nil {
		return nil, err
	}
	s.Secrets = secrets

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return s, nil
}

// LoadWithoutSecrets reads and validates plain settings only.
func LoadWithoutSecrets(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	s, err := parseSettings(data)
	if err != nil {
		return nil, err
	}

	if err := s.ValidateSettings(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return s, nil
}

// LoadFromBytes parses settings, attaches the given secrets, and validates.
func LoadFromBytes(data []byte, secrets Secrets) (*Settings, error) {
	s, err := parseSettings(data)
	if err != nil {
		return nil, err
	}
	s.Secrets = secrets

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return s, nil
}

// parseSettings decodes YAML strictly and applies defaults.
func parseSettings(data []byte) (*Settings, error) {
	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	s.ApplyDefaults()
	return &s, nil
}

// DefaultConfigPath returns the default path for the settings file in the
// current working directory.
func DefaultConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return DefaultConfigFilename
	}
	return filepath.Join(cwd, DefaultConfigFilename)
}

// FindConfigFile looks for k8postal.yaml in the current directory and then
// walks up towards the filesystem root.
func FindConfigFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return findConfigFileFrom(cwd)
}

func findConfigFileFrom(dir string) (string, error) {
	for {
		path := filepath.Join(dir, DefaultConfigFilename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("config file %s not found", DefaultConfigFilename)
}

// Save writes settings to a file. Secrets are never written.
func Save(s *Settings, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
