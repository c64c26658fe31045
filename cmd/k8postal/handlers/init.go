package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/k8postal/internal/config"
)

// Init runs the configuration wizard and writes the result to outputPath.
func Init(ctx context.Context, outputPath string) error {
	if outputPath == "" {
		outputPath = config.DefaultConfigPath()
	}
	if fileExists(outputPath) {
		_, _ = fmt.Fprintf(stdout, "Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}

	s := result.ToSettings()
	if err := s.ValidateSettings(); err != nil {
		return fmt.Errorf("wizard produced invalid settings: %w", err)
	}
	if err := saveSettings(s, outputPath); err != nil {
		return err
	}

	printInitSuccess(outputPath, s)
	return nil
}

func printWelcome() {
	_, _ = fmt.Fprintln(stdout)
	_, _ = fmt.Fprintln(stdout, "k8postal - Postal mail server on Kubernetes")
	_, _ = fmt.Fprintln(stdout, "===========================================")
	_, _ = fmt.Fprintln(stdout)
	_, _ = fmt.Fprintln(stdout, "This wizard writes a settings file with every default spelled out.")
	_, _ = fmt.Fprintln(stdout, "Secrets are read from the environment and never stored in it.")
	_, _ = fmt.Fprintln(stdout)
}

func printInitSuccess(outputPath string, s *config.Settings) {
	out := stdout
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "Configuration saved!")
	_, _ = fmt.Fprintf(out, "  File: %s\n", outputPath)

	database := "integrated (" + string(s.Database.Provider) + ")"
	if s.Database.External {
		database = "external " + s.Database.Host
	}
	printSection(out, "Summary")
	printRows(out, [][2]string{
		{"Domain", s.Domain},
		{"Namespace", s.Namespace},
		{"SMTP service", string(s.SMTP.ServiceType)},
		{"Ingress", fmt.Sprint(s.Ingress.IsEnabled())},
		{"Database", database},
		{"Backups", fmt.Sprint(s.Database.Backup.Enabled)},
	})

	printSection(out, "Next steps")
	_, _ = fmt.Fprintln(out, "  1. Create a signing key:")
	_, _ = fmt.Fprintln(out, "     k8postal keygen --domain "+s.Domain)
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "  2. Export the secrets:")
	envs := []string{config.EnvSigningKeyFile, config.EnvDatabasePassword}
	if !s.Database.External {
		envs = append(envs, config.EnvDatabaseRootPassword)
	}
	if s.Database.Backup.Enabled {
		envs = append(envs, config.EnvBackupAccessKey, config.EnvBackupSecretKey)
	}
	if s.DNS.Provider == config.DNSProviderCloudflare {
		envs = append(envs, config.EnvCloudflareToken)
	}
	for _, e := range envs {
		_, _ = fmt.Fprintf(out, "     export %s=...\n", e)
	}
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "  3. Deploy:")
	_, _ = fmt.Fprintln(out, "     k8postal apply --wait")
	_, _ = fmt.Fprintln(out)
}
