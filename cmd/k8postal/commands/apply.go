package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8postal/cmd/k8postal/handlers"
)

// Apply returns the command that creates or updates the installation.
//
// Environment variables:
//
//	POSTAL_DB_PASSWORD, POSTAL_DB_ROOT_PASSWORD: database credentials (required)
//	POSTAL_SIGNING_KEY or POSTAL_SIGNING_KEY_FILE: signing key (required)
//	POSTAL_ADMIN_PASSWORD: initial admin password (optional)
//	HCLOUD_TOKEN: enables reverse DNS on Hetzner load balancers (optional)
func Apply() *cobra.Command {
	var opts handlers.ApplyOptions

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the Postal installation",
		Long: `Create or update Postal and MariaDB in the cluster.

Objects are applied with Server-Side Apply in dependency order: namespace,
database, application, then the init Job that creates the schema and the
first admin user. The application is only applied once MariaDB is ready.

Examples:
  # Apply using k8postal.yaml from the current directory
  k8postal apply

  # Wait for the init Job and for port 25 to answer
  k8postal apply --wait

  # Update objects without running the init Job again
  k8postal apply --skip-init`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), opts)
		},
	}

	addConfigFlag(cmd, &opts.ConfigPath)
	addKubeFlags(cmd, &opts.Kube)
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "Wait for the init Job and the SMTP endpoint")
	cmd.Flags().BoolVar(&opts.SkipInit, "skip-init", false, "Do not run the init Job")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Use only cached Helm charts")
	cmd.Flags().BoolVar(&opts.Plain, "plain", false, "Log progress instead of showing the terminal UI")

	return cmd
}
