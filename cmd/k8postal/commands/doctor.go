package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8postal/cmd/k8postal/handlers"
	"github.com/imamik/k8postal/internal/probe"
)

// Doctor returns the command that checks settings and connectivity.
func Doctor() *cobra.Command {
	var opts handlers.DoctorOptions

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check settings, secrets and connectivity",
		Long: `Check that the settings and secrets are complete, that postal.yml renders,
that the cluster is reachable and the backup bucket readable.

With --smtp-host an SMTP handshake is made against that host, which is the
quickest way to see whether port 25 is open from where you are.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), opts)
		},
	}

	addConfigFlag(cmd, &opts.ConfigPath)
	addKubeFlags(cmd, &opts.Kube)
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Skip checks that need the network")
	cmd.Flags().StringVar(&opts.SMTPHost, "smtp-host", "", "Host to run an SMTP handshake against")
	cmd.Flags().IntVar(&opts.SMTPPort, "smtp-port", probe.DefaultSMTPPort, "Port for --smtp-host")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Print the results as JSON")

	return cmd
}
