package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imamik/k8postal/cmd/k8postal/handlers"
)

// Outputs returns the command that prints endpoints and names.
func Outputs() *cobra.Command {
	var opts handlers.OutputsOptions
	var format string

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Print the endpoints of the installation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case "table":
			case "json":
				opts.JSON = true
			default:
				return fmt.Errorf("unknown output format %q: use table or json", format)
			}
			return handlers.Outputs(cmd.Context(), opts)
		},
	}

	addConfigFlag(cmd, &opts.ConfigPath)
	addKubeFlags(cmd, &opts.Kube)
	cmd.Flags().StringVarP(&format, "output", "o", "table", "Output format: table or json")
	cmd.Flags().BoolVar(&opts.Live, "live", false, "Read the SMTP load balancer address from the cluster")

	return cmd
}
