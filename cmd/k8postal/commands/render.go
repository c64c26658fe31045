package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8postal/cmd/k8postal/handlers"
)

// Render returns the command that prints the manifests.
func Render() *cobra.Command {
	var opts handlers.RenderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the Kubernetes manifests without applying them",
		Long: `Write every object of the installation as YAML, in apply order.

The output contains Secrets. Without --output the manifests are written to
stdout as one multi-document stream.

Examples:
  k8postal render > postal.yaml
  k8postal render -o manifests/`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Render(cmd.Context(), opts)
		},
	}

	addConfigFlag(cmd, &opts.ConfigPath)
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "Write one file per object into this directory")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Use only cached Helm charts")

	return cmd
}
