package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8postal/cmd/k8postal/handlers"
)

// Destroy returns the command that removes the installation.
func Destroy() *cobra.Command {
	var opts handlers.DestroyOptions

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Delete the Postal installation",
		Long: `Delete every object of the installation in reverse apply order.

The namespace is kept unless --delete-namespace is given. With --keep-data
the MariaDB volume claim survives so a later apply finds the data again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), opts)
		},
	}

	addConfigFlag(cmd, &opts.ConfigPath)
	addKubeFlags(cmd, &opts.Kube)
	cmd.Flags().BoolVar(&opts.KeepData, "keep-data", false, "Keep the MariaDB volume claim")
	cmd.Flags().BoolVar(&opts.DeleteNamespace, "delete-namespace", false, "Delete the namespace as well")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Use only cached Helm charts")

	return cmd
}
