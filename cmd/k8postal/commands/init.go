package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8postal/cmd/k8postal/handlers"
	"github.com/imamik/k8postal/internal/config"
)

// Init returns the command that runs the settings wizard.
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a settings file interactively",
		Long: `Ask for the domain, the SMTP service type, the database and DNS options,
and write a k8postal.yaml with every default spelled out.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", config.DefaultConfigFilename, "Settings file to write")

	return cmd
}
