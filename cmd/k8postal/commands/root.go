// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k8postal/cmd/k8postal/handlers"
	"github.com/imamik/k8postal/internal/logging"
)

// Root returns the root command for the k8postal CLI.
//
// The root command owns the logging flags. Its PersistentPreRunE builds the
// logger and attaches it to the command context, so handlers retrieve it
// with log.FromContext.
func Root() *cobra.Command {
	var logLevel, logFormat string

	cmd := &cobra.Command{
		Use:           "k8postal",
		Short:         "Deploy the Postal mail server on Kubernetes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(os.Stderr, logLevel, logFormat)
			if err != nil {
				return err
			}
			log.SetLogger(logger)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(log.IntoContext(ctx, logger))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatConsole, "Log format: console or json")

	// Core commands
	cmd.AddCommand(Init())
	cmd.AddCommand(Render())
	cmd.AddCommand(Apply())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Outputs())

	// Mail setup and diagnostics
	cmd.AddCommand(DNS())
	cmd.AddCommand(Doctor())
	cmd.AddCommand(Keygen())

	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// addConfigFlag binds --config/-c.
func addConfigFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "config", "c", "", "Path to settings file (default: k8postal.yaml, searched upwards)")
}

// addKubeFlags binds the cluster selection flags.
func addKubeFlags(cmd *cobra.Command, opts *handlers.KubeOptions) {
	cmd.Flags().StringVar(&opts.Kubeconfig, "kubeconfig", "", "Path to the kubeconfig file (default: $KUBECONFIG or ~/.kube/config)")
	cmd.Flags().StringVar(&opts.Context, "context", "", "Kubeconfig context to use")
}
