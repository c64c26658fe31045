package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8postal/cmd/k8postal/handlers"
	"github.com/imamik/k8postal/internal/util/keygen"
)

// Keygen returns the command that creates a signing key.
func Keygen() *cobra.Command {
	var opts handlers.KeygenOptions

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a Postal signing key",
		Long: `Generate the RSA key Postal signs messages and DKIM with, and print its
fingerprint and DKIM record. Point POSTAL_SIGNING_KEY_FILE at the file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Keygen(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputPath, "output", "o", handlers.DefaultSigningKeyFile, "Key file to write")
	cmd.Flags().IntVar(&opts.Bits, "bits", keygen.DefaultBits, "RSA key size")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite an existing key file")
	cmd.Flags().StringVar(&opts.Domain, "domain", "", "Postal domain, prints the DKIM record name")

	return cmd
}
