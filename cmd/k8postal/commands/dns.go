package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/k8postal/cmd/k8postal/handlers"
)

// DNS returns the command that plans and syncs DNS records.
//
// Environment variables:
//
//	CF_API_TOKEN: Cloudflare API token (required with --apply or --delete)
//	POSTAL_SIGNING_KEY or POSTAL_SIGNING_KEY_FILE: adds the DKIM record
func DNS() *cobra.Command {
	var opts handlers.DNSOptions

	cmd := &cobra.Command{
		Use:   "dns",
		Short: "Print or apply the DNS records Postal needs",
		Long: `Print the DNS records Postal needs: A/AAAA for the web and MX hosts, MX,
SPF, the return path CNAME, routes, tracking and the DKIM key.

With --apply the records are upserted into the Cloudflare zone. Records are
marked so --delete only removes what k8postal created.

Examples:
  # Print records for a known address
  k8postal dns --ip 203.0.113.25

  # Use the address of the SMTP load balancer and write to Cloudflare
  k8postal dns --live --apply`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.DNS(cmd.Context(), opts)
		},
	}

	addConfigFlag(cmd, &opts.ConfigPath)
	addKubeFlags(cmd, &opts.Kube)
	cmd.Flags().StringSliceVar(&opts.SMTPAddresses, "ip", nil, "SMTP address (repeatable, one per IP family)")
	cmd.Flags().StringSliceVar(&opts.WebAddresses, "web-ip", nil, "Web interface address (default: the SMTP address)")
	cmd.Flags().BoolVar(&opts.Live, "live", false, "Read the SMTP address from the cluster")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "Upsert the records into Cloudflare")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "Delete the records k8postal created")
	cmd.MarkFlagsMutuallyExclusive("apply", "delete")

	return cmd
}
