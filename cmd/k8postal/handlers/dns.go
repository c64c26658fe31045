package handlers

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/dns"
	"github.com/imamik/k8postal/internal/util/keygen"
	"github.com/imamik/k8postal/internal/util/naming"
)

// DNSOptions control DNS.
type DNSOptions struct {
	ConfigPath string
	Kube       KubeOptions

	// SMTPAddresses override the SMTP address source.
	SMTPAddresses []string

	// WebAddresses default to the SMTP addresses.
	WebAddresses []string

	// Live reads the SMTP address from the load balancer service.
	Live bool

	// Apply upserts the records into the Cloudflare zone.
	Apply bool

	// Delete removes the records k8postal manages from the zone.
	Delete bool
}

// DNS prints the records Postal needs, or syncs them with Cloudflare.
//
// The SMTP address comes from --ip, then the live load balancer (--live),
// then smtp.load_balancer_ip. The DKIM record is included when a signing
// key is available in the environment.
func DNS(ctx context.Context, opts DNSOptions) error {
	if opts.Apply && opts.Delete {
		return fmt.Errorf("--apply and --delete are mutually exclusive")
	}

	s, err := loadPlain(opts.ConfigPath)
	if err != nil {
		return err
	}
	secrets, err := loadSecrets()
	if err != nil {
		return err
	}
	s.Secrets = secrets

	addrs, err := dnsAddresses(ctx, s, opts)
	if err != nil {
		return err
	}

	var signingKey *keygen.SigningKey
	if len(s.Secrets.SigningKey) > 0 {
		signingKey, err = keygen.ParseSigningKey(s.Secrets.SigningKey)
		if err != nil {
			return err
		}
	} else {
		log.FromContext(ctx).Info("No signing key in the environment, DKIM record left out", "env", config.EnvSigningKey)
	}

	records, err := dns.Plan(s, addrs, signingKey)
	if err != nil {
		return err
	}

	if !opts.Apply && !opts.Delete {
		printSection(stdout, "DNS records for "+s.Domain)
		for _, r := range records {
			_, _ = fmt.Fprintln(stdout, "    "+r.String())
		}
		_, _ = fmt.Fprintln(stdout)
		return nil
	}

	if s.DNS.Provider != config.DNSProviderCloudflare {
		return fmt.Errorf("dns.provider must be %q to change records", config.DNSProviderCloudflare)
	}
	if s.Secrets.CloudflareToken == "" {
		return fmt.Errorf("%s is required to change records", config.EnvCloudflareToken)
	}
	provider := newDNSProvider(s.Secrets.CloudflareToken)

	if opts.Delete {
		n, err := dns.Remove(ctx, provider, s.DNS.Zone, records)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "Deleted %d records from zone %s\n", n, s.DNS.Zone)
		return nil
	}

	changes, err := dns.Apply(ctx, provider, s.DNS.Zone, records)
	if err != nil {
		return err
	}
	printSection(stdout, "DNS changes in "+s.DNS.Zone)
	rows := make([][2]string, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, [2]string{c.Record.Type + " " + c.Record.Name, string(c.Result)})
	}
	printRows(stdout, rows)
	_, _ = fmt.Fprintln(stdout)
	return nil
}

func dnsAddresses(ctx context.Context, s *config.Settings, opts DNSOptions) (dns.Addresses, error) {
	addrs := dns.Addresses{SMTP: opts.SMTPAddresses, Web: opts.WebAddresses}
	if len(addrs.SMTP) > 0 {
		return addrs, nil
	}

	if opts.Live {
		kc, err := connect(opts.Kube)
		if err != nil {
			return addrs, err
		}
		svc := naming.SMTPService(s.Name)
		addr, err := kc.LoadBalancerAddress(ctx, s.Namespace, svc)
		if err != nil {
			return addrs, fmt.Errorf("failed to read SMTP service: %w", err)
		}
		if addr == "" {
			return addrs, fmt.Errorf("service %s/%s has no load balancer address yet", s.Namespace, svc)
		}
		addrs.SMTP = []string{addr}
		return addrs, nil
	}

	if s.SMTP.LoadBalancerIP != "" {
		addrs.SMTP = []string{s.SMTP.LoadBalancerIP}
	}
	return addrs, nil
}
