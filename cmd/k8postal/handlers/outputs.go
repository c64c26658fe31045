package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/stack"
)

// OutputsOptions control Outputs.
type OutputsOptions struct {
	ConfigPath string
	Kube       KubeOptions

	// JSON prints the outputs as a JSON object.
	JSON bool

	// Live reads the SMTP load balancer address from the cluster.
	Live bool
}

// Outputs prints the endpoints and names of the installation. Secrets are
// not needed.
func Outputs(ctx context.Context, opts OutputsOptions) error {
	s, err := loadPlain(opts.ConfigPath)
	if err != nil {
		return err
	}

	out := stack.OutputsFor(s)
	if opts.Live && s.SMTP.ServiceType == config.ServiceTypeLoadBalancer {
		kc, err := connect(opts.Kube)
		if err != nil {
			return err
		}
		addr, err := kc.LoadBalancerAddress(ctx, s.Namespace, out.SMTPServiceName)
		if err != nil {
			return fmt.Errorf("failed to read SMTP service: %w", err)
		}
		if addr == "" {
			log.FromContext(ctx).Info("SMTP load balancer address is still pending", "service", out.SMTPServiceName)
		}
		out.SMTPAddress = addr
	}

	if opts.JSON {
		return printOutputsJSON(out)
	}
	printOutputs(out)
	return nil
}

func printOutputsJSON(out stack.Outputs) error {
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode outputs: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

// printOutputs writes the outputs table.
func printOutputs(out stack.Outputs) {
	rows := make([][2]string, 0, 9)
	for _, r := range out.Rows() {
		rows = append(rows, [2]string{r.Label, r.Value})
	}
	printSection(stdout, "Outputs")
	printRows(stdout, rows)
	_, _ = fmt.Fprintln(stdout)
}
