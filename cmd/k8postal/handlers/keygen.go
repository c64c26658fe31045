package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/dns"
	"github.com/imamik/k8postal/internal/util/keygen"
)

// DefaultSigningKeyFile is where keygen writes by default.
const DefaultSigningKeyFile = "signing.key"

// KeygenOptions control Keygen.
type KeygenOptions struct {
	OutputPath string
	Bits       int

	// Force overwrites an existing key file.
	Force bool

	// Domain selects the DKIM record name that is printed.
	Domain string
}

// Keygen generates a Postal signing key, writes it as PEM and prints its
// fingerprint and DKIM record.
func Keygen(_ context.Context, opts KeygenOptions) error {
	path := opts.OutputPath
	if path == "" {
		path = DefaultSigningKeyFile
	}
	if fileExists(path) && !opts.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}

	bits := opts.Bits
	if bits == 0 {
		bits = keygen.DefaultBits
	}
	if bits < keygen.DefaultBits {
		return fmt.Errorf("key size must be at least %d bits, got %d", keygen.DefaultBits, bits)
	}

	key, err := generateSigningKey(bits)
	if err != nil {
		return err
	}
	if err := writeFile(path, key.PrivateKey, 0600); err != nil {
		return fmt.Errorf("failed to write signing key: %w", err)
	}

	fingerprint, err := key.Fingerprint()
	if err != nil {
		return err
	}
	record, err := key.DKIMRecord()
	if err != nil {
		return err
	}

	printSection(stdout, "Signing key")
	rows := [][2]string{
		{"File", path},
		{"Bits", fmt.Sprint(key.Bits())},
		{"Fingerprint", fingerprint},
	}
	if opts.Domain != "" {
		rows = append(rows, [2]string{"DKIM name", dns.DKIMName(opts.Domain)})
	}
	rows = append(rows, [2]string{"DKIM record", record})
	printRows(stdout, rows)
	_, _ = fmt.Fprintln(stdout)
	_, _ = fmt.Fprintf(stdout, "  Use it with: export %s=%s\n\n", config.EnvSigningKeyFile, path)
	return nil
}
