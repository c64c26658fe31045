package handlers

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k8postal/internal/manifest"
)

// RenderOptions control Render.
type RenderOptions struct {
	ConfigPath string

	// OutputDir receives one file per object. Empty writes to stdout.
	OutputDir string

	// Offline renders the MariaDB chart from the local cache only.
	Offline bool
}

// Render writes every object of the installation in apply order without
// contacting a cluster. Without POSTAL_ADMIN_PASSWORD a fresh admin
// password is generated on each run.
func Render(ctx context.Context, opts RenderOptions) error {
	s, err := loadFull(opts.ConfigPath)
	if err != nil {
		return err
	}

	adminPassword, err := resolveAdminPassword(ctx, s, nil)
	if err != nil {
		return err
	}

	st, err := declare(ctx, s, adminPassword, opts.Offline)
	if err != nil {
		return err
	}
	objs := st.Objects()

	if opts.OutputDir == "" {
		if err := manifest.Encode(stdout, objs); err != nil {
			return fmt.Errorf("failed to write manifests: %w", err)
		}
		return nil
	}

	paths, err := manifest.WriteDir(opts.OutputDir, objs)
	if err != nil {
		return err
	}
	log.FromContext(ctx).Info("Manifests written", "dir", opts.OutputDir, "files", len(paths))
	return nil
}
