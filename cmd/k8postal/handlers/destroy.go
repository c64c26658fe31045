package handlers

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k8postal/internal/kube"
	"github.com/imamik/k8postal/internal/manifest"
	"github.com/imamik/k8postal/internal/util/labels"
)

// DestroyOptions control Destroy.
type DestroyOptions struct {
	ConfigPath string
	Kube       KubeOptions

	// KeepData retains the MariaDB PersistentVolumeClaim.
	KeepData bool

	// DeleteNamespace removes the namespace after the objects.
	DeleteNamespace bool

	// Offline renders the MariaDB chart from the local cache only.
	Offline bool
}

// Destroy deletes the objects of the installation in reverse apply order.
// Secrets are not required: only object names and kinds matter.
func Destroy(ctx context.Context, opts DestroyOptions) error {
	if opts.KeepData && opts.DeleteNamespace {
		return fmt.Errorf("--keep-data cannot be combined with --delete-namespace: deleting the namespace deletes the volume")
	}

	s, err := loadPlain(opts.ConfigPath)
	if err != nil {
		return err
	}
	placeholderSecrets(s)

	kc, err := connect(opts.Kube)
	if err != nil {
		return err
	}

	st, err := declare(ctx, s, "unused", opts.Offline)
	if err != nil {
		return err
	}

	logger := log.FromContext(ctx)
	logger.Info("Destroying installation", "namespace", s.Namespace, "keepData", opts.KeepData)

	objs := st.TeardownObjects(opts.KeepData)
	for _, obj := range objs {
		if err := kc.Delete(ctx, obj); err != nil {
			return err
		}
		u, err := manifest.ToUnstructured(obj)
		if err == nil {
			logger.V(1).Info("Deleted", "kind", u.GetKind(), "name", u.GetName())
		}
	}

	// Objects left behind by earlier releases still carry the instance labels.
	keep := func(kind, _ string) bool { return opts.KeepData && kind == "PersistentVolumeClaim" }
	leftovers, err := kc.DeleteMatching(ctx, s.Namespace, labels.SelectorForInstance(s.Name), kube.PrunableKinds, keep)
	if err != nil {
		return err
	}
	if len(leftovers) > 0 {
		logger.Info("Deleted leftover objects", "count", len(leftovers), "objects", leftovers)
	}

	if opts.DeleteNamespace {
		if err := kc.DeleteNamespace(ctx, s.Namespace); err != nil {
			return err
		}
		logger.Info("Namespace deleted", "namespace", s.Namespace)
	}

	_, _ = fmt.Fprintf(stdout, "Deleted %d objects from namespace %s\n", len(objs), s.Namespace)
	if len(leftovers) > 0 {
		_, _ = fmt.Fprintf(stdout, "Deleted %d leftover objects labelled %s\n", len(leftovers), labels.SelectorForInstance(s.Name))
	}
	if opts.KeepData && st.Database != nil && st.Database.VolumeClaim != nil {
		_, _ = fmt.Fprintf(stdout, "Kept volume claim %s\n", st.Database.VolumeClaim.Name)
	}
	return nil
}
