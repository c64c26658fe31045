package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/k8postal/internal/components/mariadb"
	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/kube"
	"github.com/imamik/k8postal/internal/probe"
	"github.com/imamik/k8postal/internal/stack"
	"github.com/imamik/k8postal/internal/ui/tui"
	"github.com/imamik/k8postal/internal/util/rdns"
)

// Apply step keys.
const (
	stepNamespace   = stack.PhaseNamespace
	stepBackup      = "backup"
	stepDatabase    = stack.PhaseDatabase
	stepApplication = stack.PhaseApplication
	stepInit        = stack.PhaseInit
	stepSMTP        = "smtp"
)

// ApplyOptions control Apply.
type ApplyOptions struct {
	ConfigPath string
	Kube       KubeOptions

	// Wait blocks until the init Job completed and port 25 answers.
	Wait bool

	// SkipInit leaves the init Job alone.
	SkipInit bool

	// Offline renders the MariaDB chart from the local cache only.
	Offline bool

	// Plain disables the terminal UI.
	Plain bool
}

// Apply creates or updates every object of the installation.
//
// Objects are applied phase by phase: namespace, database, application,
// then the init Job. The application phase starts only after the
// database workload is ready. On a LoadBalancer SMTP service the public
// address is awaited and, with HCLOUD_TOKEN set, reverse DNS is pointed at
// the SMTP hostname.
func Apply(ctx context.Context, opts ApplyOptions) error {
	s, err := loadFull(opts.ConfigPath)
	if err != nil {
		return err
	}
	timeouts := loadTimeouts()

	restCfg, err := loadRESTConfig(opts.Kube.Kubeconfig, opts.Kube.Context)
	if err != nil {
		return err
	}
	kc, err := newKubeClient(restCfg)
	if err != nil {
		return err
	}
	waiter, err := newWaiter(restCfg, timeouts)
	if err != nil {
		return err
	}

	adminPassword, err := resolveAdminPassword(ctx, s, kc)
	if err != nil {
		return err
	}

	st, err := declare(ctx, s, adminPassword, opts.Offline)
	if err != nil {
		return err
	}

	a := &applier{
		settings: s,
		stack:    st,
		kube:     kc,
		waiter:   waiter,
		timeouts: timeouts,
		opts:     opts,
	}

	if isTerminal() && !opts.Plain {
		quiet := log.IntoContext(ctx, logr.Discard())
		err = runTUI(quiet, "apply", s.Namespace, a.steps(), a.run)
	} else {
		err = a.run(ctx, logReporter(ctx, a.steps()))
	}
	if err != nil {
		return err
	}

	out := st.Outputs
	out.SMTPAddress = a.smtpAddress
	printOutputs(out)
	return nil
}

// applier runs the apply steps against one cluster.
type applier struct {
	settings *config.Settings
	stack    *stack.Stack
	kube     kube.Client
	waiter   Waiter
	timeouts *config.Timeouts
	opts     ApplyOptions

	smtpAddress string
}

func (a *applier) steps() []tui.Step {
	steps := []tui.Step{{Name: "Namespace", Key: stepNamespace}}
	if db := a.stack.Database; db != nil {
		if db.Backup != nil {
			steps = append(steps, tui.Step{Name: "Backup bucket", Key: stepBackup})
		}
		steps = append(steps, tui.Step{Name: "MariaDB", Key: stepDatabase})
	}
	return append(steps,
		tui.Step{Name: "Postal", Key: stepApplication},
		tui.Step{Name: "Database initialization", Key: stepInit},
		tui.Step{Name: "SMTP endpoint", Key: stepSMTP},
	)
}

func (a *applier) run(ctx context.Context, report tui.Reporter) error {
	st := a.stack

	step := func(key string, fn func() (detail string, skipped bool, err error)) error {
		report(tui.StepMsg{Key: key})
		detail, skipped, err := fn()
		if err != nil {
			report(tui.StepMsg{Key: key, Err: err})
			return err
		}
		report(tui.StepMsg{Key: key, Done: !skipped, Skipped: skipped, Detail: detail})
		return nil
	}

	if err := step(stepNamespace, func() (string, bool, error) {
		return st.Namespace.Name, false, applyObjects(ctx, a.kube, st.Namespace)
	}); err != nil {
		return err
	}

	if db := st.Database; db != nil {
		if db.Backup != nil {
			if err := step(stepBackup, func() (string, bool, error) { return a.ensureBackupBucket(ctx) }); err != nil {
				return err
			}
		}
		if err := step(stepDatabase, func() (string, bool, error) {
			if err := applyObjects(ctx, a.kube, db.Objects()...); err != nil {
				return "", false, err
			}
			return db.Endpoint(), false, a.waitForDatabase(ctx, db.Workload)
		}); err != nil {
			return err
		}
	}

	if err := step(stepApplication, func() (string, bool, error) {
		if err := applyObjects(ctx, a.kube, st.Postal.Objects()...); err != nil {
			return "", false, err
		}
		a.checkIngressClass(ctx)
		return "config " + shortChecksum(st.Postal.ConfigChecksum), false, nil
	}); err != nil {
		return err
	}

	if err := step(stepInit, func() (string, bool, error) { return a.runInitJob(ctx) }); err != nil {
		return err
	}

	return step(stepSMTP, func() (string, bool, error) { return a.exposeSMTP(ctx) })
}

// applyObjects applies objs in order.
func applyObjects(ctx context.Context, kc kube.Client, objs ...ctrlclient.Object) error {
	for _, obj := range objs {
		if err := kc.Apply(ctx, obj); err != nil {
			return err
		}
	}
	return nil
}

func (a *applier) waitForDatabase(ctx context.Context, w mariadb.Workload) error {
	switch w.Kind {
	case mariadb.KindStatefulSet:
		return a.waiter.WaitForStatefulSet(ctx, w.Namespace, w.Name, a.timeouts.DatabaseReady)
	default:
		return a.waiter.WaitForDeployment(ctx, w.Namespace, w.Name, a.timeouts.DatabaseReady)
	}
}

func (a *applier) ensureBackupBucket(ctx context.Context) (string, bool, error) {
	b := a.settings.Database.Backup
	store, err := newBackupStore(ctx, b, a.settings.Secrets)
	if err != nil {
		return "", false, fmt.Errorf("failed to create backup storage client: %w", err)
	}

	created, err := store.EnsureBucket(ctx, b.Bucket)
	if err != nil {
		return "", false, err
	}
	if err := store.SetExpiration(ctx, b.Bucket, mariadb.BackupPrefix(a.settings), b.Retention); err != nil {
		return "", false, err
	}

	log.FromContext(ctx).Info("Backup bucket ready", "bucket", b.Bucket, "created", created, "retentionDays", b.Retention)
	return b.Bucket, false, nil
}

func (a *applier) checkIngressClass(ctx context.Context) {
	if a.stack.Postal.Ingress == nil {
		return
	}
	class := a.settings.Ingress.ClassName
	ok, err := a.kube.HasIngressClass(ctx, class)
	logger := log.FromContext(ctx)
	if err != nil {
		logger.V(1).Info("Could not check ingress class", "class", class, "error", err.Error())
		return
	}
	if !ok {
		logger.Info("Warning: ingress class not found, the web interface will not be reachable", "class", class)
	}
}

func (a *applier) runInitJob(ctx context.Context) (string, bool, error) {
	if a.opts.SkipInit {
		return "skipped", true, nil
	}
	job := a.stack.Postal.InitJob
	if err := a.kube.ReplaceJob(ctx, job); err != nil {
		return "", false, err
	}
	if !a.opts.Wait {
		return "started " + job.Name, false, nil
	}
	if err := a.waiter.WaitForJob(ctx, job.Namespace, job.Name, a.timeouts.InitJob); err != nil {
		return "", false, err
	}
	return "completed " + job.Name, false, nil
}

// exposeSMTP waits for the load balancer address and sets reverse DNS.
func (a *applier) exposeSMTP(ctx context.Context) (string, bool, error) {
	s := a.settings
	if s.SMTP.ServiceType != config.ServiceTypeLoadBalancer {
		return string(s.SMTP.ServiceType), true, nil
	}

	setRDNS := s.Secrets.HCloudToken != "" && s.SMTP.Hetzner != nil
	if !a.opts.Wait && !setRDNS {
		return "address pending", false, nil
	}

	svc := a.stack.Postal.SMTPService
	addr, err := a.waitForLoadBalancer(ctx, svc.Namespace, svc.Name)
	if err != nil {
		return "", false, err
	}
	a.smtpAddress = addr

	if a.opts.Wait {
		if err := waitForTCP(ctx, addr, probe.DefaultSMTPPort, pollInterval, a.timeouts.LoadBalancer); err != nil {
			return "", false, fmt.Errorf("SMTP port on %s did not open: %w", addr, err)
		}
	}

	if setRDNS {
		if err := a.setReverseDNS(ctx); err != nil {
			return "", false, err
		}
	}
	return addr, false, nil
}

func (a *applier) waitForLoadBalancer(ctx context.Context, namespace, name string) (string, error) {
	var addr string
	err := wait.PollUntilContextTimeout(ctx, pollInterval, a.timeouts.LoadBalancer, true, func(ctx context.Context) (bool, error) {
		got, err := a.kube.LoadBalancerAddress(ctx, namespace, name)
		if err != nil {
			return false, err
		}
		addr = got
		return addr != "", nil
	})
	if err != nil {
		return "", fmt.Errorf("no load balancer address for service %s/%s: %w", namespace, name, err)
	}
	return addr, nil
}

func (a *applier) setReverseDNS(ctx context.Context) error {
	s := a.settings
	client := newRDNSClient(s.Secrets.HCloudToken, a.timeouts)

	lb, err := client.GetLoadBalancer(ctx, s.SMTP.Hetzner.LoadBalancerName)
	if err != nil {
		return err
	}

	logger := log.FromContext(ctx)
	for _, ip := range lb.IPs() {
		ptr, err := rdns.RenderTemplate(s.SMTP.Hetzner.RDNS, rdns.TemplateVars{
			Domain:       s.Domain,
			SMTPHostname: s.SMTP.Hostname,
			Instance:     s.Name,
			IPAddress:    ip,
		})
		if err != nil {
			return err
		}
		if err := client.SetLoadBalancerRDNS(ctx, lb.ID, ip, ptr); err != nil {
			return err
		}
		logger.Info("Reverse DNS set", "ip", ip, "ptr", ptr)
	}
	return nil
}

// logReporter writes step progress to the context logger.
func logReporter(ctx context.Context, steps []tui.Step) tui.Reporter {
	logger := log.FromContext(ctx)
	names := make(map[string]string, len(steps))
	for _, s := range steps {
		names[s.Key] = s.Name
	}
	started := make(map[string]time.Time, len(steps))

	return func(msg tui.StepMsg) {
		name := names[msg.Key]
		switch {
		case msg.Err != nil:
			logger.Error(msg.Err, "Step failed", "step", name)
		case msg.Skipped:
			logger.Info("Step skipped", "step", name, "detail", msg.Detail)
		case msg.Done:
			logger.Info("Step done", "step", name, "detail", msg.Detail,
				"elapsed", time.Since(started[msg.Key]).Round(time.Second).String())
		default:
			started[msg.Key] = time.Now()
			logger.Info("Step started", "step", name)
		}
	}
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
