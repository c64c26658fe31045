package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/imamik/k8postal/internal/components/mariadb"
	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/postalconfig"
	"github.com/imamik/k8postal/internal/util/async"
	"github.com/imamik/k8postal/internal/util/naming"
)

// Doctor check names.
const (
	checkSecrets = "Secrets"
	checkConfig  = "Postal configuration"
	checkCluster = "Cluster"
	checkBackup  = "Backup bucket"
	checkSMTP    = "SMTP"
)

// DoctorOptions control Doctor.
type DoctorOptions struct {
	ConfigPath string
	Kube       KubeOptions

	// Offline skips every check that needs the network.
	Offline bool

	// SMTPHost is dialed on SMTPPort when set.
	SMTPHost string
	SMTPPort int

	JSON bool
}

// DoctorCheck is the outcome of one check.
type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Detail  string `json:"detail,omitempty"`
	Elapsed string `json:"elapsed"`
}

// Doctor validates settings and secrets, renders postal.yml, and checks the
// cluster, the backup bucket and optionally an SMTP endpoint. Checks run
// concurrently. It fails when any check fails.
func Doctor(ctx context.Context, opts DoctorOptions) error {
	s, err := loadPlain(opts.ConfigPath)
	if err != nil {
		return err
	}
	secrets, err := loadSecrets()
	if err != nil {
		return err
	}
	s.Secrets = secrets

	var tasks []async.Task
	var details []*string
	add := func(name string, fn func(ctx context.Context) (string, error)) {
		detail := new(string)
		details = append(details, detail)
		tasks = append(tasks, async.Task{Name: name, Func: func(ctx context.Context) error {
			d, err := fn(ctx)
			*detail = d
			return err
		}})
	}

	add(checkSecrets, func(context.Context) (string, error) {
		if err := s.Validate(); err != nil {
			return "", err
		}
		return "all required values set", nil
	})
	add(checkConfig, func(ctx context.Context) (string, error) {
		return doctorConfig(ctx, s, opts.Offline)
	})
	if !opts.Offline {
		add(checkCluster, func(ctx context.Context) (string, error) {
			return doctorCluster(ctx, s, opts.Kube)
		})
		if s.Database.Backup.Enabled && !s.Database.External {
			add(checkBackup, func(ctx context.Context) (string, error) {
				return doctorBackup(ctx, s)
			})
		}
		if opts.SMTPHost != "" {
			add(checkSMTP, func(ctx context.Context) (string, error) {
				res, err := newSMTPChecker(s.SMTP.Hostname).Check(ctx, opts.SMTPHost, opts.SMTPPort)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%s answered in %s", res.Address, res.Elapsed.Round(time.Millisecond)), nil
			})
		}
	}

	results := async.RunAll(ctx, tasks)

	checks := make([]DoctorCheck, len(results))
	failed := 0
	for i, r := range results {
		c := DoctorCheck{Name: r.Name, OK: r.Err == nil, Detail: *details[i], Elapsed: r.Elapsed.Round(time.Millisecond).String()}
		if r.Err != nil {
			c.Detail = r.Err.Error()
			failed++
		}
		checks[i] = c
	}

	if opts.JSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode checks: %w", err)
		}
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		printChecks(s, checks)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	return nil
}

// doctorConfig builds the stack and parses the rendered postal.yml back.
// Missing secrets are replaced so the document can still be checked.
func doctorConfig(ctx context.Context, s *config.Settings, offline bool) (string, error) {
	cp := *s
	placeholderSecrets(&cp)

	st, err := declare(ctx, &cp, "unused", offline)
	if err != nil {
		return "", err
	}
	doc, err := postalconfig.Parse(st.Postal.ConfigSecret.Data[postalconfig.ConfigKey])
	if err != nil {
		return "", err
	}
	if doc.Postal.WebHostname != s.Domain {
		return "", fmt.Errorf("postal.yml web_hostname is %q, expected %q", doc.Postal.WebHostname, s.Domain)
	}
	return fmt.Sprintf("%d objects, database %s", len(st.Objects()), st.Outputs.MariaDBEndpoint), nil
}

func doctorCluster(ctx context.Context, s *config.Settings, opts KubeOptions) (string, error) {
	kc, err := connect(opts)
	if err != nil {
		return "", err
	}
	secret, err := kc.GetSecret(ctx, s.Namespace, naming.AdminSecret(s.Name))
	if err != nil {
		return "", fmt.Errorf("cluster not reachable: %w", err)
	}
	detail := "not installed"
	if secret != nil {
		detail = "installed in " + s.Namespace
	}

	if s.Ingress.IsEnabled() {
		ok, err := kc.HasIngressClass(ctx, s.Ingress.ClassName)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("ingress class %q not found", s.Ingress.ClassName)
		}
	}
	return detail, nil
}

func doctorBackup(ctx context.Context, s *config.Settings) (string, error) {
	b := s.Database.Backup
	store, err := newBackupStore(ctx, b, s.Secrets)
	if err != nil {
		return "", err
	}
	latest, err := store.LatestObject(ctx, b.Bucket, mariadb.BackupPrefix(s))
	if err != nil {
		return "", err
	}
	if latest == nil {
		return "no dumps yet in " + b.Bucket, nil
	}
	age := time.Since(latest.LastModified).Round(time.Minute)
	return fmt.Sprintf("latest dump %s (%d bytes, %s ago)", latest.Key, latest.Size, age), nil
}

func printChecks(s *config.Settings, checks []DoctorCheck) {
	printSection(stdout, "k8postal doctor: "+s.Domain)
	for _, c := range checks {
		mark := styled(okStyle, "[ok]")
		if !c.OK {
			mark = styled(failStyle, "[!!]")
		}
		_, _ = fmt.Fprintf(stdout, "    %s %-22s %s\n", mark, c.Name, styled(dimStyle, c.Detail))
	}
	_, _ = fmt.Fprintln(stdout)
}
