package stack

import (
	"fmt"
	"net"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/k8postal/internal/components/mariadb"
	"github.com/imamik/k8postal/internal/components/postal"
	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/postalconfig"
	"github.com/imamik/k8postal/internal/util/labels"
	"github.com/imamik/k8postal/internal/util/naming"
)

// Resolved carries values gathered outside the pure build.
type Resolved struct {
	// AdminPassword for the initial admin account. Required.
	AdminPassword string

	// ChartManifests is the rendered MariaDB chart for the helm provider.
	ChartManifests []byte
}

// Stack is the declared installation.
type Stack struct {
	Settings  *config.Settings
	Namespace *corev1.Namespace

	// Database is nil in external mode.
	Database *mariadb.Component
	Postal   *postal.Component

	Outputs Outputs

	// Warnings are non-fatal findings the caller should log.
	Warnings []string
}

// Build declares every object of the installation described by s.
// s must have defaults applied and be validated.
func Build(s *config.Settings, r Resolved) (*Stack, error) {
	st := &Stack{
		Settings:  s,
		Namespace: namespace(s),
	}

	var dbHost string
	var dbPort int
	if s.Database.External {
		dbHost, dbPort = s.Database.Host, s.Database.Port
	} else {
		db, err := mariadb.New(s, r.ChartManifests)
		if err != nil {
			return nil, fmt.Errorf("failed to declare database: %w", err)
		}
		st.Database = db
		dbHost, dbPort = db.Host(), db.Port()
	}

	secretKey := s.Secrets.SecretKey
	if secretKey == "" {
		secretKey = postalconfig.DeriveSecretKey(s.Secrets.SigningKey, s.Domain)
		st.Warnings = append(st.Warnings,
			fmt.Sprintf("%s is not set; using a secret key derived from the signing key", config.EnvSecretKey))
	}

	params := postalconfig.Params{
		WebHostname:  s.Domain,
		SMTPHostname: s.SMTP.Hostname,
		Database: postalconfig.Database{
			Host:     dbHost,
			Port:     dbPort,
			Username: s.Database.User,
			Password: s.Secrets.DatabasePassword,
			Name:     s.Database.Name,
		},
		SecretKey: secretKey,
	}

	app, err := postal.New(s, params, r.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to declare postal: %w", err)
	}
	st.Postal = app
	st.Outputs = OutputsFor(s)

	return st, nil
}

func namespace(s *config.Settings) *corev1.Namespace {
	return &corev1.Namespace{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Namespace"},
		ObjectMeta: metav1.ObjectMeta{
			Name:   s.Namespace,
			Labels: labels.NewLabelBuilder(s.Name).Build(),
		},
	}
}

// OutputsFor computes the outputs of s without declaring any object.
func OutputsFor(s *config.Settings) Outputs {
	out := Outputs{
		Namespace:       s.Namespace,
		WebURL:          "https://" + s.Domain,
		SMTPServiceName: naming.SMTPService(s.Name),
		SMTPServiceType: string(s.SMTP.ServiceType),
		AdminEmail:      s.AdminEmail,
		AdminSecretName: naming.AdminSecret(s.Name),
	}
	if s.Database.External {
		out.MariaDBEndpoint = net.JoinHostPort(s.Database.Host, strconv.Itoa(s.Database.Port))
	} else {
		out.MariaDBServiceName = naming.MariaDBService(s.Name)
		out.MariaDBEndpoint = net.JoinHostPort(naming.ServiceHost(out.MariaDBServiceName, s.Namespace), strconv.Itoa(config.DefaultDatabasePort))
	}
	return out
}

// Phase is one step of the apply order.
type Phase struct {
	Name    string
	Objects []client.Object
}

// Phase names.
const (
	PhaseNamespace   = "namespace"
	PhaseDatabase    = "database"
	PhaseApplication = "application"
	PhaseInit        = "init"
)

// Phases returns the objects grouped in dependency order. The database
// phase is omitted in external mode.
func (st *Stack) Phases() []Phase {
	phases := []Phase{{Name: PhaseNamespace, Objects: []client.Object{st.Namespace}}}
	if st.Database != nil {
		phases = append(phases, Phase{Name: PhaseDatabase, Objects: st.Database.Objects()})
	}
	phases = append(phases,
		Phase{Name: PhaseApplication, Objects: st.Postal.Objects()},
		Phase{Name: PhaseInit, Objects: []client.Object{st.Postal.InitJob}},
	)
	return phases
}

// Objects returns every object in apply order.
func (st *Stack) Objects() []client.Object {
	var objs []client.Object
	for _, p := range st.Phases() {
		objs = append(objs, p.Objects...)
	}
	return objs
}

// TeardownObjects returns the objects to delete, in reverse apply order.
// The Namespace is never included. keepData retains the database volume.
func (st *Stack) TeardownObjects(keepData bool) []client.Object {
	all := st.Objects()
	out := make([]client.Object, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		obj := all[i]
		if obj == client.Object(st.Namespace) {
			continue
		}
		if keepData && st.Database != nil && st.Database.VolumeClaim != nil && obj == client.Object(st.Database.VolumeClaim) {
			continue
		}
		out = append(out, obj)
	}
	return out
}
