package postal

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/postalconfig"
	"github.com/imamik/k8postal/internal/util/labels"
)

// Role is one of the three Postal processes.
type Role struct {
	Component string
	Args      []string
}

// Postal roles and the commands they run.
var (
	RoleWeb    = Role{Component: labels.ComponentWeb, Args: []string{"postal", "web-server"}}
	RoleSMTP   = Role{Component: labels.ComponentSMTP, Args: []string{"postal", "smtp-server"}}
	RoleWorker = Role{Component: labels.ComponentWorker, Args: []string{"postal", "worker"}}
)

// Component holds the typed objects of the Postal application.
type Component struct {
	ConfigSecret *corev1.Secret
	AdminSecret  *corev1.Secret

	Web    *appsv1.Deployment
	SMTP   *appsv1.Deployment
	Worker *appsv1.Deployment

	WebService  *corev1.Service
	SMTPService *corev1.Service

	// Ingress is nil when the ingress is disabled.
	Ingress *networkingv1.Ingress

	InitJob *batchv1.Job

	// ConfigChecksum is the sha256 of the configuration Secret payload.
	ConfigChecksum string
}

// New declares the application for s from resolved postal.yml inputs.
// adminPassword is written to the admin Secret the init Job reads.
func New(s *config.Settings, params postalconfig.Params, adminPassword string) (*Component, error) {
	if adminPassword == "" {
		return nil, fmt.Errorf("admin password is not resolved")
	}

	cfg, checksum, err := configSecret(s, params)
	if err != nil {
		return nil, err
	}

	c := &Component{
		ConfigSecret:   cfg,
		AdminSecret:    adminSecret(s, adminPassword),
		ConfigChecksum: checksum,
	}

	c.Web = deployment(s, RoleWeb, *s.Replicas.Web, checksum)
	c.SMTP = deployment(s, RoleSMTP, *s.Replicas.SMTP, checksum)
	c.Worker = deployment(s, RoleWorker, *s.Replicas.Worker, checksum)

	c.WebService = webService(s)
	c.SMTPService = smtpService(s)
	if s.Ingress.IsEnabled() {
		c.Ingress = ingress(s)
	}

	job, err := initJob(s, checksum)
	if err != nil {
		return nil, err
	}
	c.InitJob = job

	return c, nil
}

// Deployments returns the three role Deployments.
func (c *Component) Deployments() []*appsv1.Deployment {
	return []*appsv1.Deployment{c.Web, c.SMTP, c.Worker}
}

// Objects returns the long-lived application objects in apply order.
// The init Job is not included.
func (c *Component) Objects() []client.Object {
	objs := []client.Object{c.ConfigSecret, c.AdminSecret, c.Web, c.SMTP, c.Worker, c.WebService, c.SMTPService}
	if c.Ingress != nil {
		objs = append(objs, c.Ingress)
	}
	return objs
}

func objectLabels(s *config.Settings, component string) map[string]string {
	return labels.NewLabelBuilder(s.Name).
		WithName(labels.AppPostal).
		WithComponent(component).
		Build()
}
