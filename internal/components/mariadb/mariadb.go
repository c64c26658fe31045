package mariadb

import (
	"fmt"
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/util/labels"
	"github.com/imamik/k8postal/internal/util/naming"
	"github.com/imamik/k8postal/internal/util/ptr"
)

// Secret keys of the credentials Secret.
const (
	KeyRootPassword = "root-password"
	KeyPassword     = "password"
	KeyUser         = "user"
	KeyDatabase     = "database"
)

const (
	containerName = "mariadb"
	dataPath      = "/var/lib/mysql"
	initPath      = "/docker-entrypoint-initdb.d"
	initScriptKey = "init.sql"
)

// Workload kinds reported by Component.Workload.
const (
	KindDeployment  = "Deployment"
	KindStatefulSet = "StatefulSet"
)

// Workload identifies the object whose readiness gates the init Job.
type Workload struct {
	Kind      string
	Namespace string
	Name      string
}

// Component holds the typed objects of the integrated database.
// Fields that do not apply to the selected provider are nil.
type Component struct {
	Secret      *corev1.Secret
	InitScript  *corev1.ConfigMap
	VolumeClaim *corev1.PersistentVolumeClaim
	Deployment  *appsv1.Deployment
	Service     *corev1.Service

	// Chart holds the rendered objects of the helm provider.
	Chart []*unstructured.Unstructured

	Backup *Backup

	Workload Workload

	host string
	port int
}

// New declares the database for s. chartManifests is the rendered chart and
// is only read by the helm provider.
func New(s *config.Settings, chartManifests []byte) (*Component, error) {
	if s.Database.External {
		return nil, fmt.Errorf("database component requested in external mode")
	}

	prefix, ns := s.Name, s.Namespace
	c := &Component{
		Secret:     credentialsSecret(s),
		InitScript: initScript(s),
		Service:    service(s),
		host:       naming.ServiceHost(naming.MariaDBService(prefix), ns),
		port:       config.DefaultDatabasePort,
	}

	switch s.Database.Provider {
	case config.ProviderManifest:
		pvc, err := volumeClaim(s)
		if err != nil {
			return nil, err
		}
		c.VolumeClaim = pvc
		c.Deployment = deployment(s)
		c.Workload = Workload{Kind: KindDeployment, Namespace: ns, Name: naming.MariaDB(prefix)}

	case config.ProviderHelm:
		objs, err := chartObjects(s, chartManifests)
		if err != nil {
			return nil, err
		}
		c.Chart = objs
		c.Workload = Workload{Kind: KindStatefulSet, Namespace: ns, Name: naming.MariaDB(prefix)}

	default:
		return nil, fmt.Errorf("unknown database provider %q", s.Database.Provider)
	}

	if s.Database.Backup.Enabled {
		b, err := newBackup(s, c.host)
		if err != nil {
			return nil, err
		}
		c.Backup = b
	}

	return c, nil
}

// Host is the in-cluster DNS name of the database Service.
func (c *Component) Host() string { return c.host }

// Port is the database Service port.
func (c *Component) Port() int { return c.port }

// Endpoint returns host:port.
func (c *Component) Endpoint() string {
	return c.host + ":" + strconv.Itoa(c.port)
}

// Objects returns the database objects in apply order.
func (c *Component) Objects() []client.Object {
	objs := []client.Object{c.Secret, c.InitScript}
	if c.VolumeClaim != nil {
		objs = append(objs, c.VolumeClaim)
	}
	for _, u := range c.Chart {
		objs = append(objs, u)
	}
	if c.Deployment != nil {
		objs = append(objs, c.Deployment)
	}
	objs = append(objs, c.Service)
	if c.Backup != nil {
		objs = append(objs, c.Backup.Credentials, c.Backup.CronJob)
	}
	return objs
}

func objectLabels(s *config.Settings, component string) map[string]string {
	return labels.NewLabelBuilder(s.Name).
		WithName(labels.AppMariaDB).
		WithComponent(component).
		Build()
}

func credentialsSecret(s *config.Settings) *corev1.Secret {
	data := map[string][]byte{
		KeyRootPassword: []byte(s.Secrets.DatabaseRootPassword),
		KeyPassword:     []byte(s.Secrets.DatabasePassword),
		KeyUser:         []byte(s.Database.User),
		KeyDatabase:     []byte(s.Database.Name),
	}
	if s.Database.Provider == config.ProviderHelm {
		for k, v := range chartSecretData(s) {
			data[k] = v
		}
	}

	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.MariaDBSecret(s.Name),
			Namespace: s.Namespace,
			Labels:    objectLabels(s, labels.ComponentDatabase),
		},
		Type: corev1.SecretTypeOpaque,
		Data: data,
	}
}

// InitSQL returns the script run on first start of an empty data directory.
func InitSQL(user string) string {
	return fmt.Sprintf("GRANT ALL PRIVILEGES ON `postal-%%`.* TO '%s'@'%%';\nFLUSH PRIVILEGES;\n", user)
}

func initScript(s *config.Settings) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "ConfigMap"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.MariaDBInitScript(s.Name),
			Namespace: s.Namespace,
			Labels:    objectLabels(s, labels.ComponentDatabase),
		},
		Data: map[string]string{initScriptKey: InitSQL(s.Database.User)},
	}
}

func volumeClaim(s *config.Settings) (*corev1.PersistentVolumeClaim, error) {
	size, err := resource.ParseQuantity(s.Database.Storage.Size)
	if err != nil {
		return nil, fmt.Errorf("invalid database storage size %q: %w", s.Database.Storage.Size, err)
	}

	pvc := &corev1.PersistentVolumeClaim{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.MariaDBVolumeClaim(s.Name),
			Namespace: s.Namespace,
			Labels:    objectLabels(s, labels.ComponentDatabase),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: size},
			},
		},
	}
	if s.Database.Storage.ClassName != "" {
		pvc.Spec.StorageClassName = ptr.String(s.Database.Storage.ClassName)
	}
	return pvc, nil
}

func secretEnv(name, secret, key string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: name,
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: secret},
				Key:                  key,
			},
		},
	}
}

// pingProbe runs mariadb-admin ping against the local server.
func pingProbe(initialDelay int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			Exec: &corev1.ExecAction{
				Command: []string{"sh", "-c", `mariadb-admin ping -h 127.0.0.1 -uroot -p"$MARIADB_ROOT_PASSWORD"`},
			},
		},
		InitialDelaySeconds: initialDelay,
		PeriodSeconds:       10,
		TimeoutSeconds:      5,
		FailureThreshold:    6,
	}
}

func deployment(s *config.Settings) *appsv1.Deployment {
	prefix := s.Name
	secret := naming.MariaDBSecret(prefix)
	selector := labels.Selector(prefix, labels.AppMariaDB, labels.ComponentDatabase)
	podLabels := labels.NewLabelBuilder(prefix).Merge(selector).Build()

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.MariaDB(prefix),
			Namespace: s.Namespace,
			Labels:    objectLabels(s, labels.ComponentDatabase),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.Int32(1),
			// A second pod must never mount the data volume while the first runs.
			Strategy: appsv1.DeploymentStrategy{Type: appsv1.RecreateDeploymentStrategyType},
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  containerName,
						Image: s.Database.Image,
						Ports: []corev1.ContainerPort{{
							Name:          "mysql",
							ContainerPort: int32(config.DefaultDatabasePort),
							Protocol:      corev1.ProtocolTCP,
						}},
						Env: []corev1.EnvVar{
							secretEnv("MARIADB_ROOT_PASSWORD", secret, KeyRootPassword),
							secretEnv("MARIADB_DATABASE", secret, KeyDatabase),
							secretEnv("MARIADB_USER", secret, KeyUser),
							secretEnv("MARIADB_PASSWORD", secret, KeyPassword),
						},
						VolumeMounts: []corev1.VolumeMount{
							{Name: "data", MountPath: dataPath},
							{Name: "init", MountPath: initPath, ReadOnly: true},
						},
						LivenessProbe:  pingProbe(30),
						ReadinessProbe: pingProbe(5),
						Resources: corev1.ResourceRequirements{
							Requests: corev1.ResourceList{
								corev1.ResourceCPU:    resource.MustParse("100m"),
								corev1.ResourceMemory: resource.MustParse("256Mi"),
							},
							Limits: corev1.ResourceList{
								corev1.ResourceMemory: resource.MustParse("1Gi"),
							},
						},
					}},
					Volumes: []corev1.Volume{
						{
							Name: "data",
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
									ClaimName: naming.MariaDBVolumeClaim(prefix),
								},
							},
						},
						{
							Name: "init",
							VolumeSource: corev1.VolumeSource{
								ConfigMap: &corev1.ConfigMapVolumeSource{
									LocalObjectReference: corev1.LocalObjectReference{Name: naming.MariaDBInitScript(prefix)},
								},
							},
						},
					},
				},
			},
		},
	}
}

func service(s *config.Settings) *corev1.Service {
	selector := labels.Selector(s.Name, labels.AppMariaDB, labels.ComponentDatabase)
	if s.Database.Provider == config.ProviderHelm {
		selector = chartSelector(s.Name)
	}

	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.MariaDBService(s.Name),
			Namespace: s.Namespace,
			Labels:    objectLabels(s, labels.ComponentDatabase),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: selector,
			Ports: []corev1.ServicePort{{
				Name:       "mysql",
				Port:       int32(config.DefaultDatabasePort),
				TargetPort: intstr.FromString("mysql"),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}
}
