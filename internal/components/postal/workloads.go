package postal

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/postalconfig"
	"github.com/imamik/k8postal/internal/util/labels"
	"github.com/imamik/k8postal/internal/util/naming"
)

// Port names referenced by Services.
const (
	PortNameHTTP = "http"
	PortNameSMTP = "smtp"
)

func roleName(prefix string, r Role) string {
	switch r.Component {
	case labels.ComponentWeb:
		return naming.Web(prefix)
	case labels.ComponentSMTP:
		return naming.SMTP(prefix)
	default:
		return naming.Worker(prefix)
	}
}

func deployment(s *config.Settings, role Role, replicas int32, checksum string) *appsv1.Deployment {
	selector := labels.Selector(s.Name, labels.AppPostal, role.Component)
	podLabels := labels.NewLabelBuilder(s.Name).Merge(selector).Build()
	volume, mount := configVolume(s)

	container := corev1.Container{
		Name:         role.Component,
		Image:        s.Image.Reference(),
		Args:         role.Args,
		VolumeMounts: []corev1.VolumeMount{mount},
		Resources:    roleResources(role),
	}

	switch role.Component {
	case labels.ComponentWeb:
		container.Ports = []corev1.ContainerPort{{Name: PortNameHTTP, ContainerPort: postalconfig.WebPort, Protocol: corev1.ProtocolTCP}}
		container.ReadinessProbe = httpProbe(10)
		container.LivenessProbe = httpProbe(60)
	case labels.ComponentSMTP:
		container.Ports = []corev1.ContainerPort{{Name: PortNameSMTP, ContainerPort: postalconfig.SMTPPort, Protocol: corev1.ProtocolTCP}}
		container.ReadinessProbe = tcpProbe(10)
		container.LivenessProbe = tcpProbe(60)
	case labels.ComponentWorker:
		container.LivenessProbe = &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				Exec: &corev1.ExecAction{Command: []string{"pgrep", "-f", "postal worker"}},
			},
			InitialDelaySeconds: 60,
			PeriodSeconds:       30,
		}
	}

	return &appsv1.Deployment{
		TypeMeta: metav1.TypeMeta{APIVersion: "apps/v1", Kind: "Deployment"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      roleName(s.Name, role),
			Namespace: s.Namespace,
			Labels:    objectLabels(s, role.Component),
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      podLabels,
					Annotations: map[string]string{AnnotationConfigChecksum: checksum},
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
					Volumes:    []corev1.Volume{volume},
				},
			},
		},
	}
}

func httpProbe(initialDelay int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{Path: "/login", Port: intstr.FromString(PortNameHTTP)},
		},
		InitialDelaySeconds: initialDelay,
		PeriodSeconds:       10,
		TimeoutSeconds:      5,
	}
}

func tcpProbe(initialDelay int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			TCPSocket: &corev1.TCPSocketAction{Port: intstr.FromString(PortNameSMTP)},
		},
		InitialDelaySeconds: initialDelay,
		PeriodSeconds:       10,
	}
}

func roleResources(role Role) corev1.ResourceRequirements {
	memory := "512Mi"
	if role.Component == labels.ComponentWorker {
		memory = "768Mi"
	}
	return corev1.ResourceRequirements{
		Requests: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse("100m"),
			corev1.ResourceMemory: resource.MustParse("256Mi"),
		},
		Limits: corev1.ResourceList{
			corev1.ResourceMemory: resource.MustParse(memory),
		},
	}
}
