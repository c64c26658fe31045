package postal

import (
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/postalconfig"
	"github.com/imamik/k8postal/internal/util/labels"
	"github.com/imamik/k8postal/internal/util/naming"
	"github.com/imamik/k8postal/internal/util/ptr"
)

// Annotations read by cert-manager and the Hetzner cloud controller manager.
const (
	AnnotationClusterIssuer  = "cert-manager.io/cluster-issuer"
	AnnotationHCloudName     = "load-balancer.hetzner.cloud/name"
	AnnotationHCloudLocation = "load-balancer.hetzner.cloud/location"
)

func webService(s *config.Settings) *corev1.Service {
	return &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.WebService(s.Name),
			Namespace: s.Namespace,
			Labels:    objectLabels(s, labels.ComponentWeb),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: labels.Selector(s.Name, labels.AppPostal, labels.ComponentWeb),
			Ports: []corev1.ServicePort{{
				Name:       PortNameHTTP,
				Port:       80,
				TargetPort: intstr.FromInt32(postalconfig.WebPort),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}
}

func smtpService(s *config.Settings) *corev1.Service {
	svc := &corev1.Service{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Service"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.SMTPService(s.Name),
			Namespace: s.Namespace,
			Labels:    objectLabels(s, labels.ComponentSMTP),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceType(s.SMTP.ServiceType),
			Selector: labels.Selector(s.Name, labels.AppPostal, labels.ComponentSMTP),
			Ports: []corev1.ServicePort{{
				Name:       PortNameSMTP,
				Port:       postalconfig.SMTPPort,
				TargetPort: intstr.FromInt32(postalconfig.SMTPPort),
				Protocol:   corev1.ProtocolTCP,
			}},
		},
	}

	// Local keeps the client address visible to Postal for SPF and abuse checks.
	if s.SMTP.ServiceType.IsExternal() {
		svc.Spec.ExternalTrafficPolicy = corev1.ServiceExternalTrafficPolicyLocal
	}
	if s.SMTP.ServiceType == config.ServiceTypeLoadBalancer && s.SMTP.LoadBalancerIP != "" {
		svc.Spec.LoadBalancerIP = s.SMTP.LoadBalancerIP
	}
	if h := s.SMTP.Hetzner; h != nil {
		svc.Annotations = map[string]string{AnnotationHCloudName: h.LoadBalancerName}
		if h.Location != "" {
			svc.Annotations[AnnotationHCloudLocation] = h.Location
		}
	}
	return svc
}

func ingress(s *config.Settings) *networkingv1.Ingress {
	pathType := networkingv1.PathTypePrefix

	ing := &networkingv1.Ingress{
		TypeMeta: metav1.TypeMeta{APIVersion: "networking.k8s.io/v1", Kind: "Ingress"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.WebIngress(s.Name),
			Namespace: s.Namespace,
			Labels:    objectLabels(s, labels.ComponentWeb),
			Annotations: map[string]string{
				AnnotationClusterIssuer: s.Ingress.ClusterIssuer,
			},
		},
		Spec: networkingv1.IngressSpec{
			TLS: []networkingv1.IngressTLS{{
				Hosts:      []string{s.Domain},
				SecretName: naming.WebTLS(s.Name),
			}},
			Rules: []networkingv1.IngressRule{{
				Host: s.Domain,
				IngressRuleValue: networkingv1.IngressRuleValue{
					HTTP: &networkingv1.HTTPIngressRuleValue{
						Paths: []networkingv1.HTTPIngressPath{{
							Path:     "/",
							PathType: &pathType,
							Backend: networkingv1.IngressBackend{
								Service: &networkingv1.IngressServiceBackend{
									Name: naming.WebService(s.Name),
									Port: networkingv1.ServiceBackendPort{Name: PortNameHTTP},
								},
							},
						}},
					},
				},
			}},
		},
	}
	if s.Ingress.ClassName != "" {
		ing.Spec.IngressClassName = ptr.String(s.Ingress.ClassName)
	}
	return ing
}
