package postal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/postalconfig"
	"github.com/imamik/k8postal/internal/util/labels"
	"github.com/imamik/k8postal/internal/util/naming"
)

// AnnotationConfigChecksum rolls pods when the configuration changes.
const AnnotationConfigChecksum = "checksum/config"

// Keys of the admin Secret.
const (
	KeyAdminEmail    = "email"
	KeyAdminPassword = "password"
)

func configSecret(s *config.Settings, params postalconfig.Params) (*corev1.Secret, string, error) {
	doc, err := postalconfig.Render(params)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render postal.yml: %w", err)
	}
	if len(s.Secrets.SigningKey) == 0 {
		return nil, "", fmt.Errorf("signing key is not resolved")
	}

	h := sha256.New()
	h.Write(doc)
	h.Write(s.Secrets.SigningKey)
	checksum := hex.EncodeToString(h.Sum(nil))

	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.Config(s.Name),
			Namespace: s.Namespace,
			Labels:    objectLabels(s, labels.ComponentConfig),
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			postalconfig.ConfigKey:     doc,
			postalconfig.SigningKeyKey: s.Secrets.SigningKey,
		},
	}, checksum, nil
}

func adminSecret(s *config.Settings, password string) *corev1.Secret {
	return &corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.AdminSecret(s.Name),
			Namespace: s.Namespace,
			Labels:    objectLabels(s, labels.ComponentInit),
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			KeyAdminEmail:    []byte(s.AdminEmail),
			KeyAdminPassword: []byte(password),
		},
	}
}

// configVolume mounts the shared configuration Secret read-only.
func configVolume(s *config.Settings) (corev1.Volume, corev1.VolumeMount) {
	return corev1.Volume{
			Name: "config",
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{SecretName: naming.Config(s.Name)},
			},
		}, corev1.VolumeMount{
			Name:      "config",
			MountPath: postalconfig.MountPath,
			ReadOnly:  true,
		}
}
