package postal

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/util/labels"
	"github.com/imamik/k8postal/internal/util/naming"
	"github.com/imamik/k8postal/internal/util/ptr"
)

// alreadyExists is the validation message make-user prints for a
// duplicate e-mail address.
const alreadyExists = "has already been taken"

// make-user prompts for e-mail, first name, last name and password in that
// order. Only an existing account is tolerated; any other make-user failure
// fails the Job so the restart policy applies. Admin values reach the shell
// through the environment only.
var initScript = template.Must(template.New("init").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(
	`set -e
postal initialize
set +e
output=$(printf '%s\n%s\n%s\n%s\n' "$ADMIN_EMAIL" {{ .FirstName | squote }} {{ .LastName | squote }} "$ADMIN_PASSWORD" \
  | postal make-user 2>&1)
status=$?
set -e
printf '%s\n' "$output"
case "$output" in
  *{{ .AlreadyExists | squote }}*)
    echo "admin $ADMIN_EMAIL already exists"
    exit 0
    ;;
esac
if [ "$status" -ne 0 ]; then
  echo "make-user exited with status $status" >&2
  exit "$status"
fi
case "$output" in
  *Failed*|*failed*)
    echo "make-user reported a failure" >&2
    exit 1
    ;;
esac
`))

type initData struct {
	FirstName     string
	LastName      string
	AlreadyExists string
}

// InitScript returns the shell script run by the init Job.
func InitScript() (string, error) {
	var buf bytes.Buffer
	err := initScript.Execute(&buf, initData{FirstName: "Postal", LastName: "Admin", AlreadyExists: alreadyExists})
	if err != nil {
		return "", fmt.Errorf("failed to render init script: %w", err)
	}
	return buf.String(), nil
}

func adminEnv(s *config.Settings, name, key string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: name,
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: naming.AdminSecret(s.Name)},
				Key:                  key,
			},
		},
	}
}

func initJob(s *config.Settings, checksum string) (*batchv1.Job, error) {
	script, err := InitScript()
	if err != nil {
		return nil, err
	}
	volume, mount := configVolume(s)
	jobLabels := objectLabels(s, labels.ComponentInit)

	return &batchv1.Job{
		TypeMeta: metav1.TypeMeta{APIVersion: "batch/v1", Kind: "Job"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.InitJob(s.Name),
			Namespace: s.Namespace,
			Labels:    jobLabels,
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: ptr.Int32(6),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      jobLabels,
					Annotations: map[string]string{AnnotationConfigChecksum: checksum},
				},
				Spec: corev1.PodSpec{
					RestartPolicy: corev1.RestartPolicyOnFailure,
					Containers: []corev1.Container{{
						Name:    labels.ComponentInit,
						Image:   s.Image.Reference(),
						Command: []string{"sh", "-c", script},
						Env: []corev1.EnvVar{
							adminEnv(s, "ADMIN_EMAIL", KeyAdminEmail),
							adminEnv(s, "ADMIN_PASSWORD", KeyAdminPassword),
						},
						VolumeMounts: []corev1.VolumeMount{mount},
					}},
					Volumes: []corev1.Volume{volume},
				},
			},
		},
	}, nil
}
