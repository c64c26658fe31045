package mariadb

import (
	"bytes"
	"fmt"
	"strings"
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

// UploadImage runs the upload step of the backup job.
const UploadImage = "amazon/aws-cli:2.22.35"

const (
	backupVolume = "dump"
	backupPath   = "/backup"

	keyAccessKey = "access-key"
	keySecretKey = "secret-key"
)

// Backup holds the scheduled dump objects.
type Backup struct {
	Credentials *corev1.Secret
	CronJob     *batchv1.CronJob
}

type scriptData struct {
	Host     string
	Port     int
	Prefix   string
	Path     string
	Bucket   string
	Endpoint string
	KeyPath  string
}

// BackupPrefix is the object key prefix dumps are uploaded under.
func BackupPrefix(s *config.Settings) string {
	return strings.ToLower(s.Name) + "/"
}

var dumpScript = template.Must(template.New("dump").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(
	`set -eu
mariadb-dump -h {{ .Host | squote }} -P {{ .Port }} -uroot -p"$MARIADB_ROOT_PASSWORD" \
  --all-databases --single-transaction --quick \
  | gzip > {{ .Path }}/{{ .Prefix }}-$(date +%Y%m%dT%H%M%S).sql.gz
`))

var uploadScript = template.Must(template.New("upload").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(
	`set -eu
aws s3 cp {{ .Path }}/ s3://{{ .Bucket }}/{{ .KeyPath }} --recursive \
  --endpoint-url {{ .Endpoint | squote }}
`))

func renderScript(t *template.Template, data scriptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s script: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func newBackup(s *config.Settings, host string) (*Backup, error) {
	b := s.Database.Backup
	data := scriptData{
		Host:     host,
		Port:     config.DefaultDatabasePort,
		Prefix:   s.Name,
		Path:     backupPath,
		Bucket:   b.Bucket,
		Endpoint: b.Endpoint,
		KeyPath:  BackupPrefix(s),
	}
	dump, err := renderScript(dumpScript, data)
	if err != nil {
		return nil, err
	}
	upload, err := renderScript(uploadScript, data)
	if err != nil {
		return nil, err
	}

	credsName := naming.MariaDBBackupCredentials(s.Name)
	objLabels := objectLabels(s, labels.ComponentBackup)

	creds := &corev1.Secret{
		TypeMeta: metav1.TypeMeta{APIVersion: "v1", Kind: "Secret"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      credsName,
			Namespace: s.Namespace,
			Labels:    objLabels,
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			keyAccessKey: []byte(s.Secrets.BackupAccessKey),
			keySecretKey: []byte(s.Secrets.BackupSecretKey),
		},
	}

	dumpVolume := []corev1.VolumeMount{{Name: backupVolume, MountPath: backupPath}}

	cron := &batchv1.CronJob{
		TypeMeta: metav1.TypeMeta{APIVersion: "batch/v1", Kind: "CronJob"},
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.MariaDBBackup(s.Name),
			Namespace: s.Namespace,
			Labels:    objLabels,
		},
		Spec: batchv1.CronJobSpec{
			Schedule:                   b.Schedule,
			ConcurrencyPolicy:          batchv1.ForbidConcurrent,
			SuccessfulJobsHistoryLimit: ptr.Int32(3),
			FailedJobsHistoryLimit:     ptr.Int32(1),
			JobTemplate: batchv1.JobTemplateSpec{
				Spec: batchv1.JobSpec{
					BackoffLimit: ptr.Int32(2),
					Template: corev1.PodTemplateSpec{
						ObjectMeta: metav1.ObjectMeta{Labels: objLabels},
						Spec: corev1.PodSpec{
							RestartPolicy: corev1.RestartPolicyNever,
							InitContainers: []corev1.Container{{
								Name:         "dump",
								Image:        s.Database.Image,
								Command:      []string{"sh", "-c", dump},
								Env:          []corev1.EnvVar{secretEnv("MARIADB_ROOT_PASSWORD", naming.MariaDBSecret(s.Name), KeyRootPassword)},
								VolumeMounts: dumpVolume,
							}},
							Containers: []corev1.Container{{
								Name:    "upload",
								Image:   UploadImage,
								Command: []string{"sh", "-c", upload},
								Env: []corev1.EnvVar{
									secretEnv("AWS_ACCESS_KEY_ID", credsName, keyAccessKey),
									secretEnv("AWS_SECRET_ACCESS_KEY", credsName, keySecretKey),
									{Name: "AWS_DEFAULT_REGION", Value: b.Region},
								},
								VolumeMounts: dumpVolume,
							}},
							Volumes: []corev1.Volume{{
								Name:         backupVolume,
								VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
							}},
						},
					},
				},
			},
		},
	}

	return &Backup{Credentials: creds, CronJob: cron}, nil
}
