package handlers

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/rest"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/dns"
	"github.com/imamik/k8postal/internal/kube"
	"github.com/imamik/k8postal/internal/platform/cloudflare"
	"github.com/imamik/k8postal/internal/platform/hcloud"
	"github.com/imamik/k8postal/internal/platform/s3"
	"github.com/imamik/k8postal/internal/probe"
	"github.com/imamik/k8postal/internal/ui/tui"
	"github.com/imamik/k8postal/internal/util/keygen"
)

// saveAndRestoreFactories saves all factory functions and restores them after the test.
func saveAndRestoreFactories(t *testing.T) {
	origFindConfigFile := findConfigFile
	origLoadSettings := loadSettings
	origLoadSettingsWithoutSecrets := loadSettingsWithoutSecrets
	origLoadSecrets := loadSecrets
	origLoadTimeouts := loadTimeouts
	origLoadRESTConfig := loadRESTConfig
	origNewKubeClient := newKubeClient
	origNewWaiter := newWaiter
	origRenderChart := renderChart
	origNewRDNSClient := newRDNSClient
	origNewDNSProvider := newDNSProvider
	origNewBackupStore := newBackupStore
	origNewSMTPChecker := newSMTPChecker
	origWaitForTCP := waitForTCP
	origGeneratePassword := generatePassword
	origGenerateSigningKey := generateSigningKey
	origRunWizard := runWizard
	origSaveSettings := saveSettings
	origWriteFile := writeFile
	origFileExists := fileExists
	origIsTerminal := isTerminal
	origRunTUI := runTUI
	origPollInterval := pollInterval
	origStdout := stdout

	t.Cleanup(func() {
		findConfigFile = origFindConfigFile
		loadSettings = origLoadSettings
		loadSettingsWithoutSecrets = origLoadSettingsWithoutSecrets
		loadSecrets = origLoadSecrets
		loadTimeouts = origLoadTimeouts
		loadRESTConfig = origLoadRESTConfig
		newKubeClient = origNewKubeClient
		newWaiter = origNewWaiter
		renderChart = origRenderChart
		newRDNSClient = origNewRDNSClient
		newDNSProvider = origNewDNSProvider
		newBackupStore = origNewBackupStore
		newSMTPChecker = origNewSMTPChecker
		waitForTCP = origWaitForTCP
		generatePassword = origGeneratePassword
		generateSigningKey = origGenerateSigningKey
		runWizard = origRunWizard
		saveSettings = origSaveSettings
		writeFile = origWriteFile
		fileExists = origFileExists
		isTerminal = origIsTerminal
		runTUI = origRunTUI
		pollInterval = origPollInterval
		stdout = origStdout
	})

	isTerminal = func() bool { return false }
	pollInterval = time.Millisecond
	loadTimeouts = func() *config.Timeouts {
		return &config.Timeouts{
			DatabaseReady:     time.Minute,
			InitJob:           2 * time.Minute,
			Delete:            time.Minute,
			LoadBalancer:      time.Second,
			RetryMaxAttempts:  1,
			RetryInitialDelay: time.Millisecond,
		}
	}
	generatePassword = func() (string, error) { return "generated-pass", nil }
}

// captureStdout redirects handler output into a buffer.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	stdout = buf
	return buf
}

var (
	testKeyOnce sync.Once
	testKey     *keygen.SigningKey
)

// testSigningKey returns a small RSA key shared by all tests.
func testSigningKey(t *testing.T) *keygen.SigningKey {
	t.Helper()
	var err error
	testKeyOnce.Do(func() {
		testKey, err = keygen.GenerateSigningKey(1024)
	})
	require.NoError(t, err)
	require.NotNil(t, testKey)
	return testKey
}

// testSettings returns validated-looking settings with complete secrets.
func testSettings(t *testing.T, mutate ...func(*config.Settings)) *config.Settings {
	t.Helper()
	s := &config.Settings{Domain: "mail.example.com"}
	for _, m := range mutate {
		m(s)
	}
	s.ApplyDefaults()
	s.Secrets = config.Secrets{
		DatabasePassword:     "db-pass",
		DatabaseRootPassword: "root-pass",
		SigningKey:           testSigningKey(t).PrivateKey,
		SecretKey:            "rails-secret",
	}
	return s
}

func withExternalDatabase(s *config.Settings) {
	s.Database.External = true
	s.Database.Host = "db.internal"
}

func withHetzner(s *config.Settings) {
	s.SMTP.Hetzner = &config.HetznerSpec{Location: "fsn1"}
}

func withBackup(s *config.Settings) {
	s.Database.Backup = config.BackupSpec{Enabled: true, Bucket: "mail-backups"}
}

// useSettings makes every settings loader return s.
func useSettings(s *config.Settings) {
	findConfigFile = func() (string, error) { return "/work/k8postal.yaml", nil }
	loadSettings = func(string) (*config.Settings, error) { return s, nil }
	loadSettingsWithoutSecrets = func(string) (*config.Settings, error) {
		plain := *s
		plain.Secrets = config.Secrets{}
		return &plain, nil
	}
	loadSecrets = func() (config.Secrets, error) { return s.Secrets, nil }
}

// fakeKube records calls made through kube.Client.
type fakeKube struct {
	mu sync.Mutex

	applied          []string
	deleted          []string
	replacedJobs     []string
	deletedNamespace string

	// leftovers are "Kind/name" objects DeleteMatching finds.
	leftovers     []string
	pruned        []string
	pruneSelector string

	secrets      map[string]*corev1.Secret
	lbAddress    string
	lbPolls      int
	ingressClass bool

	applyErr  error
	secretErr error
}

var _ kube.Client = (*fakeKube)(nil)

func newFakeKube() *fakeKube {
	return &fakeKube{secrets: map[string]*corev1.Secret{}, ingressClass: true}
}

func objectID(obj ctrlclient.Object) string {
	return obj.GetObjectKind().GroupVersionKind().Kind + "/" + obj.GetName()
}

func (f *fakeKube) Apply(_ context.Context, obj ctrlclient.Object) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, objectID(obj))
	return nil
}

func (f *fakeKube) Delete(_ context.Context, obj ctrlclient.Object) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, objectID(obj))
	return nil
}

func (f *fakeKube) ReplaceJob(_ context.Context, job *batchv1.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replacedJobs = append(f.replacedJobs, job.Name)
	return nil
}

func (f *fakeKube) GetSecret(_ context.Context, namespace, name string) (*corev1.Secret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.secretErr != nil {
		return nil, f.secretErr
	}
	return f.secrets[namespace+"/"+name], nil
}

func (f *fakeKube) DeleteNamespace(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedNamespace = name
	return nil
}

// LoadBalancerAddress reports pending on the first poll.
func (f *fakeKube) LoadBalancerAddress(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lbPolls++
	if f.lbPolls == 1 {
		return "", nil
	}
	return f.lbAddress, nil
}

func (f *fakeKube) HasIngressClass(_ context.Context, _ string) (bool, error) {
	return f.ingressClass, nil
}

func (f *fakeKube) DeleteMatching(_ context.Context, _, selector string, _ []schema.GroupVersionKind, keep func(kind, name string) bool) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneSelector = selector
	var deleted []string
	for _, id := range f.leftovers {
		kind, name, _ := strings.Cut(id, "/")
		if keep != nil && keep(kind, name) {
			continue
		}
		deleted = append(deleted, id)
	}
	f.pruned = append(f.pruned, deleted...)
	return deleted, nil
}

// fakeWaiter records readiness waits.
type fakeWaiter struct {
	calls []string
	err   error
}

func (w *fakeWaiter) WaitForDeployment(_ context.Context, ns, name string, _ time.Duration) error {
	w.calls = append(w.calls, "Deployment/"+ns+"/"+name)
	return w.err
}

func (w *fakeWaiter) WaitForStatefulSet(_ context.Context, ns, name string, _ time.Duration) error {
	w.calls = append(w.calls, "StatefulSet/"+ns+"/"+name)
	return w.err
}

func (w *fakeWaiter) WaitForJob(_ context.Context, ns, name string, _ time.Duration) error {
	w.calls = append(w.calls, "Job/"+ns+"/"+name)
	return w.err
}

// useCluster wires fake kube and waiter clients.
func useCluster(kc *fakeKube, w *fakeWaiter) {
	loadRESTConfig = func(string, string) (*rest.Config, error) { return &rest.Config{Host: "https://fake"}, nil }
	newKubeClient = func(*rest.Config) (kube.Client, error) { return kc, nil }
	newWaiter = func(*rest.Config, *config.Timeouts) (Waiter, error) { return w, nil }
}

// fakeRDNS records PTR changes.
type fakeRDNS struct {
	lb   *hcloud.LoadBalancer
	ptrs map[string]string
}

func (f *fakeRDNS) GetLoadBalancer(_ context.Context, name string) (*hcloud.LoadBalancer, error) {
	if f.lb == nil || f.lb.Name != name {
		return nil, errors.New("load balancer not found")
	}
	return f.lb, nil
}

func (f *fakeRDNS) SetLoadBalancerRDNS(_ context.Context, _ int64, ip, ptr string) error {
	if f.ptrs == nil {
		f.ptrs = map[string]string{}
	}
	f.ptrs[ip] = ptr
	return nil
}

// fakeDNSProvider stores upserted records.
type fakeDNSProvider struct {
	records []cloudflare.Record
	deleted []string
}

var _ dns.Provider = (*fakeDNSProvider)(nil)

func (f *fakeDNSProvider) GetZoneID(_ context.Context, zone string) (string, error) {
	return "zone-" + zone, nil
}

func (f *fakeDNSProvider) UpsertRecord(_ context.Context, _ string, r cloudflare.Record) (cloudflare.UpsertResult, error) {
	f.records = append(f.records, r)
	return cloudflare.Created, nil
}

func (f *fakeDNSProvider) DeleteManagedRecords(_ context.Context, _ string, names []string) (int, error) {
	f.deleted = append(f.deleted, names...)
	return len(names), nil
}

// fakeBackupStore records bucket calls.
type fakeBackupStore struct {
	ensured    []string
	expiration string
	days       int
	latest     *s3.Object
	err        error
}

func (f *fakeBackupStore) EnsureBucket(_ context.Context, bucket string) (bool, error) {
	f.ensured = append(f.ensured, bucket)
	return true, f.err
}

func (f *fakeBackupStore) SetExpiration(_ context.Context, bucket, prefix string, days int) error {
	f.expiration = bucket + "/" + prefix
	f.days = days
	return nil
}

func (f *fakeBackupStore) LatestObject(_ context.Context, _, _ string) (*s3.Object, error) {
	return f.latest, f.err
}

// fakeSMTPChecker returns a canned result.
type fakeSMTPChecker struct {
	localName string
	err       error
}

func (f *fakeSMTPChecker) Check(_ context.Context, host string, port int) (*probe.SMTPResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &probe.SMTPResult{Address: host + ":25", Elapsed: 12 * time.Millisecond}, nil
}

// recordingReporter collects step messages.
type recordingReporter struct {
	mu   sync.Mutex
	msgs []tui.StepMsg
}

func (r *recordingReporter) report(msg tui.StepMsg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}
