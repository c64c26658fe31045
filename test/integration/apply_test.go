//go:build integration

package integration

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	ctrlclient "sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/imamik/k8postal/internal/components/postal"
	"github.com/imamik/k8postal/internal/config"
	"github.com/imamik/k8postal/internal/kube"
	"github.com/imamik/k8postal/internal/stack"
	"github.com/imamik/k8postal/internal/util/keygen"
	"github.com/imamik/k8postal/internal/util/naming"
)

func buildStack(namespace string, mutate func(*config.Settings)) *stack.Stack {
	key, err := keygen.GenerateSigningKey(1024)
	Expect(err).NotTo(HaveOccurred())

	s := &config.Settings{Domain: "mail.example.com", Namespace: namespace}
	if mutate != nil {
		mutate(s)
	}
	s.ApplyDefaults()
	s.Secrets = config.Secrets{
		DatabasePassword:     "db-pass",
		DatabaseRootPassword: "root-pass",
		SigningKey:           key.PrivateKey,
		SecretKey:            "rails-secret",
	}
	Expect(s.Validate()).To(Succeed())

	st, err := stack.Build(s, stack.Resolved{AdminPassword: "admin-pass"})
	Expect(err).NotTo(HaveOccurred())
	return st
}

// applyAll applies every phase, replacing the init Job.
func applyAll(st *stack.Stack) {
	for _, p := range st.Phases() {
		for _, obj := range p.Objects {
			if obj == ctrlclient.Object(st.Postal.InitJob) {
				Expect(kc.ReplaceJob(ctx, st.Postal.InitJob)).To(Succeed())
				continue
			}
			Expect(kc.Apply(ctx, obj)).To(Succeed(), "apply %s/%s",
				obj.GetObjectKind().GroupVersionKind().Kind, obj.GetName())
		}
	}
}

func exists(obj ctrlclient.Object) bool {
	gvk := obj.GetObjectKind().GroupVersionKind()
	u := &unstructured.Unstructured{}
	u.SetGroupVersionKind(gvk)
	c, err := ctrlclient.New(cfg, ctrlclient.Options{})
	Expect(err).NotTo(HaveOccurred())
	err = c.Get(ctx, types.NamespacedName{Namespace: obj.GetNamespace(), Name: obj.GetName()}, u)
	return err == nil
}

var _ = Describe("Applying the installation", func() {
	var namespace string

	BeforeEach(func() {
		namespace = fmt.Sprintf("postal-%d", time.Now().UnixNano())
	})

	It("creates every declared object with the integrated database", func() {
		st := buildStack(namespace, nil)
		applyAll(st)

		for _, obj := range st.Objects() {
			Expect(exists(obj)).To(BeTrue(), "%s/%s should exist",
				obj.GetObjectKind().GroupVersionKind().Kind, obj.GetName())
		}

		secret, err := kc.GetSecret(ctx, namespace, naming.AdminSecret(st.Settings.Name))
		Expect(err).NotTo(HaveOccurred())
		Expect(secret).NotTo(BeNil())
		Expect(string(secret.Data[postal.KeyAdminPassword])).To(Equal("admin-pass"))
	})

	It("is idempotent for everything but the init Job", func() {
		st := buildStack(namespace, nil)
		applyAll(st)

		for _, obj := range st.Objects() {
			if obj == ctrlclient.Object(st.Postal.InitJob) {
				continue
			}
			Expect(kc.Apply(ctx, obj)).To(Succeed())
		}
	})

	It("does not declare a database in external mode", func() {
		st := buildStack(namespace, func(s *config.Settings) {
			s.Database.External = true
			s.Database.Host = "db.internal"
		})
		Expect(st.Database).To(BeNil())
		applyAll(st)

		for _, obj := range st.Objects() {
			Expect(exists(obj)).To(BeTrue())
		}
	})

	It("keeps the volume claim when tearing down with keep-data", func() {
		st := buildStack(namespace, nil)
		applyAll(st)

		for _, obj := range st.TeardownObjects(true) {
			Expect(kc.Delete(ctx, obj)).To(Succeed())
		}
		Expect(exists(st.Database.VolumeClaim)).To(BeTrue())

		Expect(kc.Delete(ctx, st.Database.VolumeClaim)).To(Succeed())
		Expect(kc.Delete(ctx, st.Database.VolumeClaim)).To(Succeed(), "deleting twice is not an error")
	})

	It("reports a pending load balancer address", func() {
		st := buildStack(namespace, nil)
		applyAll(st)

		svc := st.Postal.SMTPService
		Expect(svc.Spec.Type).To(Equal(corev1.ServiceTypeLoadBalancer))
		addr, err := kc.LoadBalancerAddress(ctx, svc.Namespace, svc.Name)
		Expect(err).NotTo(HaveOccurred())
		Expect(addr).To(BeEmpty())
	})

	It("sets the field manager on applied objects", func() {
		st := buildStack(namespace, nil)
		applyAll(st)

		cm := &corev1.Secret{}
		c, err := ctrlclient.New(cfg, ctrlclient.Options{})
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Get(ctx, ctrlclient.ObjectKeyFromObject(st.Postal.ConfigSecret), cm)).To(Succeed())

		var managers []string
		for _, mf := range cm.ManagedFields {
			managers = append(managers, mf.Manager)
		}
		Expect(managers).To(ContainElement(kube.FieldManager))
	})
})
