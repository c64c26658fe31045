package labels

import (
	k8slabels "k8s.io/apimachinery/pkg/labels"
)

// Recommended Kubernetes label keys.
const (
	// KeyName identifies the application (postal, mariadb)
	KeyName = "app.kubernetes.io/name"

	// KeyInstance identifies the installation, equal to the name prefix
	KeyInstance = "app.kubernetes.io/instance"

	// KeyComponent identifies the role inside the installation
	KeyComponent = "app.kubernetes.io/component"

	// KeyPartOf groups every object of one Postal installation
	KeyPartOf = "app.kubernetes.io/part-of"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "app.kubernetes.io/managed-by"
)

// Application names.
const (
	AppPostal  = "postal"
	AppMariaDB = "mariadb"
)

// Component values
const (
	ComponentWeb      = "web"
	ComponentSMTP     = "smtp"
	ComponentWorker   = "worker"
	ComponentInit     = "init"
	ComponentConfig   = "config"
	ComponentDatabase = "database"
	ComponentBackup   = "backup"
)

// ManagedByK8postal is the managed-by value for every object this tool writes.
const ManagedByK8postal = "k8postal"

// LabelBuilder provides a fluent interface for building object labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the instance pre-set.
func NewLabelBuilder(instance string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyInstance:  instance,
			KeyPartOf:    AppPostal,
			KeyManagedBy: ManagedByK8postal,
		},
	}
}

// WithName sets the application name label.
func (lb *LabelBuilder) WithName(name string) *LabelBuilder {
	lb.labels[KeyName] = name
	return lb
}

// WithComponent sets the component label (web, smtp, worker, ...).
func (lb *LabelBuilder) WithComponent(component string) *LabelBuilder {
	lb.labels[KeyComponent] = component
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// Selector returns the immutable subset used in Deployment and Service selectors.
// It never contains managed-by or part-of so relabeling never breaks a selector.
func Selector(instance, name, component string) map[string]string {
	return map[string]string{
		KeyName:      name,
		KeyInstance:  instance,
		KeyComponent: component,
	}
}

// SelectorForInstance returns a label selector string matching every object
// of one installation.
func SelectorForInstance(instance string) string {
	return k8slabels.SelectorFromSet(k8slabels.Set{
		KeyInstance:  instance,
		KeyManagedBy: ManagedByK8postal,
	}).String()
}
