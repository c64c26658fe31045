package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLabelBuilder(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		instance string
	}{
		{"default prefix", "postal"},
		{"custom prefix", "mail"},
		{"with numbers", "postal-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := NewLabelBuilder(tt.instance).Build()

			assert.Equal(t, tt.instance, got[KeyInstance])
			assert.Equal(t, AppPostal, got[KeyPartOf])
			assert.Equal(t, ManagedByK8postal, got[KeyManagedBy])
			assert.NotContains(t, got, KeyComponent)
		})
	}
}

func TestLabelBuilder_Chain(t *testing.T) {
	t.Parallel()
	got := NewLabelBuilder("postal").
		WithName(AppMariaDB).
		WithComponent(ComponentDatabase).
		Merge(map[string]string{"team": "mail"}).
		Build()

	assert.Equal(t, map[string]string{
		KeyName:      AppMariaDB,
		KeyInstance:  "postal",
		KeyComponent: ComponentDatabase,
		KeyPartOf:    AppPostal,
		KeyManagedBy: ManagedByK8postal,
		"team":       "mail",
	}, got)
}

func TestLabelBuilder_BuildReturnsCopy(t *testing.T) {
	t.Parallel()
	lb := NewLabelBuilder("postal")
	first := lb.Build()
	first["mutated"] = "yes"

	assert.NotContains(t, lb.Build(), "mutated")
}

func TestSelector(t *testing.T) {
	t.Parallel()
	sel := Selector("postal", AppPostal, ComponentSMTP)

	assert.Len(t, sel, 3)
	assert.Equal(t, ComponentSMTP, sel[KeyComponent])
	assert.NotContains(t, sel, KeyManagedBy)
}

func TestSelectorForInstance(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"app.kubernetes.io/instance=postal,app.kubernetes.io/managed-by=k8postal",
		SelectorForInstance("postal"))
}
