package helm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	t.Parallel()
	base := Values{
		"auth": map[string]any{"database": "postal", "username": "postal"},
		"primary": Values{
			"persistence": Values{"size": "8Gi"},
		},
		"image": "mariadb",
	}
	override := Values{
		"auth":    Values{"username": "mail"},
		"primary": map[string]any{"persistence": map[string]any{"storageClass": "hcloud-volumes"}},
		"image":   "mariadb:11",
	}

	merged := Merge(base, override)

	auth := merged["auth"].(Values)
	assert.Equal(t, "postal", auth["database"])
	assert.Equal(t, "mail", auth["username"])

	persistence := merged["primary"].(Values)["persistence"].(Values)
	assert.Equal(t, "8Gi", persistence["size"])
	assert.Equal(t, "hcloud-volumes", persistence["storageClass"])
	assert.Equal(t, "mariadb:11", merged["image"])

	// inputs untouched
	assert.Equal(t, "postal", base["auth"].(map[string]any)["username"])
}

func TestMerge_ScalarReplacesMap(t *testing.T) {
	t.Parallel()
	merged := Merge(Values{"a": Values{"b": 1}}, Values{"a": "flat"})
	assert.Equal(t, "flat", merged["a"])
}

func TestMerge_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Merge())
	assert.Empty(t, Merge(nil, Values{}))
}

func TestToMap_ConvertsNestedValues(t *testing.T) {
	t.Parallel()
	v := Values{"outer": Values{"inner": Values{"k": "v"}}}
	m := v.ToMap()

	outer, ok := m["outer"].(map[string]any)
	require.True(t, ok)
	inner, ok := outer["inner"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "v", inner["k"])
}

func TestYAMLRoundTrip(t *testing.T) {
	t.Parallel()
	v := Values{"fullnameOverride": "postal-mariadb", "auth": Values{"database": "postal"}}

	data, err := v.ToYAML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "fullnameOverride: postal-mariadb")
	assert.Contains(t, string(data), "  database: postal")

	parsed, err := FromYAML(data)
	require.NoError(t, err)
	assert.Equal(t, "postal-mariadb", parsed["fullnameOverride"])
}

func TestFromYAML_Invalid(t *testing.T) {
	t.Parallel()
	_, err := FromYAML([]byte("a: [b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML values")
}
