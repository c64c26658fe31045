package helm

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Values represents helm chart values as a map.
type Values map[string]any

// Merge combines multiple Values maps with later maps taking precedence.
// Nested maps are merged recursively.
func Merge(valueMaps ...Values) Values {
	result := make(Values)
	for _, m := range valueMaps {
		result = deepMerge(result, m)
	}
	return result
}

// deepMerge returns base overlaid with override. Neither input is modified.
func deepMerge(base, override Values) Values {
	out := make(Values, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if ov, ok := asMap(v); ok {
			if bv, ok := asMap(out[k]); ok {
				out[k] = deepMerge(bv, ov)
				continue
			}
			out[k] = deepMerge(Values{}, ov)
			continue
		}
		out[k] = v
	}
	return out
}

func asMap(v any) (Values, bool) {
	switch m := v.(type) {
	case Values:
		return m, true
	case map[string]any:
		return Values(m), true
	default:
		return nil, false
	}
}

// ToMap converts nested Values into plain maps, as the Helm engine expects.
func (v Values) ToMap() map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		if m, ok := asMap(val); ok {
			out[k] = m.ToMap()
			continue
		}
		out[k] = val
	}
	return out
}

// ToYAML converts values to YAML bytes.
func (v Values) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(v.ToMap()); err != nil {
		return nil, fmt.Errorf("failed to encode values to YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// FromYAML parses YAML bytes into Values.
func FromYAML(data []byte) (Values, error) {
	var values Values
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML values: %w", err)
	}
	return values, nil
}
