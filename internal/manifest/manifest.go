package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	k8syaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/yaml"
)

// ToUnstructured converts a typed object into its apply form.
// The object must carry TypeMeta.
func ToUnstructured(obj client.Object) (*unstructured.Unstructured, error) {
	if u, ok := obj.(*unstructured.Unstructured); ok {
		return u.DeepCopy(), nil
	}

	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %T: %w", obj, err)
	}
	u := &unstructured.Unstructured{Object: content}
	if u.GetKind() == "" || u.GetAPIVersion() == "" {
		return nil, fmt.Errorf("object %s has no apiVersion/kind", obj.GetName())
	}

	unstructured.RemoveNestedField(u.Object, "status")
	unstructured.RemoveNestedField(u.Object, "metadata", "creationTimestamp")
	removeTemplateTimestamps(u.Object)
	return u, nil
}

// removeTemplateTimestamps drops the null creationTimestamp the converter
// leaves on pod and job templates.
func removeTemplateTimestamps(obj map[string]any) {
	unstructured.RemoveNestedField(obj, "spec", "template", "metadata", "creationTimestamp")
	unstructured.RemoveNestedField(obj, "spec", "jobTemplate", "metadata", "creationTimestamp")
	unstructured.RemoveNestedField(obj, "spec", "jobTemplate", "spec", "template", "metadata", "creationTimestamp")
}

// Marshal encodes one object as YAML.
func Marshal(obj client.Object) ([]byte, error) {
	u, err := ToUnstructured(obj)
	if err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(u.Object)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s %s: %w", u.GetKind(), u.GetName(), err)
	}
	return data, nil
}

// Encode writes objects as a single multi-document YAML stream, in order.
func Encode(w io.Writer, objs []client.Object) error {
	for i, obj := range objs {
		data, err := Marshal(obj)
		if err != nil {
			return err
		}
		if i > 0 {
			if _, err := io.WriteString(w, "---\n"); err != nil {
				return err
			}
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// FileName returns the numbered file name for the object at position index.
// e.g. 03-deployment-postal-mariadb.yaml
func FileName(index int, obj client.Object) (string, error) {
	u, err := ToUnstructured(obj)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d-%s-%s.yaml", index, strings.ToLower(u.GetKind()), u.GetName()), nil
}

// WriteDir writes one file per object into dir, numbered in apply order.
func WriteDir(dir string, objs []client.Object) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(objs))
	for i, obj := range objs {
		name, err := FileName(i, obj)
		if err != nil {
			return nil, err
		}
		data, err := Marshal(obj)
		if err != nil {
			return nil, err
		}

		// Secrets are written too, so keep the files private.
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Decode parses a multi-document YAML stream into unstructured objects.
// Empty documents are skipped.
func Decode(data []byte) ([]*unstructured.Unstructured, error) {
	decoder := k8syaml.NewYAMLOrJSONDecoder(bytes.NewReader(data), 4096)

	var objs []*unstructured.Unstructured
	for docIndex := 0; ; docIndex++ {
		var obj unstructured.Unstructured
		if err := decoder.Decode(&obj.Object); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode manifest document %d: %w", docIndex, err)
		}
		if len(obj.Object) == 0 {
			continue
		}
		if obj.GetKind() == "" {
			return nil, fmt.Errorf("manifest document %d has no kind", docIndex)
		}
		objs = append(objs, &obj)
	}
	return objs, nil
}
