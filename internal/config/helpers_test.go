package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/imamik/k8postal/internal/util/keygen"
)

// testSecrets returns a complete secret set with a freshly generated signing key.
func testSecrets(t *testing.T) Secrets {
	t.Helper()
	key, err := keygen.GenerateSigningKey(1024)
	require.NoError(t, err)

	return Secrets{
		DatabasePassword:     "app-pass",
		DatabaseRootPassword: "root-pass",
		SigningKey:           key.PrivateKey,
	}
}

func int32Ptr(v int32) *int32 { return &v }

func boolPtr(v bool) *bool { return &v }
