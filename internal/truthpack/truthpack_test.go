// File: internal/truthpack/truthpack_test.go
package truthpack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeTruthpackFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("missing directory yields an empty truthpack", func(t *testing.T) {
		t.Parallel()
		pack, err := Load(t.TempDir(), zap.NewNop())
		require.NoError(t, err)
		assert.Empty(t, pack.Routes)
		assert.Empty(t, pack.Env)
		assert.Empty(t, pack.Contracts)
	})

	t.Run("loads every section from the fixed layout", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		dir := filepath.Join(root, Dir)

		writeTruthpackFile(t, dir, "routes.json", `[
			{"method": "GET", "path": "/health", "handler": "healthHandler"},
			{"method": "POST", "path": "/orders"}
		]`)
		writeTruthpackFile(t, dir, "env.json", `[
			{"name": "DATABASE_URL", "required": true},
			{"name": "LOG_LEVEL", "required": false, "default": "info"}
		]`)
		writeTruthpackFile(t, dir, "auth.yaml", `
scheme: bearer
roles:
  - admin
  - reader
rules:
  /orders: admin
`)
		writeTruthpackFile(t, dir, "contracts.yaml", `
- name: billing-api
  version: "2.1.0"
  path: contracts/billing.yaml
`)

		pack, err := Load(root, zap.NewNop())
		require.NoError(t, err)

		require.Len(t, pack.Routes, 2)
		assert.Equal(t, "GET", pack.Routes[0].Method)
		assert.Equal(t, "/health", pack.Routes[0].Path)

		require.Len(t, pack.Env, 2)
		assert.True(t, pack.Env[0].Required)
		assert.Equal(t, "info", pack.Env[1].Default)

		assert.Equal(t, "bearer", pack.Auth.Scheme)
		assert.Equal(t, []string{"admin", "reader"}, pack.Auth.Roles)
		assert.Equal(t, "admin", pack.Auth.Rules["/orders"])

		require.Len(t, pack.Contracts, 1)
		assert.Equal(t, "billing-api", pack.Contracts[0].Name)
		assert.Equal(t, "2.1.0", pack.Contracts[0].Version)
	})

	t.Run("individual files may be absent", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTruthpackFile(t, filepath.Join(root, Dir), "routes.json", `[{"method":"GET","path":"/"}]`)

		pack, err := Load(root, zap.NewNop())
		require.NoError(t, err)
		assert.Len(t, pack.Routes, 1)
		assert.Empty(t, pack.Env)
	})

	t.Run("an unparsable file is an error, not an empty section", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		writeTruthpackFile(t, filepath.Join(root, Dir), "routes.json", `{broken`)

		_, err := Load(root, zap.NewNop())
		assert.Error(t, err)
	})
}
