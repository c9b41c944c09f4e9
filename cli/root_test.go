package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/catalog/pkg/config"
)

const componentDoc = `apiVersion: backstage.io/v1alpha1
kind: Component
metadata:
  name: billing
spec:
  type: service
  lifecycle: production
  owner: team-a
`

const unknownDoc = `apiVersion: backstage.io/v1alpha1
kind: Widget
metadata:
  name: gadget
spec: {}
`

func writeDescriptor(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := RootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestSetupGlobalConfig(t *testing.T) {
	t.Run("Should inject YAML configuration into the command context", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "catalog.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  port: 9100\nstore:\n  prefix: test\n"), 0o600))

		cmd := RootCmd()
		cmd.SetContext(t.Context())
		require.NoError(t, cmd.ParseFlags([]string{"--env-file=", "--config", cfgPath}))

		require.NoError(t, SetupGlobalConfig(cmd))
		cfg := config.FromContext(cmd.Context())
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, "test", cfg.Store.Prefix)
	})

	t.Run("Should let changed flags override the configuration file", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "catalog.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("log:\n  level: warn\n"), 0o600))

		cmd := RootCmd()
		cmd.SetContext(t.Context())
		require.NoError(t, cmd.ParseFlags([]string{"--env-file=", "--config", cfgPath, "--log-level", "debug"}))

		require.NoError(t, SetupGlobalConfig(cmd))
		assert.Equal(t, "debug", config.FromContext(cmd.Context()).Log.Level)
	})

	t.Run("Should fail on an invalid configuration file", func(t *testing.T) {
		dir := t.TempDir()
		cfgPath := filepath.Join(dir, "catalog.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  driver: postgres\n"), 0o600))

		cmd := RootCmd()
		cmd.SetContext(t.Context())
		require.NoError(t, cmd.ParseFlags([]string{"--env-file=", "--config", cfgPath}))

		err := SetupGlobalConfig(cmd)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load configuration")
	})
}

func TestValidateCmd(t *testing.T) {
	t.Run("Should report a clean catalog", func(t *testing.T) {
		dir := t.TempDir()
		writeDescriptor(t, dir, "billing/catalog-info.yaml", componentDoc)

		out, err := execute(t, "validate",
			"--env-file", "",
			"--config", filepath.Join(dir, "missing.yaml"),
			"--root", dir,
			"-o", "json",
		)
		require.NoError(t, err)
		var report Report
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, 1, report.Files)
		assert.Equal(t, 1, report.Stored)
		assert.Empty(t, report.Failures)
	})

	t.Run("Should fail and list entities no kind accepts", func(t *testing.T) {
		dir := t.TempDir()
		writeDescriptor(t, dir, "billing/catalog-info.yaml", componentDoc)
		writeDescriptor(t, dir, "gadget/catalog-info.yaml", unknownDoc)

		out, err := execute(t, "validate",
			"--env-file", "",
			"--config", filepath.Join(dir, "missing.yaml"),
			"--root", dir,
			"-o", "json",
		)
		require.ErrorIs(t, err, ErrInvalidEntities)
		var report Report
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		require.Len(t, report.Failures, 1)
		assert.Equal(t, "UNKNOWN_KIND", report.Failures[0].Code)
		assert.Equal(t, "Widget:default/gadget", report.Failures[0].Entity)
		assert.Equal(t, 1, report.Stored)
	})

	t.Run("Should render a text summary", func(t *testing.T) {
		dir := t.TempDir()
		writeDescriptor(t, dir, "catalog-info.yaml", componentDoc)

		out, err := execute(t, "validate",
			"--env-file", "",
			"--config", filepath.Join(dir, "missing.yaml"),
			"--root", dir,
		)
		require.NoError(t, err)
		assert.Contains(t, out, "1 files, 1 entities, 1 accepted, 0 failed")
	})

	t.Run("Should reject an unknown output format", func(t *testing.T) {
		dir := t.TempDir()
		_, err := execute(t, "validate",
			"--env-file", "",
			"--config", filepath.Join(dir, "missing.yaml"),
			"--root", dir,
			"-o", "xml",
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported output format")
	})
}

func TestIngestCmd(t *testing.T) {
	t.Run("Should store accepted entities in the memory store", func(t *testing.T) {
		dir := t.TempDir()
		writeDescriptor(t, dir, "catalog-info.yaml", componentDoc)

		out, err := execute(t, "ingest",
			"--env-file", "",
			"--config", filepath.Join(dir, "missing.yaml"),
			"--root", dir,
			"--store-driver", "memory",
			"-o", "json",
		)
		require.NoError(t, err)
		var report Report
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, 1, report.Stored)
	})

	t.Run("Should fail fast in strict mode", func(t *testing.T) {
		dir := t.TempDir()
		writeDescriptor(t, dir, "catalog-info.yaml", unknownDoc)

		_, err := execute(t, "ingest",
			"--env-file", "",
			"--config", filepath.Join(dir, "missing.yaml"),
			"--root", dir,
			"--strict",
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INGEST_FILE_FAILED")
	})
}

func TestVersionCmd(t *testing.T) {
	t.Run("Should print build information as JSON", func(t *testing.T) {
		out, err := execute(t, "version", "--env-file", "", "--config", filepath.Join(t.TempDir(), "none.yaml"), "-o", "json")
		require.NoError(t, err)
		var info map[string]string
		require.NoError(t, json.Unmarshal([]byte(out), &info))
		assert.Contains(t, info, "version")
		assert.Contains(t, info, "commit_hash")
	})
}
