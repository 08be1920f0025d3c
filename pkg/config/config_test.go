package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gqlc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults and paths", func(t *testing.T) {
		path := writeConfig(t, `
projects:
  - name: web
    schema: [schema/*.graphql]
    include: ["src/**/*.{graphql,ts}"]
    output: src/__generated__
    persist:
      url: http://localhost:8080/persist
    validateModuleNames: true
    snapshot: .gqlc/web.snapshot
  - name: admin
    schema: [admin/schema.graphql]
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		root := filepath.Dir(path)

		assert.Equal(t, root, cfg.Root)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 50*time.Millisecond, cfg.Debounce)
		require.Len(t, cfg.Projects, 2)

		web := cfg.Projects[0]
		assert.Equal(t, filepath.Join(root, "src", "__generated__"), web.Output)
		assert.Equal(t, filepath.Join(root, ".gqlc", "web.snapshot"), web.Snapshot)
		assert.True(t, web.ValidateModuleNames)
		require.NotNil(t, web.Persist)
		assert.Equal(t, 4, web.Persist.Concurrency)

		admin, ok := cfg.Project("admin")
		require.True(t, ok)
		assert.Equal(t, []string{"**/*.graphql"}, admin.Include)
		assert.Equal(t, filepath.Join(root, "__generated__"), admin.Output)
		assert.Nil(t, admin.Persist)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("GQLC_LOGLEVEL", "debug")
		t.Setenv("GQLC_CONCURRENCY", "3")
		cfg, err := Load(writeConfig(t, `
projects:
  - name: web
    schema: [schema.graphql]
`))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, 3, cfg.Concurrency)
	})

	t.Run("errors", func(t *testing.T) {
		for name, tc := range map[string]struct {
			content string
			err     error
		}{
			"no projects":    {content: "logLevel: info\n", err: ErrNoProjects},
			"no name":        {content: "projects:\n  - schema: [s.graphql]\n", err: ErrInvalidProject},
			"no schema":      {content: "projects:\n  - name: web\n", err: ErrInvalidProject},
			"duplicate":      {content: "projects:\n  - name: web\n    schema: [a.graphql]\n  - name: web\n    schema: [b.graphql]\n", err: ErrDuplicateProject},
			"persist no url": {content: "projects:\n  - name: web\n    schema: [a.graphql]\n    persist:\n      retries: 2\n", err: ErrInvalidProject},
			"invalid glob":   {content: "projects:\n  - name: web\n    schema: [\"a/[.graphql\"]\n", err: ErrInvalidProject},
		} {
			t.Run(name, func(t *testing.T) {
				_, err := Load(writeConfig(t, tc.content))
				assert.True(t, errors.Is(err, tc.err), "got %v", err)
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestPrint(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
projects:
  - name: web
    schema: [schema.graphql]
`))
	require.NoError(t, err)

	buff := &bytes.Buffer{}
	require.NoError(t, cfg.Print(buff))

	printed := Config{}
	require.NoError(t, yaml.Unmarshal(buff.Bytes(), &printed))
	require.Len(t, printed.Projects, 1)
	assert.Equal(t, "web", printed.Projects[0].Name)
	assert.Equal(t, cfg.Projects[0].Output, printed.Projects[0].Output)
	assert.NotContains(t, buff.String(), "persist:")
}
