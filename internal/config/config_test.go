package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	c, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, root, c.Root)
	assert.Equal(t, DefaultDatabase, c.Database)
	assert.Equal(t, DefaultBatchSize, c.BatchSize)
	assert.Positive(t, c.Workers)
	require.Len(t, c.Contexts, 1)
	assert.Equal(t, DefaultContext, c.Contexts[0].Name)
	assert.Equal(t, []string{"."}, c.Contexts[0].Roots)
}

func TestLoad_ProjectFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	body := `
database   = "build/quarry.db"
batch_size = 20
workers    = 2

[[context]]
name      = "core"
roots     = ["core/src"]
libraries = ["libs/acme.yaml"]
exclude   = ["**/generated/**"]

[[context]]
name  = "app"
roots = ["app/src", "app/gen"]
`
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(body), 0o644))

	c, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "build/quarry.db", c.Database)
	assert.Equal(t, filepath.Join(root, "build/quarry.db"), c.Path(c.Database))
	assert.Equal(t, 20, c.BatchSize)
	assert.Equal(t, 2, c.Workers)
	require.Len(t, c.Contexts, 2)

	core, ok := c.Context("core")
	require.True(t, ok)
	assert.Equal(t, []string{"libs/acme.yaml"}, core.Libraries)
	assert.True(t, core.Excluded("core/src/generated/Foo.java"))
	assert.False(t, core.Excluded("core/src/main/Foo.java"))

	_, ok = c.Context("missing")
	assert.False(t, ok)
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"negative batch", "batch_size = -1\n"},
		{"negative workers", "workers = -3\n"},
		{"duplicate context", "[[context]]\nname = \"a\"\nroots = [\".\"]\n[[context]]\nname = \"a\"\nroots = [\"x\"]\n"},
		{"unnamed context", "[[context]]\nroots = [\".\"]\n"},
		{"no roots", "[[context]]\nname = \"a\"\n"},
		{"bad glob", "[[context]]\nname = \"a\"\nroots = [\".\"]\nexclude = [\"[\"]\n"},
		{"not toml", "batch_size = = 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse("/p", []byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestPath_Absolute(t *testing.T) {
	t.Parallel()
	c := Default("/project")
	assert.Equal(t, "/var/db", c.Path("/var/db"))
	assert.Equal(t, filepath.Join("/project", "libs/a.yaml"), c.Path("libs/a.yaml"))
}
