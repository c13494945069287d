package migrate

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nalberthy/url-shorten/migrations"
)

func TestListSQLFilesSortsAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"010_later.sql":   {Data: []byte("select 1;")},
		"001_first.SQL":   {Data: []byte("select 1;")},
		"README.md":       {Data: []byte("docs")},
		"nested/002.sql":  {Data: []byte("select 1;")},
		"002_between.sql": {Data: []byte("select 1;")},
	}
	files, err := ListSQLFiles(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_first.SQL", "002_between.sql", "010_later.sql"}, files)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := ListSQLFiles(migrations.FS)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_init.sql", "002_click_events.sql"}, files)
}

func TestResolveSourcePrefersDir(t *testing.T) {
	dir := t.TempDir()
	_, source, err := resolveSource(Options{Dir: dir, FS: migrations.FS})
	require.NoError(t, err)
	assert.Equal(t, dir, source)

	_, source, err = resolveSource(Options{FS: migrations.FS})
	require.NoError(t, err)
	assert.Equal(t, "embedded", source)
}
