package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "entsync", cmd.Use)
	assert.Contains(t, cmd.Long, "SQLite object store")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"validate", "sync", "query", "test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	driver := cmd.PersistentFlags().Lookup("driver")
	require.NotNil(t, driver)
	assert.Equal(t, "sqlite3", driver.DefValue)

	for _, name := range []string{"db", "schema"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Empty(t, flag.DefValue)
	}
}

func TestSyncAndQueryRequireEntity(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"sync", "query"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		entity := sub.Flags().Lookup("entity")
		require.NotNil(t, entity, name)
		assert.Equal(t, []string{"true"}, entity.Annotations["cobra_annotation_bash_completion_one_required_flag"])
	}
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := execute(t, "", "validate", "--format", "xml", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestInvalidDriver(t *testing.T) {
	_, _, err := execute(t, "", "validate", "--driver", "postgres", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid driver "postgres"`)
}
