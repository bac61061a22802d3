package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entsync/internal/ir"
	"github.com/roach88/entsync/internal/reconcile"
)

const acmePayload = `{"name": "Acme", "address": {"city": "Berlin"}, "owner": {"uid": "u1", "name": "Alice"}}`

type syncResponse struct {
	Status string     `json:"status"`
	Data   SyncResult `json:"data"`
	Error  *CLIError  `json:"error"`
}

func runSyncJSON(t *testing.T, stdin string, args ...string) (syncResponse, error) {
	t.Helper()
	out, _, err := execute(t, stdin, append([]string{"sync", "--format", "json"}, args...)...)

	var resp syncResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp, err
}

func TestSyncFromFile(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")
	schema := schemaDir(t)
	payload := writeFile(t, t.TempDir(), "acme.json", acmePayload)

	resp, err := runSyncJSON(t, "", "--db", db, "--schema", schema, "--entity", "Company", payload)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Company", resp.Data.Entity)
	assert.Equal(t, 1, resp.Data.Payloads)
	assert.Equal(t, int64(1), resp.Data.Seq)
	assert.Len(t, resp.Data.Inserted, 2)
	assert.Empty(t, resp.Data.Updated)

	// Unchanged payloads commit nothing.
	resp, err = runSyncJSON(t, "", "--db", db, "--schema", schema, "--entity", "Company", payload)
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Data.Seq)
	assert.Empty(t, resp.Data.Inserted)
	assert.Empty(t, resp.Data.Updated)
}

func TestSyncFromStdinArray(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")
	stdin := `[{"uid": "u1", "name": "Alice"}, {"uid": "u2", "name": "Bob"}]`

	resp, err := runSyncJSON(t, stdin, "--db", db, "--schema", schemaDir(t), "--entity", "Person", "-")
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Data.Payloads)
	assert.Len(t, resp.Data.Inserted, 2)
}

func TestSyncUpdate(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")
	schema := schemaDir(t)

	_, err := runSyncJSON(t, `{"uid": "u1", "name": "Alice"}`, "--db", db, "--schema", schema, "--entity", "Person")
	require.NoError(t, err)

	resp, err := runSyncJSON(t, `{"uid": "u1", "name": "Alicia"}`, "--db", db, "--schema", schema, "--entity", "Person")
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Data.Seq)
	assert.Empty(t, resp.Data.Inserted)
	assert.Len(t, resp.Data.Updated, 1)
}

func TestSyncWithKey(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")
	schema := schemaDir(t)

	resp, err := runSyncJSON(t, `{"name": "Alice"}`,
		"--db", db, "--schema", schema, "--entity", "Person", "--key", "uid", "--value", "u9")
	require.NoError(t, err)
	require.Len(t, resp.Data.Inserted, 1)

	out, _, err := execute(t, "", "query", "--db", db, "--entity", "Person", "--where", "uid=u9", "--count")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestSyncKeyNeedsSinglePayload(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")

	resp, err := runSyncJSON(t, `[{"name": "A"}, {"name": "B"}]`,
		"--db", db, "--schema", schemaDir(t), "--entity", "Person", "--key", "uid", "--value", "u1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInput, resp.Error.Code)
}

func TestSyncMissingIdentity(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")

	resp, err := runSyncJSON(t, `{"address": {"city": "Berlin"}}`,
		"--db", db, "--schema", schemaDir(t), "--entity", "Company")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, reconcile.IsMissingIdentity(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSync, resp.Error.Code)
}

func TestSyncMalformedPayload(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")

	resp, err := runSyncJSON(t, `[1, 2]`, "--db", db, "--schema", schemaDir(t), "--entity", "Company")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInput, resp.Error.Code)
	assert.ErrorIs(t, err, ir.ErrNotObject)
}

func TestSyncUnknownEntity(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")

	_, _, err := execute(t, "{}", "sync", "--db", db, "--schema", schemaDir(t), "--entity", "Invoice")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `unknown entity "Invoice"`)
}

func TestSyncRequiresFlags(t *testing.T) {
	_, _, err := execute(t, "{}", "sync", "--schema", schemaDir(t), "--entity", "Person")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--db is required")

	_, _, err = execute(t, "{}", "sync", "--db", filepath.Join(t.TempDir(), "s.db"), "--entity", "Person")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--schema is required")
}

func TestSyncPureDriver(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")

	resp, err := runSyncJSON(t, acmePayload,
		"--driver", "sqlite", "--db", db, "--schema", schemaDir(t), "--entity", "Company")
	require.NoError(t, err)
	assert.Len(t, resp.Data.Inserted, 2)
}

func TestSyncMetrics(t *testing.T) {
	db := filepath.Join(t.TempDir(), "store.db")

	out, errOut, err := execute(t, acmePayload,
		"sync", "--metrics", "--db", db, "--schema", schemaDir(t), "--entity", "Company")
	require.NoError(t, err)
	assert.Contains(t, out, "2 inserted, 0 updated")
	assert.Contains(t, errOut, `entsync_reconcile_entities_total{entity="Company",outcome="inserted"} 1`)
	assert.Contains(t, errOut, `entsync_reconcile_entities_total{entity="Person",outcome="inserted"} 1`)
	assert.Contains(t, errOut, "entsync_store_commits_total 1")
}

func TestSyncResultString(t *testing.T) {
	r := SyncResult{Entity: "Company", Payloads: 2, Seq: 4, Inserted: []string{"a"}, Updated: []string{"b", "c"}}
	assert.Equal(t, "\u2713 2 Company payload(s) committed at seq 4: 1 inserted, 2 updated", r.String())

	r.Seq = 0
	assert.Equal(t, "\u2713 2 Company payload(s) already current", r.String())
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, ir.IRInt(42), parseValue("42"))
	assert.Equal(t, ir.IRString("acme"), parseValue(`"acme"`))
	assert.Equal(t, ir.IRString("acme"), parseValue("acme"))
	assert.Equal(t, ir.IRBool(true), parseValue("true"))
	assert.Equal(t, ir.IRNull{}, parseValue("null"))
}
