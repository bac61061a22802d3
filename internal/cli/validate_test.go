package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/entsync/internal/schema"
)

func TestValidateValidSchema(t *testing.T) {
	out, _, err := execute(t, "", "validate", schemaDir(t))
	require.NoError(t, err)
	assert.Equal(t, "\u2713 2 entities valid\n", out)
}

func TestValidateUsesSchemaFlag(t *testing.T) {
	out, _, err := execute(t, "", "validate", "--schema", schemaDir(t))
	require.NoError(t, err)
	assert.Contains(t, out, "2 entities valid")
}

func TestValidateRequiresDirectory(t *testing.T) {
	_, _, err := execute(t, "", "validate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateJSON(t *testing.T) {
	out, _, err := execute(t, "", "validate", "--format", "json", schemaDir(t))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"Company", "Person"}, resp.Data.Entities)
}

func TestValidateWarningsDoNotFail(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "entities.yaml", `
entities:
  - name: Company
    identity: name
    properties:
      - name: name
      - name: revenue
        transformer: Cents
    relationships:
      - name: owner
        target: Person
        cardinality: one
  - name: Person
    properties:
      - name: uid
`)

	out, _, err := execute(t, "", "validate", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 entities valid")
	assert.Contains(t, out, "warning "+schema.WarnUnknownTransformer)
	assert.Contains(t, out, "warning "+schema.WarnUnresolvable)
}

func TestValidateErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "entities.yaml", `
entities:
  - name: Company
    identity: missing
    relationships:
      - name: owner
        target: Ghost
        cardinality: one
        id: uid
`)

	out, _, err := execute(t, "", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "\u2717 Validation failed")
	assert.Contains(t, out, schema.ErrUnknownIdentity)
	assert.Contains(t, out, schema.ErrUnknownTarget)
}

func TestValidateErrorsJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "entities.yaml", "entities:\n  - name: A\n    identity: id\n")

	out, _, err := execute(t, "", "validate", "--format", "json", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  CLIError         `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, schema.ErrUnknownIdentity, resp.Error.Code)
}

func TestValidateMissingDirectory(t *testing.T) {
	out, _, err := execute(t, "", "validate", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+schema.ErrCodeNotFound+"]")
}

func TestValidateLoadErrorsAreCollected(t *testing.T) {
	dir := schemaDir(t)
	writeFile(t, dir, "broken.yaml", "entities:\n  - nme: typo\n")

	out, _, err := execute(t, "", "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, schema.ErrCodeYAMLFailed)
}
