package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: one sync
schema: ../schema
steps:
  - sync: Person
    payload: {uid: u1}
assertions:
  - type: count
    entity: Person
    count: 1
`

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/acme_owner.yaml")
	require.NoError(t, err)

	assert.Equal(t, "acme_owner", s.Name)
	assert.Equal(t, filepath.Join("testdata", "schema"), s.Schema)
	require.Len(t, s.Steps, 3)

	first := s.Steps[0]
	assert.Equal(t, "Company", first.Sync)
	assert.Equal(t, "name", first.Key)
	assert.Equal(t, "Acme", first.Value)
	require.NotNil(t, first.Expect)
	require.NotNil(t, first.Expect.Inserted)
	assert.Equal(t, 2, *first.Expect.Inserted)
	assert.Nil(t, first.Expect.Updated)

	assert.Equal(t, "1h", s.Steps[1].Advance)

	require.Len(t, s.Assertions, 2)
	assert.Equal(t, AssertEntity, s.Assertions[1].Type)
	assert.Equal(t, []any{"u1"}, s.Assertions[1].Relations["owner"])
	assert.Contains(t, s.Assertions[1].Expect, "city")
	assert.Nil(t, s.Assertions[1].Expect["city"])
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	base, err := filepath.Abs("testdata/scenarios")
	require.NoError(t, err)

	s, err := LoadScenarioWithBasePath(path, base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "..", "schema"), s.Schema)

	_, err = LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema directory not found")
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestStepPayloadsKeepNulls(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: nulls
description: explicit nulls survive parsing
schema: x
steps:
  - sync: Company
    payload: {name: Acme, address: {city: null}, size: 2.5}
assertions:
  - type: count
    entity: Company
    count: 1
`))
	require.NoError(t, err)

	payloads, err := s.Steps[0].payloads()
	require.NoError(t, err)
	require.Len(t, payloads, 1)

	got := string(mustCanonical(t, payloads[0]))
	assert.Equal(t, `{"address":{"city":null},"name":"Acme","size":2.5}`, got)
}

func TestParseScenarioValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nschema: s\nsteps: [{advance: 1s}]\nassertions: [{type: count, entity: A}]\n",
			want: "name is required",
		},
		{
			name: "missing schema",
			yaml: "name: n\ndescription: d\nsteps: [{advance: 1s}]\nassertions: [{type: count, entity: A}]\n",
			want: "schema is required",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\nschema: s\nassertions: [{type: count, entity: A}]\n",
			want: "steps list is required",
		},
		{
			name: "no assertions",
			yaml: "name: n\ndescription: d\nschema: s\nsteps: [{advance: 1s}]\n",
			want: "assertions list is required",
		},
		{
			name: "empty step",
			yaml: "name: n\ndescription: d\nschema: s\nsteps: [{}]\nassertions: [{type: count, entity: A}]\n",
			want: "steps[0]: sync or advance is required",
		},
		{
			name: "sync and advance",
			yaml: "name: n\ndescription: d\nschema: s\nsteps: [{sync: A, advance: 1s}]\nassertions: [{type: count, entity: A}]\n",
			want: "mutually exclusive",
		},
		{
			name: "bad duration",
			yaml: "name: n\ndescription: d\nschema: s\nsteps: [{advance: soon}]\nassertions: [{type: count, entity: A}]\n",
			want: "invalid advance",
		},
		{
			name: "sync without payload",
			yaml: "name: n\ndescription: d\nschema: s\nsteps: [{sync: A}]\nassertions: [{type: count, entity: A}]\n",
			want: "payload or payloads is required",
		},
		{
			name: "key without value",
			yaml: "name: n\ndescription: d\nschema: s\nsteps: [{sync: A, key: id, payload: {}}]\nassertions: [{type: count, entity: A}]\n",
			want: "key and value must be given together",
		},
		{
			name: "key with batch",
			yaml: "name: n\ndescription: d\nschema: s\nsteps: [{sync: A, key: id, value: 1, payloads: [{}]}]\nassertions: [{type: count, entity: A}]\n",
			want: "key is not allowed with payloads",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nschema: s\nsteps: [{advance: 1s}]\nassertions: [{type: vibes, entity: A}]\n",
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "entity without where",
			yaml: "name: n\ndescription: d\nschema: s\nsteps: [{advance: 1s}]\nassertions: [{type: entity, entity: A, expect: {x: 1}}]\n",
			want: "where is required",
		},
		{
			name: "entity without expectations",
			yaml: "name: n\ndescription: d\nschema: s\nsteps: [{advance: 1s}]\nassertions: [{type: entity, entity: A, where: {x: 1}}]\n",
			want: "expect or relations is required",
		},
		{
			name: "unknown field",
			yaml: "name: n\ndescription: d\nschema: s\nstep: []\n",
			want: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
