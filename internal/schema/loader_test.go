package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personYAML = `
entities:
  - name: Tag
    identity: slug
    properties:
      - name: slug
      - name: label
        key: title
`

// cuePackage prefixes src with a package clause so the directory loader
// picks it up.
func cuePackage(src string) string {
	return "package entities\n" + src
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDirCUEAndYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "company.cue", cuePackage(companySchema))
	writeFile(t, dir, "tags.yaml", personYAML)

	result, errs := LoadDir(dir, LoadModeCollectAll)
	require.Empty(t, errs)

	assert.Equal(t, 2, result.FileCount())
	require.Len(t, result.Decls, 3)
	assert.Equal(t, "Company", result.Decls[0].Name)
	assert.Equal(t, "Tag", result.Decls[2].Name)
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "company.cue", cuePackage(companySchema))

	reg, err := LoadRegistry(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"Company", "Person"}, reg.Names())
}

func TestLoadDirMissing(t *testing.T) {
	_, errs := LoadDir(filepath.Join(t.TempDir(), "nope"), LoadModeFailFast)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadDirNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "file.cue", cuePackage(companySchema))

	_, errs := LoadDir(filepath.Join(dir, "file.cue"), LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "not a directory")
}

func TestLoadDirEmpty(t *testing.T) {
	_, errs := LoadDir(t.TempDir(), LoadModeFailFast)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}

func TestLoadDirCollectsYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "entities: []\n")
	writeFile(t, dir, "b.yaml", "entities:\n  - name: Ok\n")
	writeFile(t, dir, "c.yml", "entities:\n  - nme: typo\n")

	result, errs := LoadDir(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)
	for _, err := range errs {
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, ErrCodeYAMLFailed, loadErr.Code)
	}
	require.Len(t, result.Decls, 1)
	assert.Equal(t, "Ok", result.Decls[0].Name)
}

func TestLoadDirCUEError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.cue", cuePackage(`entity: Bad: relationship: r: {cardinality: "one"}`))

	_, errs := LoadDir(dir, LoadModeFailFast)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "relationship target is required")
}

func TestParseYAML(t *testing.T) {
	decls, err := ParseYAML([]byte(`
entities:
  - name: Company
    identity: id
    properties:
      - name: id
        transformer: StringToInt
      - name: name
        meta:
          map.key: company_name
    relationships:
      - name: employees
        target: Person
        cardinality: many
        id: id
  - name: Person
    properties:
      - name: id
`))
	require.NoError(t, err)
	require.Len(t, decls, 2)

	reg, err := Build(decls)
	require.NoError(t, err)

	company, _ := reg.Lookup("Company")
	id, _ := company.Property("id")
	assert.Equal(t, "StringToInt", id.Transformer)
	name, _ := company.Property("name")
	assert.Equal(t, "company_name", name.Key)
	employees, _ := company.Relationship("employees")
	assert.Equal(t, ToMany, employees.Cardinality)
	assert.Equal(t, "id", employees.IDKey)
}

func TestParseYAMLValidation(t *testing.T) {
	_, err := ParseYAML([]byte("entities:\n  - name: Company\n    relationships:\n      - name: r\n        target: Person\n        cardinality: lots\n"))
	require.Error(t, err)

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, ErrInvalidDeclaration, buildErr.Issues[0].Code)
	assert.Contains(t, buildErr.Issues[0].Field, "Cardinality")
}

func TestParseYAMLUnknownField(t *testing.T) {
	_, err := ParseYAML([]byte("entities:\n  - name: A\n    identiy: id\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identiy")
}
