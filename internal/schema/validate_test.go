package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/entsync/internal/transform"
)

func codes(issues []ValidationError) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Code
	}
	return out
}

func TestValidateClean(t *testing.T) {
	issues := Validate(mustCompile(t, companySchema), transform.Default())
	assert.Empty(t, issues)
}

func TestValidateDuplicateEntity(t *testing.T) {
	issues := Validate([]EntityDecl{{Name: "A"}, {Name: "A"}}, nil)
	assert.Contains(t, codes(issues), ErrDuplicateEntity)
}

func TestValidateDuplicateField(t *testing.T) {
	issues := Validate([]EntityDecl{
		{
			Name:       "A",
			Properties: []PropertyDecl{{Name: "x"}, {Name: "x"}},
			Relationships: []RelationshipDecl{
				{Name: "x", Target: "A", Cardinality: "one", ID: "x"},
			},
		},
	}, nil)

	assert.Equal(t, []string{ErrDuplicateField, ErrDuplicateField}, codes(issues))
}

func TestValidateUnknownIdentity(t *testing.T) {
	issues := Validate([]EntityDecl{{Name: "A", Identity: "id"}}, nil)
	assert.Equal(t, []string{ErrUnknownIdentity}, codes(issues))
}

func TestValidateInvalidCardinality(t *testing.T) {
	issues := Validate([]EntityDecl{{
		Name:          "A",
		Properties:    []PropertyDecl{{Name: "id"}},
		Relationships: []RelationshipDecl{{Name: "r", Target: "A", Cardinality: "several", ID: "id"}},
	}}, nil)

	assert.Contains(t, codes(issues), ErrInvalidCardinality)
	assert.Contains(t, codes(issues), ErrInvalidDeclaration)
}

func TestValidateStructRules(t *testing.T) {
	issues := Validate([]EntityDecl{{Name: "has space"}}, nil)
	assert.Equal(t, []string{ErrInvalidDeclaration}, codes(issues))
	assert.Contains(t, issues[0].Field, "Name")
	assert.Contains(t, issues[0].Message, "identifier")
}

func TestValidateWarnings(t *testing.T) {
	issues := Validate([]EntityDecl{
		{
			Name: "A",
			Properties: []PropertyDecl{
				{Name: "id"},
				{Name: "price", Transformer: "Cents"},
			},
			Relationships: []RelationshipDecl{
				{Name: "noid", Target: "B", Cardinality: "one"},
				{Name: "badid", Target: "B", Cardinality: "many", ID: "missing"},
			},
		},
		{Name: "B", Properties: []PropertyDecl{{Name: "id"}}},
	}, transform.Default())

	assert.Equal(t, []string{WarnUnknownTransformer, WarnUnresolvable, WarnUnknownIDField}, codes(issues))
	assert.Empty(t, Errors(issues))
	assert.Len(t, Warnings(issues), 3)
	for _, issue := range issues {
		assert.True(t, issue.IsWarning())
	}
}

func TestValidationErrorFormat(t *testing.T) {
	err := ValidationError{Field: "entity.A", Message: "bad", Code: "E121"}
	assert.Equal(t, "[E121] entity.A: bad", err.Error())

	err.Line = 4
	assert.Equal(t, "[E121] line 4: entity.A: bad", err.Error())
}
