package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/entsync/internal/transform"
)

// Validation codes (E120-E139). Codes from E130 up are warnings: the
// declaration compiles, but some payload data will be ignored at runtime.
const (
	ErrInvalidDeclaration = "E120" // struct-level declaration error
	ErrDuplicateEntity    = "E121" // entity declared twice
	ErrDuplicateField     = "E122" // property or relationship name reused
	ErrUnknownTarget      = "E123" // relationship target not declared
	ErrUnknownIdentity    = "E124" // identity names no property
	ErrInvalidCardinality = "E125" // cardinality not one/many

	WarnUnknownTransformer = "E130" // transformer name not registered
	WarnUnresolvable       = "E131" // relationship lacks identifier metadata
	WarnUnknownIDField     = "E132" // identifier field not a target property
)

// Severity distinguishes errors that stop a build from warnings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError represents a schema validation issue.
type ValidationError struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsWarning reports whether the issue does not prevent a build.
func (e ValidationError) IsWarning() bool {
	return e.Severity == SeverityWarning
}

// BuildError is returned by Build when declarations have error-level issues.
type BuildError struct {
	Issues []ValidationError
}

func (e *BuildError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Error()
	}
	return "invalid schema: " + strings.Join(msgs, "; ")
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	return v
}

// structIssues converts validator errors into ValidationErrors.
func structIssues(err error) []ValidationError {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationError{{
			Field:    "declaration",
			Message:  err.Error(),
			Code:     ErrInvalidDeclaration,
			Severity: SeverityError,
		}}
	}

	issues := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("failed %q validation", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %q validation (expected %s), got %q", fe.Tag(), fe.Param(), fmt.Sprint(fe.Value()))
		}
		issues = append(issues, ValidationError{
			Field:    fe.Namespace(),
			Message:  msg,
			Code:     ErrInvalidDeclaration,
			Severity: SeverityError,
		})
	}
	return issues
}

// Validate checks a set of declarations. It returns every issue found
// rather than stopping at the first. When transformers is non-nil,
// transformer names are checked against it.
func Validate(decls []EntityDecl, transformers *transform.Registry) []ValidationError {
	var issues []ValidationError

	byName := make(map[string]*EntityDecl, len(decls))
	for i := range decls {
		decl := &decls[i]
		issues = append(issues, structIssues(validate.Struct(decl))...)

		if _, dup := byName[decl.Name]; dup && decl.Name != "" {
			issues = append(issues, ValidationError{
				Field:    fmt.Sprintf("entity.%s", decl.Name),
				Message:  fmt.Sprintf("duplicate entity name: %q", decl.Name),
				Code:     ErrDuplicateEntity,
				Severity: SeverityError,
			})
			continue
		}
		byName[decl.Name] = decl
	}

	for i := range decls {
		issues = append(issues, validateEntity(&decls[i], byName, transformers)...)
	}
	return issues
}

func validateEntity(decl *EntityDecl, byName map[string]*EntityDecl, transformers *transform.Registry) []ValidationError {
	var issues []ValidationError
	prefix := "entity." + decl.Name

	seen := make(map[string]bool)
	for _, p := range decl.Properties {
		field := fmt.Sprintf("%s.property.%s", prefix, p.Name)
		if seen[p.Name] {
			issues = append(issues, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("duplicate field name: %q", p.Name),
				Code:     ErrDuplicateField,
				Severity: SeverityError,
			})
		}
		seen[p.Name] = true

		if name := p.meta()[MetaTransformer]; name != "" && transformers != nil && !transformers.Has(name) {
			issues = append(issues, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("unknown transformer %q; values will be left untouched", name),
				Code:     WarnUnknownTransformer,
				Severity: SeverityWarning,
			})
		}
	}

	if decl.Identity != "" && !hasProperty(decl, decl.Identity) {
		issues = append(issues, ValidationError{
			Field:    prefix + ".identity",
			Message:  fmt.Sprintf("identity %q is not a declared property", decl.Identity),
			Code:     ErrUnknownIdentity,
			Severity: SeverityError,
		})
	}

	for _, r := range decl.Relationships {
		field := fmt.Sprintf("%s.relationship.%s", prefix, r.Name)
		if seen[r.Name] {
			issues = append(issues, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("duplicate field name: %q", r.Name),
				Code:     ErrDuplicateField,
				Severity: SeverityError,
			})
		}
		seen[r.Name] = true

		if _, err := ParseCardinality(r.Cardinality); err != nil {
			issues = append(issues, ValidationError{
				Field:    field + ".cardinality",
				Message:  err.Error(),
				Code:     ErrInvalidCardinality,
				Severity: SeverityError,
			})
		}

		target, ok := byName[r.Target]
		if !ok {
			issues = append(issues, ValidationError{
				Field:    field + ".target",
				Message:  fmt.Sprintf("unknown target entity %q", r.Target),
				Code:     ErrUnknownTarget,
				Severity: SeverityError,
			})
			continue
		}

		meta := r.meta()
		idField := meta[MetaObjectID]
		if idField == "" {
			issues = append(issues, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("no %s metadata; related payloads will be skipped", MetaObjectID),
				Code:     WarnUnresolvable,
				Severity: SeverityWarning,
			})
			continue
		}
		if !hasProperty(target, idField) {
			issues = append(issues, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("identifier field %q is not a property of %s", idField, target.Name),
				Code:     WarnUnknownIDField,
				Severity: SeverityWarning,
			})
		}
	}

	return issues
}

func hasProperty(decl *EntityDecl, name string) bool {
	for _, p := range decl.Properties {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Errors filters issues down to error-level ones.
func Errors(issues []ValidationError) []ValidationError {
	var out []ValidationError
	for _, issue := range issues {
		if !issue.IsWarning() {
			out = append(out, issue)
		}
	}
	return out
}

// Warnings filters issues down to warning-level ones.
func Warnings(issues []ValidationError) []ValidationError {
	var out []ValidationError
	for _, issue := range issues {
		if issue.IsWarning() {
			out = append(out, issue)
		}
	}
	return out
}
