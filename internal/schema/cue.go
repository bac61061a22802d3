package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileEntity parses a CUE value into an EntityDecl.
// Uses the CUE SDK's Go API directly.
//
// The value should be the entity struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`entity: Company: { ... }`)
//	decl, err := CompileEntity(v.LookupPath(cue.ParsePath("entity.Company")))
func CompileEntity(v cue.Value) (*EntityDecl, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	decl := &EntityDecl{}

	// Entity name comes from the struct label.
	sels := v.Path().Selectors()
	if len(sels) > 0 {
		decl.Name = labelOf(sels[len(sels)-1])
	}

	if idVal := v.LookupPath(cue.ParsePath("identity")); idVal.Exists() {
		identity, err := idVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		decl.Identity = identity
	}

	props, err := parseProperties(v)
	if err != nil {
		return nil, err
	}
	decl.Properties = props

	rels, err := parseRelationships(v)
	if err != nil {
		return nil, err
	}
	decl.Relationships = rels

	return decl, nil
}

// parseProperties extracts property declarations in source order.
func parseProperties(v cue.Value) ([]PropertyDecl, error) {
	propVal := v.LookupPath(cue.ParsePath("property"))
	if !propVal.Exists() {
		return nil, nil
	}

	iter, err := propVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var props []PropertyDecl
	for iter.Next() {
		name := labelOf(iter.Selector())
		meta, err := parseMeta(iter.Value(), "property."+name, nil)
		if err != nil {
			return nil, err
		}
		props = append(props, PropertyDecl{Name: name, Meta: meta})
	}
	return props, nil
}

// parseRelationships extracts relationship declarations in source order.
func parseRelationships(v cue.Value) ([]RelationshipDecl, error) {
	relVal := v.LookupPath(cue.ParsePath("relationship"))
	if !relVal.Exists() {
		return nil, nil
	}

	iter, err := relVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var rels []RelationshipDecl
	for iter.Next() {
		name := labelOf(iter.Selector())
		relValue := iter.Value()
		field := "relationship." + name

		rel := RelationshipDecl{Name: name}

		targetVal := relValue.LookupPath(cue.ParsePath("target"))
		if !targetVal.Exists() {
			return nil, &CompileError{
				Field:   field + ".target",
				Message: "relationship target is required",
				Pos:     relValue.Pos(),
			}
		}
		if rel.Target, err = targetVal.String(); err != nil {
			return nil, formatCUEError(err)
		}

		rel.Cardinality = ToOne.String()
		if cardVal := relValue.LookupPath(cue.ParsePath("cardinality")); cardVal.Exists() {
			if rel.Cardinality, err = cardVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}

		rel.Meta, err = parseMeta(relValue, field, map[string]bool{"target": true, "cardinality": true})
		if err != nil {
			return nil, err
		}

		rels = append(rels, rel)
	}
	return rels, nil
}

// parseMeta reads the string fields of a struct as a metadata mapping,
// skipping the labels in reserved.
func parseMeta(v cue.Value, field string, reserved map[string]bool) (map[string]string, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	meta := make(map[string]string)
	for iter.Next() {
		key := labelOf(iter.Selector())
		if reserved[key] {
			continue
		}
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s.%s", field, key),
				Message: "metadata values must be strings",
				Pos:     iter.Value().Pos(),
			}
		}
		meta[key] = s
	}
	return meta, nil
}

// labelOf returns the unquoted label of a field selector.
func labelOf(sel cue.Selector) string {
	if sel.IsString() && !sel.IsConstraint() {
		return sel.Unquoted()
	}
	return sel.String()
}

// CompileCUE compiles CUE source and returns the declarations under its
// top-level entity field.
func CompileCUE(src, filename string) ([]EntityDecl, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	decls, errs := compileEntities(v, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	return decls, nil
}

// compileEntities compiles every field of the entity struct in v.
func compileEntities(v cue.Value, mode LoadMode) ([]EntityDecl, []error) {
	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, nil
	}

	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var (
		decls []EntityDecl
		errs  []error
	)
	for iter.Next() {
		decl, err := CompileEntity(iter.Value())
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return decls, errs
			}
			continue
		}
		decls = append(decls, *decl)
	}
	return decls, errs
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
