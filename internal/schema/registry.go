package schema

// Registry holds compiled entity descriptions by name.
// It is immutable after Build and safe for concurrent use.
type Registry struct {
	entities map[string]*EntityDescription
	order    []*EntityDescription
	warnings []ValidationError
}

// Build validates decls and compiles them into a Registry. Relationship
// targets are linked by pointer, so cyclic graphs (Company.owner ->
// Person, Person.employer -> Company) are fine.
//
// Warnings do not fail the build; they are available from Warnings.
func Build(decls []EntityDecl) (*Registry, error) {
	issues := Validate(decls, nil)
	if errs := Errors(issues); len(errs) > 0 {
		return nil, &BuildError{Issues: errs}
	}

	r := &Registry{
		entities: make(map[string]*EntityDescription, len(decls)),
		warnings: Warnings(issues),
	}

	for _, decl := range decls {
		desc := &EntityDescription{
			Name:     decl.Name,
			Identity: decl.Identity,
		}
		for _, p := range decl.Properties {
			desc.Properties = append(desc.Properties, newPropertyDescriptor(p))
		}
		r.entities[desc.Name] = desc
		r.order = append(r.order, desc)
	}

	for i, decl := range decls {
		desc := r.order[i]
		for _, rd := range decl.Relationships {
			// Validate has already rejected bad cardinalities.
			card, _ := ParseCardinality(rd.Cardinality)
			rel := newRelationshipDescriptor(rd, card)
			rel.Target = r.entities[rd.Target]
			desc.Relationships = append(desc.Relationships, rel)
		}
	}

	return r, nil
}

// MustBuild is like Build but panics on error.
// Use only in tests or with declarations known to be valid.
func MustBuild(decls []EntityDecl) *Registry {
	r, err := Build(decls)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the description of the named entity.
func (r *Registry) Lookup(name string) (*EntityDescription, bool) {
	desc, ok := r.entities[name]
	return desc, ok
}

// Entities returns all descriptions in declaration order.
func (r *Registry) Entities() []*EntityDescription {
	return append([]*EntityDescription(nil), r.order...)
}

// Names returns all entity names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	for i, desc := range r.order {
		names[i] = desc.Name
	}
	return names
}

// PropertiesOf returns the property descriptors of the named entity, or
// nil when it is unknown.
func (r *Registry) PropertiesOf(entity string) []PropertyDescriptor {
	if desc, ok := r.entities[entity]; ok {
		return desc.Properties
	}
	return nil
}

// RelationshipsOf returns the relationship descriptors of the named entity,
// or nil when it is unknown.
func (r *Registry) RelationshipsOf(entity string) []RelationshipDescriptor {
	if desc, ok := r.entities[entity]; ok {
		return desc.Relationships
	}
	return nil
}

// Warnings returns the warning-level issues found while building.
func (r *Registry) Warnings() []ValidationError {
	return r.warnings
}
