package schema

import (
	"fmt"
	"strings"
)

// Canonical metadata keys.
const (
	MetaKey         = "map.key"
	MetaTransformer = "map.tra"
	MetaObjectID    = "map.o.id"
	MetaJSONID      = "map.j.id"
)

// metaAliases maps declaration-friendly names to canonical metadata keys.
var metaAliases = map[string]string{
	"key":         MetaKey,
	"transformer": MetaTransformer,
	"id":          MetaObjectID,
	"json_id":     MetaJSONID,
}

// NormalizeMeta returns a copy of meta with aliases replaced by their
// canonical keys. A canonical key wins over its alias when both are set.
func NormalizeMeta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if canonical, ok := metaAliases[k]; ok {
			if _, exists := meta[canonical]; exists {
				continue
			}
			k = canonical
		}
		out[k] = v
	}
	return out
}

// Cardinality is the arity of a relationship.
type Cardinality int

const (
	ToOne Cardinality = iota
	ToMany
)

func (c Cardinality) String() string {
	if c == ToMany {
		return "many"
	}
	return "one"
}

// ParseCardinality accepts "one"/"many" and the common to_one/toOne forms.
func ParseCardinality(s string) (Cardinality, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "")) {
	case "one", "toone":
		return ToOne, nil
	case "many", "tomany":
		return ToMany, nil
	}
	return ToOne, fmt.Errorf("invalid cardinality %q, must be \"one\" or \"many\"", s)
}

// PropertyDescriptor describes a scalar attribute of an entity.
type PropertyDescriptor struct {
	Name        string
	Key         string // source JSON key or key path
	Transformer string // empty when values are stored as decoded
	Meta        map[string]string
}

// RelationshipDescriptor describes a link from an entity to one or many
// entities of the target description.
type RelationshipDescriptor struct {
	Name        string
	Key         string // source JSON key or key path
	Cardinality Cardinality
	TargetName  string
	Target      *EntityDescription

	// IDField is the target's database field used to find existing
	// entities. Empty means the relationship is never resolved.
	IDField string
	// IDKey is the JSON key holding the identifier inside each related
	// payload. Defaults to IDField.
	IDKey string

	Meta map[string]string
}

// Resolvable reports whether the relationship has the identifier metadata
// it needs to look up related entities.
func (r RelationshipDescriptor) Resolvable() bool {
	return r.IDField != "" && r.IDKey != "" && r.Target != nil
}

// EntityDescription is the compiled, immutable description of one entity.
// Descriptions are shared by pointer; callers must not modify them.
type EntityDescription struct {
	Name          string
	Identity      string // property name used by payload-driven lookups; may be empty
	Properties    []PropertyDescriptor
	Relationships []RelationshipDescriptor
}

// Property returns the property with the given name.
func (d *EntityDescription) Property(name string) (PropertyDescriptor, bool) {
	for _, p := range d.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return PropertyDescriptor{}, false
}

// Relationship returns the relationship with the given name.
func (d *EntityDescription) Relationship(name string) (RelationshipDescriptor, bool) {
	for _, r := range d.Relationships {
		if r.Name == name {
			return r, true
		}
	}
	return RelationshipDescriptor{}, false
}

// IdentityProperty returns the property named by Identity.
func (d *EntityDescription) IdentityProperty() (PropertyDescriptor, bool) {
	if d.Identity == "" {
		return PropertyDescriptor{}, false
	}
	return d.Property(d.Identity)
}

func newPropertyDescriptor(decl PropertyDecl) PropertyDescriptor {
	meta := decl.meta()
	p := PropertyDescriptor{
		Name:        decl.Name,
		Key:         meta[MetaKey],
		Transformer: meta[MetaTransformer],
		Meta:        meta,
	}
	if p.Key == "" {
		p.Key = p.Name
	}
	return p
}

func newRelationshipDescriptor(decl RelationshipDecl, card Cardinality) RelationshipDescriptor {
	meta := decl.meta()
	r := RelationshipDescriptor{
		Name:        decl.Name,
		Key:         meta[MetaKey],
		Cardinality: card,
		TargetName:  decl.Target,
		IDField:     meta[MetaObjectID],
		IDKey:       meta[MetaJSONID],
		Meta:        meta,
	}
	if r.Key == "" {
		r.Key = r.Name
	}
	if r.IDKey == "" {
		r.IDKey = r.IDField
	}
	return r
}
