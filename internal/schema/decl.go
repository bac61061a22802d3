package schema

// Declaration types are the uncompiled form shared by the CUE and YAML
// front ends. Build turns a set of declarations into a Registry.

// Document is the root of a YAML schema file.
type Document struct {
	Entities []EntityDecl `yaml:"entities" validate:"required,min=1,dive"`
}

// EntityDecl declares one entity.
type EntityDecl struct {
	Name          string             `yaml:"name" validate:"required,identifier"`
	Identity      string             `yaml:"identity,omitempty" validate:"omitempty,identifier"`
	Properties    []PropertyDecl     `yaml:"properties,omitempty" validate:"dive"`
	Relationships []RelationshipDecl `yaml:"relationships,omitempty" validate:"dive"`
}

// PropertyDecl declares a scalar property. Key and Transformer are
// shorthand for the matching metadata entries.
type PropertyDecl struct {
	Name        string            `yaml:"name" validate:"required,identifier"`
	Key         string            `yaml:"key,omitempty"`
	Transformer string            `yaml:"transformer,omitempty"`
	Meta        map[string]string `yaml:"meta,omitempty"`
}

// RelationshipDecl declares a relationship. Key, ID and JSONID are
// shorthand for the matching metadata entries.
type RelationshipDecl struct {
	Name        string            `yaml:"name" validate:"required,identifier"`
	Target      string            `yaml:"target" validate:"required,identifier"`
	Cardinality string            `yaml:"cardinality" validate:"required,oneof=one many to_one to_many toOne toMany"`
	Key         string            `yaml:"key,omitempty"`
	ID          string            `yaml:"id,omitempty"`
	JSONID      string            `yaml:"json_id,omitempty"`
	Meta        map[string]string `yaml:"meta,omitempty"`
}

func (d PropertyDecl) meta() map[string]string {
	meta := NormalizeMeta(d.Meta)
	setIfEmpty(meta, MetaKey, d.Key)
	setIfEmpty(meta, MetaTransformer, d.Transformer)
	return meta
}

func (d RelationshipDecl) meta() map[string]string {
	meta := NormalizeMeta(d.Meta)
	setIfEmpty(meta, MetaKey, d.Key)
	setIfEmpty(meta, MetaObjectID, d.ID)
	setIfEmpty(meta, MetaJSONID, d.JSONID)
	return meta
}

func setIfEmpty(meta map[string]string, key, value string) {
	if value == "" {
		return
	}
	if _, ok := meta[key]; !ok {
		meta[key] = value
	}
}
