package schema

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML schema document and validates its structure.
// Unknown fields are rejected so typos in metadata names surface early.
func ParseYAML(data []byte) ([]EntityDecl, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse schema YAML: %w", err)
	}

	if issues := structIssues(validate.Struct(doc)); len(issues) > 0 {
		return nil, &BuildError{Issues: issues}
	}
	return doc.Entities, nil
}
