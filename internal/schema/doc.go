// Package schema describes the entities that payloads are reconciled into.
//
// Entity descriptions are declared in CUE or YAML and compiled once into an
// immutable Registry. Each property and relationship carries a string-keyed
// metadata mapping compatible with existing model files:
//
//	map.key   source JSON key (defaults to the property name)
//	map.tra   transformer name
//	map.o.id  identifier field on the related entity
//	map.j.id  identifier key in the related JSON (defaults to map.o.id)
//
// Declarations may use the friendlier aliases key, transformer, id and
// json_id; they are normalized to the map.* form.
//
// A CUE declaration looks like:
//
//	entity: Company: {
//		identity: "id"
//		property: {
//			id: {}
//			name: {key: "company_name"}
//		}
//		relationship: {
//			employees: {target: "Person", cardinality: "many", id: "id"}
//		}
//	}
package schema
