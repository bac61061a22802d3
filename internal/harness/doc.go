// Package harness runs reconciliation conformance scenarios.
//
// A scenario names a schema directory, a list of steps that sync JSON
// payloads into a fresh in-memory store, and assertions over the final
// state. Each run uses a fixed clock starting at Epoch and sequential
// object ids, so the trace and final state are byte-identical across runs
// and can be compared against golden snapshots.
//
// # Scenario Format
//
//	name: acme_owner
//	description: "Nested owner is created once and linked"
//	schema: ../schema
//	steps:
//	  - sync: Company
//	    key: name          # optional; defaults to the entity identity
//	    value: Acme
//	    payload: {name: Acme, owner: {uid: u1, name: Alice}}
//	    expect: {inserted: 2}
//	  - advance: 1h
//	  - sync: Person
//	    payloads: [{uid: u2}, {uid: u3}]
//	  - sync: Person
//	    payload: {name: Nobody}
//	    expect: {error: MISSING_IDENTITY}
//	assertions:
//	  - type: count
//	    entity: Person
//	    count: 3
//	  - type: entity
//	    entity: Company
//	    where: {name: Acme}
//	    expect: {name: Acme, city: null}
//	    relations: {owner: [u1]}
//
// Quote date strings in payloads; unquoted YAML timestamps are not
// passed through as text.
//
// # Assertion Types
//
//   - count: the number of entities matching where equals count
//   - entity: exactly one entity matches where; expect is a subset match
//     on fields (null means absent) and relations lists the identity
//     values of related entities, in order
package harness
