// Package reconcile merges JSON payloads into persisted entities.
//
// Given a payload and an entity description, a Reconciler finds or
// creates the entity by an identifying (field, value) pair, maps scalar
// properties through optional value transformers, and resolves to-one and
// to-many relationships by the related objects' identifiers, recursively
// reconciling each nested payload.
//
// Reconciling the same payload twice leaves the store unchanged: lookups
// happen before inserts, and writes of equal values are no-ops.
//
// Payload semantics per property:
//
//	key absent          -> field untouched
//	key present, null   -> field cleared
//	transform fails     -> field untouched
//
// Per relationship:
//
//	to-many array       -> set replaced by the resolved members
//	to-many non-array   -> untouched
//	non-object element  -> untouched
//	to-one object       -> reconciled and assigned
//	to-one null         -> cleared
//	to-one scalar       -> treated as {<json id key>: scalar}
//
// A payload timestamp (key "updated" by default) equal to the entity's
// updatedAt, to the second, skips property mapping; relationships are
// always processed.
//
// The store is reached only through Context and Entity, which
// *store.Tx and *store.Object implement.
package reconcile
