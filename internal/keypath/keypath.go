// Package keypath looks up values in decoded payloads by dotted key path.
package keypath

import (
	"strings"

	"github.com/roach88/entsync/internal/ir"
)

// Separator splits a key into path segments.
const Separator = "."

// IsKeyPath reports whether key addresses a nested value.
func IsKeyPath(key string) bool {
	return strings.Contains(key, Separator)
}

// Segments splits key into its path segments.
func Segments(key string) []string {
	return strings.Split(key, Separator)
}

// Resolve returns the value at key within obj.
//
// A key without a separator is a direct lookup. For a dotted key every
// segment but the last descends into the current object; when a segment
// does not name an object the walk stops there and the final segment is
// looked up in the last object reached. The boolean is false when the
// final segment is absent.
//
//	Resolve("owner.name", {"owner": {"name": "Alice"}})  -> "Alice", true
//	Resolve("owner.name", {"owner": "x", "name": "Bob"}) -> "Bob", true
func Resolve(key string, obj ir.IRObject) (ir.IRValue, bool) {
	if !IsKeyPath(key) {
		v, ok := obj[key]
		return v, ok
	}

	segments := Segments(key)
	current := obj
	for _, seg := range segments[:len(segments)-1] {
		next, ok := current[seg].(ir.IRObject)
		if !ok {
			break
		}
		current = next
	}

	v, ok := current[segments[len(segments)-1]]
	return v, ok
}
