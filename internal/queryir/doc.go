// Package queryir provides the query model used to read entities back out
// of the object store.
//
// A query selects the objects of one entity, optionally filtered, sorted
// and limited:
//
//	Select{
//	  Entity: "Person",
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "role", Value: ir.IRString("engineer")},
//	    In{Field: "level", Values: []ir.IRValue{ir.IRInt(2), ir.IRInt(3)}},
//	  }},
//	  Sort:  []SortKey{{Field: "name"}},
//	  Limit: 10,
//	}
//
// Query and Predicate are sealed interfaces using the marker method
// pattern, so backends can switch over them exhaustively. The SQLite
// backend lives in internal/querysql; Match evaluates predicates in
// memory against unsaved objects and change notifications.
//
// Results are always totally ordered: the object id is the final sort
// key, so two runs over the same data return the same sequence.
package queryir
