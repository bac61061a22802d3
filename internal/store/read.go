package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/entsync/internal/queryir"
	"github.com/roach88/entsync/internal/querysql"
)

// relationBatch bounds the number of owner ids per relations query.
const relationBatch = 500

// Fetch runs a query and returns matching records with their relations.
// Results are ordered by the query's sort keys, then by id.
func (s *Store) Fetch(ctx context.Context, q queryir.Query) ([]Record, error) {
	query, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	records, err := s.queryRecords(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return records, nil
}

// Count returns the number of objects matching a query.
func (s *Store) Count(ctx context.Context, q queryir.Query) (int, error) {
	query, params, err := s.compiler.CompileCount(q)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// ObjectsWithIDs returns the objects of entity whose ids are listed,
// ordered by id. Unknown ids are ignored.
func (s *Store) ObjectsWithIDs(ctx context.Context, entity string, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.Fetch(ctx, queryir.Select{Entity: entity, Filter: queryir.IDIn{IDs: ids}})
}

// Get returns one object by id.
func (s *Store) Get(ctx context.Context, id string) (Record, bool, error) {
	records, err := s.queryRecords(ctx,
		"SELECT "+querysql.Columns+" FROM objects WHERE id = ?", id)
	if err != nil {
		return Record{}, false, fmt.Errorf("get %s: %w", id, err)
	}
	if len(records) == 0 {
		return Record{}, false, nil
	}
	return records[0], true, nil
}

// Related returns the targets of an object's relation in relation order.
func (s *Store) Related(ctx context.Context, ownerID, name string) ([]Record, error) {
	cols := "o." + strings.ReplaceAll(querysql.Columns, ", ", ", o.")
	records, err := s.queryRecords(ctx, `
		SELECT `+cols+`
		FROM relations r
		JOIN objects o ON o.id = r.target_id
		WHERE r.owner_id = ? AND r.name = ?
		ORDER BY r.position ASC
	`, ownerID, name)
	if err != nil {
		return nil, fmt.Errorf("related %s.%s: %w", ownerID, name, err)
	}
	return records, nil
}

// Inverse returns the ids of objects relating to targetID through name,
// ordered by id.
func (s *Store) Inverse(ctx context.Context, targetID, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id FROM relations
		WHERE target_id = ? AND name = ?
		ORDER BY owner_id COLLATE BINARY ASC
	`, targetID, name)
	if err != nil {
		return nil, fmt.Errorf("inverse %s.%s: %w", targetID, name, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("inverse %s.%s: %w", targetID, name, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// queryRecords runs a query selecting querysql.Columns and attaches
// relations. Rows are fully read and closed before relations are queried,
// since the store has a single connection.
func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec              Record
			fieldsJSON       string
			created, updated int64
		)
		if err := rows.Scan(&rec.ID, &rec.Entity, &fieldsJSON, &created, &updated, &rec.Seq); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		fields, err := unmarshalFields(fieldsJSON)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", rec.ID, err)
		}
		rec.Fields = fields
		rec.CreatedAt = fromNanos(created)
		rec.UpdatedAt = fromNanos(updated)
		rec.Relations = map[string][]string{}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objects: %w", err)
	}
	return records, nil
}

func (s *Store) loadRelations(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	byID := make(map[string]*Record, len(records))
	ids := make([]string, 0, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
		ids = append(ids, records[i].ID)
	}

	for start := 0; start < len(ids); start += relationBatch {
		batch := ids[start:min(start+relationBatch, len(ids))]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT owner_id, name, target_id FROM relations
			WHERE owner_id IN (?`+strings.Repeat(", ?", len(batch)-1)+`)
			ORDER BY owner_id, name, position ASC
		`, args...)
		if err != nil {
			return fmt.Errorf("load relations: %w", err)
		}
		for rows.Next() {
			var owner, name, target string
			if err := rows.Scan(&owner, &name, &target); err != nil {
				rows.Close()
				return fmt.Errorf("scan relation: %w", err)
			}
			rec := byID[owner]
			rec.Relations[name] = append(rec.Relations[name], target)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("iterate relations: %w", err)
		}
	}
	return nil
}
