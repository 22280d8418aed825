// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// entityColumns selects an entity with its live mention count.
const entityColumns = `e.id, e.name, e.type, e.aliases, e.attributes, e.confidence,
	(SELECT count(*) FROM mentions m WHERE m.entity_id = e.id)`

// CandidateEntities returns up to limit entities ordered by mention count
// descending, then id. It bounds the scan used to match entity names in a
// query.
func (s *Store) CandidateEntities(ctx context.Context, limit int) ([]types.Entity, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+` AS mention_count
		FROM entities e
		ORDER BY mention_count DESC, e.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing candidate entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

// Entities returns the entities with the given ids, ordered by id. Unknown
// ids are ignored.
func (s *Store) Entities(ctx context.Context, ids []string) ([]types.Entity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entityColumns+`
		FROM entities e
		WHERE e.id IN (`+placeholders+`)
		ORDER BY e.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("looking up entities: %w", err)
	}
	defer rows.Close()
	return scanEntities(rows)
}

func scanEntities(rows *sql.Rows) ([]types.Entity, error) {
	var out []types.Entity
	for rows.Next() {
		var (
			e         types.Entity
			entType   string
			aliases   sql.NullString
			attrs     sql.NullString
			confident sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.Name, &entType, &aliases, &attrs, &confident, &e.MentionCount); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		e.Type = types.ParseEntityType(entType)
		e.Confidence = confident.Float64
		if aliases.Valid {
			json.Unmarshal([]byte(aliases.String), &e.Aliases)
		}
		if attrs.Valid {
			json.Unmarshal([]byte(attrs.String), &e.Attributes)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RelationshipsFrom returns outgoing relationships of an entity ordered by
// confidence descending, then target id and type.
func (s *Store) RelationshipsFrom(ctx context.Context, entityID string) ([]types.Relationship, error) {
	return s.relationships(ctx,
		`WHERE source_id = ? ORDER BY confidence DESC, target_id, type`, entityID)
}

// RelationshipsTo returns incoming relationships of an entity ordered by
// confidence descending, then source id and type.
func (s *Store) RelationshipsTo(ctx context.Context, entityID string) ([]types.Relationship, error) {
	return s.relationships(ctx,
		`WHERE target_id = ? ORDER BY confidence DESC, source_id, type`, entityID)
}

func (s *Store) relationships(ctx context.Context, clause, entityID string) ([]types.Relationship, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, target_id, type, confidence, document_count FROM relationships `+clause, entityID)
	if err != nil {
		return nil, fmt.Errorf("looking up relationships for %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []types.Relationship
	for rows.Next() {
		var r types.Relationship
		var docCount sql.NullInt64
		if err := rows.Scan(&r.SourceID, &r.TargetID, &r.Type, &r.Confidence, &docCount); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		r.DocumentCount = int(docCount.Int64)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MentionsForDocument returns the entity mentions recorded for a document
// ordered by confidence descending, then entity id.
func (s *Store) MentionsForDocument(ctx context.Context, documentID string) ([]types.EntityMention, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, document_id, confidence FROM mentions
		WHERE document_id = ?
		ORDER BY confidence DESC, entity_id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("looking up mentions for %s: %w", documentID, err)
	}
	defer rows.Close()

	var out []types.EntityMention
	for rows.Next() {
		var m types.EntityMention
		if err := rows.Scan(&m.EntityID, &m.DocumentID, &m.Confidence); err != nil {
			return nil, fmt.Errorf("scanning mention: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
