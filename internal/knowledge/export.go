// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// ExportOptions filters an export.
type ExportOptions struct {
	// Bucket, when set, restricts documents to one confidentiality bucket.
	Bucket types.Bucket
}

// Snapshot is the exported corpus: documents plus the full graph.
type Snapshot struct {
	Documents     []Document           `json:"documents" yaml:"documents"`
	Entities      []types.Entity       `json:"entities" yaml:"entities"`
	Relationships []types.Relationship `json:"relationships" yaml:"relationships"`
}

// ExportYAML writes the corpus to <index>/export.yaml and returns the path.
func (s *Store) ExportYAML(ctx context.Context, opts ExportOptions) (string, error) {
	snap, err := s.Snapshot(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.indexDir, "export.yaml")
	data, err := yaml.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the corpus to <index>/export.json and returns the path.
func (s *Store) ExportJSON(ctx context.Context, opts ExportOptions) (string, error) {
	snap, err := s.Snapshot(ctx, opts)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.indexDir, "export.json")
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// Snapshot reads the corpus back out of the database in the same shape it
// was ingested from.
func (s *Store) Snapshot(ctx context.Context, opts ExportOptions) (*Snapshot, error) {
	query := `SELECT id, name, bucket, document_type, metadata FROM documents`
	var args []any
	if opts.Bucket != "" {
		query += ` WHERE bucket = ?`
		args = append(args, string(opts.Bucket))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	snap := &Snapshot{}
	for rows.Next() {
		var (
			doc          Document
			bucket       string
			documentType sql.NullString
			metadataJSON sql.NullString
		)
		if err := rows.Scan(&doc.ID, &doc.Name, &bucket, &documentType, &metadataJSON); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Bucket = types.Bucket(bucket)
		doc.DocumentType = documentType.String
		if metadataJSON.Valid && metadataJSON.String != "null" {
			json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata)
		}
		snap.Documents = append(snap.Documents, doc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range snap.Documents {
		doc := &snap.Documents[i]
		if doc.Passages, err = s.passages(ctx, doc.ID); err != nil {
			return nil, err
		}
		mentions, err := s.MentionsForDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range mentions {
			doc.Mentions = append(doc.Mentions, DocumentMention{EntityID: m.EntityID, Confidence: m.Confidence})
		}
	}

	if snap.Entities, err = s.CandidateEntities(ctx, exportLimit); err != nil {
		return nil, err
	}
	relRows, err := s.db.QueryContext(ctx,
		`SELECT source_id, target_id, type, confidence, document_count FROM relationships
		ORDER BY source_id, target_id, type`)
	if err != nil {
		return nil, fmt.Errorf("querying relationships for export: %w", err)
	}
	defer relRows.Close()
	for relRows.Next() {
		var r types.Relationship
		var docCount sql.NullInt64
		if err := relRows.Scan(&r.SourceID, &r.TargetID, &r.Type, &r.Confidence, &docCount); err != nil {
			return nil, fmt.Errorf("scanning relationship: %w", err)
		}
		r.DocumentCount = int(docCount.Int64)
		snap.Relationships = append(snap.Relationships, r)
	}

	return snap, relRows.Err()
}

const exportLimit = 100000

func (s *Store) passages(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text FROM passages WHERE document_id = ? ORDER BY seq`, documentID)
	if err != nil {
		return nil, fmt.Errorf("reading passages for %s: %w", documentID, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, rows.Err()
}
