// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// Document is one corpus file, corpus/documents/<id>.yaml. The document ID
// defaults to the file stem; an empty bucket is stored as confidential.
type Document struct {
	ID           string            `json:"id" yaml:"id"`
	Name         string            `json:"name" yaml:"name"`
	Bucket       types.Bucket      `json:"bucket" yaml:"bucket"`
	DocumentType string            `json:"document_type,omitempty" yaml:"document_type,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Passages     []string          `json:"passages" yaml:"passages"`
	Mentions     []DocumentMention `json:"mentions,omitempty" yaml:"mentions,omitempty"`
}

// DocumentMention is an entity mention declared inside a document file.
type DocumentMention struct {
	EntityID   string  `json:"entity_id" yaml:"entity_id"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Graph is the corpus knowledge graph, corpus/graph.yaml.
type Graph struct {
	Entities      []types.Entity       `json:"entities" yaml:"entities"`
	Relationships []types.Relationship `json:"relationships" yaml:"relationships"`
}

// IngestSummary holds counts from a corpus indexing run.
type IngestSummary struct {
	Indexed      int
	Updated      int
	Skipped      int
	Failed       int
	Removed      int
	GraphUpdated bool
}

// Total returns the number of document files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Changed reports whether the run modified the index.
func (s IngestSummary) Changed() bool {
	return s.Indexed > 0 || s.Updated > 0 || s.Removed > 0 || s.GraphUpdated
}

const graphSource = graphFile

// Ingest reads corpus/graph.yaml and corpus/documents/*.yaml and populates
// the database. Files are re-indexed only when their modification time
// changed since the last run; documents whose files disappeared are removed.
// On any change it writes export.yaml.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	updated, err := s.ingestGraphFile(ctx)
	if err != nil {
		fmt.Fprintf(w, "failed  %s: %v\n", graphFile, err)
	} else if updated {
		fmt.Fprintf(w, "indexing %s\n", graphFile)
		summary.GraphUpdated = true
	}

	docDir := filepath.Join(s.corpusDir, documentsDir)
	entries, err := os.ReadDir(docDir)
	if err != nil {
		return summary, fmt.Errorf("reading documents directory %s: %w", docDir, err)
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		source := documentsDir + "/" + entry.Name()
		seen[source] = true

		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		storedModTime, known, err := s.indexedModTime(ctx, source)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			summary.Failed++
			continue
		}
		if known && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", source)
			summary.Skipped++
			continue
		}

		doc, err := loadDocument(filepath.Join(docDir, entry.Name()))
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			summary.Failed++
			continue
		}

		if err := s.ingestDocument(ctx, source, doc, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", source, err)
			summary.Failed++
			continue
		}

		if known {
			fmt.Fprintf(w, "updated %s (%d passages)\n", doc.ID, len(doc.Passages))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d passages)\n", doc.ID, len(doc.Passages))
			summary.Indexed++
		}
	}

	removed, err := s.pruneDocuments(ctx, seen)
	if err != nil {
		return summary, err
	}
	for _, id := range removed {
		fmt.Fprintf(w, "removed %s\n", id)
	}
	summary.Removed = len(removed)

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d, removed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed, summary.Removed)

	if summary.Changed() {
		if _, err := s.ExportYAML(ctx, ExportOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

func (s *Store) indexedModTime(ctx context.Context, source string) (string, bool, error) {
	var modTime string
	err := s.db.QueryRowContext(ctx,
		`SELECT file_mod_time FROM indexing_status WHERE source = ?`, source,
	).Scan(&modTime)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("reading indexing status: %w", err)
	}
	return modTime, true, nil
}

// loadDocument reads and normalizes a corpus document file.
func loadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if doc.ID == "" {
		doc.ID = strings.TrimSuffix(filepath.Base(path), ".yaml")
	}
	if doc.Name == "" {
		doc.Name = doc.ID
	}
	if doc.Bucket == "" {
		doc.Bucket = types.BucketConfidential
	}
	return &doc, nil
}

func (s *Store) ingestDocument(ctx context.Context, source string, doc *Document, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var prevID string
	err = tx.QueryRowContext(ctx, `SELECT document_id FROM document_sources WHERE source = ?`, source).Scan(&prevID)
	if err == nil && prevID != doc.ID {
		if err := deleteDocument(ctx, tx, prevID); err != nil {
			return err
		}
	}
	if err := deleteDocument(ctx, tx, doc.ID); err != nil {
		return err
	}

	metadataJSON, _ := json.Marshal(doc.Metadata)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, name, bucket, document_type, metadata) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, string(doc.Bucket), doc.DocumentType, string(metadataJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}

	passageStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO passages (document_id, seq, text) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing passage insert: %w", err)
	}
	defer passageStmt.Close()

	for i, text := range doc.Passages {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if _, err := passageStmt.ExecContext(ctx, doc.ID, i, text); err != nil {
			return fmt.Errorf("inserting passage %d: %w", i, err)
		}
	}

	for _, m := range doc.Mentions {
		if m.EntityID == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO mentions (entity_id, document_id, confidence) VALUES (?, ?, ?)`,
			m.EntityID, doc.ID, types.Clamp(m.Confidence, 0, 100),
		)
		if err != nil {
			return fmt.Errorf("inserting mention %s: %w", m.EntityID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO indexing_status (source, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		source, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating indexing status: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO document_sources (source, document_id) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET document_id=excluded.document_id`,
		source, doc.ID,
	)
	if err != nil {
		return fmt.Errorf("updating document source: %w", err)
	}

	return tx.Commit()
}

// deleteDocument removes a document with its passages and mentions.
func deleteDocument(ctx context.Context, tx *sql.Tx, id string) error {
	for _, stmt := range []string{
		`DELETE FROM passages WHERE document_id = ?`,
		`DELETE FROM mentions WHERE document_id = ?`,
		`DELETE FROM documents WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("deleting document %s: %w", id, err)
		}
	}
	return nil
}

// pruneDocuments deletes documents whose source files were not seen.
func (s *Store) pruneDocuments(ctx context.Context, seen map[string]bool) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, document_id FROM document_sources ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("listing document sources: %w", err)
	}
	type stale struct{ source, id string }
	var gone []stale
	for rows.Next() {
		var st stale
		if err := rows.Scan(&st.source, &st.id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning document source: %w", err)
		}
		if !seen[st.source] {
			gone = append(gone, st)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var removed []string
	for _, st := range gone {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return removed, fmt.Errorf("beginning transaction: %w", err)
		}
		if err := deleteDocument(ctx, tx, st.id); err != nil {
			tx.Rollback()
			return removed, err
		}
		for _, stmt := range []string{
			`DELETE FROM document_sources WHERE source = ?`,
			`DELETE FROM indexing_status WHERE source = ?`,
		} {
			if _, err := tx.ExecContext(ctx, stmt, st.source); err != nil {
				tx.Rollback()
				return removed, fmt.Errorf("clearing source %s: %w", st.source, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return removed, err
		}
		removed = append(removed, st.id)
	}
	return removed, nil
}

// ingestGraphFile replaces the stored graph with corpus/graph.yaml when the
// file changed. A missing graph file leaves the stored graph untouched.
func (s *Store) ingestGraphFile(ctx context.Context) (bool, error) {
	path := filepath.Join(s.corpusDir, graphFile)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

	stored, known, err := s.indexedModTime(ctx, graphSource)
	if err != nil {
		return false, err
	}
	if known && stored == modTime {
		return false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	var g Graph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return false, fmt.Errorf("parse error: %w", err)
	}
	if err := s.ReplaceGraph(ctx, g); err != nil {
		return false, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO indexing_status (source, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		graphSource, modTime,
	)
	if err != nil {
		return false, fmt.Errorf("updating indexing status: %w", err)
	}
	return true, nil
}

// ReplaceGraph swaps the stored entities and relationships for g.
func (s *Store) ReplaceGraph(ctx context.Context, g Graph) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM relationships`); err != nil {
		return fmt.Errorf("clearing relationships: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities`); err != nil {
		return fmt.Errorf("clearing entities: %w", err)
	}

	for _, e := range g.Entities {
		if e.ID == "" {
			return fmt.Errorf("entity %q has no id", e.Name)
		}
		aliasesJSON, _ := json.Marshal(e.Aliases)
		attrsJSON, _ := json.Marshal(e.Attributes)
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO entities (id, name, type, aliases, attributes, confidence)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.ID, e.Name, string(types.ParseEntityType(string(e.Type))),
			string(aliasesJSON), string(attrsJSON), types.Clamp(e.Confidence, 0, 100),
		)
		if err != nil {
			return fmt.Errorf("inserting entity %s: %w", e.ID, err)
		}
	}

	for _, r := range g.Relationships {
		relType := r.Type
		if relType == "" {
			relType = "related_to"
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO relationships (source_id, target_id, type, confidence, document_count)
			 VALUES (?, ?, ?, ?, ?)`,
			r.SourceID, r.TargetID, relType, types.Clamp(r.Confidence, 0, 100), r.DocumentCount,
		)
		if err != nil {
			return fmt.Errorf("inserting relationship %s->%s: %w", r.SourceID, r.TargetID, err)
		}
	}

	return tx.Commit()
}
