// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package knowledge persists the document corpus and its knowledge graph in
// SQLite and serves them to the pipeline. It is the system's Retrieval
// Oracle (FTS5-ranked passages carrying each document's bucket marker) and
// its read-only Knowledge Graph Store. It also records confidential-source
// access for compliance.
package knowledge

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

const (
	documentsDir = "documents"
	graphFile    = "graph.yaml"
	dbFile       = "inquiry.db"
)

// Store manages the corpus SQLite database.
type Store struct {
	db         *sql.DB
	corpusDir  string
	indexDir   string
	maxResults int
	log        *zap.Logger
}

// NewStore opens or creates the database at cfg.IndexDir/inquiry.db and
// creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(cfg.IndexDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		corpusDir:  cfg.CorpusDir,
		indexDir:   cfg.IndexDir,
		maxResults: maxResults,
		log:        log.Named("knowledge"),
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			bucket TEXT NOT NULL,
			document_type TEXT,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS passages (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id TEXT NOT NULL REFERENCES documents(id),
			seq INTEGER NOT NULL,
			text TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_passages_document ON passages(document_id)`,
		`CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			aliases TEXT,
			attributes TEXT,
			confidence REAL
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			type TEXT NOT NULL,
			confidence REAL,
			document_count INTEGER,
			PRIMARY KEY (source_id, target_id, type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id)`,
		`CREATE TABLE IF NOT EXISTS mentions (
			entity_id TEXT NOT NULL,
			document_id TEXT NOT NULL REFERENCES documents(id),
			confidence REAL,
			PRIMARY KEY (entity_id, document_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mentions_document ON mentions(document_id)`,
		`CREATE TABLE IF NOT EXISTS access_audit (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			document_id TEXT NOT NULL,
			accessed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_access_audit_user ON access_audit(user_id)`,
		`CREATE TABLE IF NOT EXISTS indexing_status (
			source TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS document_sources (
			source TEXT PRIMARY KEY,
			document_id TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='passages_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE passages_fts USING fts5(text, content=passages, content_rowid=rowid)`,
			`CREATE TRIGGER passages_ai AFTER INSERT ON passages BEGIN
				INSERT INTO passages_fts(rowid, text) VALUES (new.rowid, new.text);
			END`,
			`CREATE TRIGGER passages_ad AFTER DELETE ON passages BEGIN
				INSERT INTO passages_fts(passages_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			END`,
			`CREATE TRIGGER passages_au AFTER UPDATE ON passages BEGIN
				INSERT INTO passages_fts(passages_fts, rowid, text) VALUES('delete', old.rowid, old.text);
				INSERT INTO passages_fts(rowid, text) VALUES (new.rowid, new.text);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}
