// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccessRecord is one audited confidential-source access.
type AccessRecord struct {
	ID         string    `json:"id" yaml:"id"`
	UserID     string    `json:"user_id" yaml:"user_id"`
	DocumentID string    `json:"document_id" yaml:"document_id"`
	AccessedAt time.Time `json:"accessed_at" yaml:"accessed_at"`
}

// RecordAccess stores one audit row per document id for userID.
func (s *Store) RecordAccess(ctx context.Context, userID string, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return nil
	}
	if userID == "" {
		userID = "anonymous"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, id := range documentIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO access_audit (id, user_id, document_id, accessed_at) VALUES (?, ?, ?, ?)`,
			uuid.NewString(), userID, id, now,
		)
		if err != nil {
			return fmt.Errorf("recording access to %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.log.Info("confidential access recorded",
		zap.String("user", userID),
		zap.Strings("documents", documentIDs),
	)
	return nil
}

// Accesses returns audit records for userID, oldest first. An empty userID
// returns every record.
func (s *Store) Accesses(ctx context.Context, userID string) ([]AccessRecord, error) {
	query := `SELECT id, user_id, document_id, accessed_at FROM access_audit`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY accessed_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading access audit: %w", err)
	}
	defer rows.Close()

	var out []AccessRecord
	for rows.Next() {
		var (
			rec AccessRecord
			at  string
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.DocumentID, &at); err != nil {
			return nil, fmt.Errorf("scanning access record: %w", err)
		}
		rec.AccessedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, rec)
	}
	return out, rows.Err()
}
