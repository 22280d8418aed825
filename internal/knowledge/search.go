// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package knowledge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// SearchRequest is one Retrieval Oracle query.
type SearchRequest struct {
	Query  string
	Limit  int
	Offset int

	// Requester identifies who is searching; it is logged, not enforced.
	Requester string

	// Filters narrows results. Recognized keys: "bucket", "document_type".
	Filters map[string]string
}

// Search returns passages ranked by FTS5 relevance. Each term of the query
// is matched independently (OR semantics) so natural-language questions
// retrieve partial matches. Scores are the bm25 rank mapped into [0,1).
func (s *Store) Search(ctx context.Context, req SearchRequest) ([]types.Finding, error) {
	match := ftsQuery(req.Query)
	if match == "" {
		return nil, nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.maxResults
	}

	var (
		qb   strings.Builder
		args = []any{match}
	)
	qb.WriteString(
		`SELECT d.id, d.name, d.bucket, d.document_type, d.metadata, p.text, passages_fts.rank
		FROM passages_fts
		JOIN passages p ON p.rowid = passages_fts.rowid
		JOIN documents d ON d.id = p.document_id
		WHERE passages_fts MATCH ?`)

	if b := req.Filters["bucket"]; b != "" {
		qb.WriteString(` AND d.bucket = ?`)
		args = append(args, b)
	}
	if t := req.Filters["document_type"]; t != "" {
		qb.WriteString(` AND d.document_type = ?`)
		args = append(args, t)
	}

	qb.WriteString(` ORDER BY passages_fts.rank, d.id, p.seq LIMIT ? OFFSET ?`)
	args = append(args, limit, req.Offset)

	s.log.Debug("search",
		zap.String("requester", req.Requester),
		zap.String("match", match),
		zap.Int("limit", limit),
		zap.Int("offset", req.Offset),
	)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching corpus: %w", err)
	}
	defer rows.Close()

	var findings []types.Finding
	for rows.Next() {
		var (
			f            types.Finding
			bucket       string
			documentType sql.NullString
			metadataJSON sql.NullString
			rank         float64
		)
		if err := rows.Scan(&f.DocumentID, &f.DocumentName, &bucket, &documentType, &metadataJSON, &f.Text, &rank); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		f.Bucket = types.Bucket(bucket)
		f.Score = rankScore(rank)

		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
			json.Unmarshal([]byte(metadataJSON.String), &f.Metadata)
		}
		if documentType.Valid && documentType.String != "" {
			if f.Metadata == nil {
				f.Metadata = make(map[string]string)
			}
			f.Metadata["document_type"] = documentType.String
		}

		findings = append(findings, f)
	}

	return findings, rows.Err()
}

// rankScore maps an FTS5 bm25 rank (more negative is better) into [0,1).
func rankScore(rank float64) float64 {
	s := -rank
	if s <= 0 {
		return 0
	}
	return types.Clamp01(s / (1 + s))
}

// ftsQuery turns free text into an FTS5 expression of quoted, OR-joined
// terms. Quoting neutralizes FTS5 operators in user input.
func ftsQuery(q string) string {
	words := strings.FieldsFunc(strings.ToLower(q), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool)
	var terms []string
	for _, w := range words {
		if len(w) < 2 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "do": true, "does": true, "for": true, "from": true,
	"how": true, "in": true, "is": true, "it": true, "of": true, "on": true,
	"or": true, "our": true, "the": true, "to": true, "was": true, "we": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"why": true, "with": true,
}
