package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/wikivault/wikivault/internal/errors"
)

// Snippet markers emitted by SearchIndex. Converted to <b> tags by the ops
// layer after HTML-escaping user content.
const (
	SnippetOpenMarker  = "[[[B]]]"
	SnippetCloseMarker = "[[[/B]]]"
)

// FtsResult is one full-text search hit.
type FtsResult struct {
	URL     string
	Title   string
	Snippet string // body context with snippet markers around matches
}

// IndexPage replaces the full-text row for a canonical page URL. Always a
// full replace, never incremental.
func IndexPage(ctx context.Context, db *sql.DB, url, title, body string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM offline_page_fts WHERE url = ?`, url); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO offline_page_fts (url, title, body) VALUES (?, ?, ?)`,
		url, title, body); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteFromIndex removes the full-text row for a canonical page URL.
func DeleteFromIndex(ctx context.Context, db *sql.DB, url string) error {
	if _, err := db.ExecContext(ctx,
		`DELETE FROM offline_page_fts WHERE url = ?`, url); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// HasIndexEntry reports whether a full-text row exists for url.
func HasIndexEntry(ctx context.Context, db *sql.DB, url string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM offline_page_fts WHERE url = ?`, url).Scan(&count)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return count > 0, nil
}

// SearchIndex runs a full-text query over downloaded page bodies. Results use
// the engine's default relevance ordering (bm25 rank). Returns the result
// slice and the total hit count.
func SearchIndex(ctx context.Context, db *sql.DB, query string, limit, offset int) ([]FtsResult, int, error) {
	match := buildMatchQuery(query)
	if match == "" {
		return nil, 0, errors.NewInvalidRequest("query is required")
	}

	var total int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM offline_page_fts WHERE offline_page_fts MATCH ?`,
		match).Scan(&total)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT url, title, snippet(offline_page_fts, 2, ?, ?, '...', 24)
		FROM offline_page_fts
		WHERE offline_page_fts MATCH ?
		ORDER BY rank
		LIMIT ? OFFSET ?`,
		SnippetOpenMarker, SnippetCloseMarker, match, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var results []FtsResult
	for rows.Next() {
		var r FtsResult
		if err := rows.Scan(&r.URL, &r.Title, &r.Snippet); err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return results, total, nil
}

// buildMatchQuery quotes each token so user input cannot inject FTS5 query
// syntax (NEAR, column filters, boolean operators).
func buildMatchQuery(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}
