package db

import (
	"context"
	"database/sql"

	"github.com/wikivault/wikivault/internal/errors"
)

// StorageStats summarizes what the vault currently holds.
type StorageStats struct {
	Lists         int            `json:"lists"`
	Pages         int            `json:"pages"`
	PagesByStatus map[string]int `json:"pages_by_status"`
	Objects       int            `json:"objects"`
	IndexEntries  int            `json:"index_entries"`
	OfflineBytes  int64          `json:"offline_bytes"`
}

// Stats collects row counts and the total stored size across all tables.
func Stats(ctx context.Context, db *sql.DB) (*StorageStats, error) {
	s := &StorageStats{PagesByStatus: make(map[string]int)}

	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reading_list`).Scan(&s.Lists); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM offline_object`).Scan(&s.Objects); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM offline_page_fts`).Scan(&s.IndexEntries); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(size_bytes), 0) FROM reading_list_page`).Scan(&s.OfflineBytes); err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM reading_list_page GROUP BY status`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.NewInternal(err)
		}
		s.Pages += count
		s.PagesByStatus[PageStatus(status).String()] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return s, nil
}
