package db

import (
	"context"
	"database/sql"

	"github.com/wikivault/wikivault/internal/errors"
)

// InsertList stores a new reading list.
func InsertList(ctx context.Context, db *sql.DB, l *ReadingList) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO reading_list (id, title, description, is_default, download_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Title, toNullString(l.Description), boolToInt(l.IsDefault),
		boolToInt(l.DownloadEnabled), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewAlreadyExists("reading list already exists")
		}
		return errors.NewInternal(err)
	}
	return nil
}

// ListByID retrieves a reading list by id.
func ListByID(ctx context.Context, db *sql.DB, id string) (*ReadingList, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, title, description, is_default, download_enabled, created_at, updated_at
		FROM reading_list WHERE id = ?`, id)

	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewListNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return l, nil
}

// AllLists retrieves every reading list, default list first.
func AllLists(ctx context.Context, db *sql.DB) ([]ReadingList, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, title, description, is_default, download_enabled, created_at, updated_at
		FROM reading_list ORDER BY is_default DESC, created_at`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var lists []ReadingList
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		lists = append(lists, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return lists, nil
}

func scanList(s scanner) (*ReadingList, error) {
	var l ReadingList
	var description sql.NullString
	var isDefault, downloadEnabled int

	err := s.Scan(&l.ID, &l.Title, &description, &isDefault, &downloadEnabled,
		&l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}

	l.Description = fromNullString(description)
	l.IsDefault = isDefault != 0
	l.DownloadEnabled = downloadEnabled != 0
	return &l, nil
}
