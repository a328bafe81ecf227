package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/errors"
)

// ContentFiles is the subset of the content store the offline object index
// needs for file bookkeeping. Satisfied by *contentstore.Store.
type ContentFiles interface {
	Delete(keys []string, saveType contentstore.SaveType)
	SizeOf(key string, saveType contentstore.SaveType) int64
}

// UpsertObject inserts or replaces an offline object by its natural key
// (url, lang, save_type).
func UpsertObject(ctx context.Context, db *sql.DB, o *OfflineObject) error {
	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO offline_object (url, lang, path, status, usedby, save_type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.URL, o.Lang, o.Path, int(o.Status), o.UsedBy, int(o.SaveType),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ObjectByURL looks up an offline object by (url, lang, save_type).
// Returns (nil, nil) when no row exists.
func ObjectByURL(ctx context.Context, db *sql.DB, url, lang string, saveType contentstore.SaveType) (*OfflineObject, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, url, lang, path, status, usedby, save_type
		FROM offline_object
		WHERE url = ? AND lang = ? AND save_type = ?`,
		url, lang, int(saveType))

	o, err := scanObject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return o, nil
}

// ObjectsForPage returns all offline objects whose owner list contains pageID.
func ObjectsForPage(ctx context.Context, db *sql.DB, pageID int64) ([]OfflineObject, error) {
	// The owner list is "|id|id|", so "|<id>|" matches exactly (a longer id
	// like 72 never contains the substring "|7|").
	pattern := "%" + fmt.Sprintf("%s%d%s", UsedBySeparator, pageID, UsedBySeparator) + "%"
	rows, err := db.QueryContext(ctx, `
		SELECT id, url, lang, path, status, usedby, save_type
		FROM offline_object
		WHERE usedby LIKE ?`, pattern)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var objects []OfflineObject
	for rows.Next() {
		o, err := scanObject(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		objects = append(objects, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return objects, nil
}

// DeleteObjectsForPages removes pageIDs from the owner lists of all
// reading-list objects that reference them. Objects whose owner list becomes
// empty are deleted along with their backing content files. Full-archive
// objects are not touched by page-level deletion.
func DeleteObjectsForPages(ctx context.Context, db *sql.DB, files ContentFiles, pageIDs []int64) error {
	for _, pageID := range pageIDs {
		objects, err := ObjectsForPage(ctx, db, pageID)
		if err != nil {
			return err
		}
		for _, o := range objects {
			if o.SaveType != contentstore.SaveTypeReadingList {
				continue
			}

			owners := o.UsedByIDs()
			owners = slices.DeleteFunc(owners, func(id int64) bool { return id == pageID })

			if len(owners) > 0 {
				_, err := db.ExecContext(ctx,
					`UPDATE offline_object SET usedby = ? WHERE id = ?`,
					JoinUsedBy(owners), o.ID)
				if err != nil {
					return errors.NewInternal(err)
				}
				continue
			}

			if _, err := db.ExecContext(ctx,
				`DELETE FROM offline_object WHERE id = ?`, o.ID); err != nil {
				return errors.NewInternal(err)
			}
			files.Delete([]string{o.Path}, o.SaveType)
		}
	}
	return nil
}

// TotalBytesForPage sums content-store file sizes for all offline objects
// owned by pageID. Used to populate ReadingListPage.SizeBytes.
func TotalBytesForPage(ctx context.Context, db *sql.DB, files ContentFiles, pageID int64) (int64, error) {
	objects, err := ObjectsForPage(ctx, db, pageID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, o := range objects {
		total += files.SizeOf(o.Path, o.SaveType)
	}
	return total, nil
}

func scanObject(s scanner) (*OfflineObject, error) {
	var o OfflineObject
	var status, saveType int
	err := s.Scan(&o.ID, &o.URL, &o.Lang, &o.Path, &status, &o.UsedBy, &saveType)
	if err != nil {
		return nil, err
	}
	o.Status = PageStatus(status)
	o.SaveType = contentstore.SaveType(saveType)
	return &o, nil
}
