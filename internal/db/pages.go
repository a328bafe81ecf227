package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/wikivault/wikivault/internal/errors"
)

const pageColumns = `
	id, list_id, site, lang, namespace, display_title, api_title,
	description, thumb_url, status, offline, size_bytes, mtime, atime,
	revision, remote_id, download_progress, retry_count`

// InsertPage stores a new reading-list page and fills in its row id.
func InsertPage(ctx context.Context, db *sql.DB, p *ReadingListPage) error {
	query := `
		INSERT INTO reading_list_page (
			list_id, site, lang, namespace, display_title, api_title,
			description, thumb_url, status, offline, size_bytes, mtime, atime,
			revision, remote_id, download_progress, retry_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := db.ExecContext(ctx, query,
		p.ListID, p.Site, p.Lang, p.Namespace, p.DisplayTitle, p.APITitle,
		toNullString(p.Description), toNullString(p.ThumbURL),
		int(p.Status), boolToInt(p.Offline), p.SizeBytes, p.Mtime, p.Atime,
		p.Revision, p.RemoteID, p.DownloadProgress, p.RetryCount,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewAlreadyExists("page already exists in this list")
		}
		return errors.NewInternal(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	p.ID = id
	return nil
}

// PageByID retrieves a page by its row id.
func PageByID(ctx context.Context, db *sql.DB, id int64) (*ReadingListPage, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM reading_list_page WHERE id = ?`, id)
	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewPageNotFound(strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return p, nil
}

// PageByTitle retrieves a page by its owning list, language, and API title.
func PageByTitle(ctx context.Context, db *sql.DB, listID, lang, apiTitle string) (*ReadingListPage, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM reading_list_page
		 WHERE list_id = ? AND lang = ? AND api_title = ?`,
		listID, lang, apiTitle)
	p, err := scanPage(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewPageNotFound(apiTitle)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return p, nil
}

// PagesByList retrieves pages of a list ordered by most recently modified,
// with pagination. Returns the page slice and the total count for the list.
func PagesByList(ctx context.Context, db *sql.DB, listID string, limit, offset int) ([]ReadingListPage, int, error) {
	var total int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reading_list_page WHERE list_id = ?`, listID).Scan(&total)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM reading_list_page
		 WHERE list_id = ? ORDER BY mtime DESC LIMIT ? OFFSET ?`,
		listID, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	pages, err := scanPages(rows)
	if err != nil {
		return nil, 0, err
	}
	return pages, total, nil
}

// PagesQueuedForSave returns pages the save pass must process: offline pages
// in the queued-save or queued-forced-save state.
func PagesQueuedForSave(ctx context.Context, db *sql.DB) ([]ReadingListPage, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM reading_list_page
		 WHERE offline = 1 AND status IN (?, ?) ORDER BY id`,
		int(StatusQueuedSave), int(StatusQueuedForcedSave))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanPages(rows)
}

// PagesQueuedForDelete returns pages the delete pass must process.
func PagesQueuedForDelete(ctx context.Context, db *sql.DB) ([]ReadingListPage, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM reading_list_page
		 WHERE status = ? ORDER BY id`,
		int(StatusQueuedDelete))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanPages(rows)
}

// UpdatePageStatus sets a page's status and touches its modify-time.
func UpdatePageStatus(ctx context.Context, db *sql.DB, id int64, status PageStatus) error {
	return execOnPage(ctx, db, id,
		`UPDATE reading_list_page SET status = ?, mtime = ? WHERE id = ?`,
		int(status), time.Now().Unix(), id)
}

// MarkPageSaved records a completed save: saved status, recomputed size,
// fetched revision, full progress, and a cleared retry count.
func MarkPageSaved(ctx context.Context, db *sql.DB, id, sizeBytes, revision int64) error {
	return execOnPage(ctx, db, id,
		`UPDATE reading_list_page
		 SET status = ?, size_bytes = ?, revision = ?, download_progress = 100,
		     retry_count = 0, mtime = ?
		 WHERE id = ?`,
		int(StatusSaved), sizeBytes, revision, time.Now().Unix(), id)
}

// MarkPageSaveFailed increments a page's retry count. When the count exceeds
// maxRetries the page transitions to the error status and is excluded from
// subsequent save passes until re-queued. Returns the resulting status.
func MarkPageSaveFailed(ctx context.Context, db *sql.DB, id int64, maxRetries int) (PageStatus, error) {
	if err := execOnPage(ctx, db, id,
		`UPDATE reading_list_page SET retry_count = retry_count + 1 WHERE id = ?`, id); err != nil {
		return 0, err
	}

	p, err := PageByID(ctx, db, id)
	if err != nil {
		return 0, err
	}
	if p.RetryCount <= maxRetries {
		return p.Status, nil
	}

	if err := UpdatePageStatus(ctx, db, id, StatusError); err != nil {
		return 0, err
	}
	return StatusError, nil
}

// QueuePageForcedSave re-queues a page for saving even if its content is
// considered current, resetting the retry counter.
func QueuePageForcedSave(ctx context.Context, db *sql.DB, id int64) error {
	return execOnPage(ctx, db, id,
		`UPDATE reading_list_page
		 SET status = ?, offline = 1, retry_count = 0, download_progress = 0, mtime = ?
		 WHERE id = ?`,
		int(StatusQueuedForcedSave), time.Now().Unix(), id)
}

// QueuePageForDelete marks a page's offline content for removal by the next
// sync pass.
func QueuePageForDelete(ctx context.Context, db *sql.DB, id int64) error {
	return UpdatePageStatus(ctx, db, id, StatusQueuedDelete)
}

// CompletePageDelete records a processed deletion: the page stays tracked but
// is no longer stored offline.
func CompletePageDelete(ctx context.Context, db *sql.DB, id int64) error {
	return execOnPage(ctx, db, id,
		`UPDATE reading_list_page
		 SET status = ?, offline = 0, size_bytes = 0, download_progress = 0, mtime = ?
		 WHERE id = ?`,
		int(StatusSaved), time.Now().Unix(), id)
}

// MarkPagesContentSaved transitions pages to saved status and touches their
// modify-time. Called by the cache interceptor after persisting a response
// attributed to those pages. Unknown ids are ignored.
func MarkPagesContentSaved(ctx context.Context, db *sql.DB, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+2)
	args = append(args, int(StatusSaved), time.Now().Unix())
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := db.ExecContext(ctx,
		`UPDATE reading_list_page SET status = ?, mtime = ?
		 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// TouchPageAccess updates a page's access-time.
func TouchPageAccess(ctx context.Context, db *sql.DB, id int64) error {
	return execOnPage(ctx, db, id,
		`UPDATE reading_list_page SET atime = ? WHERE id = ?`,
		time.Now().Unix(), id)
}

// execOnPage runs an UPDATE and maps "no rows affected" to page-not-found.
func execOnPage(ctx context.Context, db *sql.DB, id int64, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewInternal(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if affected == 0 {
		return errors.NewPageNotFound(strconv.FormatInt(id, 10))
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanPage.
type scanner interface {
	Scan(dest ...any) error
}

func scanPage(s scanner) (*ReadingListPage, error) {
	var p ReadingListPage
	var description, thumbURL sql.NullString
	var status, offline int

	err := s.Scan(
		&p.ID, &p.ListID, &p.Site, &p.Lang, &p.Namespace, &p.DisplayTitle,
		&p.APITitle, &description, &thumbURL, &status, &offline, &p.SizeBytes,
		&p.Mtime, &p.Atime, &p.Revision, &p.RemoteID, &p.DownloadProgress,
		&p.RetryCount,
	)
	if err != nil {
		return nil, err
	}

	p.Status = PageStatus(status)
	p.Offline = offline != 0
	p.Description = fromNullString(description)
	p.ThumbURL = fromNullString(thumbURL)
	return &p, nil
}

func scanPages(rows *sql.Rows) ([]ReadingListPage, error) {
	var pages []ReadingListPage
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		pages = append(pages, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return pages, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
