// Package sync reconciles the desired offline state of reading-list pages
// with actual downloaded content: a save pass fetches queued pages through
// the cache interceptor, a delete pass purges pages queued for removal.
package sync

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wikivault/wikivault/internal/config"
	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/db"
	"github.com/wikivault/wikivault/internal/errors"
	"github.com/wikivault/wikivault/internal/extract"
	"github.com/wikivault/wikivault/internal/mediawiki"
)

// Worker runs batch reconciliation passes. At most one pass executes at a
// time; overlapping RunOnce calls fail fast with SYNC_IN_PROGRESS.
type Worker struct {
	db      *sql.DB
	client  *mediawiki.Client
	store   *contentstore.Store
	cfg     *config.Config
	logger  *slog.Logger
	running atomic.Bool
}

// NewWorker creates a Worker. A nil logger falls back to slog.Default().
func NewWorker(database *sql.DB, client *mediawiki.Client, store *contentstore.Store, cfg *config.Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		db:     database,
		client: client,
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// PageResult is the per-page outcome of a pass.
type PageResult struct {
	PageID int64  `json:"page_id"`
	Title  string `json:"title"`
	Err    string `json:"error,omitempty"`
}

// Report summarizes one sync pass.
type Report struct {
	RunID    string       `json:"run_id"`
	Saved    int          `json:"saved"`
	Deleted  int          `json:"deleted"`
	Failed   int          `json:"failed"`
	Results  []PageResult `json:"results,omitempty"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
}

// RunOnce executes one save pass followed by one delete pass. Per-page
// failures are logged and counted but do not halt the batch; the page stays
// queued for the next pass. An error return means the pass itself could not
// run (overlapping pass or a query failure) and the scheduler should apply
// its retry policy.
func (w *Worker) RunOnce(ctx context.Context) (*Report, error) {
	if !w.running.CompareAndSwap(false, true) {
		return nil, errors.NewSyncInProgress()
	}
	defer w.running.Store(false)

	report := &Report{
		RunID:   ulid.Make().String(),
		Started: time.Now(),
	}
	w.logger.Info("sync pass started", "run_id", report.RunID)

	if err := w.savePass(ctx, report); err != nil {
		return nil, err
	}
	if err := w.deletePass(ctx, report); err != nil {
		return nil, err
	}

	report.Finished = time.Now()
	w.logger.Info("sync pass finished",
		"run_id", report.RunID,
		"saved", report.Saved,
		"deleted", report.Deleted,
		"failed", report.Failed,
		"duration", report.Finished.Sub(report.Started))
	return report, nil
}

// savePass fetches every page in a queued-save state, sequentially. Each
// successful fetch recomputes the page's stored size and replaces its
// full-text index entry.
func (w *Worker) savePass(ctx context.Context, report *Report) error {
	pages, err := db.PagesQueuedForSave(ctx, w.db)
	if err != nil {
		return err
	}

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return errors.NewCancelled("sync save pass")
		}

		if err := w.savePage(ctx, &page); err != nil {
			report.Failed++
			report.Results = append(report.Results, PageResult{
				PageID: page.ID, Title: page.APITitle, Err: err.Error(),
			})

			status, ferr := db.MarkPageSaveFailed(ctx, w.db, page.ID, w.cfg.MaxSaveRetries)
			if ferr != nil {
				w.logger.Error("failed to record save failure",
					"page_id", page.ID, "error", ferr)
				continue
			}
			w.logger.Warn("page save failed",
				"page_id", page.ID, "title", page.APITitle,
				"status", status.String(), "error", err)
			continue
		}

		report.Saved++
		report.Results = append(report.Results, PageResult{
			PageID: page.ID, Title: page.APITitle,
		})
	}
	return nil
}

// savePage fetches one page with the offline-save headers attached, then
// updates size bookkeeping and the full-text index.
func (w *Worker) savePage(ctx context.Context, page *db.ReadingListPage) error {
	result, err := w.client.ParsePage(ctx, page.APITitle, mediawiki.FetchOptions{
		Save:     true,
		SaveType: contentstore.SaveTypeReadingList,
		Lang:     page.Lang,
		PageIDs:  []int64{page.ID},
	})
	if err != nil {
		return err
	}

	size, err := db.TotalBytesForPage(ctx, w.db, w.store, page.ID)
	if err != nil {
		return err
	}

	canonicalURL := w.client.PageURL(page.APITitle)
	title, text, err := extract.Document(strings.NewReader(result.HTML))
	if err != nil {
		return err
	}
	if title == "" {
		title = result.Title
	}
	if err := db.IndexPage(ctx, w.db, canonicalURL, title, text); err != nil {
		return err
	}

	return db.MarkPageSaved(ctx, w.db, page.ID, size, result.RevisionID)
}

// deletePass purges offline content for every page queued for deletion:
// owned offline objects and backing files, the full-text entry, then the
// page transitions back to saved with no offline copy.
func (w *Worker) deletePass(ctx context.Context, report *Report) error {
	pages, err := db.PagesQueuedForDelete(ctx, w.db)
	if err != nil {
		return err
	}

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return errors.NewCancelled("sync delete pass")
		}

		if err := w.deletePage(ctx, &page); err != nil {
			report.Failed++
			report.Results = append(report.Results, PageResult{
				PageID: page.ID, Title: page.APITitle, Err: err.Error(),
			})
			w.logger.Warn("page delete failed",
				"page_id", page.ID, "title", page.APITitle, "error", err)
			continue
		}

		report.Deleted++
		report.Results = append(report.Results, PageResult{
			PageID: page.ID, Title: page.APITitle,
		})
	}
	return nil
}

func (w *Worker) deletePage(ctx context.Context, page *db.ReadingListPage) error {
	if err := db.DeleteObjectsForPages(ctx, w.db, w.store, []int64{page.ID}); err != nil {
		return err
	}
	if err := db.DeleteFromIndex(ctx, w.db, w.client.PageURL(page.APITitle)); err != nil {
		return err
	}
	return db.CompletePageDelete(ctx, w.db, page.ID)
}
