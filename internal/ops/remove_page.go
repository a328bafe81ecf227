package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/wikivault/wikivault/internal/db"
	"github.com/wikivault/wikivault/internal/errors"
	"github.com/wikivault/wikivault/internal/mediawiki"
)

// RemovePageInput contains parameters for the RemovePage operation.
// Pages are addressed by id, or by (list, lang, title).
type RemovePageInput struct {
	ID     int64
	ListID string
	Lang   string
	Title  string
}

// RemovePageOutput contains the result of the RemovePage operation.
type RemovePageOutput struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// RemovePage queues a tracked page for deletion. The sync worker removes
// the stored content and search entry on its next pass; until then the
// page remains readable offline.
func RemovePage(ctx context.Context, database *sql.DB, input RemovePageInput) (*RemovePageOutput, error) {
	page, err := resolvePage(ctx, database, input.ID, input.ListID, input.Lang, input.Title)
	if err != nil {
		return nil, err
	}

	// Queueing an already-queued page is a no-op.
	if page.Status != db.StatusQueuedDelete {
		if err := db.QueuePageForDelete(ctx, database, page.ID); err != nil {
			return nil, err
		}
	}

	return &RemovePageOutput{
		ID:     page.ID,
		Status: db.StatusQueuedDelete.String(),
	}, nil
}

// resolvePage loads a page by id, or by (list, lang, title) with the same
// defaulting rules as AddPage. Exactly one addressing mode must be used.
func resolvePage(ctx context.Context, database *sql.DB, id int64, listID, lang, title string) (*db.ReadingListPage, error) {
	title = strings.TrimSpace(title)

	if id > 0 {
		if title != "" {
			return nil, errors.NewInvalidRequest("specify either id or title, not both")
		}
		return db.PageByID(ctx, database, id)
	}

	if title == "" {
		return nil, errors.NewInvalidRequest("must specify either id or title")
	}
	listID = strings.TrimSpace(listID)
	if listID == "" {
		listID = db.DefaultListID
	}
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = "en"
	}
	return db.PageByTitle(ctx, database, listID, lang, mediawiki.CanonicalTitle(title))
}
