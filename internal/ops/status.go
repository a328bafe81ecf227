package ops

import (
	"context"
	"database/sql"

	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/db"
)

// StatusInput contains parameters for the Status operation. With no page
// address the operation reports vault-wide statistics; addressing a page
// (by id, or by list/lang/title) reports that page's detail instead.
type StatusInput struct {
	ID     int64
	ListID string
	Lang   string
	Title  string
}

// ObjectStatus describes one stored object backing a page.
type ObjectStatus struct {
	URL       string `json:"url"`
	SaveType  string `json:"save_type"`
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
	Stored    bool   `json:"stored"`
}

// PageDetail is the per-page view: the tracking row plus its objects.
type PageDetail struct {
	Page    db.ReadingListPage `json:"page"`
	Objects []ObjectStatus     `json:"objects"`
}

// StatusOutput contains the result of the Status operation. Exactly one of
// Stats and Page is set.
type StatusOutput struct {
	Stats *db.StorageStats `json:"stats,omitempty"`
	Page  *PageDetail      `json:"page,omitempty"`
}

// Status reports what the vault holds: list and page counts, pages broken
// down by sync state, and the total stored size. When a page is addressed
// it instead reports that page's state and the storage keys and byte sizes
// of its objects.
func Status(ctx context.Context, database *sql.DB, store *contentstore.Store, input StatusInput) (*StatusOutput, error) {
	if input.ID == 0 && input.Title == "" {
		stats, err := db.Stats(ctx, database)
		if err != nil {
			return nil, err
		}
		return &StatusOutput{Stats: stats}, nil
	}

	page, err := resolvePage(ctx, database, input.ID, input.ListID, input.Lang, input.Title)
	if err != nil {
		return nil, err
	}

	objects, err := db.ObjectsForPage(ctx, database, page.ID)
	if err != nil {
		return nil, err
	}

	detail := &PageDetail{Page: *page, Objects: []ObjectStatus{}}
	for _, o := range objects {
		detail.Objects = append(detail.Objects, ObjectStatus{
			URL:       o.URL,
			SaveType:  o.SaveType.String(),
			Key:       o.Path,
			SizeBytes: store.SizeOf(o.Path, o.SaveType),
			Stored:    store.Exists(o.Path, o.SaveType),
		})
	}
	return &StatusOutput{Page: detail}, nil
}
