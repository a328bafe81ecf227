package ops

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/wikivault/wikivault/internal/config"
	"github.com/wikivault/wikivault/internal/db"
	"github.com/wikivault/wikivault/internal/errors"
	"github.com/wikivault/wikivault/internal/mediawiki"
)

// AddPageInput contains parameters for the AddPage operation.
type AddPageInput struct {
	ListID string // default: the default reading list
	Title  string // required, canonicalized before storage
	Lang   string // default: config language
}

// AddPageOutput contains the result of the AddPage operation.
type AddPageOutput struct {
	Page db.ReadingListPage `json:"page"`
}

// AddPage tracks a new wiki page on a reading list. On a list with
// downloads enabled the page is queued for offline saving and the sync
// worker fetches its content on the next pass; otherwise the page is
// tracked without an offline copy.
func AddPage(ctx context.Context, database *sql.DB, cfg *config.Config, input AddPageInput) (*AddPageOutput, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.NewInvalidRequest("title is required")
	}

	listID := strings.TrimSpace(input.ListID)
	if listID == "" {
		listID = db.DefaultListID
	}
	list, err := db.ListByID(ctx, database, listID)
	if err != nil {
		return nil, err
	}

	lang := strings.TrimSpace(input.Lang)
	if lang == "" {
		lang = cfg.Language
	}

	apiTitle := mediawiki.CanonicalTitle(title)
	if apiTitle == "" {
		return nil, errors.NewInvalidRequest("title is empty after normalization")
	}

	// The list's download flag decides whether the page is queued for
	// offline saving or merely tracked (saved, no offline copy).
	status := db.StatusQueuedSave
	offline := true
	if !list.DownloadEnabled {
		status = db.StatusSaved
		offline = false
	}

	now := time.Now().Unix()
	page := &db.ReadingListPage{
		ListID:       listID,
		Site:         siteOf(cfg.APIEndpoint),
		Lang:         lang,
		DisplayTitle: strings.ReplaceAll(apiTitle, "_", " "),
		APITitle:     apiTitle,
		Status:       status,
		Offline:      offline,
		Mtime:        now,
		Atime:        now,
	}
	if err := db.InsertPage(ctx, database, page); err != nil {
		return nil, err
	}

	return &AddPageOutput{Page: *page}, nil
}

// siteOf extracts the wiki host from the configured API endpoint.
func siteOf(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return endpoint
	}
	return u.Host
}
