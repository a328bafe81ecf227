package ops

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wikivault/wikivault/internal/config"
	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/db"
	"github.com/wikivault/wikivault/internal/mediawiki"
	"github.com/wikivault/wikivault/internal/offline"
	"github.com/wikivault/wikivault/internal/sync"
)

// TestFullWorkflow exercises the complete page lifecycle:
// add → sync → list → search → export → remove → sync → status
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()

	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	store := contentstore.New(t.TempDir(), nil)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("page")
		fmt.Fprintf(w, `{"parse":{"title":%q,"pageid":7,"revid":2002,
			"text":{"*":"<h1>%s</h1><p>The %s is a powerful one-handed weapon.</p>"}}}`,
			title, title, title)
	}))
	defer server.Close()

	exportDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedExportPaths = []string{exportDir}

	interceptor := offline.New(http.DefaultTransport, database, store, cfg.Language, cfg.LRUCapacity, nil)
	httpClient := &http.Client{Transport: interceptor, Timeout: cfg.HTTPTimeout()}
	client := mediawiki.New(server.URL+"/api.php", httpClient)
	worker := sync.NewWorker(database, client, store, cfg, nil)

	// 1. Add
	added, err := AddPage(ctx, database, cfg, AddPageInput{Title: "Abyssal whip"})
	require.NoError(t, err)
	require.Equal(t, db.StatusQueuedSave, added.Page.Status)

	// 2. Sync downloads the content
	syncOut, err := SyncNow(ctx, worker)
	require.NoError(t, err)
	require.Equal(t, 1, syncOut.Report.Saved)
	require.Zero(t, syncOut.Report.Failed)

	// 3. List reflects the saved state
	pagesOut, err := ListPages(ctx, database, ListPagesInput{})
	require.NoError(t, err)
	require.Len(t, pagesOut.Items, 1)
	require.Equal(t, db.StatusSaved, pagesOut.Items[0].Status)
	require.Positive(t, pagesOut.Items[0].SizeBytes)

	// 4. Search finds the stored content
	searchOut, err := Search(ctx, database, SearchInput{Query: "weapon"})
	require.NoError(t, err)
	require.Len(t, searchOut.Items, 1)
	require.Equal(t, client.PageURL("Abyssal_whip"), searchOut.Items[0].URL)
	require.Contains(t, searchOut.Items[0].Snippet, "<b>weapon</b>")

	// 5. Export works offline from the store
	server.Close() // no network from here on
	dest := filepath.Join(exportDir, "whip.md")
	exportOut, err := Export(ctx, database, store, cfg, ExportInput{ID: added.Page.ID, Path: dest})
	require.NoError(t, err)
	content, err := os.ReadFile(exportOut.Path)
	require.NoError(t, err)
	require.Contains(t, string(content), "# Abyssal whip")

	// 6. Remove queues the deletion
	_, err = RemovePage(ctx, database, RemovePageInput{ID: added.Page.ID})
	require.NoError(t, err)

	// 7. Sync applies it
	syncOut, err = SyncNow(ctx, worker)
	require.NoError(t, err)
	require.Equal(t, 1, syncOut.Report.Deleted)

	// 8. Status shows the page tracked but nothing stored
	statusOut, err := Status(ctx, database, store, StatusInput{})
	require.NoError(t, err)
	require.Equal(t, 1, statusOut.Stats.Pages)
	require.Zero(t, statusOut.Stats.OfflineBytes)
	require.Zero(t, statusOut.Stats.Objects)
	require.Zero(t, statusOut.Stats.IndexEntries)

	// Search no longer matches
	searchOut, err = Search(ctx, database, SearchInput{Query: "weapon"})
	require.NoError(t, err)
	require.Empty(t, searchOut.Items)
}

func TestSyncNow_ReportsInProgress(t *testing.T) {
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()

	store := contentstore.New(t.TempDir(), nil)
	cfg := config.DefaultConfig()
	client := mediawiki.New(cfg.APIEndpoint, http.DefaultClient)
	worker := sync.NewWorker(database, client, store, cfg, nil)

	// An empty vault syncs instantly.
	out, err := SyncNow(context.Background(), worker)
	require.NoError(t, err)
	require.Zero(t, out.Report.Saved)
	require.Zero(t, out.Report.Deleted)
	require.NotEmpty(t, out.Report.RunID)
}
