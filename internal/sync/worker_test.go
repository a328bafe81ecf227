package sync

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wikivault/wikivault/internal/config"
	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/db"
	"github.com/wikivault/wikivault/internal/errors"
	"github.com/wikivault/wikivault/internal/mediawiki"
	"github.com/wikivault/wikivault/internal/offline"
)

// testEnv wires a worker against a fake wiki server.
type testEnv struct {
	db     *sql.DB
	store  *contentstore.Store
	client *mediawiki.Client
	worker *Worker
	server *httptest.Server
}

func newTestEnv(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := contentstore.New(t.TempDir(), nil)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig()
	cfg.MaxSaveRetries = 1

	interceptor := offline.New(http.DefaultTransport, database, store, cfg.Language, cfg.LRUCapacity, nil)
	httpClient := &http.Client{Transport: interceptor, Timeout: cfg.HTTPTimeout()}
	client := mediawiki.New(server.URL+"/api.php", httpClient)

	return &testEnv{
		db:     database,
		store:  store,
		client: client,
		worker: NewWorker(database, client, store, cfg, nil),
		server: server,
	}
}

// parseHandler serves a minimal action=parse response for any title.
func parseHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("page")
		fmt.Fprintf(w, `{"parse":{"title":%q,"pageid":42,"revid":1001,
			"text":{"*":"<h1>%s</h1><p>Offline body for %s.</p>"}}}`,
			title, title, title)
	})
}

func addQueuedPage(t *testing.T, database *sql.DB, title string) *db.ReadingListPage {
	t.Helper()
	now := time.Now().Unix()
	p := &db.ReadingListPage{
		ListID: db.DefaultListID, Site: "oldschool.runescape.wiki", Lang: "en",
		DisplayTitle: title, APITitle: title,
		Status: db.StatusQueuedSave, Offline: true, Mtime: now, Atime: now,
	}
	if err := db.InsertPage(context.Background(), database, p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunOnce_SavePass(t *testing.T) {
	env := newTestEnv(t, parseHandler())
	ctx := context.Background()
	page := addQueuedPage(t, env.db, "Abyssal_whip")

	report, err := env.worker.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if report.Saved != 1 || report.Failed != 0 {
		t.Fatalf("report: saved=%d failed=%d, want 1/0", report.Saved, report.Failed)
	}
	if report.RunID == "" {
		t.Error("run id should be set")
	}

	got, err := db.PageByID(ctx, env.db, page.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != db.StatusSaved {
		t.Errorf("status = %v, want saved", got.Status)
	}
	if got.SizeBytes <= 0 {
		t.Errorf("size_bytes = %d, want > 0", got.SizeBytes)
	}
	if got.Revision != 1001 {
		t.Errorf("revision = %d, want 1001", got.Revision)
	}
	if got.DownloadProgress != 100 {
		t.Errorf("download_progress = %d, want 100", got.DownloadProgress)
	}

	// Offline object recorded for the request URL.
	object, err := db.ObjectByURL(ctx, env.db, env.client.RequestURL("Abyssal_whip"), "en", contentstore.SaveTypeReadingList)
	if err != nil {
		t.Fatal(err)
	}
	if object == nil {
		t.Fatal("offline object missing after save")
	}
	if !env.store.Exists(object.Path, contentstore.SaveTypeReadingList) {
		t.Error("backing files missing after save")
	}

	// Full-text entry keyed by the canonical page URL.
	indexed, err := db.HasIndexEntry(ctx, env.db, env.client.PageURL("Abyssal_whip"))
	if err != nil {
		t.Fatal(err)
	}
	if !indexed {
		t.Error("full-text entry missing after save")
	}
}

func TestRunOnce_Idempotent(t *testing.T) {
	env := newTestEnv(t, parseHandler())
	ctx := context.Background()
	page := addQueuedPage(t, env.db, "Varrock")

	if _, err := env.worker.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	first, err := db.PageByID(ctx, env.db, page.ID)
	if err != nil {
		t.Fatal(err)
	}

	// A saved page with no pending changes is excluded from the next pass.
	report, err := env.worker.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Saved != 0 || report.Deleted != 0 {
		t.Errorf("second pass should be a no-op, got saved=%d deleted=%d",
			report.Saved, report.Deleted)
	}

	second, err := db.PageByID(ctx, env.db, page.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.SizeBytes != first.SizeBytes {
		t.Errorf("size changed on no-op pass: %d -> %d", first.SizeBytes, second.SizeBytes)
	}
}

func TestRunOnce_FailureKeepsPageQueued(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	ctx := context.Background()
	page := addQueuedPage(t, env.db, "Flaky")

	report, err := env.worker.RunOnce(ctx)
	if err != nil {
		t.Fatalf("per-page failure must not fail the batch: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("failed = %d, want 1", report.Failed)
	}

	got, err := db.PageByID(ctx, env.db, page.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != db.StatusQueuedSave {
		t.Errorf("status = %v, want still queued-save", got.Status)
	}
	if got.RetryCount != 1 {
		t.Errorf("retry_count = %d, want 1", got.RetryCount)
	}
}

func TestRunOnce_RetryExhaustionSetsError(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	ctx := context.Background()
	page := addQueuedPage(t, env.db, "Cursed")

	// MaxSaveRetries is 1 in the test env: two failing passes exhaust it.
	for i := 0; i < 2; i++ {
		if _, err := env.worker.RunOnce(ctx); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.PageByID(ctx, env.db, page.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != db.StatusError {
		t.Errorf("status = %v, want error after retry exhaustion", got.Status)
	}

	// Errored pages no longer appear in the save pass.
	report, err := env.worker.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 0 {
		t.Errorf("errored page should be excluded, got failed=%d", report.Failed)
	}
}

func TestRunOnce_DeletePass(t *testing.T) {
	env := newTestEnv(t, parseHandler())
	ctx := context.Background()
	page := addQueuedPage(t, env.db, "Doomed")

	if _, err := env.worker.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}

	// User marks the page for deletion.
	if err := db.QueuePageForDelete(ctx, env.db, page.ID); err != nil {
		t.Fatal(err)
	}

	report, err := env.worker.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Deleted != 1 {
		t.Fatalf("deleted = %d, want 1", report.Deleted)
	}

	// No offline object references the page.
	objects, err := db.ObjectsForPage(ctx, env.db, page.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 0 {
		t.Errorf("objects still reference deleted page: %v", objects)
	}

	// Backing files are gone.
	key := contentstore.ComputeKey(env.client.RequestURL("Doomed"), "en")
	if env.store.Exists(key, contentstore.SaveTypeReadingList) {
		t.Error("backing files should be removed")
	}

	// Full-text entry is gone.
	indexed, err := db.HasIndexEntry(ctx, env.db, env.client.PageURL("Doomed"))
	if err != nil {
		t.Fatal(err)
	}
	if indexed {
		t.Error("full-text entry should be removed")
	}

	// Page stays tracked but not stored offline.
	got, err := db.PageByID(ctx, env.db, page.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != db.StatusSaved || got.Offline || got.SizeBytes != 0 {
		t.Errorf("after delete: status=%v offline=%v size=%d, want saved/false/0",
			got.Status, got.Offline, got.SizeBytes)
	}
}

func TestRunOnce_SingleFlight(t *testing.T) {
	env := newTestEnv(t, parseHandler())

	env.worker.running.Store(true)
	_, err := env.worker.RunOnce(context.Background())
	if !errors.Is(err, errors.ErrSyncInProgress) {
		t.Errorf("expected SYNC_IN_PROGRESS, got %v", err)
	}
	env.worker.running.Store(false)

	// Guard is released after a normal pass.
	if _, err := env.worker.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := env.worker.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	env := newTestEnv(t, parseHandler())
	scheduler := NewScheduler(env.worker, 50*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := scheduler.Run(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("Run returned %v, want context.DeadlineExceeded", err)
	}
}
