package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/wikivault/wikivault/internal/errors"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func testPage(title string) *ReadingListPage {
	now := time.Now().Unix()
	return &ReadingListPage{
		ListID:       DefaultListID,
		Site:         "oldschool.runescape.wiki",
		Lang:         "en",
		DisplayTitle: title,
		APITitle:     title,
		Status:       StatusQueuedSave,
		Offline:      true,
		Mtime:        now,
		Atime:        now,
	}
}

func TestInsertPage_AssignsID(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	p := testPage("Abyssal_whip")
	if err := InsertPage(ctx, database, p); err != nil {
		t.Fatalf("InsertPage failed: %v", err)
	}
	if p.ID == 0 {
		t.Error("row id should be assigned")
	}

	got, err := PageByID(ctx, database, p.ID)
	if err != nil {
		t.Fatalf("PageByID failed: %v", err)
	}
	if got.APITitle != "Abyssal_whip" || got.Status != StatusQueuedSave || !got.Offline {
		t.Errorf("unexpected page: %+v", got)
	}
}

func TestInsertPage_DuplicateTitleInList(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	if err := InsertPage(ctx, database, testPage("Varrock")); err != nil {
		t.Fatal(err)
	}
	err := InsertPage(ctx, database, testPage("Varrock"))
	if !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("expected ALREADY_EXISTS, got %v", err)
	}
}

func TestPageByID_NotFound(t *testing.T) {
	database := testDB(t)
	_, err := PageByID(context.Background(), database, 999)
	if !errors.Is(err, errors.ErrPageNotFound) {
		t.Errorf("expected PAGE_NOT_FOUND, got %v", err)
	}
}

func TestPagesQueuedForSave(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	queued := testPage("Queued")
	forced := testPage("Forced")
	forced.Status = StatusQueuedForcedSave
	saved := testPage("Saved")
	saved.Status = StatusSaved
	tracked := testPage("Tracked")
	tracked.Status = StatusQueuedSave
	tracked.Offline = false
	errored := testPage("Errored")
	errored.Status = StatusError

	for _, p := range []*ReadingListPage{queued, forced, saved, tracked, errored} {
		if err := InsertPage(ctx, database, p); err != nil {
			t.Fatal(err)
		}
	}

	pages, err := PagesQueuedForSave(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d queued pages, want 2", len(pages))
	}
	if pages[0].APITitle != "Queued" || pages[1].APITitle != "Forced" {
		t.Errorf("unexpected queued pages: %s, %s", pages[0].APITitle, pages[1].APITitle)
	}
}

func TestMarkPageSaved(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	p := testPage("Zulrah")
	p.RetryCount = 3
	if err := InsertPage(ctx, database, p); err != nil {
		t.Fatal(err)
	}
	if err := MarkPageSaved(ctx, database, p.ID, 4096, 12345); err != nil {
		t.Fatalf("MarkPageSaved failed: %v", err)
	}

	got, err := PageByID(ctx, database, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusSaved {
		t.Errorf("status = %v, want saved", got.Status)
	}
	if got.SizeBytes != 4096 {
		t.Errorf("size_bytes = %d, want 4096", got.SizeBytes)
	}
	if got.Revision != 12345 {
		t.Errorf("revision = %d, want 12345", got.Revision)
	}
	if got.DownloadProgress != 100 {
		t.Errorf("download_progress = %d, want 100", got.DownloadProgress)
	}
	if got.RetryCount != 0 {
		t.Errorf("retry_count = %d, want 0", got.RetryCount)
	}
}

func TestMarkPageSaveFailed_RetryPolicy(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	p := testPage("Flaky")
	if err := InsertPage(ctx, database, p); err != nil {
		t.Fatal(err)
	}

	const maxRetries = 2
	// Failures within the budget keep the page queued.
	for i := 0; i < maxRetries; i++ {
		status, err := MarkPageSaveFailed(ctx, database, p.ID, maxRetries)
		if err != nil {
			t.Fatal(err)
		}
		if status != StatusQueuedSave {
			t.Fatalf("attempt %d: status = %v, want queued-save", i+1, status)
		}
	}

	// One more failure exhausts the budget.
	status, err := MarkPageSaveFailed(ctx, database, p.ID, maxRetries)
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusError {
		t.Errorf("status = %v, want error after retry exhaustion", status)
	}

	// Errored pages are excluded from the save pass.
	pages, err := PagesQueuedForSave(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 0 {
		t.Errorf("errored page should be excluded from save pass, got %d pages", len(pages))
	}
}

func TestQueuePageForcedSave_ResetsRetries(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	p := testPage("Retryable")
	p.Status = StatusError
	p.RetryCount = 6
	if err := InsertPage(ctx, database, p); err != nil {
		t.Fatal(err)
	}
	if err := QueuePageForcedSave(ctx, database, p.ID); err != nil {
		t.Fatal(err)
	}

	got, err := PageByID(ctx, database, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusQueuedForcedSave {
		t.Errorf("status = %v, want queued-forced-save", got.Status)
	}
	if got.RetryCount != 0 {
		t.Errorf("retry_count = %d, want 0", got.RetryCount)
	}
	if !got.Offline {
		t.Error("offline should be set")
	}
}

func TestCompletePageDelete(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	p := testPage("Doomed")
	p.Status = StatusQueuedDelete
	p.SizeBytes = 9000
	if err := InsertPage(ctx, database, p); err != nil {
		t.Fatal(err)
	}
	if err := CompletePageDelete(ctx, database, p.ID); err != nil {
		t.Fatal(err)
	}

	got, err := PageByID(ctx, database, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusSaved || got.Offline || got.SizeBytes != 0 {
		t.Errorf("after delete: status=%v offline=%v size=%d, want saved/false/0",
			got.Status, got.Offline, got.SizeBytes)
	}
}

func TestMarkPagesContentSaved(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	p1 := testPage("One")
	p2 := testPage("Two")
	for _, p := range []*ReadingListPage{p1, p2} {
		if err := InsertPage(ctx, database, p); err != nil {
			t.Fatal(err)
		}
	}

	if err := MarkPagesContentSaved(ctx, database, []int64{p1.ID, p2.ID, 9999}); err != nil {
		t.Fatalf("MarkPagesContentSaved failed: %v", err)
	}

	for _, id := range []int64{p1.ID, p2.ID} {
		got, err := PageByID(ctx, database, id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != StatusSaved {
			t.Errorf("page %d status = %v, want saved", id, got.Status)
		}
	}
}

func TestMarkPagesContentSaved_Empty(t *testing.T) {
	database := testDB(t)
	if err := MarkPagesContentSaved(context.Background(), database, nil); err != nil {
		t.Errorf("empty id list should be a no-op, got %v", err)
	}
}
