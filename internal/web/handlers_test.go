package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wikivault/wikivault/internal/config"
	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/db"
	"github.com/wikivault/wikivault/internal/mediawiki"
	"github.com/wikivault/wikivault/internal/ops"
	"github.com/wikivault/wikivault/internal/sync"
)

type testServer struct {
	handler http.Handler
	db      *sql.DB
	store   *contentstore.Store
	cfg     *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := contentstore.New(t.TempDir(), nil)
	cfg := config.DefaultConfig()
	client := mediawiki.New(cfg.APIEndpoint, http.DefaultClient)
	worker := sync.NewWorker(database, client, store, cfg, nil)

	srv := NewServer(database, store, worker, cfg, "test", "127.0.0.1", 0)
	return &testServer{handler: srv.Handler, db: database, store: store, cfg: cfg}
}

func (ts *testServer) do(t *testing.T, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) addPage(t *testing.T, title string) *db.ReadingListPage {
	t.Helper()
	out, err := ops.AddPage(context.Background(), ts.db, ts.cfg, ops.AddPageInput{Title: title})
	if err != nil {
		t.Fatal(err)
	}
	return &out.Page
}

func TestRootRedirect(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "GET", "/", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/pages" {
		t.Errorf("location = %q, want /pages", loc)
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, "GET", "/pages", nil)

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing Content-Security-Policy")
	}
}

func TestHandlePages(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/pages", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No pages tracked yet") {
		t.Error("empty state not rendered")
	}

	ts.addPage(t, "Abyssal whip")

	rec = ts.do(t, "GET", "/pages", nil)
	if !strings.Contains(rec.Body.String(), "Abyssal whip") {
		t.Error("tracked page not listed")
	}
}

func TestHandlePages_UnknownList(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/pages?list=nope", map[string]string{"Accept": "application/json"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != "LIST_NOT_FOUND" {
		t.Errorf("code = %q, want LIST_NOT_FOUND", body.Error.Code)
	}
}

func TestHandleAddPage(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("POST", "/pages", strings.NewReader("title=Dragon+dagger"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302: %s", rec.Code, rec.Body.String())
	}

	page, err := db.PageByTitle(context.Background(), ts.db, db.DefaultListID, "en", "Dragon_dagger")
	if err != nil {
		t.Fatalf("page not created: %v", err)
	}
	if page.Status != db.StatusQueuedSave {
		t.Errorf("status = %v, want queued-save", page.Status)
	}
}

func TestHandleDetail_NotSavedYet(t *testing.T) {
	ts := newTestServer(t)
	page := ts.addPage(t, "Varrock")

	rec := ts.do(t, "GET", fmt.Sprintf("/pages/%d", page.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No offline copy yet") {
		t.Error("pending state not rendered")
	}
}

func TestHandleDetail_SanitizesStoredContent(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	page := ts.addPage(t, "Varrock")

	// Plant stored content for the page, as the sync worker would.
	html := `<p>The city of Varrock.</p><script>alert("xss")</script>`
	url := "https://oldschool.runescape.wiki/api.php?action=parse&page=Varrock"
	key := contentstore.ComputeKey(url, "en")
	if err := ts.store.Write(key, nil, []byte(html), contentstore.SaveTypeReadingList); err != nil {
		t.Fatal(err)
	}
	err := db.UpsertObject(ctx, ts.db, &db.OfflineObject{
		URL:      url,
		Lang:     "en",
		Path:     key,
		Status:   db.StatusSaved,
		UsedBy:   fmt.Sprintf("|%d|", page.ID),
		SaveType: contentstore.SaveTypeReadingList,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.MarkPageSaved(ctx, ts.db, page.ID, int64(len(html)), 1); err != nil {
		t.Fatal(err)
	}

	rec := ts.do(t, "GET", fmt.Sprintf("/pages/%d", page.ID), nil)
	body := rec.Body.String()
	if !strings.Contains(body, "The city of Varrock.") {
		t.Error("stored content not rendered")
	}
	if strings.Contains(body, "<script>") {
		t.Error("script tag survived sanitization")
	}
}

func TestHandleDetail_Errors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "GET", "/pages/99999", map[string]string{"Accept": "application/json"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rec.Code)
	}

	rec = ts.do(t, "GET", "/pages/not-a-number", map[string]string{"Accept": "application/json"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", rec.Code)
	}
}

func TestHandleRemove(t *testing.T) {
	ts := newTestServer(t)
	page := ts.addPage(t, "Varrock")

	rec := ts.do(t, "DELETE", fmt.Sprintf("/pages/%d", page.ID),
		map[string]string{"Accept": "application/json"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	got, err := db.PageByID(context.Background(), ts.db, page.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != db.StatusQueuedDelete {
		t.Errorf("status = %v, want queued-delete", got.Status)
	}
}

func TestHandleRemove_HTMXRedirect(t *testing.T) {
	ts := newTestServer(t)
	page := ts.addPage(t, "Varrock")

	rec := ts.do(t, "DELETE", fmt.Sprintf("/pages/%d", page.ID),
		map[string]string{"HX-Request": "true"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if loc := rec.Header().Get("HX-Redirect"); loc != "/pages" {
		t.Errorf("HX-Redirect = %q, want /pages", loc)
	}
}

func TestHandleForceSave(t *testing.T) {
	ts := newTestServer(t)
	page := ts.addPage(t, "Varrock")

	rec := ts.do(t, "POST", fmt.Sprintf("/pages/%d/force-save", page.ID),
		map[string]string{"Accept": "application/json"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	got, err := db.PageByID(context.Background(), ts.db, page.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != db.StatusQueuedForcedSave {
		t.Errorf("status = %v, want queued-forced-save", got.Status)
	}
}

func TestHandleLists(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	desc := "Guides with **bold** plans."
	if _, err := ops.CreateList(ctx, ts.db, ops.CreateListInput{Title: "Quests", Description: &desc}); err != nil {
		t.Fatal(err)
	}

	rec := ts.do(t, "GET", "/lists", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Quests") {
		t.Error("created list not shown")
	}
	if !strings.Contains(body, "<strong>bold</strong>") {
		t.Error("description markdown not rendered")
	}
}

func TestHandleSearch(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	rec := ts.do(t, "GET", "/pages/search", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("blank search: status = %d, want 200", rec.Code)
	}

	err := db.IndexPage(ctx, ts.db, "https://oldschool.runescape.wiki/w/Abyssal_whip",
		"Abyssal_whip", "The abyssal whip is a one-handed melee weapon.")
	if err != nil {
		t.Fatal(err)
	}

	rec = ts.do(t, "GET", "/pages/search?q=whip", nil)
	body := rec.Body.String()
	if !strings.Contains(body, "Abyssal_whip") {
		t.Error("match not rendered")
	}
	if !strings.Contains(body, "<b>whip</b>") {
		t.Error("highlight not rendered")
	}

	rec = ts.do(t, "GET", "/pages/search?q=zzzmissing", nil)
	if !strings.Contains(rec.Body.String(), "No matches") {
		t.Error("empty result state not rendered")
	}
}

func TestHandleSync(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "POST", "/sync", map[string]string{"Accept": "application/json"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Report struct {
			RunID string `json:"run_id"`
		} `json:"report"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Report.RunID == "" {
		t.Error("run id missing from sync report")
	}
}
