package web

import (
	"database/sql"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/wikivault/wikivault/internal/config"
	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/db"
	"github.com/wikivault/wikivault/internal/errors"
	"github.com/wikivault/wikivault/internal/ops"
	"github.com/wikivault/wikivault/internal/sync"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	db       *sql.DB
	store    *contentstore.Store
	worker   *sync.Worker
	cfg      *config.Config
	renderer *Renderer
}

// HandlePages handles GET /pages — pages tracked on a reading list.
func (h *Handlers) HandlePages(w http.ResponseWriter, r *http.Request) {
	listID := r.URL.Query().Get("list")

	input := ops.ListPagesInput{
		ListID: listID,
		Limit:  parseIntParam(r, "limit", 20),
		Offset: parseIntParam(r, "offset", 0),
	}

	result, err := ops.ListPages(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "pages", PagesPageData{
		PageData: PageData{
			Title:   "Pages",
			Version: h.renderer.version,
			Nav:     "pages",
		},
		Items:      result.Items,
		Pagination: result.Pagination,
		ListID:     listID,
	})
}

// HandleAddPage handles POST /pages — track a new page.
func (h *Handlers) HandleAddPage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	input := ops.AddPageInput{
		ListID: r.FormValue("list"),
		Title:  r.FormValue("title"),
		Lang:   r.FormValue("lang"),
	}

	result, err := ops.AddPage(r.Context(), h.db, h.cfg, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusCreated, result)
		return
	}
	http.Redirect(w, r, "/pages", http.StatusFound)
}

// HandleDetail handles GET /pages/{id} — the offline reader view.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	page, err := db.PageByID(r.Context(), h.db, id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	var content template.HTML
	if page.Offline && page.Status != db.StatusQueuedSave {
		if body, err := h.storedBody(r, page.ID); err == nil {
			content = sanitizeHTML(body)
		}
	}

	// Reading a page counts as access.
	_ = db.TouchPageAccess(r.Context(), h.db, page.ID)

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   page.DisplayTitle,
			Version: h.renderer.version,
			Nav:     "pages",
		},
		Page:        page,
		ContentHTML: content,
		HasContent:  content != "",
	})
}

// storedBody loads the page's saved HTML from the content store.
func (h *Handlers) storedBody(r *http.Request, pageID int64) ([]byte, error) {
	objects, err := db.ObjectsForPage(r.Context(), h.db, pageID)
	if err != nil {
		return nil, err
	}
	for _, object := range objects {
		if object.SaveType != contentstore.SaveTypeReadingList {
			continue
		}
		_, body, err := h.store.Read(object.Path, object.SaveType)
		if err != nil {
			return nil, err
		}
		return body, nil
	}
	return nil, errors.NewCacheMiss("", "")
}

// HandleRemove handles DELETE /pages/{id} — queue a page for deletion.
func (h *Handlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.RemovePage(r.Context(), h.db, ops.RemovePageInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/pages")
		w.WriteHeader(http.StatusOK)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/pages", http.StatusFound)
}

// HandleForceSave handles POST /pages/{id}/force-save — queue a forced re-download.
func (h *Handlers) HandleForceSave(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := ops.ForceSave(r.Context(), h.db, ops.ForceSaveInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/pages", http.StatusFound)
}

// HandleLists handles GET /lists — all reading lists.
func (h *Handlers) HandleLists(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Lists(r.Context(), h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	items := make([]listView, len(result.Items))
	for i, list := range result.Items {
		items[i] = listView{ReadingList: list}
		if list.Description != nil {
			items[i].DescriptionHTML = renderMarkdown(*list.Description)
		}
	}

	h.renderer.renderPage(w, r, "lists", ListsPageData{
		PageData: PageData{
			Title:   "Reading lists",
			Version: h.renderer.version,
			Nav:     "lists",
		},
		Items: items,
	})
}

// HandleSearch handles GET /pages/search — full-text search over saved pages.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	data := SearchPageData{
		PageData: PageData{
			Title:   "Search",
			Version: h.renderer.version,
			Nav:     "search",
		},
		Query:    query,
		HasQuery: query != "",
	}

	if query == "" {
		h.renderer.renderPage(w, r, "search", data)
		return
	}

	result, err := ops.Search(r.Context(), h.db, ops.SearchInput{
		Query:  query,
		Limit:  parseIntParam(r, "limit", 20),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	data.Items = result.Items
	data.Pagination = result.Pagination
	h.renderer.renderPage(w, r, "search", data)
}

// HandleSync handles POST /sync — trigger an immediate sync pass.
func (h *Handlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	result, err := ops.SyncNow(r.Context(), h.worker)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		renderJSON(w, http.StatusOK, result)
		return
	}
	http.Redirect(w, r, "/pages", http.StatusFound)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewInvalidRequest("page id must be a positive integer")
	}
	return id, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
