// Package offline implements the cache interceptor: an http.RoundTripper
// that persists responses flagged for offline saving and replays stored
// responses when the live fetch fails.
package offline

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/db"
)

// Headers consumed by the interceptor. Both are stripped before the request
// goes to the wire.
const (
	// SaveHeader carries the persist-intent: "readinglist" or "fullarchive".
	SaveHeader = "X-Offline-Save"
	// PageLibIDsHeader attributes a reading-list save to owning page ids,
	// pipe-delimited as "|7|12|".
	PageLibIDsHeader = "X-Offline-Save-PageLibIds"
	// SaveLangHeader overrides the interceptor's configured language for
	// this request's cache key and index row.
	SaveLangHeader = "X-Offline-Save-Lang"
)

// cacheStatusLine marks a replayed response's Status. The header set of a
// replayed response is exactly the stored one.
const cacheStatusLine = "200 OK (served from offline cache)"

// Interceptor wraps a base transport with offline persistence and replay.
// It executes synchronously on the calling request's goroutine; only the
// page-status bookkeeping after a successful save runs detached.
type Interceptor struct {
	base    http.RoundTripper
	db      *sql.DB
	store   *contentstore.Store
	lang    string
	cache   *statusCache
	logger  *slog.Logger
	pending sync.WaitGroup
}

// New creates an Interceptor. A nil base falls back to
// http.DefaultTransport; a nil logger falls back to slog.Default().
func New(base http.RoundTripper, database *sql.DB, store *contentstore.Store, lang string, lruCapacity int, logger *slog.Logger) *Interceptor {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Interceptor{
		base:   base,
		db:     database,
		store:  store,
		lang:   lang,
		cache:  newStatusCache(lruCapacity),
		logger: logger,
	}
}

// MarkForSave attaches the offline-save headers to a request. Page ids are
// only meaningful for reading-list saves. An empty lang keeps the
// interceptor's configured language.
func MarkForSave(req *http.Request, saveType contentstore.SaveType, lang string, pageIDs []int64) {
	req.Header.Set(SaveHeader, saveType.String())
	if lang != "" {
		req.Header.Set(SaveLangHeader, lang)
	}
	if saveType == contentstore.SaveTypeReadingList && len(pageIDs) > 0 {
		req.Header.Set(PageLibIDsHeader, db.JoinUsedBy(pageIDs))
	}
}

// IsReplay reports whether resp was served from the offline cache rather
// than the live network.
func IsReplay(resp *http.Response) bool {
	return resp != nil && resp.Status == cacheStatusLine
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	saveType, wantSave := contentstore.ParseSaveType(req.Header.Get(SaveHeader))
	pageIDs := db.ParseUsedBy(req.Header.Get(PageLibIDsHeader))

	outReq := req
	if req.Header.Get(SaveHeader) != "" || req.Header.Get(PageLibIDsHeader) != "" || req.Header.Get(SaveLangHeader) != "" {
		outReq = req.Clone(req.Context())
		outReq.Header.Del(SaveHeader)
		outReq.Header.Del(PageLibIDsHeader)
		outReq.Header.Del(SaveLangHeader)
	}

	resp, err := i.base.RoundTrip(outReq)
	if err != nil {
		// Network failure: attempt replay from the offline cache before
		// propagating the original error.
		if cached := i.replay(req); cached != nil {
			return cached, nil
		}
		return nil, err
	}

	if wantSave && isHTTPSuccess(resp.StatusCode) {
		body, rerr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if rerr != nil {
			// The connection died mid-body; a truncated 200 must not
			// reach the caller. Same fallback as a failed round trip.
			if cached := i.replay(req); cached != nil {
				return cached, nil
			}
			return nil, rerr
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
		i.persist(req, resp, body, saveType, pageIDs)
	}
	return resp, nil
}

// langFor resolves the language a request is keyed under: the save-lang
// header when present, the configured language otherwise.
func (i *Interceptor) langFor(req *http.Request) string {
	if lang := req.Header.Get(SaveLangHeader); lang != "" {
		return lang
	}
	return i.lang
}

// persist stores the response body and headers, records the offline object,
// and kicks off the detached page-status update. The response handed back to
// the caller is unaffected by persistence failures.
func (i *Interceptor) persist(req *http.Request, resp *http.Response, body []byte, saveType contentstore.SaveType, pageIDs []int64) {
	url := req.URL.String()
	lang := i.langFor(req)
	key := contentstore.ComputeKey(url, lang)

	if err := i.store.Write(key, flattenHeader(resp.Header), body, saveType); err != nil {
		// Leave no offline-object row so a later replay correctly misses.
		i.logger.Warn("offline save: failed to persist content",
			"url", url, "error", err)
		return
	}

	usedBy := ""
	if saveType == contentstore.SaveTypeReadingList {
		usedBy = db.JoinUsedBy(pageIDs)
	}
	object := &db.OfflineObject{
		URL:      url,
		Lang:     lang,
		Path:     key,
		Status:   db.StatusSaved,
		UsedBy:   usedBy,
		SaveType: saveType,
	}
	if err := db.UpsertObject(req.Context(), i.db, object); err != nil {
		i.logger.Warn("offline save: failed to record offline object",
			"url", url, "error", err)
		return
	}

	i.cache.Put(key, statusForSaveType(saveType))

	// Fire-and-forget: the response returns to the caller immediately while
	// the page-status update races independently. Failures are logged only.
	if len(pageIDs) > 0 && saveType == contentstore.SaveTypeReadingList {
		i.pending.Add(1)
		go func() {
			defer i.pending.Done()
			if err := db.MarkPagesContentSaved(context.Background(), i.db, pageIDs); err != nil {
				i.logger.Warn("offline save: failed to update page status",
					"pages", pageIDs, "error", err)
			}
		}()
	}
}

// replay serves a previously stored response for the request's (url, lang),
// trying the full-archive save type before the reading-list one. Returns nil
// when nothing usable is stored.
func (i *Interceptor) replay(req *http.Request) *http.Response {
	url := req.URL.String()
	lang := i.langFor(req)
	key := contentstore.ComputeKey(url, lang)

	// The status cache short-circuits index lookups for resources already
	// known, in either direction.
	if status, ok := i.cache.Get(key); ok {
		switch status {
		case NotCached:
			return nil
		case CachedFullArchive:
			if resp := i.replayFrom(req, key, contentstore.SaveTypeFullArchive); resp != nil {
				return resp
			}
		case CachedReadingList:
			if resp := i.replayFrom(req, key, contentstore.SaveTypeReadingList); resp != nil {
				return resp
			}
		}
		// Remembered entry turned out unusable; fall through to the index.
	}

	for _, saveType := range []contentstore.SaveType{contentstore.SaveTypeFullArchive, contentstore.SaveTypeReadingList} {
		object, err := db.ObjectByURL(req.Context(), i.db, url, lang, saveType)
		if err != nil {
			i.logger.Warn("offline replay: index lookup failed", "url", url, "error", err)
			return nil
		}
		if object == nil {
			continue
		}
		if resp := i.replayFrom(req, object.Path, saveType); resp != nil {
			return resp
		}
	}

	i.cache.Put(key, NotCached)
	return nil
}

// replayFrom synthesizes a success response from stored content, demoting
// the status cache when the backing files are missing.
func (i *Interceptor) replayFrom(req *http.Request, key string, saveType contentstore.SaveType) *http.Response {
	headers, body, err := i.store.Read(key, saveType)
	if err != nil {
		// Expected-cached entry with missing files, e.g. OS storage cleanup.
		i.cache.Put(key, NotCached)
		return nil
	}

	i.cache.Put(key, statusForSaveType(saveType))

	header := make(http.Header, len(headers))
	for name, value := range headers {
		header.Set(name, value)
	}
	return &http.Response{
		Status:        cacheStatusLine,
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// Flush blocks until all detached page-status updates have completed.
func (i *Interceptor) Flush() {
	i.pending.Wait()
}

func isHTTPSuccess(code int) bool {
	return code >= 200 && code < 300
}

func statusForSaveType(saveType contentstore.SaveType) CacheStatus {
	if saveType == contentstore.SaveTypeFullArchive {
		return CachedFullArchive
	}
	return CachedReadingList
}

// flattenHeader collapses an http.Header to single values for storage.
// Multi-valued headers are joined the way they appear on the wire.
func flattenHeader(h http.Header) map[string]string {
	flat := make(map[string]string, len(h))
	for name, values := range h {
		flat[name] = strings.Join(values, ", ")
	}
	return flat
}
