// Package mediawiki is a minimal client for a MediaWiki-style action API,
// fetching page HTML by title via action=parse.
package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/errors"
	"github.com/wikivault/wikivault/internal/offline"
)

// Client issues parse requests against a single wiki endpoint. When its
// http.Client carries the offline cache interceptor as transport, fetches
// flow through offline persistence and replay transparently.
type Client struct {
	endpoint   string // api.php URL
	httpClient *http.Client
}

// New creates a Client for the given api.php endpoint.
func New(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// ParseResult is the decoded payload of an action=parse response.
type ParseResult struct {
	Title      string // display title
	PageID     int64
	RevisionID int64
	HTML       string // rendered page HTML
	FromReplay bool   // true when served from the offline cache
	SizeOnWire int64  // response body length in bytes
}

// parseEnvelope mirrors the wire format of action=parse.
type parseEnvelope struct {
	Parse struct {
		Title  string `json:"title"`
		PageID int64  `json:"pageid"`
		RevID  int64  `json:"revid"`
		Text   struct {
			Content string `json:"*"`
		} `json:"text"`
	} `json:"parse"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// FetchOptions controls offline persistence of a parse fetch.
type FetchOptions struct {
	// Save flags the response for offline persistence.
	Save     bool
	SaveType contentstore.SaveType
	// Lang keys the stored content; empty keeps the configured language.
	Lang string
	// PageIDs attributes a reading-list save to owning pages.
	PageIDs []int64
}

// ParsePage fetches the rendered HTML of a page by API title.
func (c *Client) ParsePage(ctx context.Context, apiTitle string, opts FetchOptions) (*ParseResult, error) {
	reqURL := c.RequestURL(apiTitle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if opts.Save {
		offline.MarkForSave(req, opts.SaveType, opts.Lang, opts.PageIDs)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("parse fetch failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewInternal(fmt.Errorf("parse fetch: unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var envelope parseEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("parse fetch: malformed response: %w", err))
	}
	if envelope.Error != nil {
		if envelope.Error.Code == "missingtitle" {
			return nil, errors.NewPageNotFound(apiTitle)
		}
		return nil, errors.NewInternal(fmt.Errorf("parse fetch: api error %s: %s",
			envelope.Error.Code, envelope.Error.Info))
	}

	return &ParseResult{
		Title:      envelope.Parse.Title,
		PageID:     envelope.Parse.PageID,
		RevisionID: envelope.Parse.RevID,
		HTML:       envelope.Parse.Text.Content,
		FromReplay: offline.IsReplay(resp),
		SizeOnWire: int64(len(body)),
	}, nil
}

// RequestURL returns the api.php URL a parse fetch for apiTitle uses. This is
// also the URL the offline cache is keyed by.
func (c *Client) RequestURL(apiTitle string) string {
	query := url.Values{}
	query.Set("action", "parse")
	query.Set("page", apiTitle)
	query.Set("format", "json")
	query.Set("prop", "text|revid|displaytitle")
	return c.endpoint + "?" + query.Encode()
}

// PageURL returns the canonical page URL for an API title: the stable
// identifier used as the full-text index key, distinct from the request URL.
func (c *Client) PageURL(apiTitle string) string {
	base := strings.TrimSuffix(c.endpoint, "/api.php")
	return base + "/w/" + url.PathEscape(apiTitle)
}

// CanonicalTitle normalizes a user-entered title to API form: trimmed,
// fragment stripped, spaces collapsed to underscores, first rune uppercased.
func CanonicalTitle(title string) string {
	title = strings.TrimSpace(title)
	if i := strings.IndexByte(title, '#'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	title = strings.Join(strings.Fields(title), "_")
	if title == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}
