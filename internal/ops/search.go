package ops

import (
	"context"
	"database/sql"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/wikivault/wikivault/internal/db"
	"github.com/wikivault/wikivault/internal/errors"
)

// MaxSnippetChars bounds the rendered match context.
const MaxSnippetChars = 300

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Query  string // required
	Limit  int    // default: 20, max: 100
	Offset int    // default: 0
}

// SearchResultItem is a single full-text match.
type SearchResultItem struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	// Snippet is HTML-safe: page content is escaped; only <b>...</b>
	// highlight tags are present.
	Snippet string `json:"snippet"`
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Items      []SearchResultItem `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"` // "relevance"
}

// Search performs full-text search across saved page content. Results are
// ranked by relevance; only pages whose content is stored offline appear.
func Search(ctx context.Context, database *sql.DB, input SearchInput) (*SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, errors.NewInvalidRequest("query is required")
	}

	limit := clampLimit(input.Limit, DefaultSearchLimit, MaxSearchLimit)
	offset := max(input.Offset, 0)

	results, total, err := db.SearchIndex(ctx, database, query, limit, offset)
	if err != nil {
		return nil, err
	}

	items := make([]SearchResultItem, len(results))
	for i, r := range results {
		snippet := escapeSnippetHTML(r.Snippet)
		snippet = truncateSnippet(snippet, MaxSnippetChars)
		items[i] = SearchResultItem{
			URL:     r.URL,
			Title:   r.Title,
			Snippet: snippet,
		}
	}

	return &SearchOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
		Sort: "relevance",
	}, nil
}

// escapeSnippetHTML escapes page content in a snippet while preserving the
// highlight markers, which become <b> tags. Page bodies are untrusted wiki
// text, so everything except the markers is escaped.
func escapeSnippetHTML(s string) string {
	// Placeholders that cannot occur in page text.
	const (
		openPlaceholder  = "\x00WV_B_OPEN\x00"
		closePlaceholder = "\x00WV_B_CLOSE\x00"
	)

	s = strings.ReplaceAll(s, db.SnippetOpenMarker, openPlaceholder)
	s = strings.ReplaceAll(s, db.SnippetCloseMarker, closePlaceholder)

	s = html.EscapeString(s)

	s = strings.ReplaceAll(s, openPlaceholder, "<b>")
	s = strings.ReplaceAll(s, closePlaceholder, "</b>")
	return s
}

// truncateSnippet truncates a snippet to approximately maxChars while
// preserving valid UTF-8, closing any open <b> tags, and preferring word
// boundaries when possible.
func truncateSnippet(s string, maxChars int) string {
	if maxChars <= 0 {
		return "..."
	}
	if len(s) <= maxChars {
		return s
	}

	// Never split a multi-byte rune.
	truncateAt := maxChars
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	if truncateAt == 0 {
		return "..."
	}
	truncated := s[:truncateAt]

	// Trim any partial tag or entity suffix. The only tags present are
	// <b> and </b>; escaped content may contain entities like &lt;.
	if lastLT := strings.LastIndex(truncated, "<"); lastLT != -1 && !strings.Contains(truncated[lastLT:], ">") {
		truncated = truncated[:lastLT]
	}
	if lastAmp := strings.LastIndex(truncated, "&"); lastAmp != -1 && !strings.Contains(truncated[lastAmp:], ";") {
		truncated = truncated[:lastAmp]
	}

	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > truncateAt/2 {
		truncated = truncated[:lastSpace]
	}

	unclosed := strings.Count(truncated, "<b>") - strings.Count(truncated, "</b>")
	for range unclosed {
		truncated += "</b>"
	}

	return truncated + "..."
}
