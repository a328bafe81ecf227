package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// Tool definitions. Pages are addressed either by numeric id or by
// (list, lang, title), matching the ops layer.

var addPageToolDef = mcp.NewTool("page_add",
	mcp.WithDescription("Track a wiki page on a reading list. On a list with downloads enabled the page is queued for offline saving; run sync_run to fetch it."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Page title, canonicalized before storage")),
	mcp.WithString("list", mcp.Description("Reading list id (default: the default list)")),
	mcp.WithString("lang", mcp.Description("Page language code (default: configured language)")),
)

var removePageToolDef = mcp.NewTool("page_remove",
	mcp.WithDescription("Queue a tracked page for deletion. The next sync pass removes its stored content and search entry."),
	mcp.WithNumber("id", mcp.Description("Page id (alternative to title)")),
	mcp.WithString("title", mcp.Description("Page title (alternative to id)")),
	mcp.WithString("list", mcp.Description("Reading list id, used with title")),
	mcp.WithString("lang", mcp.Description("Page language, used with title")),
)

var forceSaveToolDef = mcp.NewTool("page_force_save",
	mcp.WithDescription("Queue a page for a forced re-download, resetting its retry budget."),
	mcp.WithNumber("id", mcp.Description("Page id (alternative to title)")),
	mcp.WithString("title", mcp.Description("Page title (alternative to id)")),
	mcp.WithString("list", mcp.Description("Reading list id, used with title")),
	mcp.WithString("lang", mcp.Description("Page language, used with title")),
)

var listPagesToolDef = mcp.NewTool("page_list",
	mcp.WithDescription("List the pages of a reading list with their sync status and stored size, most recently modified first."),
	mcp.WithString("list", mcp.Description("Reading list id (default: the default list)")),
	mcp.WithNumber("limit", mcp.Description("Max results (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Pagination offset")),
)

var searchToolDef = mcp.NewTool("page_search",
	mcp.WithDescription("Full-text search over saved page content. Snippets highlight matches with <b> tags."),
	mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
	mcp.WithNumber("limit", mcp.Description("Max results (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Pagination offset")),
)

var pageStatusToolDef = mcp.NewTool("page_status",
	mcp.WithDescription("Show one page's tracking state and the storage keys and byte sizes of its stored objects."),
	mcp.WithNumber("id", mcp.Description("Page id (alternative to title)")),
	mcp.WithString("title", mcp.Description("Page title (alternative to id)")),
	mcp.WithString("list", mcp.Description("Reading list id, used with title")),
	mcp.WithString("lang", mcp.Description("Page language, used with title")),
)

var exportToolDef = mcp.NewTool("page_export",
	mcp.WithDescription("Export a saved page's content as a Markdown file."),
	mcp.WithNumber("id", mcp.Description("Page id (alternative to title)")),
	mcp.WithString("title", mcp.Description("Page title (alternative to id)")),
	mcp.WithString("list", mcp.Description("Reading list id, used with title")),
	mcp.WithString("lang", mcp.Description("Page language, used with title")),
	mcp.WithString("path", mcp.Description("Destination .md path (default: the exports directory)")),
)

var createListToolDef = mcp.NewTool("list_create",
	mcp.WithDescription("Create a new reading list."),
	mcp.WithString("title", mcp.Required(), mcp.Description("List title")),
	mcp.WithString("description", mcp.Description("Optional description, Markdown")),
	mcp.WithBoolean("no_download", mcp.Description("Track pages on this list without saving them offline")),
)

var listsToolDef = mcp.NewTool("list_all",
	mcp.WithDescription("List all reading lists, the default list first."),
)

var vaultStatusToolDef = mcp.NewTool("vault_status",
	mcp.WithDescription("Show vault statistics: list and page counts, pages by sync state, total stored bytes."),
)

var syncRunToolDef = mcp.NewTool("sync_run",
	mcp.WithDescription("Run one sync pass: download queued saves, apply queued deletes. Reports per-page results."),
)
