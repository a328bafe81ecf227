package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wikivault/wikivault/internal/config"
	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/errors"
	"github.com/wikivault/wikivault/internal/ops"
	"github.com/wikivault/wikivault/internal/sync"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db     *sql.DB
	store  *contentstore.Store
	worker *sync.Worker
	cfg    *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, store *contentstore.Store, worker *sync.Worker, cfg *config.Config) *Handlers {
	return &Handlers{db: db, store: store, worker: worker, cfg: cfg}
}

// Request types for each tool

// AddPageRequest represents the arguments for page_add.
type AddPageRequest struct {
	Title string `json:"title"`
	List  string `json:"list,omitempty"`
	Lang  string `json:"lang,omitempty"`
}

// PageRefRequest addresses a page by id or by (list, lang, title).
// Shared by page_remove, page_force_save, and page_status.
type PageRefRequest struct {
	ID    int64  `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	List  string `json:"list,omitempty"`
	Lang  string `json:"lang,omitempty"`
}

// ListPagesRequest represents the arguments for page_list.
type ListPagesRequest struct {
	List   string `json:"list,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// SearchRequest represents the arguments for page_search.
type SearchRequest struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for page_export.
type ExportRequest struct {
	ID    int64  `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
	List  string `json:"list,omitempty"`
	Lang  string `json:"lang,omitempty"`
	Path  string `json:"path,omitempty"`
}

// CreateListRequest represents the arguments for list_create.
type CreateListRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	NoDownload  bool    `json:"no_download,omitempty"`
}

// Handler implementations

// HandleAddPage handles the page_add tool call.
func (h *Handlers) HandleAddPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddPageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddPage(ctx, h.db, h.cfg, ops.AddPageInput{
		ListID: input.List,
		Title:  input.Title,
		Lang:   input.Lang,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRemovePage handles the page_remove tool call.
func (h *Handlers) HandleRemovePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RemovePage(ctx, h.db, ops.RemovePageInput{
		ID:     input.ID,
		ListID: input.List,
		Lang:   input.Lang,
		Title:  input.Title,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleForceSave handles the page_force_save tool call.
func (h *Handlers) HandleForceSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ForceSave(ctx, h.db, ops.ForceSaveInput{
		ID:     input.ID,
		ListID: input.List,
		Lang:   input.Lang,
		Title:  input.Title,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListPages handles the page_list tool call.
func (h *Handlers) HandleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListPagesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListPages(ctx, h.db, ops.ListPagesInput{
		ListID: input.List,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the page_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Search(ctx, h.db, ops.SearchInput{
		Query:  input.Query,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandlePageStatus handles the page_status tool call.
func (h *Handlers) HandlePageStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRefRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == 0 && input.Title == "" {
		return errorResult(errors.NewInvalidRequest("must specify either id or title")), nil
	}

	result, err := ops.Status(ctx, h.db, h.store, ops.StatusInput{
		ID:     input.ID,
		ListID: input.List,
		Lang:   input.Lang,
		Title:  input.Title,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the page_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.store, h.cfg, ops.ExportInput{
		ID:     input.ID,
		ListID: input.List,
		Lang:   input.Lang,
		Title:  input.Title,
		Path:   input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCreateList handles the list_create tool call.
func (h *Handlers) HandleCreateList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CreateList(ctx, h.db, ops.CreateListInput{
		Title:       input.Title,
		Description: input.Description,
		NoDownload:  input.NoDownload,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLists handles the list_all tool call.
func (h *Handlers) HandleLists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Lists(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleVaultStatus handles the vault_status tool call.
func (h *Handlers) HandleVaultStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Status(ctx, h.db, h.store, ops.StatusInput{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSyncRun handles the sync_run tool call.
func (h *Handlers) HandleSyncRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.SyncNow(ctx, h.worker)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if vaultErr, ok := err.(*errors.VaultError); ok {
		errorObj := map[string]any{
			"code":    vaultErr.Code,
			"message": vaultErr.Message,
			"status":  vaultErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if vaultErr.Code != errors.ErrInternal && vaultErr.Details != nil {
			errorObj["details"] = vaultErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
