// Package mcp exposes the vault operations as MCP tools over stdio, a
// machine-facing surface alongside the CLI and the web UI.
package mcp

import (
	"database/sql"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wikivault/wikivault/internal/config"
	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/sync"
)

// KnownTypes lists all valid tool type prefixes.
var KnownTypes = []string{"page", "list", "vault", "sync"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"page_add": {
		def:     addPageToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAddPage },
	},
	"page_remove": {
		def:     removePageToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRemovePage },
	},
	"page_force_save": {
		def:     forceSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleForceSave },
	},
	"page_list": {
		def:     listPagesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListPages },
	},
	"page_search": {
		def:     searchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"page_status": {
		def:     pageStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePageStatus },
	},
	"page_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"list_create": {
		def:     createListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreateList },
	},
	"list_all": {
		def:     listsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLists },
	},
	"vault_status": {
		def:     vaultStatusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleVaultStatus },
	},
	"sync_run": {
		def:     syncRunToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSyncRun },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "page_add" → "page").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with the vault tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, store *contentstore.Store, worker *sync.Worker, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"wikivault",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, store, worker, cfg)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, store *contentstore.Store, worker *sync.Worker, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(db, store, worker, cfg, version))
}
