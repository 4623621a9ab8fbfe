package mcp

import (
	"database/sql"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hbiui/LunaCare/internal/advisor"
	"github.com/hbiui/LunaCare/internal/config"
)

// KnownTypes lists all valid tool type prefixes.
var KnownTypes = []string{"cycle", "advice", "symptom"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"cycle_log_add": {
		def:     logAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogAdd },
	},
	"cycle_log_update": {
		def:     logUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogUpdate },
	},
	"cycle_log_delete": {
		def:     logDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogDelete },
	},
	"cycle_log_list": {
		def:     logListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogList },
	},
	"cycle_status": {
		def:     statusToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatus },
	},
	"cycle_predict": {
		def:     predictToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePredict },
	},
	"cycle_stats": {
		def:     statsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
	"cycle_export": {
		def:     exportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"cycle_import": {
		def:     importToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"advice_ask": {
		def:     askToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAsk },
	},
	"advice_tip": {
		def:     tipToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTip },
	},
	"advice_topics": {
		def:     topicsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTopics },
	},
	"symptom_list": {
		def:     symptomListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSymptomList },
	},
	"symptom_add": {
		def:     symptomAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSymptomAdd },
	},
	"symptom_delete": {
		def:     symptomDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSymptomDelete },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns the unknown tool names in names.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns the unknown type names in names.
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

// GetTypeForTool extracts the type prefix of a tool name
// ("cycle_log_add" → "cycle").
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
	for _, name := range AllToolNames() {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server with the LunaCare tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are left out.
func NewServer(db *sql.DB, cfg *config.Config, adv *advisor.Advisor, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"lunacare",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, adv)

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

// Run serves MCP over stdio until stdin closes.
func Run(db *sql.DB, cfg *config.Config, adv *advisor.Advisor, version string) error {
	return server.ServeStdio(NewServer(db, cfg, adv, version))
}
