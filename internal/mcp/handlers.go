package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hbiui/LunaCare/internal/advisor"
	"github.com/hbiui/LunaCare/internal/config"
	"github.com/hbiui/LunaCare/internal/errors"
	"github.com/hbiui/LunaCare/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db      *sql.DB
	cfg     *config.Config
	advisor *advisor.Advisor
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, adv *advisor.Advisor) *Handlers {
	return &Handlers{db: db, cfg: cfg, advisor: adv}
}

// LogRequest represents the arguments for cycle_log_add and cycle_log_update.
type LogRequest struct {
	ID string `json:"id,omitempty"`
	ops.LogInput
}

// IDRequest represents the arguments for cycle_log_delete.
type IDRequest struct {
	ID string `json:"id"`
}

// ListRequest represents the arguments for cycle_log_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for cycle_export.
type ExportRequest struct {
	Path  string `json:"path,omitempty"`
	Label string `json:"label,omitempty"`
}

// ImportRequest represents the arguments for cycle_import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// AskRequest represents the arguments for advice_ask.
type AskRequest struct {
	Query   string `json:"query,omitempty"`
	TopicID string `json:"topic_id,omitempty"`
	Phase   string `json:"phase,omitempty"`
}

// SymptomRequest represents the arguments for the symptom tools.
type SymptomRequest struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji,omitempty"`
}

// HandleLogAdd handles the cycle_log_add tool call.
func (h *Handlers) HandleLogAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LogRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.AddLog(ctx, h.db, input.LogInput))
}

// HandleLogUpdate handles the cycle_log_update tool call.
func (h *Handlers) HandleLogUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LogRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.UpdateLog(ctx, h.db, input.ID, input.LogInput))
}

// HandleLogDelete handles the cycle_log_delete tool call.
func (h *Handlers) HandleLogDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.DeleteLog(ctx, h.db, input.ID))
}

// HandleLogList handles the cycle_log_list tool call.
func (h *Handlers) HandleLogList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.ListLogs(ctx, h.db, ops.ListInput{Limit: input.Limit, Offset: input.Offset}))
}

// HandleStatus handles the cycle_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(ops.Status(ctx, h.db, ops.StatusInput{}))
}

// HandlePredict handles the cycle_predict tool call.
func (h *Handlers) HandlePredict(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(ops.PredictNext(ctx, h.db))
}

// HandleStats handles the cycle_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(ops.Stats(ctx, h.db))
}

// HandleExport handles the cycle_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.Export(ctx, h.db, h.cfg, ops.ExportInput{Path: input.Path, Label: input.Label}))
}

// HandleImport handles the cycle_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.Import(ctx, h.db, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	}))
}

// HandleAsk handles the advice_ask tool call.
func (h *Handlers) HandleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AskRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.ResolveAdvice(ctx, h.db, h.advisor, ops.AdviceInput{
		Query:   input.Query,
		TopicID: input.TopicID,
		Phase:   input.Phase,
	}))
}

// HandleTip handles the advice_tip tool call.
func (h *Handlers) HandleTip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(ops.DailyTip(ctx, h.db, h.advisor, ops.TipInput{}))
}

// HandleTopics handles the advice_topics tool call.
func (h *Handlers) HandleTopics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(ops.Topics(ctx, h.db, ops.TopicsInput{}))
}

// HandleSymptomList handles the symptom_list tool call.
func (h *Handlers) HandleSymptomList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(ops.ListSymptoms(ctx, h.db))
}

// HandleSymptomAdd handles the symptom_add tool call.
func (h *Handlers) HandleSymptomAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SymptomRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(ops.AddSymptom(ctx, h.db, ops.SymptomInput{Name: input.Name, Emoji: input.Emoji}))
}

// HandleSymptomDelete handles the symptom_delete tool call.
func (h *Handlers) HandleSymptomDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SymptomRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := ops.DeleteSymptom(ctx, h.db, input.Name); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"deleted": true, "name": input.Name})
}

// Result helpers

// result turns an ops return pair into a tool result.
func result(data any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(data)
}

// errorResult creates an MCP error result from any error.
// INTERNAL errors are reported without their message or details, which may
// carry file paths or SQL.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    string(errors.ErrInternal),
		"message": "an internal error occurred",
		"status":  500,
	}

	var lunaErr *errors.LunaError
	if stderrors.As(err, &lunaErr) && lunaErr.Code != errors.ErrInternal {
		errorObj["code"] = string(lunaErr.Code)
		errorObj["status"] = lunaErr.Status
		// Keep wrapper context, e.g. "line 3: ..."
		errorObj["message"] = lunaErr.Message
		if err != error(lunaErr) {
			errorObj["message"] = err.Error()
		}
		if lunaErr.Details != nil {
			errorObj["details"] = lunaErr.Details
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
