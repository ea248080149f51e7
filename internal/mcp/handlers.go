package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/pocket/internal/capsule"
	"github.com/hpungsan/pocket/internal/config"
	"github.com/hpungsan/pocket/internal/errors"
	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store kv.Store
	cfg   *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store kv.Store, cfg *config.Config) *Handlers {
	return &Handlers{store: store, cfg: cfg}
}

// Request types for each tool

// CreateRequest represents the arguments for capsule_create.
type CreateRequest struct {
	Title       string `json:"title,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Level       string `json:"level,omitempty"`
	Description string `json:"description,omitempty"`
}

// SaveRequest represents the arguments for capsule_save.
type SaveRequest struct {
	Capsule *capsule.Capsule `json:"capsule"`
}

// IDRequest is the arguments of the tools addressing one capsule.
type IDRequest struct {
	ID string `json:"id"`
}

// ListRequest represents the arguments for capsule_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for capsule_export.
type ExportRequest struct {
	ID   string `json:"id"`
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for capsule_import.
type ImportRequest struct {
	Path string `json:"path"`
}

// MarkRequest represents the arguments for flashcard_mark.
type MarkRequest struct {
	ID    string `json:"id"`
	Index *int   `json:"index"`
	Known *bool  `json:"known"`
}

// SubmitRequest represents the arguments for quiz_submit.
type SubmitRequest struct {
	ID      string `json:"id"`
	Answers []int  `json:"answers"`
}

// CheckRequest represents the arguments for capsule_check.
type CheckRequest struct {
	Prune bool `json:"prune,omitempty"`
}

// Handler implementations

// HandleCreate handles the capsule_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Create(ctx, h.store, ops.CreateInput{
		Title:       input.Title,
		Subject:     input.Subject,
		Level:       input.Level,
		Description: input.Description,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSave handles the capsule_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Save(ctx, h.store, ops.SaveInput{Capsule: input.Capsule})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetch handles the capsule_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(ctx, h.store, ops.FetchInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the capsule_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(ctx, h.store, ops.ListInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the capsule_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(ctx, h.store, ops.DeleteInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the capsule_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.store, h.cfg, ops.ExportInput{
		ID:   input.ID,
		Path: input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the capsule_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.store, h.cfg, ops.ImportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleProgress handles the progress_get tool call.
func (h *Handlers) HandleProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.GetProgress(ctx, h.store, ops.ProgressInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMark handles the flashcard_mark tool call.
func (h *Handlers) HandleMark(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MarkRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Index == nil {
		return errorResult(errors.NewInvalidRequest("index is required")), nil
	}
	if input.Known == nil {
		return errorResult(errors.NewInvalidRequest("known is required")), nil
	}

	result, err := ops.MarkFlashcard(ctx, h.store, ops.MarkFlashcardInput{
		ID:    input.ID,
		Index: *input.Index,
		Known: *input.Known,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSubmit handles the quiz_submit tool call.
func (h *Handlers) HandleSubmit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SubmitRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SubmitQuiz(ctx, h.store, ops.SubmitQuizInput{
		ID:      input.ID,
		Answers: input.Answers,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCheck handles the capsule_check tool call.
func (h *Handlers) HandleCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CheckRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Check(ctx, h.store, ops.CheckInput{Prune: input.Prune})
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
	pErr, _ := errors.As(err)

	errorObj := map[string]any{
		"code":    pErr.Code,
		"message": pErr.Message,
		"status":  pErr.Status,
	}
	// Only include details for non-internal errors to avoid leaking
	// sensitive info like file paths or SQL errors
	if pErr.Code != errors.ErrInternal && pErr.Details != nil {
		errorObj["details"] = pErr.Details
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
