package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/joelkehle/strategy-workbench/internal/session"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

type toolHandler struct {
	sessions *session.Manager
}

type scoreResult struct {
	strategy.MatrixSummary
	Warning string `json:"warning,omitempty"`
}

func (h *toolHandler) handleScoreMatrix(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := strategy.ParseMatrixType(request.GetString("matrix", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var factors []strategy.Factor
	if err := decodeArgument(request, "factors", &factors); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	valid, err := strategy.ValidateFactors(m, factors)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid factors: %v", err)), nil
	}
	out := scoreResult{MatrixSummary: strategy.Summarize(m, valid)}
	if out.MatrixSummary.Warning != nil {
		out.Warning = out.MatrixSummary.Warning.Error()
	}
	return jsonResult(out)
}

func (h *toolHandler) handleClassifyPosition(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ife, ok := numberArg(request, "ife_score")
	if !ok {
		return mcp.NewToolResultError("ife_score must be a number"), nil
	}
	efe, ok := numberArg(request, "efe_score")
	if !ok {
		return mcp.NewToolResultError("efe_score must be a number"), nil
	}
	return jsonResult(strategy.Classify(ife, efe))
}

func (h *toolHandler) handleDeriveFactors(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var items []strategy.SwotItem
	if err := decodeArgument(request, "swot_items", &items); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	for i := range items {
		items[i].Category = strategy.Category(strings.ToLower(strings.TrimSpace(string(items[i].Category))))
	}
	return jsonResult(strategy.Derive(items))
}

func (h *toolHandler) handleValidateFactor(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := strategy.ParseMatrixType(request.GetString("matrix", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := strategy.ParseCategory(request.GetString("category", ""))
	if err != nil {
		return rejection(err), nil
	}
	weight, err := strategy.ParseWeight(request.GetString("weight", ""))
	if err != nil {
		return rejection(err), nil
	}
	rating, err := strategy.ParseRating(request.GetString("rating", ""))
	if err != nil {
		return rejection(err), nil
	}
	f, err := strategy.ValidateFactor(m, strategy.Factor{
		Description: request.GetString("description", ""),
		Weight:      weight,
		Rating:      rating,
		Category:    category,
	})
	if err != nil {
		return rejection(err), nil
	}
	return jsonResult(map[string]any{"valid": true, "factor": f})
}

func (h *toolHandler) handleProfileAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.sessions == nil {
		return mcp.NewToolResultError("no profile store configured"), nil
	}
	id := strings.TrimSpace(request.GetString("profile_id", ""))
	if id == "" {
		return mcp.NewToolResultError("profile_id is required"), nil
	}
	sess, err := h.sessions.Get(ctx, id)
	if err != nil {
		if session.IsNotFound(err) {
			return mcp.NewToolResultError(fmt.Sprintf("profile %q not found", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("load profile: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"profile":  sess.Profile(),
		"phase":    sess.Phase(),
		"analysis": sess.Analysis(),
	})
}

// rejection reports a validator failure with its code so callers can tell
// which field was refused.
func rejection(err error) *mcp.CallToolResult {
	var se *strategy.Error
	if errors.As(err, &se) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %s", se.Code, err.Error()))
	}
	return mcp.NewToolResultError(err.Error())
}

func numberArg(request mcp.CallToolRequest, key string) (float64, bool) {
	v, ok := request.GetArguments()[key].(float64)
	return v, ok
}

// decodeArgument accepts either a JSON value or a string holding JSON.
func decodeArgument(request mcp.CallToolRequest, name string, dst any) error {
	raw, ok := request.GetArguments()[name]
	if !ok || raw == nil {
		return fmt.Errorf("%s is required", name)
	}
	var blob []byte
	if s, ok := raw.(string); ok {
		blob = []byte(s)
	} else {
		var err error
		if blob, err = json.Marshal(raw); err != nil {
			return fmt.Errorf("%s: %v", name, err)
		}
	}
	if err := json.Unmarshal(blob, dst); err != nil {
		return fmt.Errorf("%s must be a JSON array of objects: %v", name, err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	blob, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(blob)), nil
}
