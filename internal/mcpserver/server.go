// Package mcpserver exposes the scoring engine as Model Context Protocol
// tools over stdio.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joelkehle/strategy-workbench/internal/session"
)

const (
	serverName    = "Strategy Workbench"
	serverVersion = "1.0.0"
)

// NewMCPServer registers every tool without starting the transport.
// sessions may be nil, in which case profile_analysis reports an error.
func NewMCPServer(sessions *session.Manager) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(true))
	h := &toolHandler{sessions: sessions}

	s.AddTool(mcp.NewTool("score_matrix",
		mcp.WithDescription("Compute the total weighted score and weight-sum warning of an IFE or EFE matrix."),
		mcp.WithString("matrix", mcp.Description("Matrix type: ife or efe."), mcp.Required(), mcp.Enum("ife", "efe")),
		mcp.WithString("factors",
			mcp.Description("JSON array of factors, each with id, description, weight (0.0-1.0), rating (1-4) and category."),
			mcp.Required(),
		),
	), h.handleScoreMatrix)

	s.AddTool(mcp.NewTool("classify_position",
		mcp.WithDescription("Place an IFE/EFE score pair in the nine-cell Internal-External matrix."),
		mcp.WithNumber("ife_score", mcp.Description("Total weighted IFE score (1.0-4.0)."), mcp.Required()),
		mcp.WithNumber("efe_score", mcp.Description("Total weighted EFE score (1.0-4.0)."), mcp.Required()),
	), h.handleClassifyPosition)

	s.AddTool(mcp.NewTool("derive_factors",
		mcp.WithDescription("Seed IFE and EFE factor lists from SWOT items with even weights and default ratings."),
		mcp.WithString("swot_items",
			mcp.Description("JSON array of SWOT items, each with id, description and category (strength, weakness, opportunity, threat)."),
			mcp.Required(),
		),
	), h.handleDeriveFactors)

	s.AddTool(mcp.NewTool("validate_factor",
		mcp.WithDescription("Check a candidate factor for a matrix and report the first rejected field."),
		mcp.WithString("matrix", mcp.Description("Matrix type: ife or efe."), mcp.Required(), mcp.Enum("ife", "efe")),
		mcp.WithString("description", mcp.Description("Factor description."), mcp.Required()),
		mcp.WithString("weight", mcp.Description("Weight as entered, e.g. 0.15."), mcp.Required()),
		mcp.WithString("rating", mcp.Description("Rating as entered, 1 to 4."), mcp.Required()),
		mcp.WithString("category", mcp.Description("strength, weakness, opportunity or threat."), mcp.Required()),
	), h.handleValidateFactor)

	s.AddTool(mcp.NewTool("profile_analysis",
		mcp.WithDescription("Scores, weight-sum warnings and IE position of a stored company profile."),
		mcp.WithString("profile_id", mcp.Description("Profile ID."), mcp.Required()),
	), h.handleProfileAnalysis)

	return s
}

func Serve(_ context.Context, sessions *session.Manager) error {
	return server.ServeStdio(NewMCPServer(sessions))
}
