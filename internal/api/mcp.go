package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/travisfleish/staffing-plan-poc/internal/pipeline"
	"github.com/travisfleish/staffing-plan-poc/internal/planning"
	"github.com/travisfleish/staffing-plan-poc/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Pipeline *pipeline.Pipeline
	Store    *storage.Store
}

// NewMCPServer creates an MCP server exposing staffing-plan generation and
// contract search as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"staffplan",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("staffplan: generate staffing plans from SOW text, calibrated against historical contract hours."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_staffing_plan",
			mcp.WithDescription("Analyze SOW text and generate a per-role staffing plan calibrated against similar historical contracts."),
			mcp.WithString("contract_id", mcp.Description("Identifier for the new engagement"), mcp.Required()),
			mcp.WithString("sow_text", mcp.Description("The statement-of-work text to analyze"), mcp.Required()),
			mcp.WithNumber("max_team_size", mcp.Description("Maximum number of distinct roles on the team (default 8)")),
			mcp.WithNumber("scope_multiplier", mcp.Description("Scales allocated hours (default 1.0)")),
			mcp.WithNumber("duration_multiplier", mcp.Description("Scales the engagement duration (default 1.0)")),
		),
		mcpGeneratePlan(deps),
	)

	s.AddTool(
		mcp.NewTool("find_similar_contracts",
			mcp.WithDescription("Find historical contracts most similar to the given SOW text, with their recorded hours."),
			mcp.WithString("sow_text", mcp.Description("SOW text to match against the index"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpFindSimilar(deps),
	)

	s.AddTool(
		mcp.NewTool("index_contract",
			mcp.WithDescription("Add a historical SOW to the similarity index so future plans can calibrate against it."),
			mcp.WithString("contract_id", mcp.Description("Contract identifier"), mcp.Required()),
			mcp.WithString("sow_text", mcp.Description("The historical SOW text"), mcp.Required()),
			mcp.WithString("title", mcp.Description("Optional human-readable title")),
		),
		mcpIndexContract(deps),
	)

	s.AddTool(
		mcp.NewTool("plan_variance",
			mcp.WithDescription("Compare a stored plan against the actual hours recorded for its contract."),
			mcp.WithString("plan_id", mcp.Description("ID of a previously generated plan"), mcp.Required()),
		),
		mcpPlanVariance(deps),
	)

	return s
}

func mcpGeneratePlan(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contractID, err := req.RequireString("contract_id")
		if err != nil {
			return mcpError("contract_id is required"), nil
		}
		sowText, err := req.RequireString("sow_text")
		if err != nil {
			return mcpError("sow_text is required"), nil
		}

		res, err := deps.Pipeline.GeneratePlan(ctx, pipeline.PlanRequest{
			ContractID: contractID,
			SOWText:    sowText,
			Params: planning.Params{
				MaxTeamSize:        req.GetInt("max_team_size", 0),
				ScopeMultiplier:    req.GetFloat("scope_multiplier", 0),
				DurationMultiplier: req.GetFloat("duration_multiplier", 0),
			},
		})
		if err != nil {
			return mcpError(fmt.Sprintf("plan generation failed: %v", err)), nil
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal plan: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpFindSimilar(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sowText, err := req.RequireString("sow_text")
		if err != nil {
			return mcpError("sow_text is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		matches, err := deps.Pipeline.Similar(ctx, sowText, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}
		if len(matches) == 0 {
			return mcpText("[]"), nil
		}

		out := make([]matchJSON, len(matches))
		for i, m := range matches {
			out[i] = matchJSON{
				ContractID: m.ContractID,
				Similarity: m.Similarity,
				TotalHours: m.TotalHours,
				RoleShares: m.RoleShares,
			}
		}
		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpIndexContract(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		contractID, err := req.RequireString("contract_id")
		if err != nil {
			return mcpError("contract_id is required"), nil
		}
		sowText, err := req.RequireString("sow_text")
		if err != nil {
			return mcpError("sow_text is required"), nil
		}
		title := req.GetString("title", contractID)

		if err := deps.Pipeline.IndexContract(ctx, contractID, title, sowText); err != nil {
			return mcpError(fmt.Sprintf("indexing failed: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Indexed contract %s", contractID)), nil
	}
}

func mcpPlanVariance(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		planID, err := req.RequireString("plan_id")
		if err != nil {
			return mcpError("plan_id is required"), nil
		}

		rows, err := deps.Store.PlanVariance(planID)
		if err != nil {
			return mcpError(fmt.Sprintf("variance failed: %v", err)), nil
		}

		out := make([]varianceJSON, len(rows))
		for i, v := range rows {
			out[i] = varianceJSON{
				Role:          v.Role,
				PlannedHours:  v.PlannedHours,
				ActualHours:   v.ActualHours,
				VarianceHours: v.VarianceHours,
				VariancePct:   v.VariancePct,
			}
		}
		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal variance: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
