package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/partsdesk/internal/catalog"
	"github.com/ziadkadry99/partsdesk/internal/router"
	"github.com/ziadkadry99/partsdesk/internal/stream"
	"github.com/ziadkadry99/partsdesk/internal/vectordb"
)

func limitArg(request mcp.CallToolRequest, def int) int {
	limit := request.GetInt("limit", def)
	if limit <= 0 || limit > 50 {
		return def
	}
	return limit
}

func (s *Server) handleSearchParts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	parts, err := s.deps.Catalog.SearchParts(ctx, catalog.PartFilter{
		Query:         query,
		Brand:         request.GetString("brand", ""),
		ApplianceType: catalog.ParseApplianceType(request.GetString("appliance_type", "")),
		Limit:         limitArg(request, 10),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(parts) == 0 {
		return mcp.NewToolResultText("No parts found. Try a part number or a shorter keyword."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d part(s):\n\n", len(parts))
	for _, p := range parts {
		sb.WriteString(formatPart(p))
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleGetPart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	number, err := request.RequireString("part_number")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: part_number"), nil
	}

	part, err := s.deps.Catalog.GetPart(ctx, number)
	if errors.Is(err, catalog.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("No part found with number %q.", number)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatPart(*part)), nil
}

func (s *Server) handleCheckCompatibility(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	part, err := request.RequireString("part_number")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: part_number"), nil
	}
	model, err := request.RequireString("model_number")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: model_number"), nil
	}

	fact := s.deps.Compat.Check(ctx, part, model)
	text := fmt.Sprintf("%s\n\nStatus: %s\nConfidence: %.2f\nRule: %s\n", fact.Summary(), fact.Status, fact.Confidence, fact.Source)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSearchRepairs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	repairs, err := s.deps.Catalog.SearchRepairs(ctx, catalog.RepairFilter{
		Query:         query,
		ApplianceType: catalog.ParseApplianceType(request.GetString("appliance_type", "")),
		Limit:         limitArg(request, 5),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(repairs) == 0 {
		return mcp.NewToolResultText("No repair guides found for that symptom."), nil
	}

	var sb strings.Builder
	for _, r := range repairs {
		fmt.Fprintf(&sb, "## %s (%s)\n\n%s\n", r.Title, r.ApplianceType, r.Description)
		if len(r.PartNames) > 0 {
			fmt.Fprintf(&sb, "Parts to check: %s\n", strings.Join(r.PartNames, ", "))
		}
		if r.Difficulty != "" {
			fmt.Fprintf(&sb, "Difficulty: %s\n", r.Difficulty)
		}
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) handleSemanticSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	var filter *vectordb.SearchFilter
	kind := vectordb.DocumentKind(request.GetString("kind", ""))
	appliance := catalog.ParseApplianceType(request.GetString("appliance_type", ""))
	if kind != "" || appliance != "" {
		filter = &vectordb.SearchFilter{Kind: kind, ApplianceType: appliance}
	}

	results, err := s.deps.Vectors.Search(ctx, query, limitArg(request, 5), filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The catalog may not be indexed yet. Run `partsdesk index` to index it."), nil
	}
	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	sink := &stream.Collector{}
	class, err := s.deps.Resolver.Handle(ctx, router.Request{
		ConversationID: request.GetString("conversation_id", ""),
		Query:          question,
	}, sink)
	if err != nil {
		for _, f := range sink.Fragments() {
			if p, ok := f.Payload.(stream.FailedPayload); ok {
				return mcp.NewToolResultError(p.Reason), nil
			}
		}
		return mcp.NewToolResultError(fmt.Sprintf("request failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(sink.AnswerText())
	sb.WriteString("\n")
	for _, f := range sink.Fragments() {
		switch p := f.Payload.(type) {
		case stream.PartsPayload:
			sb.WriteString("\nParts:\n")
			for _, part := range p.Parts {
				fmt.Fprintf(&sb, "- %s %s ($%.2f)\n", part.PartNumber, part.Name, part.Price)
			}
		case stream.RepairsPayload:
			sb.WriteString("\nRepair guides:\n")
			for _, r := range p.Repairs {
				fmt.Fprintf(&sb, "- %s\n", r.Title)
			}
		case stream.ArticlesPayload:
			sb.WriteString("\nArticles:\n")
			for _, a := range p.Articles {
				fmt.Fprintf(&sb, "- %s\n", a.Title)
			}
		}
	}
	fmt.Fprintf(&sb, "\nconversation_id: %s\n", class.ConversationID)
	return mcp.NewToolResultText(sb.String()), nil
}

func formatPart(p catalog.Part) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", p.PartNumber, p.Name)
	fmt.Fprintf(&sb, "Brand: %s | Appliance: %s | Price: $%.2f | In stock: %t\n", p.Brand, p.ApplianceType, p.Price, p.InStock)
	if p.ManufacturerNumber != "" {
		fmt.Fprintf(&sb, "Manufacturer number: %s\n", p.ManufacturerNumber)
	}
	if p.InstallDifficulty != "" {
		fmt.Fprintf(&sb, "Install: %s, %s\n", p.InstallDifficulty, p.InstallTime)
	}
	if p.Description != "" {
		sb.WriteString(p.Description)
		sb.WriteString("\n")
	}
	return sb.String()
}
