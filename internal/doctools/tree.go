package doctools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/docstore"
)

// ─── MoveSectionTool ────────────────────────────────────────────────────────

// MoveSectionTool handles the move_section MCP tool.
type MoveSectionTool struct {
	store *docstore.Store
}

// NewMoveSectionTool creates a MoveSectionTool with the given store.
func NewMoveSectionTool(store *docstore.Store) *MoveSectionTool {
	return &MoveSectionTool{store: store}
}

// Definition returns the MCP tool definition for move_section.
func (t *MoveSectionTool) Definition() mcp.Tool {
	return mcp.NewTool("move_section",
		mcp.WithDescription(
			"Move a section under a new parent (or to top level), keeping its descendants. "+
				"Rejects moves that would create a cycle.",
		),
		mcp.WithString("section_id",
			mcp.Required(),
			mcp.Description("Section ID to move"),
		),
		mcp.WithString("new_parent_section_id",
			mcp.Description("New parent section ID; omit to move to top level"),
		),
		mcp.WithNumber("order_index",
			mcp.Description("Position among the new siblings (appended when omitted)"),
		),
	)
}

// Handle processes the move_section tool call.
func (t *MoveSectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var parent *string
	if v := req.GetString("new_parent_section_id", ""); v != "" {
		parent = &v
	}

	sec, err := t.store.MoveSection(req.GetString("section_id", ""), parent, optionalInt(req, "order_index"))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(sec), nil
}

// ─── ReorderSectionsTool ────────────────────────────────────────────────────

// ReorderSectionsTool handles the reorder_sections MCP tool.
type ReorderSectionsTool struct {
	store *docstore.Store
}

// NewReorderSectionsTool creates a ReorderSectionsTool with the given store.
func NewReorderSectionsTool(store *docstore.Store) *ReorderSectionsTool {
	return &ReorderSectionsTool{store: store}
}

// Definition returns the MCP tool definition for reorder_sections.
func (t *ReorderSectionsTool) Definition() mcp.Tool {
	return mcp.NewTool("reorder_sections",
		mcp.WithDescription(
			"Reorder sibling sections under one parent. Listed sections get positions 0..n-1 in list order; "+
				"every listed section must already be a child of the given parent.",
		),
		mcp.WithString("parent_section_id",
			mcp.Description("Parent section ID; omit to reorder top-level sections"),
		),
		mcp.WithArray("section_order",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Section IDs in the desired order"),
		),
	)
}

// Handle processes the reorder_sections tool call.
func (t *ReorderSectionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var parent *string
	if v := req.GetString("parent_section_id", ""); v != "" {
		parent = &v
	}

	sections, err := t.store.ReorderSections(parent, stringSliceArg(req, "section_order"))
	if err != nil {
		return toolError(err), nil
	}
	if sections == nil {
		sections = []*docstore.Section{}
	}
	return jsonResult(map[string]any{"sections": sections}), nil
}

// ─── SectionPathTool ────────────────────────────────────────────────────────

// SectionPathTool handles the get_section_path MCP tool.
type SectionPathTool struct {
	store *docstore.Store
}

// NewSectionPathTool creates a SectionPathTool with the given store.
func NewSectionPathTool(store *docstore.Store) *SectionPathTool {
	return &SectionPathTool{store: store}
}

// Definition returns the MCP tool definition for get_section_path.
func (t *SectionPathTool) Definition() mcp.Tool {
	return mcp.NewTool("get_section_path",
		mcp.WithDescription("Get the chain of sections from a document's top level down to the given section"),
		mcp.WithString("section_id",
			mcp.Required(),
			mcp.Description("Section ID"),
		),
	)
}

// Handle processes the get_section_path tool call.
func (t *SectionPathTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := t.store.GetSectionPath(req.GetString("section_id", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"path": path}), nil
}
