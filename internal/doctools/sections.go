package doctools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/docstore"
)

// ─── CreateSectionTool ──────────────────────────────────────────────────────

// CreateSectionTool handles the create_section MCP tool.
type CreateSectionTool struct {
	store *docstore.Store
}

// NewCreateSectionTool creates a CreateSectionTool with the given store.
func NewCreateSectionTool(store *docstore.Store) *CreateSectionTool {
	return &CreateSectionTool{store: store}
}

// Definition returns the MCP tool definition for create_section.
func (t *CreateSectionTool) Definition() mcp.Tool {
	return mcp.NewTool("create_section",
		mcp.WithDescription("Create a new section in a document (with parent for nesting)"),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
		mcp.WithString("heading",
			mcp.Required(),
			mcp.Description("Section heading"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Section body content"),
		),
		mcp.WithString("parent_section_id",
			mcp.Description("Optional parent section ID for nesting"),
		),
		mcp.WithNumber("order_index",
			mcp.Description("Order within parent (appended after existing siblings when omitted)"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Optional section metadata"),
		),
		mcp.WithString("section_id",
			mcp.Description("Optional section ID (generates UUID if not provided)"),
		),
	)
}

// Handle processes the create_section tool call.
func (t *CreateSectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sec, err := t.store.CreateSection(docstore.CreateSectionParams{
		DocumentID:      req.GetString("document_id", ""),
		Heading:         req.GetString("heading", ""),
		Body:            req.GetString("body", ""),
		ParentSectionID: optionalString(req, "parent_section_id"),
		OrderIndex:      optionalInt(req, "order_index"),
		Metadata:        mapArg(req, "metadata"),
		SectionID:       req.GetString("section_id", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(sec), nil
}

// ─── GetSectionTool ─────────────────────────────────────────────────────────

// GetSectionTool handles the get_section MCP tool.
type GetSectionTool struct {
	store *docstore.Store
}

// NewGetSectionTool creates a GetSectionTool with the given store.
func NewGetSectionTool(store *docstore.Store) *GetSectionTool {
	return &GetSectionTool{store: store}
}

// Definition returns the MCP tool definition for get_section.
func (t *GetSectionTool) Definition() mcp.Tool {
	return mcp.NewTool("get_section",
		mcp.WithDescription("Retrieve a section by ID with children"),
		mcp.WithString("section_id",
			mcp.Required(),
			mcp.Description("Section ID"),
		),
		mcp.WithBoolean("include_children",
			mcp.Description("Include children in response (default: true)"),
		),
		mcp.WithBoolean("include_links",
			mcp.Description("Include links in response (default: true)"),
		),
	)
}

// Handle processes the get_section tool call.
func (t *GetSectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sec, err := t.store.GetSection(
		req.GetString("section_id", ""),
		boolArg(req, "include_children", true),
		boolArg(req, "include_links", true),
	)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(sec), nil
}

// ─── UpdateSectionTool ──────────────────────────────────────────────────────

// UpdateSectionTool handles the update_section MCP tool.
type UpdateSectionTool struct {
	store *docstore.Store
}

// NewUpdateSectionTool creates an UpdateSectionTool with the given store.
func NewUpdateSectionTool(store *docstore.Store) *UpdateSectionTool {
	return &UpdateSectionTool{store: store}
}

// Definition returns the MCP tool definition for update_section.
func (t *UpdateSectionTool) Definition() mcp.Tool {
	return mcp.NewTool("update_section",
		mcp.WithDescription("Update section heading, body, or metadata"),
		mcp.WithString("section_id",
			mcp.Required(),
			mcp.Description("Section ID"),
		),
		mcp.WithString("heading",
			mcp.Description("New heading"),
		),
		mcp.WithString("body",
			mcp.Description("New body"),
		),
		mcp.WithNumber("order_index",
			mcp.Description("New order index"),
		),
		mcp.WithObject("metadata",
			mcp.Description("New metadata (replaces existing)"),
		),
	)
}

// Handle processes the update_section tool call.
func (t *UpdateSectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sec, err := t.store.UpdateSection(req.GetString("section_id", ""), docstore.UpdateSectionParams{
		Heading:    optionalString(req, "heading"),
		Body:       optionalString(req, "body"),
		OrderIndex: optionalInt(req, "order_index"),
		Metadata:   mapArg(req, "metadata"),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(sec), nil
}

// ─── DeleteSectionTool ──────────────────────────────────────────────────────

// DeleteSectionTool handles the delete_section MCP tool.
type DeleteSectionTool struct {
	store *docstore.Store
}

// NewDeleteSectionTool creates a DeleteSectionTool with the given store.
func NewDeleteSectionTool(store *docstore.Store) *DeleteSectionTool {
	return &DeleteSectionTool{store: store}
}

// Definition returns the MCP tool definition for delete_section.
func (t *DeleteSectionTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_section",
		mcp.WithDescription("Delete a section and its children"),
		mcp.WithString("section_id",
			mcp.Required(),
			mcp.Description("Section ID"),
		),
	)
}

// Handle processes the delete_section tool call.
func (t *DeleteSectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deleted, err := t.store.DeleteSection(req.GetString("section_id", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"deleted": deleted}), nil
}

// ─── SectionsByDocumentTool ─────────────────────────────────────────────────

// SectionsByDocumentTool handles the get_sections_by_document MCP tool.
type SectionsByDocumentTool struct {
	store *docstore.Store
}

// NewSectionsByDocumentTool creates a SectionsByDocumentTool with the given store.
func NewSectionsByDocumentTool(store *docstore.Store) *SectionsByDocumentTool {
	return &SectionsByDocumentTool{store: store}
}

// Definition returns the MCP tool definition for get_sections_by_document.
func (t *SectionsByDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("get_sections_by_document",
		mcp.WithDescription("Get all sections for a document (tree or flat)"),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
		mcp.WithBoolean("flat",
			mcp.Description("Return flat list instead of tree (default: false)"),
		),
		mcp.WithString("heading_pattern",
			mcp.Description("Optional heading pattern to filter by"),
		),
		mcp.WithObject("metadata_filter",
			mcp.Description("Optional metadata filter"),
		),
	)
}

// Handle processes the get_sections_by_document tool call.
func (t *SectionsByDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sections, err := t.store.SectionsByDocument(req.GetString("document_id", ""), docstore.ListSectionsOptions{
		Flat:           boolArg(req, "flat", false),
		HeadingPattern: req.GetString("heading_pattern", ""),
		MetadataFilter: mapArg(req, "metadata_filter"),
	})
	if err != nil {
		return toolError(err), nil
	}
	if sections == nil {
		sections = []*docstore.Section{}
	}
	return jsonResult(map[string]any{"sections": sections}), nil
}

// ─── SearchSectionsTool ─────────────────────────────────────────────────────

// SearchSectionsTool handles the search_sections MCP tool.
type SearchSectionsTool struct {
	store *docstore.Store
}

// NewSearchSectionsTool creates a SearchSectionsTool with the given store.
func NewSearchSectionsTool(store *docstore.Store) *SearchSectionsTool {
	return &SearchSectionsTool{store: store}
}

// Definition returns the MCP tool definition for search_sections.
func (t *SearchSectionsTool) Definition() mcp.Tool {
	return mcp.NewTool("search_sections",
		mcp.WithDescription("Full-text search across section headings and bodies"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithString("document_id",
			mcp.Description("Optional document ID to limit search"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 100)"),
		),
	)
}

// Handle processes the search_sections tool call.
func (t *SearchSectionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sections, err := t.store.SearchSections(
		req.GetString("query", ""),
		req.GetString("document_id", ""),
		intArg(req, "limit", 100),
	)
	if err != nil {
		return toolError(err), nil
	}
	if sections == nil {
		sections = []*docstore.Section{}
	}
	return jsonResult(map[string]any{"sections": sections}), nil
}
