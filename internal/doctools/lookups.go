package doctools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/docstore"
)

// ─── SectionsByLinkTool ─────────────────────────────────────────────────────

// SectionsByLinkTool handles the get_sections_by_link MCP tool.
type SectionsByLinkTool struct {
	store *docstore.Store
}

// NewSectionsByLinkTool creates a SectionsByLinkTool with the given store.
func NewSectionsByLinkTool(store *docstore.Store) *SectionsByLinkTool {
	return &SectionsByLinkTool{store: store}
}

// Definition returns the MCP tool definition for get_sections_by_link.
func (t *SectionsByLinkTool) Definition() mcp.Tool {
	return mcp.NewTool("get_sections_by_link",
		mcp.WithDescription("Find all sections linked to a specific task/fact/GitHub resource"),
		mcp.WithString("link_type",
			mcp.Required(),
			mcp.Description("Link type"),
			mcp.Enum("todo-rama", "bucket-o-facts", "github"),
		),
		mcp.WithString("link_target",
			mcp.Required(),
			mcp.Description("Link target (URI or identifier)"),
		),
	)
}

// Handle processes the get_sections_by_link tool call.
func (t *SectionsByLinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := t.store.SectionsByLink(req.GetString("link_type", ""), req.GetString("link_target", ""))
	if err != nil {
		return toolError(err), nil
	}
	if refs == nil {
		refs = []docstore.SectionRef{}
	}
	return jsonResult(map[string]any{"sections": refs}), nil
}

// ─── DocumentsByLinkTool ────────────────────────────────────────────────────

// DocumentsByLinkTool handles the get_documents_by_link MCP tool.
type DocumentsByLinkTool struct {
	store *docstore.Store
}

// NewDocumentsByLinkTool creates a DocumentsByLinkTool with the given store.
func NewDocumentsByLinkTool(store *docstore.Store) *DocumentsByLinkTool {
	return &DocumentsByLinkTool{store: store}
}

// Definition returns the MCP tool definition for get_documents_by_link.
func (t *DocumentsByLinkTool) Definition() mcp.Tool {
	return mcp.NewTool("get_documents_by_link",
		mcp.WithDescription("Find all documents linked to a specific task/fact/GitHub resource"),
		mcp.WithString("link_type",
			mcp.Required(),
			mcp.Description("Link type"),
			mcp.Enum("todo-rama", "bucket-o-facts", "github"),
		),
		mcp.WithString("link_target",
			mcp.Required(),
			mcp.Description("Link target (URI or identifier)"),
		),
	)
}

// Handle processes the get_documents_by_link tool call.
func (t *DocumentsByLinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := t.store.DocumentsByLink(req.GetString("link_type", ""), req.GetString("link_target", ""))
	if err != nil {
		return toolError(err), nil
	}
	if refs == nil {
		refs = []docstore.DocumentRef{}
	}
	return jsonResult(map[string]any{"documents": refs}), nil
}

// ─── LinksByTypeTool ────────────────────────────────────────────────────────

// LinksByTypeTool handles the get_links_by_type MCP tool.
type LinksByTypeTool struct {
	store *docstore.Store
}

// NewLinksByTypeTool creates a LinksByTypeTool with the given store.
func NewLinksByTypeTool(store *docstore.Store) *LinksByTypeTool {
	return &LinksByTypeTool{store: store}
}

// Definition returns the MCP tool definition for get_links_by_type.
func (t *LinksByTypeTool) Definition() mcp.Tool {
	return mcp.NewTool("get_links_by_type",
		mcp.WithDescription("Get all links of a specific type"),
		mcp.WithString("link_type",
			mcp.Required(),
			mcp.Description("Link type"),
			mcp.Enum("todo-rama", "bucket-o-facts", "github"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of links to return (default: 100)"),
		),
	)
}

// Handle processes the get_links_by_type tool call.
func (t *LinksByTypeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	links, err := t.store.LinksByType(req.GetString("link_type", ""), intArg(req, "limit", 100))
	if err != nil {
		return toolError(err), nil
	}
	if links == nil {
		links = []docstore.Link{}
	}
	return jsonResult(map[string]any{"links": links}), nil
}

// ─── UpdateLinkMetadataTool ─────────────────────────────────────────────────

// UpdateLinkMetadataTool handles the update_link_metadata MCP tool.
type UpdateLinkMetadataTool struct {
	store *docstore.Store
}

// NewUpdateLinkMetadataTool creates an UpdateLinkMetadataTool with the given store.
func NewUpdateLinkMetadataTool(store *docstore.Store) *UpdateLinkMetadataTool {
	return &UpdateLinkMetadataTool{store: store}
}

// Definition returns the MCP tool definition for update_link_metadata.
func (t *UpdateLinkMetadataTool) Definition() mcp.Tool {
	return mcp.NewTool("update_link_metadata",
		mcp.WithDescription("Update link metadata"),
		mcp.WithString("link_id",
			mcp.Required(),
			mcp.Description("Link ID"),
		),
		mcp.WithObject("link_metadata",
			mcp.Required(),
			mcp.Description("New link metadata"),
		),
	)
}

// Handle processes the update_link_metadata tool call.
func (t *UpdateLinkMetadataTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link, err := t.store.UpdateLinkMetadata(req.GetString("link_id", ""), mapArg(req, "link_metadata"))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(link), nil
}

// ─── LinkReportTool ─────────────────────────────────────────────────────────

// LinkReportTool handles the generate_link_report MCP tool.
type LinkReportTool struct {
	store *docstore.Store
}

// NewLinkReportTool creates a LinkReportTool with the given store.
func NewLinkReportTool(store *docstore.Store) *LinkReportTool {
	return &LinkReportTool{store: store}
}

// Definition returns the MCP tool definition for generate_link_report.
func (t *LinkReportTool) Definition() mcp.Tool {
	return mcp.NewTool("generate_link_report",
		mcp.WithDescription("Generate a comprehensive link report with statistics"),
		mcp.WithString("document_id",
			mcp.Description("Optional document ID to filter by"),
		),
		mcp.WithString("link_type",
			mcp.Description("Optional link type to filter by"),
			mcp.Enum("todo-rama", "bucket-o-facts", "github"),
		),
	)
}

// Handle processes the generate_link_report tool call.
func (t *LinkReportTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := t.store.GenerateLinkReport(docstore.ReportOptions{
		DocumentID: req.GetString("document_id", ""),
		LinkType:   req.GetString("link_type", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(report), nil
}
