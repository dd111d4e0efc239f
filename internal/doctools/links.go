package doctools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/docstore"
)

// ─── LinkSectionTool ────────────────────────────────────────────────────────

// LinkSectionTool handles the link_section MCP tool.
type LinkSectionTool struct {
	store *docstore.Store
}

// NewLinkSectionTool creates a LinkSectionTool with the given store.
func NewLinkSectionTool(store *docstore.Store) *LinkSectionTool {
	return &LinkSectionTool{store: store}
}

// Definition returns the MCP tool definition for link_section.
func (t *LinkSectionTool) Definition() mcp.Tool {
	return mcp.NewTool("link_section",
		mcp.WithDescription("Link a section to To-Do-Rama task, Bucket-O-Facts fact, or GitHub resource"),
		mcp.WithString("section_id",
			mcp.Required(),
			mcp.Description("Section ID"),
		),
		mcp.WithString("link_type",
			mcp.Required(),
			mcp.Description("Link type"),
			mcp.Enum("todo-rama", "bucket-o-facts", "github"),
		),
		mcp.WithString("link_target",
			mcp.Required(),
			mcp.Description("Link target (URI or identifier)"),
		),
		mcp.WithObject("link_metadata",
			mcp.Description("Optional link metadata"),
		),
		mcp.WithString("link_id",
			mcp.Description("Optional link ID (generates UUID if not provided)"),
		),
	)
}

// Handle processes the link_section tool call.
func (t *LinkSectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link, err := t.store.LinkSection(docstore.LinkSectionParams{
		SectionID:    req.GetString("section_id", ""),
		LinkType:     req.GetString("link_type", ""),
		LinkTarget:   req.GetString("link_target", ""),
		LinkMetadata: mapArg(req, "link_metadata"),
		LinkID:       req.GetString("link_id", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(link), nil
}

// ─── UnlinkSectionTool ──────────────────────────────────────────────────────

// UnlinkSectionTool handles the unlink_section MCP tool.
type UnlinkSectionTool struct {
	store *docstore.Store
}

// NewUnlinkSectionTool creates an UnlinkSectionTool with the given store.
func NewUnlinkSectionTool(store *docstore.Store) *UnlinkSectionTool {
	return &UnlinkSectionTool{store: store}
}

// Definition returns the MCP tool definition for unlink_section.
func (t *UnlinkSectionTool) Definition() mcp.Tool {
	return mcp.NewTool("unlink_section",
		mcp.WithDescription("Remove a link from a section"),
		mcp.WithString("link_id",
			mcp.Required(),
			mcp.Description("Link ID"),
		),
	)
}

// Handle processes the unlink_section tool call.
func (t *UnlinkSectionTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deleted, err := t.store.Unlink(req.GetString("link_id", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"deleted": deleted}), nil
}

// ─── SectionLinksTool ───────────────────────────────────────────────────────

// SectionLinksTool handles the get_section_links MCP tool.
type SectionLinksTool struct {
	store *docstore.Store
}

// NewSectionLinksTool creates a SectionLinksTool with the given store.
func NewSectionLinksTool(store *docstore.Store) *SectionLinksTool {
	return &SectionLinksTool{store: store}
}

// Definition returns the MCP tool definition for get_section_links.
func (t *SectionLinksTool) Definition() mcp.Tool {
	return mcp.NewTool("get_section_links",
		mcp.WithDescription("Get all links for a section"),
		mcp.WithString("section_id",
			mcp.Required(),
			mcp.Description("Section ID"),
		),
	)
}

// Handle processes the get_section_links tool call.
func (t *SectionLinksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	links, err := t.store.SectionLinks(req.GetString("section_id", ""))
	if err != nil {
		return toolError(err), nil
	}
	if links == nil {
		links = []docstore.Link{}
	}
	return jsonResult(map[string]any{"links": links}), nil
}

// ─── LinkDocumentTool ───────────────────────────────────────────────────────

// LinkDocumentTool handles the link_document MCP tool.
type LinkDocumentTool struct {
	store *docstore.Store
}

// NewLinkDocumentTool creates a LinkDocumentTool with the given store.
func NewLinkDocumentTool(store *docstore.Store) *LinkDocumentTool {
	return &LinkDocumentTool{store: store}
}

// Definition returns the MCP tool definition for link_document.
func (t *LinkDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("link_document",
		mcp.WithDescription("Link a document to To-Do-Rama task, Bucket-O-Facts fact, or GitHub resource"),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
		mcp.WithString("link_type",
			mcp.Required(),
			mcp.Description("Link type"),
			mcp.Enum("todo-rama", "bucket-o-facts", "github"),
		),
		mcp.WithString("link_target",
			mcp.Required(),
			mcp.Description("Link target (URI or identifier)"),
		),
		mcp.WithObject("link_metadata",
			mcp.Description("Optional link metadata"),
		),
		mcp.WithString("link_id",
			mcp.Description("Optional link ID (generates UUID if not provided)"),
		),
	)
}

// Handle processes the link_document tool call.
func (t *LinkDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	link, err := t.store.LinkDocument(docstore.LinkDocumentParams{
		DocumentID:   req.GetString("document_id", ""),
		LinkType:     req.GetString("link_type", ""),
		LinkTarget:   req.GetString("link_target", ""),
		LinkMetadata: mapArg(req, "link_metadata"),
		LinkID:       req.GetString("link_id", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(link), nil
}

// ─── UnlinkDocumentTool ─────────────────────────────────────────────────────

// UnlinkDocumentTool handles the unlink_document MCP tool.
type UnlinkDocumentTool struct {
	store *docstore.Store
}

// NewUnlinkDocumentTool creates an UnlinkDocumentTool with the given store.
func NewUnlinkDocumentTool(store *docstore.Store) *UnlinkDocumentTool {
	return &UnlinkDocumentTool{store: store}
}

// Definition returns the MCP tool definition for unlink_document.
func (t *UnlinkDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("unlink_document",
		mcp.WithDescription("Remove a link from a document"),
		mcp.WithString("link_id",
			mcp.Required(),
			mcp.Description("Link ID"),
		),
	)
}

// Handle processes the unlink_document tool call.
func (t *UnlinkDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deleted, err := t.store.Unlink(req.GetString("link_id", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"deleted": deleted}), nil
}

// ─── DocumentLinksTool ──────────────────────────────────────────────────────

// DocumentLinksTool handles the get_document_links MCP tool.
type DocumentLinksTool struct {
	store *docstore.Store
}

// NewDocumentLinksTool creates a DocumentLinksTool with the given store.
func NewDocumentLinksTool(store *docstore.Store) *DocumentLinksTool {
	return &DocumentLinksTool{store: store}
}

// Definition returns the MCP tool definition for get_document_links.
func (t *DocumentLinksTool) Definition() mcp.Tool {
	return mcp.NewTool("get_document_links",
		mcp.WithDescription("Get all links for a document"),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
	)
}

// Handle processes the get_document_links tool call.
func (t *DocumentLinksTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	links, err := t.store.DocumentLinks(req.GetString("document_id", ""))
	if err != nil {
		return toolError(err), nil
	}
	if links == nil {
		links = []docstore.Link{}
	}
	return jsonResult(map[string]any{"links": links}), nil
}
