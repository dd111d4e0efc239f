package doctools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/docstore"
)

// ─── CreateDocumentTool ─────────────────────────────────────────────────────

// CreateDocumentTool handles the create_document MCP tool.
type CreateDocumentTool struct {
	store *docstore.Store
}

// NewCreateDocumentTool creates a CreateDocumentTool with the given store.
func NewCreateDocumentTool(store *docstore.Store) *CreateDocumentTool {
	return &CreateDocumentTool{store: store}
}

// Definition returns the MCP tool definition for create_document.
func (t *CreateDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("create_document",
		mcp.WithDescription("Create a new document with title and optional initial sections"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Document title"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Optional document metadata"),
		),
		mcp.WithString("document_id",
			mcp.Description("Optional document ID (generates UUID if not provided)"),
		),
		mcp.WithArray("initial_sections",
			mcp.Description("Optional list of initial sections"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":                map[string]any{"type": "string"},
					"heading":           map[string]any{"type": "string"},
					"body":              map[string]any{"type": "string"},
					"order_index":       map[string]any{"type": "integer"},
					"parent_section_id": map[string]any{"type": "string"},
					"metadata":          map[string]any{"type": "object"},
				},
				"required": []string{"heading", "body"},
			}),
		),
	)
}

// Handle processes the create_document tool call.
func (t *CreateDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := t.store.CreateDocument(docstore.CreateDocumentParams{
		Title:           req.GetString("title", ""),
		Metadata:        mapArg(req, "metadata"),
		DocumentID:      req.GetString("document_id", ""),
		InitialSections: initialSectionsArg(req, "initial_sections"),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(doc), nil
}

// ─── GetDocumentTool ────────────────────────────────────────────────────────

// GetDocumentTool handles the get_document MCP tool.
type GetDocumentTool struct {
	store *docstore.Store
}

// NewGetDocumentTool creates a GetDocumentTool with the given store.
func NewGetDocumentTool(store *docstore.Store) *GetDocumentTool {
	return &GetDocumentTool{store: store}
}

// Definition returns the MCP tool definition for get_document.
func (t *GetDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("get_document",
		mcp.WithDescription("Retrieve a document by ID with all sections (tree structure)"),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
		mcp.WithBoolean("include_sections",
			mcp.Description("Include sections in response (default: true)"),
		),
		mcp.WithBoolean("include_links",
			mcp.Description("Include links in response (default: true)"),
		),
	)
}

// Handle processes the get_document tool call.
func (t *GetDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := t.store.GetDocument(
		req.GetString("document_id", ""),
		boolArg(req, "include_sections", true),
		boolArg(req, "include_links", true),
	)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(doc), nil
}

// ─── UpdateDocumentTool ─────────────────────────────────────────────────────

// UpdateDocumentTool handles the update_document MCP tool.
type UpdateDocumentTool struct {
	store *docstore.Store
}

// NewUpdateDocumentTool creates an UpdateDocumentTool with the given store.
func NewUpdateDocumentTool(store *docstore.Store) *UpdateDocumentTool {
	return &UpdateDocumentTool{store: store}
}

// Definition returns the MCP tool definition for update_document.
func (t *UpdateDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("update_document",
		mcp.WithDescription("Update document title or metadata"),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
		mcp.WithString("title",
			mcp.Description("New title"),
		),
		mcp.WithObject("metadata",
			mcp.Description("New metadata (replaces existing)"),
		),
	)
}

// Handle processes the update_document tool call.
func (t *UpdateDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := t.store.UpdateDocument(req.GetString("document_id", ""), docstore.UpdateDocumentParams{
		Title:    optionalString(req, "title"),
		Metadata: mapArg(req, "metadata"),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(doc), nil
}

// ─── DeleteDocumentTool ─────────────────────────────────────────────────────

// DeleteDocumentTool handles the delete_document MCP tool.
type DeleteDocumentTool struct {
	store *docstore.Store
}

// NewDeleteDocumentTool creates a DeleteDocumentTool with the given store.
func NewDeleteDocumentTool(store *docstore.Store) *DeleteDocumentTool {
	return &DeleteDocumentTool{store: store}
}

// Definition returns the MCP tool definition for delete_document.
func (t *DeleteDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_document",
		mcp.WithDescription("Delete a document and all its sections"),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
	)
}

// Handle processes the delete_document tool call.
func (t *DeleteDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	deleted, err := t.store.DeleteDocument(req.GetString("document_id", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"deleted": deleted}), nil
}

// ─── ListDocumentsTool ──────────────────────────────────────────────────────

// ListDocumentsTool handles the list_documents MCP tool.
type ListDocumentsTool struct {
	store *docstore.Store
}

// NewListDocumentsTool creates a ListDocumentsTool with the given store.
func NewListDocumentsTool(store *docstore.Store) *ListDocumentsTool {
	return &ListDocumentsTool{store: store}
}

// Definition returns the MCP tool definition for list_documents.
func (t *ListDocumentsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_documents",
		mcp.WithDescription("List all documents with optional filtering"),
		mcp.WithString("title_pattern",
			mcp.Description("Optional title pattern to filter by"),
		),
		mcp.WithObject("metadata_filter",
			mcp.Description("Optional metadata filter"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of documents (default: 100)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of documents to skip (default: 0)"),
		),
	)
}

// Handle processes the list_documents tool call.
func (t *ListDocumentsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := t.store.ListDocuments(docstore.ListDocumentsOptions{
		TitlePattern:   req.GetString("title_pattern", ""),
		MetadataFilter: mapArg(req, "metadata_filter"),
		Limit:          intArg(req, "limit", 100),
		Offset:         intArg(req, "offset", 0),
	})
	if err != nil {
		return toolError(err), nil
	}
	if docs == nil {
		docs = []docstore.DocumentSummary{}
	}
	return jsonResult(map[string]any{"documents": docs}), nil
}
