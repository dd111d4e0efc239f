// Package resources implements MCP resource handlers for the document store.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (docomatic://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/docstore"
)

// documentIndexLimit caps how many documents the index resource lists.
const documentIndexLimit = 1000

// Handler manages document resource endpoints.
type Handler struct {
	store *docstore.Store
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store *docstore.Store) *Handler {
	return &Handler{store: store}
}

// DocumentsResource returns the MCP resource definition for the document index.
func (h *Handler) DocumentsResource() mcp.Resource {
	return mcp.NewResource(
		"docomatic://documents",
		"Document Index",
		mcp.WithResourceDescription("All documents with their titles and section counts"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleDocuments returns the document index as JSON.
func (h *Handler) HandleDocuments(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	docs, err := h.store.ListDocuments(docstore.ListDocumentsOptions{Limit: documentIndexLimit})
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if docs == nil {
		docs = []docstore.DocumentSummary{}
	}

	data, err := json.MarshalIndent(map[string]any{"documents": docs}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling document index: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
