package doctools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docomatic/docomatic/internal/export"
)

// exportOptions reads the rendering arguments shared by the export tools.
func exportOptions(req mcp.CallToolRequest) export.Options {
	opts := export.DefaultOptions()
	opts.Format = export.Format(req.GetString("format", string(opts.Format)))
	opts.FileNaming = req.GetString("file_naming", opts.FileNaming)
	opts.DirectoryStructure = req.GetString("directory_structure", opts.DirectoryStructure)
	opts.IncludeMetadata = boolArg(req, "include_metadata", true)
	opts.BasePath = req.GetString("base_path", opts.BasePath)
	return opts
}

// ─── ExportToGitHubTool ─────────────────────────────────────────────────────

// ExportToGitHubTool handles the export_to_github MCP tool.
type ExportToGitHubTool struct {
	exporter *export.Exporter
	token    string
}

// NewExportToGitHubTool creates an ExportToGitHubTool. token is the fallback
// GitHub token used when a call carries none.
func NewExportToGitHubTool(exporter *export.Exporter, token string) *ExportToGitHubTool {
	return &ExportToGitHubTool{exporter: exporter, token: token}
}

// Definition returns the MCP tool definition for export_to_github.
func (t *ExportToGitHubTool) Definition() mcp.Tool {
	return mcp.NewTool("export_to_github",
		mcp.WithDescription("Export a document to GitHub as Markdown file(s)"),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
		mcp.WithString("repo_owner",
			mcp.Required(),
			mcp.Description("GitHub repository owner"),
		),
		mcp.WithString("repo_name",
			mcp.Required(),
			mcp.Description("GitHub repository name"),
		),
		mcp.WithString("format",
			mcp.Description("Export format: single file or one file per section (default: single)"),
			mcp.Enum("single", "multi"),
		),
		mcp.WithString("file_naming",
			mcp.Description("File naming convention (default: kebab-case)"),
			mcp.Enum("kebab-case", "snake_case", "preserve"),
		),
		mcp.WithString("directory_structure",
			mcp.Description("Directory structure for multi-file exports (default: flat)"),
			mcp.Enum("flat", "hierarchical"),
		),
		mcp.WithBoolean("include_metadata",
			mcp.Description("Include metadata in frontmatter (default: true)"),
		),
		mcp.WithString("base_path",
			mcp.Description("Base directory path in repository (default: docs)"),
		),
		mcp.WithString("branch",
			mcp.Description("Optional branch name (creates if doesn't exist)"),
		),
		mcp.WithString("github_token",
			mcp.Description("GitHub personal access token (optional, uses GITHUB_TOKEN environment variable if not provided)"),
		),
	)
}

// Handle processes the export_to_github tool call.
func (t *ExportToGitHubTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	token := req.GetString("github_token", "")
	if token == "" {
		token = t.token
	}
	if token == "" {
		return mcp.NewToolResultError(
			"GitHub token is required. Provide github_token parameter or set GITHUB_TOKEN environment variable.",
		), nil
	}

	opts := exportOptions(req)
	opts.Branch = req.GetString("branch", "")

	result, err := t.exporter.ExportToGitHub(ctx, export.GitHubParams{
		DocumentID: req.GetString("document_id", ""),
		RepoOwner:  req.GetString("repo_owner", ""),
		RepoName:   req.GetString("repo_name", ""),
		Token:      token,
		Options:    opts,
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(result), nil
}

// ─── ExportDocumentTool ─────────────────────────────────────────────────────

// ExportDocumentTool handles the export_document MCP tool. It renders a
// document into files locally, without pushing anything to GitHub.
type ExportDocumentTool struct {
	exporter *export.Exporter
}

// NewExportDocumentTool creates an ExportDocumentTool with the given exporter.
func NewExportDocumentTool(exporter *export.Exporter) *ExportDocumentTool {
	return &ExportDocumentTool{exporter: exporter}
}

// Definition returns the MCP tool definition for export_document.
func (t *ExportDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("export_document",
		mcp.WithDescription("Render a document as Markdown or HTML file(s) and return their contents"),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Document ID"),
		),
		mcp.WithString("format",
			mcp.Description("Export format: single file or one file per section (default: single)"),
			mcp.Enum("single", "multi"),
		),
		mcp.WithString("file_naming",
			mcp.Description("File naming convention (default: kebab-case)"),
			mcp.Enum("kebab-case", "snake_case", "preserve"),
		),
		mcp.WithString("directory_structure",
			mcp.Description("Directory structure for multi-file exports (default: flat)"),
			mcp.Enum("flat", "hierarchical"),
		),
		mcp.WithBoolean("include_metadata",
			mcp.Description("Include metadata in frontmatter (default: true)"),
		),
		mcp.WithString("base_path",
			mcp.Description("Base directory path for the rendered files (default: docs)"),
		),
		mcp.WithString("content_format",
			mcp.Description("Rendered content format (default: markdown)"),
			mcp.Enum("markdown", "html"),
		),
	)
}

// Handle processes the export_document tool call.
func (t *ExportDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := exportOptions(req)
	opts.ContentFormat = req.GetString("content_format", "markdown")

	rendered, err := t.exporter.RenderDocument(req.GetString("document_id", ""), opts)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{
		"files":   rendered.Files,
		"message": rendered.Message,
	}), nil
}
