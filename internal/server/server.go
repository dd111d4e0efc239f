// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools/prompts/resources that depend on them.
// No business logic lives here, only wiring.
package server

import (
	"fmt"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/docomatic/docomatic/internal/backup"
	"github.com/docomatic/docomatic/internal/config"
	"github.com/docomatic/docomatic/internal/docstore"
	"github.com/docomatic/docomatic/internal/doctools"
	"github.com/docomatic/docomatic/internal/export"
	"github.com/docomatic/docomatic/internal/prompts"
	"github.com/docomatic/docomatic/internal/resources"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function stops the backup scheduler and closes
// the store's database connection. It must be called on shutdown
// (typically via defer) and is always non-nil.
func New(cfg *config.Config) (*server.MCPServer, func(), error) {
	// --- Create shared dependencies ---

	logger := newLogger(cfg.Logging)

	storeCfg := docstore.DefaultConfig()
	if cfg.Database.Path != "" {
		storeCfg.DBPath = cfg.Database.Path
	}
	if cfg.Database.MaxSearchResults > 0 {
		storeCfg.MaxSearchResults = cfg.Database.MaxSearchResults
	}

	store, err := docstore.New(storeCfg)
	if err != nil {
		return nil, noop, fmt.Errorf("opening document store: %w", err)
	}

	exporter := export.New(store, logger)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"docomatic",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerDocumentTools(s, store)
	registerSectionTools(s, store)
	registerLinkTools(s, store)
	registerExportTools(s, exporter, cfg.GitHub.Token)

	// --- Register prompts ---

	draftPrompt := prompts.NewDraftPrompt()
	s.AddPrompt(draftPrompt.Definition(), draftPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(store)
	s.AddResource(resourceHandler.DocumentsResource(), resourceHandler.HandleDocuments)

	// --- Start the backup scheduler ---
	//
	// The backup is an independent subsystem: a bad schedule or missing
	// repository config disables it with a warning, the server itself
	// stays fully functional.

	var scheduler *backup.Scheduler
	if cfg.BackupEnabled() {
		scheduler = backup.New(store, exporter, cfg.Backup, cfg.GitHub.Token, logger)
		if err := scheduler.Start(); err != nil {
			logger.Warn().Err(err).Msg("backup scheduler disabled")
			scheduler = nil
		}
	}

	cleanup := func() {
		if scheduler != nil {
			scheduler.Stop()
		}
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing document store")
		}
	}

	return s, cleanup, nil
}

// noop is a no-op cleanup function used as the default when store
// initialization fails.
func noop() {}

// newLogger builds the process logger. Logs always go to stderr so the
// stdio MCP transport keeps stdout to itself.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// registerDocumentTools registers the document CRUD tools.
func registerDocumentTools(s *server.MCPServer, store *docstore.Store) {
	createDocument := doctools.NewCreateDocumentTool(store)
	s.AddTool(createDocument.Definition(), createDocument.Handle)

	getDocument := doctools.NewGetDocumentTool(store)
	s.AddTool(getDocument.Definition(), getDocument.Handle)

	updateDocument := doctools.NewUpdateDocumentTool(store)
	s.AddTool(updateDocument.Definition(), updateDocument.Handle)

	deleteDocument := doctools.NewDeleteDocumentTool(store)
	s.AddTool(deleteDocument.Definition(), deleteDocument.Handle)

	listDocuments := doctools.NewListDocumentsTool(store)
	s.AddTool(listDocuments.Definition(), listDocuments.Handle)
}

// registerSectionTools registers section CRUD, tree manipulation, and
// search tools.
func registerSectionTools(s *server.MCPServer, store *docstore.Store) {
	createSection := doctools.NewCreateSectionTool(store)
	s.AddTool(createSection.Definition(), createSection.Handle)

	getSection := doctools.NewGetSectionTool(store)
	s.AddTool(getSection.Definition(), getSection.Handle)

	updateSection := doctools.NewUpdateSectionTool(store)
	s.AddTool(updateSection.Definition(), updateSection.Handle)

	deleteSection := doctools.NewDeleteSectionTool(store)
	s.AddTool(deleteSection.Definition(), deleteSection.Handle)

	sectionsByDocument := doctools.NewSectionsByDocumentTool(store)
	s.AddTool(sectionsByDocument.Definition(), sectionsByDocument.Handle)

	searchSections := doctools.NewSearchSectionsTool(store)
	s.AddTool(searchSections.Definition(), searchSections.Handle)

	moveSection := doctools.NewMoveSectionTool(store)
	s.AddTool(moveSection.Definition(), moveSection.Handle)

	reorderSections := doctools.NewReorderSectionsTool(store)
	s.AddTool(reorderSections.Definition(), reorderSections.Handle)

	sectionPath := doctools.NewSectionPathTool(store)
	s.AddTool(sectionPath.Definition(), sectionPath.Handle)
}

// registerLinkTools registers external link management and lookup tools.
func registerLinkTools(s *server.MCPServer, store *docstore.Store) {
	linkSection := doctools.NewLinkSectionTool(store)
	s.AddTool(linkSection.Definition(), linkSection.Handle)

	unlinkSection := doctools.NewUnlinkSectionTool(store)
	s.AddTool(unlinkSection.Definition(), unlinkSection.Handle)

	sectionLinks := doctools.NewSectionLinksTool(store)
	s.AddTool(sectionLinks.Definition(), sectionLinks.Handle)

	linkDocument := doctools.NewLinkDocumentTool(store)
	s.AddTool(linkDocument.Definition(), linkDocument.Handle)

	unlinkDocument := doctools.NewUnlinkDocumentTool(store)
	s.AddTool(unlinkDocument.Definition(), unlinkDocument.Handle)

	documentLinks := doctools.NewDocumentLinksTool(store)
	s.AddTool(documentLinks.Definition(), documentLinks.Handle)

	sectionsByLink := doctools.NewSectionsByLinkTool(store)
	s.AddTool(sectionsByLink.Definition(), sectionsByLink.Handle)

	documentsByLink := doctools.NewDocumentsByLinkTool(store)
	s.AddTool(documentsByLink.Definition(), documentsByLink.Handle)

	linksByType := doctools.NewLinksByTypeTool(store)
	s.AddTool(linksByType.Definition(), linksByType.Handle)

	updateLinkMetadata := doctools.NewUpdateLinkMetadataTool(store)
	s.AddTool(updateLinkMetadata.Definition(), updateLinkMetadata.Handle)

	linkReport := doctools.NewLinkReportTool(store)
	s.AddTool(linkReport.Definition(), linkReport.Handle)
}

// registerExportTools registers the local and GitHub export tools. The
// token is the configured fallback when a call provides none.
func registerExportTools(s *server.MCPServer, exporter *export.Exporter, token string) {
	exportDocument := doctools.NewExportDocumentTool(exporter)
	s.AddTool(exportDocument.Definition(), exportDocument.Handle)

	exportToGitHub := doctools.NewExportToGitHubTool(exporter, token)
	s.AddTool(exportToGitHub.Definition(), exportToGitHub.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use Doc-O-Matic effectively.
func serverInstructions() string {
	return `You have access to Doc-O-Matic, a structured documentation MCP server.

## What Doc-O-Matic is

Doc-O-Matic stores documentation as documents made of hierarchical sections.
A document is a container (user guide, design doc, runbook); sections hold
the actual Markdown content and nest to any depth. Sections and documents
can carry typed links into external systems: todo-rama tasks,
bucket-o-facts facts, and GitHub commits, pull requests, issues, or files.

## When to use it

Use Doc-O-Matic whenever the user wants documentation that outlives the
conversation: writing a guide, keeping a design document current,
maintaining runbooks, or connecting docs to the tasks and code they
describe. Prefer it over dumping Markdown into chat — the structure makes
the content searchable and exportable later.

## Working with documents

1. create_document with a title. Pass initial_sections to seed the outline
   in one call, or add sections afterwards.
2. create_section adds content: heading plus Markdown body. Nest with
   parent_section_id. Omit order_index to append after existing siblings.
3. Restructure with move_section (re-parent, cycle-safe) and
   reorder_sections (explicit sibling order). get_section_path shows where
   a section sits in the tree.
4. Find content with search_sections (full-text over headings and bodies)
   or get_sections_by_document (tree or flat, with heading/metadata
   filters).

Do not repeat the heading inside the body — headings are rendered from the
section tree on export. Keep bodies focused and split large topics into
child sections.

## Linking to external systems

link_section and link_document attach typed links. Target formats:
- todo-rama://project/task/<task_id> or todo-rama://task/<task_id>
- bucket-o-facts://fact/<fact_id>
- github://owner/repo/commit/<sha>, github://owner/repo/pull/<number>,
  github://owner/repo/issues/<number>, or github://owner/repo/blob/<path>

Reverse lookups answer "what documents touch this task?":
get_sections_by_link and get_documents_by_link resolve a target back to
the content that references it; get_links_by_type lists all links of one
type. generate_link_report summarizes link counts and the most-referenced
targets across the store.

Use link metadata (update_link_metadata) for attributes about the
relationship itself, such as {"relationship": "implements"} or a sync
timestamp.

## Exporting

- export_document renders a document to files locally (markdown or html)
  and returns them without touching the network. Use it to preview.
- export_to_github renders and pushes the files to a repository as one
  commit. It needs a GitHub token (parameter or GITHUB_TOKEN). Choose
  format "single" for one file per document or "multi" for one file per
  top-level section.

## Important rules

- Section bodies are Markdown. Use standard Markdown syntax; heading
  levels are derived from nesting depth at export time.
- Use document and section metadata for machine-readable attributes
  (author, status, tags), not for content.
- Deleting a document or section also deletes its subtree and links —
  confirm with the user before calling delete_document on non-trivial
  documents.
- The docomatic://documents resource lists every document with section
  counts when you need a cheap overview without a tool call.`
}
