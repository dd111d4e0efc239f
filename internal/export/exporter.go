package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/docomatic/docomatic/internal/docstore"
)

// Exporter renders documents from the store and publishes them.
type Exporter struct {
	store *docstore.Store
	log   zerolog.Logger
}

// New builds an Exporter on top of the given store.
func New(store *docstore.Store, log zerolog.Logger) *Exporter {
	return &Exporter{store: store, log: log}
}

// GitHubParams describe one GitHub export run.
type GitHubParams struct {
	DocumentID string
	RepoOwner  string
	RepoName   string
	Token      string
	Options    Options
}

// RenderDocument renders a document into files without touching the
// network. Used by the local export tool.
func (e *Exporter) RenderDocument(documentID string, opts Options) (*Rendered, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, &docstore.ValidationError{Field: "document_id", Message: "Document ID must be a non-empty string"}
	}
	doc, err := e.store.GetDocument(documentID, true, true)
	if err != nil {
		return nil, err
	}
	return Render(doc, opts)
}

// ExportToGitHub renders a document and pushes the files to a repository.
func (e *Exporter) ExportToGitHub(ctx context.Context, p GitHubParams) (*Result, error) {
	if strings.TrimSpace(p.DocumentID) == "" {
		return nil, &docstore.ValidationError{Field: "document_id", Message: "Document ID must be a non-empty string"}
	}
	if strings.TrimSpace(p.RepoOwner) == "" {
		return nil, &docstore.ValidationError{Field: "repo_owner", Message: "Repository owner must be a non-empty string"}
	}
	if strings.TrimSpace(p.RepoName) == "" {
		return nil, &docstore.ValidationError{Field: "repo_name", Message: "Repository name must be a non-empty string"}
	}

	doc, err := e.store.GetDocument(p.DocumentID, true, true)
	if err != nil {
		return nil, err
	}
	rendered, err := Render(doc, p.Options)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("Failed to export document: %v", err), Err: err}
	}

	pub, err := NewPublisher(ctx, p.Token, e.log)
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Str("document_id", p.DocumentID).
		Str("repo", p.RepoOwner+"/"+p.RepoName).
		Int("files", len(rendered.Files)).
		Msg("exporting document to github")

	result, err := pub.Publish(ctx, PublishParams{
		RepoOwner: p.RepoOwner,
		RepoName:  p.RepoName,
		Branch:    p.Options.Branch,
		Files:     rendered.Files,
	})
	if err != nil {
		return nil, err
	}
	result.Message = rendered.Message
	return result, nil
}
