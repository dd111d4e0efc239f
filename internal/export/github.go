package export

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/docomatic/docomatic/internal/docstore"
)

const (
	maxRetries = 3
	retryDelay = time.Second
)

// AuthError reports a failed GitHub authentication.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// APIError reports a failed GitHub API operation.
type APIError struct {
	Message string
	Err     error
}

func (e *APIError) Error() string { return e.Message }

func (e *APIError) Unwrap() error { return e.Err }

// Result describes a completed publish run.
type Result struct {
	Status       string   `json:"status"`
	FilesCreated []string `json:"files_created"`
	CommitSHA    string   `json:"commit_sha"`
	Message      string   `json:"message"`
}

// PublishParams name the repository and files for a publish run.
type PublishParams struct {
	RepoOwner string
	RepoName  string
	Branch    string
	Files     []File
}

// Publisher pushes rendered files to a GitHub repository.
type Publisher struct {
	client *github.Client
	log    zerolog.Logger
}

// NewPublisher builds a Publisher around an authenticated GitHub client.
func NewPublisher(ctx context.Context, token string, log zerolog.Logger) (*Publisher, error) {
	if token == "" {
		return nil, fmt.Errorf("export: github token is required")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	return &Publisher{client: github.NewClient(tc), log: log}, nil
}

// Publish creates or updates every file in the repository, one commit per
// file. The returned Result carries the paths written and the last commit
// SHA; Message is left for the caller to fill in.
func (p *Publisher) Publish(ctx context.Context, params PublishParams) (*Result, error) {
	repo, err := p.repository(ctx, params.RepoOwner, params.RepoName)
	if err != nil {
		return nil, err
	}
	if params.Branch != "" {
		if err := p.ensureBranch(ctx, params.RepoOwner, params.RepoName, params.Branch, repo.GetDefaultBranch()); err != nil {
			return nil, err
		}
	}

	result := &Result{Status: "success"}
	for _, f := range params.Files {
		sha, err := p.createOrUpdateFile(ctx, params.RepoOwner, params.RepoName, f, params.Branch)
		if err != nil {
			return nil, err
		}
		result.FilesCreated = append(result.FilesCreated, f.Path)
		result.CommitSHA = sha
		p.log.Debug().Str("path", f.Path).Str("commit", sha).Msg("published export file")
	}
	return result, nil
}

// repository looks up the target repository, retrying transient failures.
func (p *Publisher) repository(ctx context.Context, owner, name string) (*github.Repository, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		repo, resp, err := p.client.Repositories.Get(ctx, owner, name)
		if err == nil {
			return repo, nil
		}
		switch statusCode(resp) {
		case http.StatusUnauthorized:
			return nil, &AuthError{Message: "GitHub authentication failed. Check your token."}
		case http.StatusNotFound:
			return nil, &docstore.NotFoundError{Kind: "Repository", ID: owner + "/" + name}
		}
		lastErr = err
		if attempt < maxRetries {
			if err := sleep(ctx, retryDelay*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, &APIError{Message: fmt.Sprintf("Failed to get repository: %v", lastErr), Err: lastErr}
}

// ensureBranch creates the branch off the default branch when it does not
// exist yet.
func (p *Publisher) ensureBranch(ctx context.Context, owner, repo, branch, defaultBranch string) error {
	_, resp, err := p.client.Git.GetRef(ctx, owner, repo, "refs/heads/"+branch)
	if err == nil {
		return nil
	}
	if statusCode(resp) != http.StatusNotFound {
		return &APIError{Message: fmt.Sprintf("Failed to check branch '%s': %v", branch, err), Err: err}
	}

	base, _, err := p.client.Git.GetRef(ctx, owner, repo, "refs/heads/"+defaultBranch)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("Failed to create branch '%s': %v", branch, err), Err: err}
	}
	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: base.Object.SHA},
	}
	if _, _, err := p.client.Git.CreateRef(ctx, owner, repo, ref); err != nil {
		return &APIError{Message: fmt.Sprintf("Failed to create branch '%s': %v", branch, err), Err: err}
	}
	p.log.Info().Str("branch", branch).Msg("created export branch")
	return nil
}

// createOrUpdateFile writes one file with retry on transient failures and
// returns the commit SHA.
func (p *Publisher) createOrUpdateFile(ctx context.Context, owner, repo string, f File, branch string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		sha, resp, err := p.pushFile(ctx, owner, repo, f, branch)
		if err == nil {
			return sha, nil
		}
		switch statusCode(resp) {
		case http.StatusUnauthorized:
			return "", &AuthError{Message: "GitHub authentication failed. Check your token."}
		case http.StatusForbidden:
			return "", &APIError{Message: "GitHub API permission denied. Check repository permissions.", Err: err}
		}
		lastErr = err
		if attempt < maxRetries {
			if err := sleep(ctx, retryDelay*time.Duration(attempt)); err != nil {
				return "", err
			}
		}
	}
	return "", &APIError{Message: fmt.Sprintf("Failed to create/update file '%s': %v", f.Path, lastErr), Err: lastErr}
}

func (p *Publisher) pushFile(ctx context.Context, owner, repo string, f File, branch string) (string, *github.Response, error) {
	getOpts := &github.RepositoryContentGetOptions{}
	if branch != "" {
		getOpts.Ref = branch
	}
	fileOpts := &github.RepositoryContentFileOptions{
		Message: github.String(f.CommitMessage),
		Content: []byte(f.Content),
	}
	if branch != "" {
		fileOpts.Branch = github.String(branch)
	}

	existing, _, resp, err := p.client.Repositories.GetContents(ctx, owner, repo, f.Path, getOpts)
	if err != nil {
		if statusCode(resp) != http.StatusNotFound {
			return "", resp, err
		}
		created, createResp, err := p.client.Repositories.CreateFile(ctx, owner, repo, f.Path, fileOpts)
		if err != nil {
			return "", createResp, err
		}
		return created.Commit.GetSHA(), createResp, nil
	}

	fileOpts.SHA = github.String(existing.GetSHA())
	updated, updateResp, err := p.client.Repositories.UpdateFile(ctx, owner, repo, f.Path, fileOpts)
	if err != nil {
		return "", updateResp, err
	}
	return updated.Commit.GetSHA(), updateResp, nil
}

func statusCode(resp *github.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
