// Package backup exports every document to a GitHub repository on a cron
// schedule. One run pushes one commit per document; a failing document is
// logged and skipped so the rest still make it out.
package backup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/docomatic/docomatic/internal/config"
	"github.com/docomatic/docomatic/internal/docstore"
	"github.com/docomatic/docomatic/internal/export"
)

// documentScanLimit bounds how many documents one run will export.
const documentScanLimit = 10000

// Exporter is the part of the export API a backup run drives.
type Exporter interface {
	ExportToGitHub(ctx context.Context, p export.GitHubParams) (*export.Result, error)
}

// Scheduler runs the configured backup job.
type Scheduler struct {
	store    *docstore.Store
	exporter Exporter
	cfg      config.BackupConfig
	token    string
	log      zerolog.Logger

	cron    *cron.Cron
	mu      sync.Mutex // protects busy
	busy    bool
	running bool
}

// New builds a Scheduler. The token is used for every push.
func New(store *docstore.Store, exporter Exporter, cfg config.BackupConfig, token string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		exporter: exporter,
		cfg:      cfg,
		token:    token,
		log:      log,
	}
}

// Start registers the backup job and launches the cron loop.
func (s *Scheduler) Start() error {
	if s.running {
		return fmt.Errorf("backup scheduler already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, s.runScheduled); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()

	s.cron = c
	s.running = true
	s.log.Info().
		Str("schedule", s.cfg.Schedule).
		Str("repo", s.cfg.RepoOwner+"/"+s.cfg.RepoName).
		Msg("backup scheduler started")
	return nil
}

// Stop halts the cron loop. A run already in flight finishes on its own.
func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.log.Info().Msg("backup scheduler stopped")
}

// runScheduled is the cron entry point. Overlapping runs are skipped.
func (s *Scheduler) runScheduled() {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		s.log.Warn().Msg("previous backup still running, skipping this cycle")
		return
	}
	s.busy = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	if err := s.Run(context.Background()); err != nil {
		s.log.Error().Err(err).Msg("backup run failed")
	}
}

// Run exports every document once. Per-document failures are logged and
// skipped; Run only errors when the document list cannot be read.
func (s *Scheduler) Run(ctx context.Context) error {
	docs, err := s.store.ListDocuments(docstore.ListDocumentsOptions{Limit: documentScanLimit})
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	if len(docs) == 0 {
		s.log.Debug().Msg("no documents to back up")
		return nil
	}

	opts := s.exportOptions()
	start := time.Now()
	exported := 0
	for _, doc := range docs {
		result, err := s.exporter.ExportToGitHub(ctx, export.GitHubParams{
			DocumentID: doc.ID,
			RepoOwner:  s.cfg.RepoOwner,
			RepoName:   s.cfg.RepoName,
			Token:      s.token,
			Options:    opts,
		})
		if err != nil {
			s.log.Error().Err(err).Str("document_id", doc.ID).Msg("document backup failed")
			continue
		}
		exported++
		s.log.Debug().
			Str("document_id", doc.ID).
			Int("files", len(result.FilesCreated)).
			Str("commit_sha", result.CommitSHA).
			Msg("document backed up")
	}

	s.log.Info().
		Int("exported", exported).
		Int("total", len(docs)).
		Dur("elapsed", time.Since(start)).
		Msg("backup run complete")
	return nil
}

// exportOptions applies the backup config on top of the export defaults.
func (s *Scheduler) exportOptions() export.Options {
	opts := export.DefaultOptions()
	if s.cfg.Format != "" {
		opts.Format = export.Format(s.cfg.Format)
	}
	if s.cfg.BasePath != "" {
		opts.BasePath = s.cfg.BasePath
	}
	opts.Branch = s.cfg.Branch
	return opts
}
