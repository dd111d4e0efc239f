// Package docstore implements the document storage engine for Doc-O-Matic.
//
// It uses SQLite with FTS5 full-text search to persist documents, their
// nested section trees, and links to external resources (To-Do-Rama tasks,
// Bucket-O-Facts facts, GitHub objects). Sections form a forest within each
// document; every re-parenting operation is validated against cycles before
// it is committed.
package docstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Document is a top-level container for a section tree and links.
type Document struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Sections  []*Section     `json:"sections,omitempty"`
	Links     []Link         `json:"links,omitempty"`
}

// Section is one node of a document's section tree. Children is populated
// only when a subtree was requested.
type Section struct {
	ID              string         `json:"id"`
	DocumentID      string         `json:"document_id"`
	ParentSectionID *string        `json:"parent_section_id"`
	Heading         string         `json:"heading"`
	Body            string         `json:"body"`
	OrderIndex      int            `json:"order_index"`
	Metadata        map[string]any `json:"metadata"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
	Children        []*Section     `json:"children,omitempty"`
	Links           []Link         `json:"links,omitempty"`
}

// Link ties a document or a section to an external resource. Section-scoped
// links also carry the owning section's document ID.
type Link struct {
	ID           string         `json:"id"`
	SectionID    *string        `json:"section_id"`
	DocumentID   string         `json:"document_id"`
	LinkType     string         `json:"link_type"`
	LinkTarget   string         `json:"link_target"`
	LinkMetadata map[string]any `json:"link_metadata"`
	CreatedAt    string         `json:"created_at"`
	UpdatedAt    string         `json:"updated_at"`
}

// DocumentSummary is a compact view of a document with its section count.
type DocumentSummary struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	SectionCount int    `json:"section_count"`
	UpdatedAt    string `json:"updated_at"`
}

// SectionRef identifies a section reached through a shared link target.
type SectionRef struct {
	SectionID    string         `json:"section_id"`
	Heading      string         `json:"heading"`
	DocumentID   string         `json:"document_id"`
	LinkID       string         `json:"link_id"`
	LinkTarget   string         `json:"link_target"`
	LinkMetadata map[string]any `json:"link_metadata"`
}

// DocumentRef identifies a document reached through a shared link target.
type DocumentRef struct {
	DocumentID   string         `json:"document_id"`
	Title        string         `json:"title"`
	LinkID       string         `json:"link_id"`
	LinkMetadata map[string]any `json:"link_metadata"`
}

// TargetCount is one entry of a link report's top-targets ranking.
type TargetCount struct {
	Target string `json:"target"`
	Count  int    `json:"count"`
}

// LinkReport aggregates link statistics, optionally scoped to one document
// or one link type.
type LinkReport struct {
	TotalLinks    int            `json:"total_links"`
	ByType        map[string]int `json:"by_type"`
	SectionLinks  int            `json:"section_links"`
	DocumentLinks int            `json:"document_links"`
	TopTargets    []TargetCount  `json:"top_targets"`
}

// CreateDocumentParams holds input for creating a new document.
type CreateDocumentParams struct {
	Title           string           `json:"title"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
	DocumentID      string           `json:"document_id,omitempty"`
	InitialSections []InitialSection `json:"initial_sections,omitempty"`
}

// InitialSection describes one section created together with its document.
// Heading and Body are pointers so a missing field can be told apart from an
// empty one.
type InitialSection struct {
	ID              string         `json:"id,omitempty"`
	ParentSectionID *string        `json:"parent_section_id,omitempty"`
	Heading         *string        `json:"heading,omitempty"`
	Body            *string        `json:"body,omitempty"`
	OrderIndex      *int           `json:"order_index,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// UpdateDocumentParams holds partial update fields for a document. A nil
// Metadata map means "leave untouched"; a non-nil map replaces the stored
// metadata wholesale.
type UpdateDocumentParams struct {
	Title    *string        `json:"title,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ListDocumentsOptions holds filters and pagination for ListDocuments.
type ListDocumentsOptions struct {
	TitlePattern   string         `json:"title_pattern,omitempty"`
	MetadataFilter map[string]any `json:"metadata_filter,omitempty"`
	Limit          int            `json:"limit,omitempty"`
	Offset         int            `json:"offset,omitempty"`
}

// CreateSectionParams holds input for creating a new section.
type CreateSectionParams struct {
	DocumentID      string         `json:"document_id"`
	Heading         string         `json:"heading"`
	Body            string         `json:"body"`
	ParentSectionID *string        `json:"parent_section_id,omitempty"`
	OrderIndex      *int           `json:"order_index,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	SectionID       string         `json:"section_id,omitempty"`
}

// UpdateSectionParams holds partial update fields for a section.
type UpdateSectionParams struct {
	Heading    *string        `json:"heading,omitempty"`
	Body       *string        `json:"body,omitempty"`
	OrderIndex *int           `json:"order_index,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ListSectionsOptions holds filters for SectionsByDocument.
type ListSectionsOptions struct {
	Flat           bool           `json:"flat,omitempty"`
	HeadingPattern string         `json:"heading_pattern,omitempty"`
	MetadataFilter map[string]any `json:"metadata_filter,omitempty"`
}

// LinkSectionParams holds input for linking a section to an external resource.
type LinkSectionParams struct {
	SectionID    string         `json:"section_id"`
	LinkType     string         `json:"link_type"`
	LinkTarget   string         `json:"link_target"`
	LinkMetadata map[string]any `json:"link_metadata,omitempty"`
	LinkID       string         `json:"link_id,omitempty"`
}

// LinkDocumentParams holds input for linking a document to an external resource.
type LinkDocumentParams struct {
	DocumentID   string         `json:"document_id"`
	LinkType     string         `json:"link_type"`
	LinkTarget   string         `json:"link_target"`
	LinkMetadata map[string]any `json:"link_metadata,omitempty"`
	LinkID       string         `json:"link_id,omitempty"`
}

// ReportOptions scopes GenerateLinkReport. DocumentID wins when both are set.
type ReportOptions struct {
	DocumentID string `json:"document_id,omitempty"`
	LinkType   string `json:"link_type,omitempty"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds document store configuration.
type Config struct {
	// DataDir is the directory holding the SQLite database file.
	DataDir string
	// DBPath optionally names the database file directly; when empty the
	// file is DataDir/docomatic.db.
	DBPath string
	// MaxSearchResults caps the limit accepted by SearchSections.
	MaxSearchResults int
}

// DefaultConfig returns the default configuration for the document store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:          filepath.Join(home, ".docomatic"),
		MaxSearchResults: 1000,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the persistent document engine backed by SQLite + FTS5.
type Store struct {
	db    *sql.DB
	cfg   Config
	hooks storeHooks
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type sqlRowScanner struct {
	rows *sql.Rows
}

func (r sqlRowScanner) Next() bool             { return r.rows.Next() }
func (r sqlRowScanner) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r sqlRowScanner) Err() error             { return r.rows.Err() }
func (r sqlRowScanner) Close() error           { return r.rows.Close() }

type storeHooks struct {
	exec    func(db execer, query string, args ...any) (sql.Result, error)
	query   func(db queryer, query string, args ...any) (*sql.Rows, error)
	queryIt func(db queryer, query string, args ...any) (rowScanner, error)
	beginTx func(db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func defaultStoreHooks() storeHooks {
	return storeHooks{
		exec: func(db execer, query string, args ...any) (sql.Result, error) {
			return db.Exec(query, args...)
		},
		query: func(db queryer, query string, args ...any) (*sql.Rows, error) {
			return db.Query(query, args...)
		},
		queryIt: func(db queryer, query string, args ...any) (rowScanner, error) {
			rows, err := db.Query(query, args...)
			if err != nil {
				return nil, err
			}
			return sqlRowScanner{rows: rows}, nil
		},
		beginTx: func(db *sql.DB) (*sql.Tx, error) {
			return db.Begin()
		},
		commit: func(tx *sql.Tx) error {
			return tx.Commit()
		},
	}
}

func (s *Store) execHook(db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(db, query, args...)
	}
	return db.Exec(query, args...)
}

func (s *Store) queryHook(db queryer, query string, args ...any) (*sql.Rows, error) {
	if s.hooks.query != nil {
		return s.hooks.query(db, query, args...)
	}
	return db.Query(query, args...)
}

func (s *Store) queryItHook(db queryer, query string, args ...any) (rowScanner, error) {
	if s.hooks.queryIt != nil {
		return s.hooks.queryIt(db, query, args...)
	}
	rows, err := s.queryHook(db, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRowScanner{rows: rows}, nil
}

func (s *Store) beginTxHook() (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(s.db)
	}
	return s.db.Begin()
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New creates a new Store with the given configuration.
// It creates the data directory if needed, opens SQLite with WAL mode,
// and runs migrations.
func New(cfg Config) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(cfg.DataDir, "docomatic.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("docstore: create data dir: %w", err)
	}

	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("docstore: open database: %w", err)
	}

	// SQLite performance pragmas. foreign_keys must be ON for cascade
	// deletes to work.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("docstore: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, hooks: defaultStoreHooks()}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("docstore: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			metadata   TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_documents_title   ON documents(title);
		CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at DESC);

		CREATE TABLE IF NOT EXISTS sections (
			id                TEXT    PRIMARY KEY,
			document_id       TEXT    NOT NULL,
			parent_section_id TEXT,
			heading           TEXT    NOT NULL,
			body              TEXT    NOT NULL DEFAULT '',
			order_index       INTEGER NOT NULL DEFAULT 0,
			metadata          TEXT    NOT NULL DEFAULT '{}',
			created_at        TEXT    NOT NULL DEFAULT (datetime('now')),
			updated_at        TEXT    NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE,
			FOREIGN KEY (parent_section_id) REFERENCES sections(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_sections_document ON sections(document_id);
		CREATE INDEX IF NOT EXISTS idx_sections_parent   ON sections(parent_section_id);
		CREATE INDEX IF NOT EXISTS idx_sections_order    ON sections(document_id, parent_section_id, order_index);

		CREATE TABLE IF NOT EXISTS links (
			id            TEXT PRIMARY KEY,
			section_id    TEXT,
			document_id   TEXT NOT NULL,
			link_type     TEXT NOT NULL,
			link_target   TEXT NOT NULL,
			link_metadata TEXT NOT NULL DEFAULT '{}',
			created_at    TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at    TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (section_id) REFERENCES sections(id) ON DELETE CASCADE,
			FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_links_section  ON links(section_id);
		CREATE INDEX IF NOT EXISTS idx_links_document ON links(document_id);
		CREATE INDEX IF NOT EXISTS idx_links_type     ON links(link_type);
		CREATE INDEX IF NOT EXISTS idx_links_target   ON links(link_type, link_target);

		CREATE VIRTUAL TABLE IF NOT EXISTS sections_fts USING fts5(
			heading,
			body,
			content='sections'
		);
	`
	if _, err := s.execHook(s.db, schema); err != nil {
		return err
	}

	// Create FTS triggers (idempotent)
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='sec_fts_insert'",
	).Scan(&name)

	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER sec_fts_insert AFTER INSERT ON sections BEGIN
				INSERT INTO sections_fts(rowid, heading, body)
				VALUES (new.rowid, new.heading, new.body);
			END;

			CREATE TRIGGER sec_fts_delete AFTER DELETE ON sections BEGIN
				INSERT INTO sections_fts(sections_fts, rowid, heading, body)
				VALUES ('delete', old.rowid, old.heading, old.body);
			END;

			CREATE TRIGGER sec_fts_update AFTER UPDATE ON sections BEGIN
				INSERT INTO sections_fts(sections_fts, rowid, heading, body)
				VALUES ('delete', old.rowid, old.heading, old.body);
				INSERT INTO sections_fts(rowid, heading, body)
				VALUES (new.rowid, new.heading, new.body);
			END;
		`
		if _, err := s.execHook(s.db, triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return nil
}

// ─── Validation ──────────────────────────────────────────────────────────────

const (
	titleMaxLength      = 500
	headingMaxLength    = 500
	idMaxLength         = 255
	linkTypeMaxLength   = 50
	linkTargetMaxLength = 500
)

var linkTargetPatterns = map[string]*regexp.Regexp{
	"todo-rama":      regexp.MustCompile(`^todo-rama://(project/task/|task/)[a-zA-Z0-9_-]+$`),
	"bucket-o-facts": regexp.MustCompile(`^bucket-o-facts://fact/[a-zA-Z0-9_-]+$`),
	"github":         regexp.MustCompile(`^github://[a-zA-Z0-9_-]+/[a-zA-Z0-9_.-]+/(commit/[a-f0-9]+|pull/\d+|issues/\d+|blob/[a-zA-Z0-9_./-]+)$`),
}

var linkTargetFormats = map[string]string{
	"todo-rama":      "todo-rama://project/task/<task_id> or todo-rama://task/<task_id>",
	"bucket-o-facts": "bucket-o-facts://fact/<fact_id>",
	"github":         "github://owner/repo/commit/<sha>, github://owner/repo/pull/<number>, github://owner/repo/issues/<number>, or github://owner/repo/blob/<path>",
}

var linkTargetLabels = map[string]string{
	"todo-rama":      "Todo-Rama",
	"bucket-o-facts": "Bucket-O-Facts",
	"github":         "GitHub",
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return validationErr("title", "Title is required and cannot be empty")
	}
	if utf8.RuneCountInString(title) > titleMaxLength {
		return validationErr("title", fmt.Sprintf("Title must be at most %d characters", titleMaxLength))
	}
	return nil
}

func validateHeading(heading string) error {
	if strings.TrimSpace(heading) == "" {
		return validationErr("heading", "Heading is required and cannot be empty")
	}
	if utf8.RuneCountInString(heading) > headingMaxLength {
		return validationErr("heading", fmt.Sprintf("Heading must be at most %d characters", headingMaxLength))
	}
	return nil
}

// validateID checks a caller-supplied entity ID. kind is the entity name used
// in the error message ("Document", "Section", "Link").
func validateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return validationErr("id", kind+" ID cannot be empty")
	}
	if utf8.RuneCountInString(id) > idMaxLength {
		return validationErr("id", fmt.Sprintf("%s ID must be at most %d characters", kind, idMaxLength))
	}
	return nil
}

func validateLinkType(linkType string) error {
	if strings.TrimSpace(linkType) == "" {
		return validationErr("link_type", "Link type is required and cannot be empty")
	}
	if utf8.RuneCountInString(linkType) > linkTypeMaxLength {
		return validationErr("link_type", fmt.Sprintf("Link type must be at most %d characters", linkTypeMaxLength))
	}
	if _, ok := linkTargetPatterns[linkType]; !ok {
		return validationErr("link_type", "Link type must be one of: todo-rama, bucket-o-facts, github")
	}
	return nil
}

func validateLinkTarget(linkTarget string) error {
	if strings.TrimSpace(linkTarget) == "" {
		return validationErr("link_target", "Link target is required and cannot be empty")
	}
	if utf8.RuneCountInString(linkTarget) > linkTargetMaxLength {
		return validationErr("link_target", fmt.Sprintf("Link target must be at most %d characters", linkTargetMaxLength))
	}
	return nil
}

// validateLinkTargetFormat checks the target against the fixed URI pattern of
// its link type. The type must already have passed validateLinkType.
func validateLinkTargetFormat(linkType, linkTarget string) error {
	pattern, ok := linkTargetPatterns[linkType]
	if !ok {
		return nil
	}
	if !pattern.MatchString(linkTarget) {
		return validationErr("link_target", fmt.Sprintf(
			"%s link target must match format: %s", linkTargetLabels[linkType], linkTargetFormats[linkType]))
	}
	return nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func newID() string {
	return uuid.NewString()
}

func encodeMetadata(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func decodeMetadata(raw string) map[string]any {
	m := map[string]any{}
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &m)
	}
	return m
}

// metadataMatches reports whether meta contains every key/value pair of
// filter. Values are compared as decoded JSON values.
func metadataMatches(meta, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := meta[key]
		if !ok {
			return false
		}
		if !jsonValueEqual(got, want) {
			return false
		}
	}
	return true
}

func jsonValueEqual(a, b any) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// sameParent compares two nullable parent IDs by value.
func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.Trim(w, `"`)
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}

// isUniqueViolation checks if an error is a SQLite UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
