// Package export renders documents to Markdown (or HTML) files and
// publishes them to GitHub repositories.
//
// Rendering is pure: a materialized document tree plus Options produce a
// set of Files. Publishing pushes those files to a repository with
// create-or-update semantics and retry on transient API failures.
package export

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/docomatic/docomatic/internal/docstore"
)

// Format selects the export layout.
type Format string

const (
	// FormatSingle renders the whole document into one file.
	FormatSingle Format = "single"
	// FormatMulti renders one file per top-level section.
	FormatMulti Format = "multi"
)

// Options control how a document is rendered into files.
type Options struct {
	Format             Format
	FileNaming         string // kebab-case, snake_case or preserve
	DirectoryStructure string // flat or hierarchical (multi-file only)
	IncludeMetadata    bool
	BasePath           string
	Branch             string // publish target branch, created when absent
	ContentFormat      string // markdown (default) or html
}

// DefaultOptions returns the export defaults.
func DefaultOptions() Options {
	return Options{
		Format:             FormatSingle,
		FileNaming:         "kebab-case",
		DirectoryStructure: "flat",
		IncludeMetadata:    true,
		BasePath:           "docs",
	}
}

// File is one rendered export artifact.
type File struct {
	Path          string `json:"path"`
	Content       string `json:"content"`
	CommitMessage string `json:"-"`
}

// Rendered is the output of rendering a document.
type Rendered struct {
	Files   []File
	Message string
}

// Render turns a materialized document into export files. The document
// must carry its section tree (GetDocument with sections included).
func Render(doc *docstore.Document, opts Options) (*Rendered, error) {
	var out *Rendered
	var err error
	if opts.Format == FormatMulti {
		out, err = renderMulti(doc, opts)
	} else {
		out, err = renderSingle(doc, opts)
	}
	if err != nil {
		return nil, err
	}
	if opts.ContentFormat == "html" {
		for i, f := range out.Files {
			html, err := markdownToHTML(f.Content)
			if err != nil {
				return nil, fmt.Errorf("export: rendering %s as html: %w", f.Path, err)
			}
			out.Files[i].Content = html
			out.Files[i].Path = strings.TrimSuffix(f.Path, ".md") + ".html"
		}
	}
	return out, nil
}

func renderSingle(doc *docstore.Document, opts Options) (*Rendered, error) {
	path := fmt.Sprintf("%s/%s.md", opts.BasePath, fileName(doc.Title, opts.FileNaming))

	var b strings.Builder
	if err := writeFrontMatter(&b, doc, opts); err != nil {
		return nil, err
	}
	fmt.Fprintf(&b, "# %s\n\n", doc.Title)
	for _, sec := range doc.Sections {
		writeSection(&b, sec, 1)
		b.WriteString("\n")
	}

	return &Rendered{
		Files: []File{{
			Path:          path,
			Content:       b.String(),
			CommitMessage: fmt.Sprintf("Export document: %s", doc.Title),
		}},
		Message: fmt.Sprintf("Exported document '%s' as single file: %s", doc.Title, path),
	}, nil
}

func renderMulti(doc *docstore.Document, opts Options) (*Rendered, error) {
	if len(doc.Sections) == 0 {
		// No sections: fall back to a title-only file.
		path := fmt.Sprintf("%s/%s.md", opts.BasePath, fileName(doc.Title, opts.FileNaming))
		var b strings.Builder
		if err := writeFrontMatter(&b, doc, opts); err != nil {
			return nil, err
		}
		fmt.Fprintf(&b, "# %s\n\n", doc.Title)
		return &Rendered{
			Files: []File{{
				Path:          path,
				Content:       b.String(),
				CommitMessage: fmt.Sprintf("Export document: %s", doc.Title),
			}},
			Message: fmt.Sprintf("Exported document '%s' (no sections) as: %s", doc.Title, path),
		}, nil
	}

	var files []File
	for _, sec := range doc.Sections {
		var path string
		if opts.DirectoryStructure == "hierarchical" {
			docDir := dirName(doc.Title, opts.FileNaming)
			path = fmt.Sprintf("%s/%s/%s.md", opts.BasePath, docDir, fileName(sec.Heading, opts.FileNaming))
		} else {
			path = fmt.Sprintf("%s/%s.md", opts.BasePath, fileName(sec.Heading, opts.FileNaming))
		}

		var b strings.Builder
		if err := writeFrontMatter(&b, doc, opts); err != nil {
			return nil, err
		}
		writeSection(&b, sec, 1)

		files = append(files, File{
			Path:          path,
			Content:       b.String(),
			CommitMessage: fmt.Sprintf("Export section: %s", sec.Heading),
		})
	}

	return &Rendered{
		Files:   files,
		Message: fmt.Sprintf("Exported document '%s' as %d files", doc.Title, len(files)),
	}, nil
}

// writeSection renders a section heading and body, then recurses into its
// children. Top-level sections render at h2 because the document title
// owns h1; each nesting level adds one heading level.
func writeSection(b *strings.Builder, sec *docstore.Section, level int) {
	fmt.Fprintf(b, "%s %s\n\n", strings.Repeat("#", level+1), sec.Heading)
	fmt.Fprintf(b, "%s\n\n", sec.Body)
	for _, child := range sec.Children {
		writeSection(b, child, level+1)
	}
}

func writeFrontMatter(b *strings.Builder, doc *docstore.Document, opts Options) error {
	if !opts.IncludeMetadata || len(doc.Metadata) == 0 {
		return nil
	}
	out, err := yaml.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("export: marshaling front matter: %w", err)
	}
	b.WriteString("---\n")
	b.Write(out)
	b.WriteString("---\n\n")
	return nil
}

func markdownToHTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ─── File naming ────────────────────────────────────────────────────────────

var (
	invalidPathChars = regexp.MustCompile(`[<>:"|?*]`)
	kebabSeparators  = regexp.MustCompile(`[\s_]+`)
	kebabStrip       = regexp.MustCompile(`[^a-zA-Z0-9-]`)
	kebabCollapse    = regexp.MustCompile(`-+`)
	snakeSeparators  = regexp.MustCompile(`[\s-]+`)
	snakeStrip       = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	snakeCollapse    = regexp.MustCompile(`_+`)
)

// fileName derives a file name (without extension) from a title.
// "preserve" keeps the title verbatim apart from characters that are
// invalid in paths.
func fileName(title, naming string) string {
	switch naming {
	case "snake_case":
		return toSnakeCase(title)
	case "preserve":
		return sanitizePath(title)
	default:
		return toKebabCase(title)
	}
}

// dirName derives a directory name for hierarchical layouts.
func dirName(title, naming string) string {
	s := sanitizePath(title)
	switch naming {
	case "snake_case":
		return toSnakeCase(s)
	case "preserve":
		return s
	default:
		return toKebabCase(s)
	}
}

func sanitizePath(s string) string {
	return strings.TrimSpace(invalidPathChars.ReplaceAllString(s, ""))
}

func toKebabCase(s string) string {
	s = kebabSeparators.ReplaceAllString(s, "-")
	s = kebabStrip.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = kebabCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func toSnakeCase(s string) string {
	s = snakeSeparators.ReplaceAllString(s, "_")
	s = snakeStrip.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	s = snakeCollapse.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
