package doctools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/docomatic/docomatic/internal/docstore"
	"github.com/docomatic/docomatic/internal/export"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// newTestStore creates a docstore.Store in a temp directory for testing.
func newTestStore(t *testing.T) *docstore.Store {
	t.Helper()
	store, err := docstore.New(docstore.Config{
		DataDir:          t.TempDir(),
		MaxSearchResults: 50,
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// newTestExporter wires an exporter over the given store with a silent logger.
func newTestExporter(store *docstore.Store) *export.Exporter {
	return export.New(store, zerolog.Nop())
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// decodeResult parses the JSON payload of a successful tool result.
func decodeResult(t *testing.T, r *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(resultText(r)), &m); err != nil {
		t.Fatalf("result is not valid JSON: %v\n%s", err, resultText(r))
	}
	return m
}

// mustNotError asserts the Handle call returns no Go error and no tool error.
func mustNotError(t *testing.T, r *mcp.CallToolResult, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if r.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(r))
	}
}

// mustBeToolError asserts the Handle call returns a tool error (not a Go error).
func mustBeToolError(t *testing.T, r *mcp.CallToolResult, err error, wantSubstr string) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if !r.IsError {
		t.Fatalf("expected tool error containing %q, got success: %s", wantSubstr, resultText(r))
	}
	if wantSubstr != "" && !strings.Contains(resultText(r), wantSubstr) {
		t.Errorf("error text %q does not contain %q", resultText(r), wantSubstr)
	}
}

// seedDocument creates a document directly in the store.
func seedDocument(t *testing.T, store *docstore.Store, title string) *docstore.Document {
	t.Helper()
	doc, err := store.CreateDocument(docstore.CreateDocumentParams{Title: title})
	if err != nil {
		t.Fatalf("seed document %q: %v", title, err)
	}
	return doc
}

// seedSection creates a section directly in the store.
func seedSection(t *testing.T, store *docstore.Store, docID, heading string, parent *string) *docstore.Section {
	t.Helper()
	sec, err := store.CreateSection(docstore.CreateSectionParams{
		DocumentID:      docID,
		Heading:         heading,
		Body:            heading + " body",
		ParentSectionID: parent,
	})
	if err != nil {
		t.Fatalf("seed section %q: %v", heading, err)
	}
	return sec
}

// ─── Document tool tests ─────────────────────────────────────────────────────

func TestCreateDocumentTool_Definition(t *testing.T) {
	tool := NewCreateDocumentTool(newTestStore(t))
	def := tool.Definition()

	if def.Name != "create_document" {
		t.Errorf("tool name = %q, want %q", def.Name, "create_document")
	}

	props := def.InputSchema.Properties
	for _, p := range []string{"title", "metadata", "document_id", "initial_sections"} {
		if _, ok := props[p]; !ok {
			t.Errorf("missing %q parameter", p)
		}
	}

	required := def.InputSchema.Required
	if len(required) != 1 || required[0] != "title" {
		t.Errorf("required = %v, want [title]", required)
	}
}

func TestCreateDocumentTool_CreatesDocument(t *testing.T) {
	tool := NewCreateDocumentTool(newTestStore(t))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"title":    "API Guide",
		"metadata": map[string]interface{}{"author": "docs-team"},
	}))
	mustNotError(t, result, err)

	doc := decodeResult(t, result)
	if doc["title"] != "API Guide" {
		t.Errorf("title = %v, want API Guide", doc["title"])
	}
	if doc["id"] == "" || doc["id"] == nil {
		t.Error("document should get a generated ID")
	}
	meta, ok := doc["metadata"].(map[string]interface{})
	if !ok || meta["author"] != "docs-team" {
		t.Errorf("metadata = %v, want author docs-team", doc["metadata"])
	}
}

func TestCreateDocumentTool_InitialSections(t *testing.T) {
	store := newTestStore(t)
	create := NewCreateDocumentTool(store)

	result, err := create.Handle(context.Background(), makeReq(map[string]interface{}{
		"title": "Handbook",
		"initial_sections": []interface{}{
			map[string]interface{}{"id": "sec-root", "heading": "Intro", "body": "intro body"},
			map[string]interface{}{"heading": "Child", "body": "child body", "parent_section_id": "sec-root"},
		},
	}))
	mustNotError(t, result, err)
	docID := decodeResult(t, result)["id"].(string)

	get := NewGetDocumentTool(store)
	result, err = get.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": docID,
	}))
	mustNotError(t, result, err)

	doc := decodeResult(t, result)
	sections, ok := doc["sections"].([]interface{})
	if !ok || len(sections) != 1 {
		t.Fatalf("top-level sections = %v, want one", doc["sections"])
	}
	root := sections[0].(map[string]interface{})
	if root["id"] != "sec-root" {
		t.Errorf("root section id = %v, want sec-root", root["id"])
	}
	children, ok := root["children"].([]interface{})
	if !ok || len(children) != 1 {
		t.Fatalf("root children = %v, want one", root["children"])
	}
	if children[0].(map[string]interface{})["heading"] != "Child" {
		t.Errorf("child heading = %v, want Child", children[0].(map[string]interface{})["heading"])
	}
}

func TestCreateDocumentTool_EmptyTitle(t *testing.T) {
	tool := NewCreateDocumentTool(newTestStore(t))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"title": "   ",
	}))
	mustBeToolError(t, result, err, "Validation error: Title is required and cannot be empty")
}

func TestCreateDocumentTool_DuplicateID(t *testing.T) {
	tool := NewCreateDocumentTool(newTestStore(t))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"title":       "First",
		"document_id": "dup-doc",
	}))
	mustNotError(t, result, err)

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"title":       "Second",
		"document_id": "dup-doc",
	}))
	mustBeToolError(t, result, err, "Document with id 'dup-doc' already exists")
}

func TestGetDocumentTool_NotFound(t *testing.T) {
	tool := NewGetDocumentTool(newTestStore(t))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": "missing",
	}))
	mustBeToolError(t, result, err, "Document with ID 'missing' not found")
}

func TestGetDocumentTool_ExcludeSections(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	seedSection(t, store, doc.ID, "Intro", nil)
	tool := NewGetDocumentTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id":      doc.ID,
		"include_sections": false,
		"include_links":    false,
	}))
	mustNotError(t, result, err)

	got := decodeResult(t, result)
	if _, ok := got["sections"]; ok {
		t.Error("sections should be omitted when include_sections is false")
	}
}

func TestUpdateDocumentTool_Title(t *testing.T) {
	store := newTestStore(t)
	doc, err := store.CreateDocument(docstore.CreateDocumentParams{
		Title:    "Old Title",
		Metadata: map[string]any{"kept": true},
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
	tool := NewUpdateDocumentTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": doc.ID,
		"title":       "New Title",
	}))
	mustNotError(t, result, err)

	got := decodeResult(t, result)
	if got["title"] != "New Title" {
		t.Errorf("title = %v, want New Title", got["title"])
	}
	meta := got["metadata"].(map[string]interface{})
	if meta["kept"] != true {
		t.Error("metadata should survive a title-only update")
	}
}

func TestDeleteDocumentTool_Envelope(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Short Lived")
	tool := NewDeleteDocumentTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": doc.ID,
	}))
	mustNotError(t, result, err)
	if got := decodeResult(t, result); got["deleted"] != true {
		t.Errorf("deleted = %v, want true", got["deleted"])
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": doc.ID,
	}))
	mustNotError(t, result, err)
	if got := decodeResult(t, result); got["deleted"] != false {
		t.Errorf("second delete = %v, want false", got["deleted"])
	}
}

func TestListDocumentsTool_EmptyEnvelope(t *testing.T) {
	tool := NewListDocumentsTool(newTestStore(t))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)

	got := decodeResult(t, result)
	docs, ok := got["documents"].([]interface{})
	if !ok {
		t.Fatalf("documents = %v, want an empty array, not null", got["documents"])
	}
	if len(docs) != 0 {
		t.Errorf("documents on empty store = %d entries, want none", len(docs))
	}
}

func TestListDocumentsTool_PatternFilter(t *testing.T) {
	store := newTestStore(t)
	seedDocument(t, store, "Release Notes")
	seedDocument(t, store, "User Guide")
	tool := NewListDocumentsTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"title_pattern": "Guide",
	}))
	mustNotError(t, result, err)

	docs := decodeResult(t, result)["documents"].([]interface{})
	if len(docs) != 1 {
		t.Fatalf("filtered documents = %d, want 1", len(docs))
	}
	if docs[0].(map[string]interface{})["title"] != "User Guide" {
		t.Errorf("filtered title = %v, want User Guide", docs[0].(map[string]interface{})["title"])
	}
}

// ─── Section tool tests ──────────────────────────────────────────────────────

func TestCreateSectionTool_AutoIndex(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	tool := NewCreateSectionTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": doc.ID,
		"heading":     "First",
		"body":        "first body",
	}))
	mustNotError(t, result, err)
	if got := decodeResult(t, result); got["order_index"] != float64(0) {
		t.Errorf("first order_index = %v, want 0", got["order_index"])
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": doc.ID,
		"heading":     "Second",
		"body":        "second body",
	}))
	mustNotError(t, result, err)
	if got := decodeResult(t, result); got["order_index"] != float64(1) {
		t.Errorf("second order_index = %v, want 1", got["order_index"])
	}
}

func TestCreateSectionTool_Nesting(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	parent := seedSection(t, store, doc.ID, "Parent", nil)
	tool := NewCreateSectionTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id":       doc.ID,
		"heading":           "Nested",
		"body":              "nested body",
		"parent_section_id": parent.ID,
	}))
	mustNotError(t, result, err)

	got := decodeResult(t, result)
	if got["parent_section_id"] != parent.ID {
		t.Errorf("parent_section_id = %v, want %s", got["parent_section_id"], parent.ID)
	}
}

func TestCreateSectionTool_DocumentNotFound(t *testing.T) {
	tool := NewCreateSectionTool(newTestStore(t))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": "nope",
		"heading":     "Orphan",
		"body":        "body",
	}))
	mustBeToolError(t, result, err, "Document with ID 'nope' not found")
}

func TestGetSectionTool_ChildrenToggle(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	parent := seedSection(t, store, doc.ID, "Parent", nil)
	seedSection(t, store, doc.ID, "Child", &parent.ID)
	tool := NewGetSectionTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_id": parent.ID,
	}))
	mustNotError(t, result, err)
	got := decodeResult(t, result)
	children, ok := got["children"].([]interface{})
	if !ok || len(children) != 1 {
		t.Fatalf("children = %v, want one entry by default", got["children"])
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_id":       parent.ID,
		"include_children": false,
	}))
	mustNotError(t, result, err)
	if _, ok := decodeResult(t, result)["children"]; ok {
		t.Error("children should be omitted when include_children is false")
	}
}

func TestUpdateSectionTool_PartialBody(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	sec := seedSection(t, store, doc.ID, "Stable Heading", nil)
	tool := NewUpdateSectionTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_id": sec.ID,
		"body":       "rewritten body",
	}))
	mustNotError(t, result, err)

	got := decodeResult(t, result)
	if got["body"] != "rewritten body" {
		t.Errorf("body = %v, want rewritten body", got["body"])
	}
	if got["heading"] != "Stable Heading" {
		t.Errorf("heading = %v, should be untouched", got["heading"])
	}
}

func TestDeleteSectionTool_Envelope(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	sec := seedSection(t, store, doc.ID, "Doomed", nil)
	tool := NewDeleteSectionTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_id": sec.ID,
	}))
	mustNotError(t, result, err)
	if got := decodeResult(t, result); got["deleted"] != true {
		t.Errorf("deleted = %v, want true", got["deleted"])
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_id": sec.ID,
	}))
	mustNotError(t, result, err)
	if got := decodeResult(t, result); got["deleted"] != false {
		t.Errorf("second delete = %v, want false", got["deleted"])
	}
}

func TestSectionsByDocumentTool_TreeAndFlat(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	parent := seedSection(t, store, doc.ID, "Parent", nil)
	seedSection(t, store, doc.ID, "Child", &parent.ID)
	tool := NewSectionsByDocumentTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": doc.ID,
	}))
	mustNotError(t, result, err)
	tree := decodeResult(t, result)["sections"].([]interface{})
	if len(tree) != 1 {
		t.Errorf("tree mode top-level sections = %d, want 1", len(tree))
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": doc.ID,
		"flat":        true,
	}))
	mustNotError(t, result, err)
	flat := decodeResult(t, result)["sections"].([]interface{})
	if len(flat) != 2 {
		t.Errorf("flat mode sections = %d, want 2", len(flat))
	}
}

func TestSearchSectionsTool_FindsMatch(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	sec, err := store.CreateSection(docstore.CreateSectionParams{
		DocumentID: doc.ID,
		Heading:    "Deployment",
		Body:       "rollout via kubernetes manifests",
	})
	if err != nil {
		t.Fatalf("seed section: %v", err)
	}
	seedSection(t, store, doc.ID, "Unrelated", nil)
	tool := NewSearchSectionsTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"query": "kubernetes",
	}))
	mustNotError(t, result, err)

	sections := decodeResult(t, result)["sections"].([]interface{})
	if len(sections) != 1 {
		t.Fatalf("search hits = %d, want 1", len(sections))
	}
	if sections[0].(map[string]interface{})["id"] != sec.ID {
		t.Errorf("hit id = %v, want %s", sections[0].(map[string]interface{})["id"], sec.ID)
	}
}

func TestSearchSectionsTool_EmptyQuery(t *testing.T) {
	tool := NewSearchSectionsTool(newTestStore(t))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"query": "  ",
	}))
	mustBeToolError(t, result, err, "Validation error: Query must be a non-empty string")
}

// ─── Tree tool tests ─────────────────────────────────────────────────────────

func TestMoveSectionTool_ToTopLevel(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	parent := seedSection(t, store, doc.ID, "Parent", nil)
	child := seedSection(t, store, doc.ID, "Child", &parent.ID)
	tool := NewMoveSectionTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_id": child.ID,
	}))
	mustNotError(t, result, err)

	got := decodeResult(t, result)
	if got["parent_section_id"] != nil {
		t.Errorf("parent_section_id = %v, want null after move to top level", got["parent_section_id"])
	}
}

func TestMoveSectionTool_CycleError(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	parent := seedSection(t, store, doc.ID, "Parent", nil)
	child := seedSection(t, store, doc.ID, "Child", &parent.ID)
	tool := NewMoveSectionTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_id":            parent.ID,
		"new_parent_section_id": child.ID,
	}))
	mustBeToolError(t, result, err, "Validation error: Cannot move section into its own subtree (would create cycle)")
}

func TestReorderSectionsTool_AssignsPositions(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	a := seedSection(t, store, doc.ID, "A", nil)
	b := seedSection(t, store, doc.ID, "B", nil)
	c := seedSection(t, store, doc.ID, "C", nil)
	tool := NewReorderSectionsTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_order": []interface{}{c.ID, a.ID, b.ID},
	}))
	mustNotError(t, result, err)

	sections := decodeResult(t, result)["sections"].([]interface{})
	if len(sections) != 3 {
		t.Fatalf("reordered sections = %d, want 3", len(sections))
	}
	wantIDs := []string{c.ID, a.ID, b.ID}
	for i, raw := range sections {
		sec := raw.(map[string]interface{})
		if sec["id"] != wantIDs[i] {
			t.Errorf("position %d id = %v, want %s", i, sec["id"], wantIDs[i])
		}
		if sec["order_index"] != float64(i) {
			t.Errorf("position %d order_index = %v, want %d", i, sec["order_index"], i)
		}
	}
}

func TestSectionPathTool_Chain(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	root := seedSection(t, store, doc.ID, "Root", nil)
	mid := seedSection(t, store, doc.ID, "Mid", &root.ID)
	leaf := seedSection(t, store, doc.ID, "Leaf", &mid.ID)
	tool := NewSectionPathTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_id": leaf.ID,
	}))
	mustNotError(t, result, err)

	path := decodeResult(t, result)["path"].([]interface{})
	wantIDs := []string{root.ID, mid.ID, leaf.ID}
	if len(path) != len(wantIDs) {
		t.Fatalf("path length = %d, want %d", len(path), len(wantIDs))
	}
	for i, raw := range path {
		if raw.(map[string]interface{})["id"] != wantIDs[i] {
			t.Errorf("path[%d] = %v, want %s", i, raw.(map[string]interface{})["id"], wantIDs[i])
		}
	}
}

// ─── Link tool tests ─────────────────────────────────────────────────────────

func TestLinkSectionTool_CreatesLink(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	sec := seedSection(t, store, doc.ID, "Tasks", nil)
	tool := NewLinkSectionTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_id":  sec.ID,
		"link_type":   "todo-rama",
		"link_target": "todo-rama://task/alpha",
	}))
	mustNotError(t, result, err)

	got := decodeResult(t, result)
	if got["section_id"] != sec.ID {
		t.Errorf("section_id = %v, want %s", got["section_id"], sec.ID)
	}
	if got["document_id"] != doc.ID {
		t.Error("link should inherit the section's document ID")
	}
	if got["link_type"] != "todo-rama" {
		t.Errorf("link_type = %v, want todo-rama", got["link_type"])
	}
}

func TestLinkSectionTool_InvalidTargetFormat(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	sec := seedSection(t, store, doc.ID, "Tasks", nil)
	tool := NewLinkSectionTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_id":  sec.ID,
		"link_type":   "todo-rama",
		"link_target": "todo-rama://invalid",
	}))
	mustBeToolError(t, result, err, "Validation error: Todo-Rama link target must match format")
}

func TestUnlinkSectionTool_Envelope(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	sec := seedSection(t, store, doc.ID, "Tasks", nil)
	link, err := store.LinkSection(docstore.LinkSectionParams{
		SectionID:  sec.ID,
		LinkType:   "todo-rama",
		LinkTarget: "todo-rama://task/alpha",
	})
	if err != nil {
		t.Fatalf("seed link: %v", err)
	}
	tool := NewUnlinkSectionTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"link_id": link.ID,
	}))
	mustNotError(t, result, err)
	if got := decodeResult(t, result); got["deleted"] != true {
		t.Errorf("deleted = %v, want true", got["deleted"])
	}

	result, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"link_id": link.ID,
	}))
	mustNotError(t, result, err)
	if got := decodeResult(t, result); got["deleted"] != false {
		t.Errorf("second unlink = %v, want false", got["deleted"])
	}
}

func TestSectionLinksTool_EmptyEnvelope(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	sec := seedSection(t, store, doc.ID, "Bare", nil)
	tool := NewSectionLinksTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"section_id": sec.ID,
	}))
	mustNotError(t, result, err)

	links, ok := decodeResult(t, result)["links"].([]interface{})
	if !ok {
		t.Fatal("links should be an empty array, not null")
	}
	if len(links) != 0 {
		t.Errorf("links = %d entries, want none", len(links))
	}
}

func TestLinkDocumentTool_NoSectionID(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	tool := NewLinkDocumentTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": doc.ID,
		"link_type":   "github",
		"link_target": "github://acme/widgets/pull/7",
	}))
	mustNotError(t, result, err)

	got := decodeResult(t, result)
	if got["section_id"] != nil {
		t.Errorf("section_id = %v, want null for a document link", got["section_id"])
	}
	if got["document_id"] != doc.ID {
		t.Errorf("document_id = %v, want %s", got["document_id"], doc.ID)
	}
}

func TestLinksByTypeTool_Limit(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	for _, target := range []string{
		"bucket-o-facts://fact/f1",
		"bucket-o-facts://fact/f2",
		"bucket-o-facts://fact/f3",
	} {
		if _, err := store.LinkDocument(docstore.LinkDocumentParams{
			DocumentID: doc.ID,
			LinkType:   "bucket-o-facts",
			LinkTarget: target,
		}); err != nil {
			t.Fatalf("seed link %s: %v", target, err)
		}
	}
	tool := NewLinksByTypeTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"link_type": "bucket-o-facts",
		"limit":     float64(2),
	}))
	mustNotError(t, result, err)

	links := decodeResult(t, result)["links"].([]interface{})
	if len(links) != 2 {
		t.Errorf("limited links = %d, want 2", len(links))
	}
}

func TestUpdateLinkMetadataTool_Replaces(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	link, err := store.LinkDocument(docstore.LinkDocumentParams{
		DocumentID:   doc.ID,
		LinkType:     "todo-rama",
		LinkTarget:   "todo-rama://task/alpha",
		LinkMetadata: map[string]any{"old": true},
	})
	if err != nil {
		t.Fatalf("seed link: %v", err)
	}
	tool := NewUpdateLinkMetadataTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"link_id":       link.ID,
		"link_metadata": map[string]interface{}{"status": "done"},
	}))
	mustNotError(t, result, err)

	meta := decodeResult(t, result)["link_metadata"].(map[string]interface{})
	if meta["status"] != "done" {
		t.Errorf("link_metadata.status = %v, want done", meta["status"])
	}
	if _, ok := meta["old"]; ok {
		t.Error("old metadata keys should be replaced, not merged")
	}
}

func TestLinkReportTool_Counts(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "Guide")
	sec := seedSection(t, store, doc.ID, "Tasks", nil)
	other := seedSection(t, store, doc.ID, "More Tasks", nil)
	for _, id := range []string{sec.ID, other.ID} {
		if _, err := store.LinkSection(docstore.LinkSectionParams{
			SectionID:  id,
			LinkType:   "todo-rama",
			LinkTarget: "todo-rama://task/shared",
		}); err != nil {
			t.Fatalf("seed section link: %v", err)
		}
	}
	if _, err := store.LinkDocument(docstore.LinkDocumentParams{
		DocumentID: doc.ID,
		LinkType:   "github",
		LinkTarget: "github://acme/widgets/issues/42",
	}); err != nil {
		t.Fatalf("seed document link: %v", err)
	}
	tool := NewLinkReportTool(store)

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	mustNotError(t, result, err)

	report := decodeResult(t, result)
	if report["total_links"] != float64(3) {
		t.Errorf("total_links = %v, want 3", report["total_links"])
	}
	byType := report["by_type"].(map[string]interface{})
	if byType["todo-rama"] != float64(2) || byType["github"] != float64(1) {
		t.Errorf("by_type = %v, want todo-rama 2 / github 1", byType)
	}
	if report["section_links"] != float64(2) || report["document_links"] != float64(1) {
		t.Errorf("owner split = %v/%v, want 2/1", report["section_links"], report["document_links"])
	}
	top := report["top_targets"].([]interface{})
	if len(top) == 0 {
		t.Fatal("top_targets should not be empty")
	}
	first := top[0].(map[string]interface{})
	if first["target"] != "todo-rama:todo-rama://task/shared" || first["count"] != float64(2) {
		t.Errorf("top target = %v, want the shared task with count 2", first)
	}
}

// ─── Export tool tests ───────────────────────────────────────────────────────

func TestExportDocumentTool_SingleFile(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "User Guide")
	seedSection(t, store, doc.ID, "Getting Started", nil)
	tool := NewExportDocumentTool(newTestExporter(store))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": doc.ID,
	}))
	mustNotError(t, result, err)

	got := decodeResult(t, result)
	files := got["files"].([]interface{})
	if len(files) != 1 {
		t.Fatalf("files = %d, want 1", len(files))
	}
	file := files[0].(map[string]interface{})
	if file["path"] != "docs/user-guide.md" {
		t.Errorf("path = %v, want docs/user-guide.md", file["path"])
	}
	content := file["content"].(string)
	if !strings.Contains(content, "# User Guide") {
		t.Error("content should carry the document title as an h1")
	}
	if !strings.Contains(content, "## Getting Started") {
		t.Error("content should carry the top-level section as an h2")
	}
	if got["message"] != "Exported document 'User Guide' as single file: docs/user-guide.md" {
		t.Errorf("message = %v", got["message"])
	}
}

func TestExportDocumentTool_HTML(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "User Guide")
	seedSection(t, store, doc.ID, "Getting Started", nil)
	tool := NewExportDocumentTool(newTestExporter(store))

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id":    doc.ID,
		"content_format": "html",
	}))
	mustNotError(t, result, err)

	file := decodeResult(t, result)["files"].([]interface{})[0].(map[string]interface{})
	if file["path"] != "docs/user-guide.html" {
		t.Errorf("path = %v, want docs/user-guide.html", file["path"])
	}
	if !strings.Contains(file["content"].(string), "<h1") {
		t.Error("html content should carry an h1 element")
	}
}

func TestExportToGitHubTool_Definition(t *testing.T) {
	tool := NewExportToGitHubTool(newTestExporter(newTestStore(t)), "")
	def := tool.Definition()

	if def.Name != "export_to_github" {
		t.Errorf("tool name = %q, want %q", def.Name, "export_to_github")
	}

	required := map[string]bool{}
	for _, r := range def.InputSchema.Required {
		required[r] = true
	}
	for _, want := range []string{"document_id", "repo_owner", "repo_name"} {
		if !required[want] {
			t.Errorf("%q should be required", want)
		}
	}
}

func TestExportToGitHubTool_MissingToken(t *testing.T) {
	store := newTestStore(t)
	doc := seedDocument(t, store, "User Guide")
	tool := NewExportToGitHubTool(newTestExporter(store), "")

	result, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{
		"document_id": doc.ID,
		"repo_owner":  "acme",
		"repo_name":   "docs",
	}))
	mustBeToolError(t, result, err,
		"GitHub token is required. Provide github_token parameter or set GITHUB_TOKEN environment variable.")
}
