package docstore_test

import (
	"errors"
	"testing"

	"github.com/docomatic/docomatic/internal/docstore"
)

// ─── Link validation ────────────────────────────────────────────────────────

func TestLinkSection_Basic(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	sec := mustCreateSection(t, s, doc.ID, "Sec", nil)

	link, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID:    sec.ID,
		LinkType:     "todo-rama",
		LinkTarget:   "todo-rama://task/abc123",
		LinkMetadata: map[string]any{"note": "tracked"},
	})
	if err != nil {
		t.Fatalf("LinkSection error: %v", err)
	}
	if link.ID == "" {
		t.Error("expected generated link ID")
	}
	if link.SectionID == nil || *link.SectionID != sec.ID {
		t.Errorf("SectionID = %v, want %s", link.SectionID, sec.ID)
	}
	if link.DocumentID != doc.ID {
		t.Errorf("DocumentID = %q, want %q (inherited from the section)", link.DocumentID, doc.ID)
	}
	if link.LinkMetadata["note"] != "tracked" {
		t.Errorf("LinkMetadata = %v", link.LinkMetadata)
	}
}

func TestLinkSection_TargetFormats(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	sec := mustCreateSection(t, s, doc.ID, "Sec", nil)

	valid := []struct {
		linkType, target string
	}{
		{"todo-rama", "todo-rama://task/t-1"},
		{"todo-rama", "todo-rama://project/task/t_2"},
		{"bucket-o-facts", "bucket-o-facts://fact/f1"},
		{"github", "github://octocat/hello-world/commit/abc123def"},
		{"github", "github://octocat/hello-world/pull/42"},
		{"github", "github://octocat/hello-world/issues/7"},
		{"github", "github://octocat/hello-world/blob/docs/README.md"},
	}
	for _, tc := range valid {
		if _, err := s.LinkSection(docstore.LinkSectionParams{
			SectionID: sec.ID, LinkType: tc.linkType, LinkTarget: tc.target,
		}); err != nil {
			t.Errorf("target %q rejected: %v", tc.target, err)
		}
	}

	invalid := []struct {
		linkType, target string
	}{
		{"todo-rama", "todo-rama://invalid"},
		{"todo-rama", "bucket-o-facts://fact/f1"},
		{"bucket-o-facts", "bucket-o-facts://f1"},
		{"github", "github://octocat/hello-world/tree/main"},
		{"github", "github://octocat/hello-world/pull/abc"},
	}
	for _, tc := range invalid {
		_, err := s.LinkSection(docstore.LinkSectionParams{
			SectionID: sec.ID, LinkType: tc.linkType, LinkTarget: tc.target,
		})
		wantValidationField(t, err, "link_target")
	}
}

func TestLinkSection_InvalidType(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	sec := mustCreateSection(t, s, doc.ID, "Sec", nil)

	_, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: sec.ID, LinkType: "jira", LinkTarget: "jira://TICKET-1",
	})
	wantValidationField(t, err, "link_type")
	if err.Error() != "Link type must be one of: todo-rama, bucket-o-facts, github" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestLinkSection_SectionNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: "missing", LinkType: "todo-rama", LinkTarget: "todo-rama://task/t1",
	})
	wantNotFound(t, err, "Section")
}

func TestLinkSection_DuplicatePerSection(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	secA := mustCreateSection(t, s, doc.ID, "A", nil)
	secB := mustCreateSection(t, s, doc.ID, "B", nil)

	params := docstore.LinkSectionParams{
		SectionID: secA.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/t1",
	}
	if _, err := s.LinkSection(params); err != nil {
		t.Fatalf("first link: %v", err)
	}

	_, err := s.LinkSection(params)
	var de *docstore.DuplicateError
	if !errors.As(err, &de) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}

	// The same pair on a different section is fine.
	params.SectionID = secB.ID
	if _, err := s.LinkSection(params); err != nil {
		t.Errorf("same target on another section should work: %v", err)
	}
}

func TestLinkDocument_Basic(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")

	link, err := s.LinkDocument(docstore.LinkDocumentParams{
		DocumentID: doc.ID, LinkType: "github", LinkTarget: "github://octocat/hello-world/issues/3",
	})
	if err != nil {
		t.Fatalf("LinkDocument error: %v", err)
	}
	if link.SectionID != nil {
		t.Errorf("SectionID = %v, want nil for a document link", *link.SectionID)
	}
	if link.DocumentID != doc.ID {
		t.Errorf("DocumentID = %q, want %q", link.DocumentID, doc.ID)
	}
}

func TestLinkDocument_DocumentNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LinkDocument(docstore.LinkDocumentParams{
		DocumentID: "missing", LinkType: "todo-rama", LinkTarget: "todo-rama://task/t1",
	})
	wantNotFound(t, err, "Document")
}

func TestLinkDocument_DuplicateScopedToDocumentLinks(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	sec := mustCreateSection(t, s, doc.ID, "Sec", nil)

	// A section link with the same pair does not block the document link.
	if _, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: sec.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/t1",
	}); err != nil {
		t.Fatalf("section link: %v", err)
	}
	if _, err := s.LinkDocument(docstore.LinkDocumentParams{
		DocumentID: doc.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/t1",
	}); err != nil {
		t.Fatalf("document link blocked by section link: %v", err)
	}

	_, err := s.LinkDocument(docstore.LinkDocumentParams{
		DocumentID: doc.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/t1",
	})
	var de *docstore.DuplicateError
	if !errors.As(err, &de) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
}

// ─── Unlink / lookups ───────────────────────────────────────────────────────

func TestUnlink_RemovesLink(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	sec := mustCreateSection(t, s, doc.ID, "Sec", nil)
	link, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: sec.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/t1",
	})
	if err != nil {
		t.Fatalf("LinkSection error: %v", err)
	}

	deleted, err := s.Unlink(link.ID)
	if err != nil {
		t.Fatalf("Unlink error: %v", err)
	}
	if !deleted {
		t.Fatal("deleted = false, want true")
	}

	again, err := s.Unlink(link.ID)
	if err != nil {
		t.Fatalf("second Unlink error: %v", err)
	}
	if again {
		t.Error("second delete should report false")
	}
}

func TestSectionLinks_OnlyOwnLinks(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	secA := mustCreateSection(t, s, doc.ID, "A", nil)
	secB := mustCreateSection(t, s, doc.ID, "B", nil)

	if _, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: secA.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/t1",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: secB.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/t2",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}

	got, err := s.SectionLinks(secA.ID)
	if err != nil {
		t.Fatalf("SectionLinks error: %v", err)
	}
	if len(got) != 1 || got[0].LinkTarget != "todo-rama://task/t1" {
		t.Errorf("got %+v, want only t1", got)
	}
}

func TestDocumentLinks_ExcludesSectionLinks(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	sec := mustCreateSection(t, s, doc.ID, "Sec", nil)

	if _, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: sec.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/t1",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := s.LinkDocument(docstore.LinkDocumentParams{
		DocumentID: doc.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/t2",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}

	got, err := s.DocumentLinks(doc.ID)
	if err != nil {
		t.Fatalf("DocumentLinks error: %v", err)
	}
	if len(got) != 1 || got[0].LinkTarget != "todo-rama://task/t2" {
		t.Errorf("got %+v, want only the document-owned link", got)
	}
}

func TestSectionsByLink_SharedTarget(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	secA := mustCreateSection(t, s, doc.ID, "A", nil)
	secB := mustCreateSection(t, s, doc.ID, "B", nil)

	target := "bucket-o-facts://fact/shared"
	for _, id := range []string{secA.ID, secB.ID} {
		if _, err := s.LinkSection(docstore.LinkSectionParams{
			SectionID: id, LinkType: "bucket-o-facts", LinkTarget: target,
		}); err != nil {
			t.Fatalf("link %s: %v", id, err)
		}
	}

	got, err := s.SectionsByLink("bucket-o-facts", target)
	if err != nil {
		t.Fatalf("SectionsByLink error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("sections = %d, want 2", len(got))
	}
	found := map[string]bool{}
	for _, ref := range got {
		found[ref.SectionID] = true
		if ref.DocumentID != doc.ID {
			t.Errorf("DocumentID = %q, want %q", ref.DocumentID, doc.ID)
		}
	}
	if !found[secA.ID] || !found[secB.ID] {
		t.Errorf("missing section refs: %v", found)
	}
}

func TestDocumentsByLink_DocumentOwnedOnly(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	sec := mustCreateSection(t, s, doc.ID, "Sec", nil)

	target := "todo-rama://task/t1"
	if _, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: sec.ID, LinkType: "todo-rama", LinkTarget: target,
	}); err != nil {
		t.Fatalf("link: %v", err)
	}

	got, err := s.DocumentsByLink("todo-rama", target)
	if err != nil {
		t.Fatalf("DocumentsByLink error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("section links should not surface as document refs: %+v", got)
	}

	if _, err := s.LinkDocument(docstore.LinkDocumentParams{
		DocumentID: doc.ID, LinkType: "todo-rama", LinkTarget: target,
	}); err != nil {
		t.Fatalf("link: %v", err)
	}
	got, err = s.DocumentsByLink("todo-rama", target)
	if err != nil {
		t.Fatalf("DocumentsByLink error: %v", err)
	}
	if len(got) != 1 || got[0].DocumentID != doc.ID {
		t.Errorf("got %+v, want the linked document", got)
	}
}

func TestLinksByType_Limit(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	sec := mustCreateSection(t, s, doc.ID, "Sec", nil)

	for _, target := range []string{"todo-rama://task/t1", "todo-rama://task/t2", "todo-rama://task/t3"} {
		if _, err := s.LinkSection(docstore.LinkSectionParams{
			SectionID: sec.ID, LinkType: "todo-rama", LinkTarget: target,
		}); err != nil {
			t.Fatalf("link %s: %v", target, err)
		}
	}
	if _, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: sec.ID, LinkType: "bucket-o-facts", LinkTarget: "bucket-o-facts://fact/f1",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}

	got, err := s.LinksByType("todo-rama", 2)
	if err != nil {
		t.Fatalf("LinksByType error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("links = %d, want 2", len(got))
	}
	for _, link := range got {
		if link.LinkType != "todo-rama" {
			t.Errorf("LinkType = %q, want todo-rama", link.LinkType)
		}
	}
}

func TestUpdateLinkMetadata(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	sec := mustCreateSection(t, s, doc.ID, "Sec", nil)
	link, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: sec.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/t1",
		LinkMetadata: map[string]any{"old": true},
	})
	if err != nil {
		t.Fatalf("link: %v", err)
	}

	updated, err := s.UpdateLinkMetadata(link.ID, map[string]any{"status": "done"})
	if err != nil {
		t.Fatalf("UpdateLinkMetadata error: %v", err)
	}
	if _, ok := updated.LinkMetadata["old"]; ok {
		t.Error("metadata replace should drop old keys")
	}
	if updated.LinkMetadata["status"] != "done" {
		t.Errorf("LinkMetadata = %v", updated.LinkMetadata)
	}

	_, err = s.UpdateLinkMetadata("missing", map[string]any{})
	wantNotFound(t, err, "Link")
}

// ─── Report ─────────────────────────────────────────────────────────────────

func TestGenerateLinkReport_Shape(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	secA := mustCreateSection(t, s, doc.ID, "A", nil)
	secB := mustCreateSection(t, s, doc.ID, "B", nil)

	shared := "todo-rama://task/hot"
	for _, id := range []string{secA.ID, secB.ID} {
		if _, err := s.LinkSection(docstore.LinkSectionParams{
			SectionID: id, LinkType: "todo-rama", LinkTarget: shared,
		}); err != nil {
			t.Fatalf("link: %v", err)
		}
	}
	if _, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: secA.ID, LinkType: "github", LinkTarget: "github://octocat/hello-world/pull/1",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := s.LinkDocument(docstore.LinkDocumentParams{
		DocumentID: doc.ID, LinkType: "bucket-o-facts", LinkTarget: "bucket-o-facts://fact/f1",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}

	report, err := s.GenerateLinkReport(docstore.ReportOptions{})
	if err != nil {
		t.Fatalf("GenerateLinkReport error: %v", err)
	}
	if report.TotalLinks != 4 {
		t.Errorf("TotalLinks = %d, want 4", report.TotalLinks)
	}
	if report.SectionLinks != 3 || report.DocumentLinks != 1 {
		t.Errorf("section/document = %d/%d, want 3/1", report.SectionLinks, report.DocumentLinks)
	}
	if report.ByType["todo-rama"] != 2 || report.ByType["github"] != 1 || report.ByType["bucket-o-facts"] != 1 {
		t.Errorf("ByType = %v", report.ByType)
	}
	if len(report.TopTargets) == 0 {
		t.Fatal("expected top targets")
	}
	if report.TopTargets[0].Target != "todo-rama:"+shared || report.TopTargets[0].Count != 2 {
		t.Errorf("top target = %+v, want the shared target with count 2", report.TopTargets[0])
	}
}

func TestGenerateLinkReport_DocumentFilter(t *testing.T) {
	s := newTestStore(t)
	docA := mustCreateDocument(t, s, "Doc A")
	docB := mustCreateDocument(t, s, "Doc B")
	secA := mustCreateSection(t, s, docA.ID, "A", nil)
	secB := mustCreateSection(t, s, docB.ID, "B", nil)

	if _, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: secA.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/a",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := s.LinkDocument(docstore.LinkDocumentParams{
		DocumentID: docA.ID, LinkType: "github", LinkTarget: "github://octocat/hello-world/pull/1",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: secB.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/b",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}

	report, err := s.GenerateLinkReport(docstore.ReportOptions{DocumentID: docA.ID})
	if err != nil {
		t.Fatalf("GenerateLinkReport error: %v", err)
	}
	if report.TotalLinks != 2 {
		t.Errorf("TotalLinks = %d, want 2 (section and document links of Doc A)", report.TotalLinks)
	}
}

func TestGenerateLinkReport_TypeFilter(t *testing.T) {
	s := newTestStore(t)
	doc := mustCreateDocument(t, s, "Doc")
	sec := mustCreateSection(t, s, doc.ID, "Sec", nil)

	if _, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: sec.ID, LinkType: "todo-rama", LinkTarget: "todo-rama://task/a",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := s.LinkSection(docstore.LinkSectionParams{
		SectionID: sec.ID, LinkType: "github", LinkTarget: "github://octocat/hello-world/pull/1",
	}); err != nil {
		t.Fatalf("link: %v", err)
	}

	report, err := s.GenerateLinkReport(docstore.ReportOptions{LinkType: "github"})
	if err != nil {
		t.Fatalf("GenerateLinkReport error: %v", err)
	}
	if report.TotalLinks != 1 || report.ByType["github"] != 1 {
		t.Errorf("filtered report = %+v", report)
	}
	if _, ok := report.ByType["todo-rama"]; ok {
		t.Error("other types should not appear in a filtered report")
	}
}
