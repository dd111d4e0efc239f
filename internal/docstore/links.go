package docstore

import (
	"fmt"
	"sort"
)

const linkColumns = "id, section_id, document_id, link_type, link_target, link_metadata, created_at, updated_at"

func (s *Store) getLinkRow(q queryer, id string) (*Link, error) {
	rows, err := s.queryItHook(q, `SELECT `+linkColumns+` FROM links WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var l Link
	var meta string
	if err := rows.Scan(
		&l.ID, &l.SectionID, &l.DocumentID, &l.LinkType, &l.LinkTarget,
		&meta, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.LinkMetadata = decodeMetadata(meta)
	return &l, nil
}

func (s *Store) linkRows(q queryer, query string, args ...any) ([]Link, error) {
	rows, err := s.queryItHook(q, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Link
	for rows.Next() {
		var l Link
		var meta string
		if err := rows.Scan(
			&l.ID, &l.SectionID, &l.DocumentID, &l.LinkType, &l.LinkTarget,
			&meta, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		l.LinkMetadata = decodeMetadata(meta)
		out = append(out, l)
	}
	return out, rows.Err()
}

// ─── Link CRUD ───────────────────────────────────────────────────────────────

// LinkSection attaches an external resource link to a section. The link
// inherits the section's document ID. A (type, target) pair may appear at
// most once per section.
func (s *Store) LinkSection(p LinkSectionParams) (*Link, error) {
	if err := validateID("Section", p.SectionID); err != nil {
		return nil, err
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, storageErr("link section", err)
	}
	defer func() { _ = tx.Rollback() }()

	sec, err := s.getSectionRow(tx, p.SectionID)
	if err != nil {
		return nil, storageErr("link section", err)
	}
	if sec == nil {
		return nil, notFoundErr("Section", p.SectionID)
	}

	if err := validateLinkType(p.LinkType); err != nil {
		return nil, err
	}
	if err := validateLinkTarget(p.LinkTarget); err != nil {
		return nil, err
	}
	if err := validateLinkTargetFormat(p.LinkType, p.LinkTarget); err != nil {
		return nil, err
	}

	existing, err := s.linkRows(tx,
		`SELECT `+linkColumns+` FROM links WHERE section_id = ? ORDER BY rowid`, p.SectionID)
	if err != nil {
		return nil, storageErr("link section", err)
	}
	for _, l := range existing {
		if l.LinkType == p.LinkType && l.LinkTarget == p.LinkTarget {
			return nil, duplicateErr("Link", "section_id+link_type+link_target",
				fmt.Sprintf("%s+%s+%s", p.SectionID, p.LinkType, p.LinkTarget))
		}
	}

	linkID := p.LinkID
	if linkID == "" {
		linkID = newID()
	} else if err := validateID("Link", linkID); err != nil {
		return nil, err
	}

	dup, err := s.getLinkRow(tx, linkID)
	if err != nil {
		return nil, storageErr("link section", err)
	}
	if dup != nil {
		return nil, duplicateErr("Link", "id", linkID)
	}

	if _, err := s.execHook(tx,
		`INSERT INTO links (id, section_id, document_id, link_type, link_target, link_metadata)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		linkID, p.SectionID, sec.DocumentID, p.LinkType, p.LinkTarget, encodeMetadata(p.LinkMetadata),
	); err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateErr("Link", "id", linkID)
		}
		return nil, storageErr("link section", err)
	}

	link, err := s.getLinkRow(tx, linkID)
	if err != nil {
		return nil, storageErr("link section", err)
	}
	if err := s.commitHook(tx); err != nil {
		return nil, storageErr("link section", err)
	}
	return link, nil
}

// LinkDocument attaches an external resource link directly to a document.
// The duplicate check only considers document-scoped links, so a section of
// the same document may carry the same (type, target) pair.
func (s *Store) LinkDocument(p LinkDocumentParams) (*Link, error) {
	if err := validateID("Document", p.DocumentID); err != nil {
		return nil, err
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, storageErr("link document", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := s.getDocumentRow(tx, p.DocumentID)
	if err != nil {
		return nil, storageErr("link document", err)
	}
	if doc == nil {
		return nil, notFoundErr("Document", p.DocumentID)
	}

	if err := validateLinkType(p.LinkType); err != nil {
		return nil, err
	}
	if err := validateLinkTarget(p.LinkTarget); err != nil {
		return nil, err
	}
	if err := validateLinkTargetFormat(p.LinkType, p.LinkTarget); err != nil {
		return nil, err
	}

	existing, err := s.linkRows(tx,
		`SELECT `+linkColumns+` FROM links WHERE document_id = ? AND section_id IS NULL ORDER BY rowid`, p.DocumentID)
	if err != nil {
		return nil, storageErr("link document", err)
	}
	for _, l := range existing {
		if l.LinkType == p.LinkType && l.LinkTarget == p.LinkTarget {
			return nil, duplicateErr("Link", "document_id+link_type+link_target",
				fmt.Sprintf("%s+%s+%s", p.DocumentID, p.LinkType, p.LinkTarget))
		}
	}

	linkID := p.LinkID
	if linkID == "" {
		linkID = newID()
	} else if err := validateID("Link", linkID); err != nil {
		return nil, err
	}

	dup, err := s.getLinkRow(tx, linkID)
	if err != nil {
		return nil, storageErr("link document", err)
	}
	if dup != nil {
		return nil, duplicateErr("Link", "id", linkID)
	}

	if _, err := s.execHook(tx,
		`INSERT INTO links (id, section_id, document_id, link_type, link_target, link_metadata)
		 VALUES (?, NULL, ?, ?, ?, ?)`,
		linkID, p.DocumentID, p.LinkType, p.LinkTarget, encodeMetadata(p.LinkMetadata),
	); err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateErr("Link", "id", linkID)
		}
		return nil, storageErr("link document", err)
	}

	link, err := s.getLinkRow(tx, linkID)
	if err != nil {
		return nil, storageErr("link document", err)
	}
	if err := s.commitHook(tx); err != nil {
		return nil, storageErr("link document", err)
	}
	return link, nil
}

// Unlink removes a link by ID regardless of its owner. Returns false when
// no such link exists.
func (s *Store) Unlink(linkID string) (bool, error) {
	if err := validateID("Link", linkID); err != nil {
		return false, err
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return false, storageErr("unlink", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := s.execHook(tx, `DELETE FROM links WHERE id = ?`, linkID)
	if err != nil {
		return false, storageErr("unlink", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("unlink", err)
	}
	if err := s.commitHook(tx); err != nil {
		return false, storageErr("unlink", err)
	}
	return n > 0, nil
}

// SectionLinks returns a section's links in creation order.
func (s *Store) SectionLinks(sectionID string) ([]Link, error) {
	if err := validateID("Section", sectionID); err != nil {
		return nil, err
	}
	links, err := s.linkRows(s.db,
		`SELECT `+linkColumns+` FROM links WHERE section_id = ? ORDER BY rowid`, sectionID)
	if err != nil {
		return nil, storageErr("get section links", err)
	}
	return links, nil
}

// DocumentLinks returns every link carrying the document's ID, both
// document-scoped and section-scoped ones.
func (s *Store) DocumentLinks(documentID string) ([]Link, error) {
	if err := validateID("Document", documentID); err != nil {
		return nil, err
	}
	links, err := s.linkRows(s.db,
		`SELECT `+linkColumns+` FROM links WHERE document_id = ? ORDER BY rowid`, documentID)
	if err != nil {
		return nil, storageErr("get document links", err)
	}
	return links, nil
}

// SectionsByLink finds every section linked to the given external resource.
func (s *Store) SectionsByLink(linkType, linkTarget string) ([]SectionRef, error) {
	if err := validateLinkType(linkType); err != nil {
		return nil, err
	}
	if err := validateLinkTarget(linkTarget); err != nil {
		return nil, err
	}

	rows, err := s.queryItHook(s.db, `
		SELECT sec.id, sec.heading, sec.document_id, l.id, l.link_target, l.link_metadata
		FROM links l
		JOIN sections sec ON sec.id = l.section_id
		WHERE l.link_type = ? AND l.link_target = ? AND l.section_id IS NOT NULL
		ORDER BY l.rowid
	`, linkType, linkTarget)
	if err != nil {
		return nil, storageErr("get sections by link", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SectionRef
	for rows.Next() {
		var ref SectionRef
		var meta string
		if err := rows.Scan(&ref.SectionID, &ref.Heading, &ref.DocumentID, &ref.LinkID, &ref.LinkTarget, &meta); err != nil {
			return nil, storageErr("get sections by link", err)
		}
		ref.LinkMetadata = decodeMetadata(meta)
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get sections by link", err)
	}
	return out, nil
}

// DocumentsByLink finds every document linked to the given external
// resource through a document-scoped link. Section-scoped links do not
// count here.
func (s *Store) DocumentsByLink(linkType, linkTarget string) ([]DocumentRef, error) {
	if err := validateLinkType(linkType); err != nil {
		return nil, err
	}
	if err := validateLinkTarget(linkTarget); err != nil {
		return nil, err
	}

	rows, err := s.queryItHook(s.db, `
		SELECT d.id, d.title, l.id, l.link_metadata
		FROM links l
		JOIN documents d ON d.id = l.document_id
		WHERE l.link_type = ? AND l.link_target = ? AND l.section_id IS NULL
		ORDER BY l.rowid
	`, linkType, linkTarget)
	if err != nil {
		return nil, storageErr("get documents by link", err)
	}
	defer func() { _ = rows.Close() }()

	var out []DocumentRef
	for rows.Next() {
		var ref DocumentRef
		var meta string
		if err := rows.Scan(&ref.DocumentID, &ref.Title, &ref.LinkID, &meta); err != nil {
			return nil, storageErr("get documents by link", err)
		}
		ref.LinkMetadata = decodeMetadata(meta)
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("get documents by link", err)
	}
	return out, nil
}

// LinksByType returns links of one type, newest first.
func (s *Store) LinksByType(linkType string, limit int) ([]Link, error) {
	if err := validateLinkType(linkType); err != nil {
		return nil, err
	}
	links, err := s.linkRows(s.db,
		`SELECT `+linkColumns+` FROM links WHERE link_type = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		linkType, limit)
	if err != nil {
		return nil, storageErr("get links by type", err)
	}
	return links, nil
}

// UpdateLinkMetadata replaces a link's metadata wholesale.
func (s *Store) UpdateLinkMetadata(linkID string, linkMetadata map[string]any) (*Link, error) {
	if err := validateID("Link", linkID); err != nil {
		return nil, err
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, storageErr("update link metadata", err)
	}
	defer func() { _ = tx.Rollback() }()

	link, err := s.getLinkRow(tx, linkID)
	if err != nil {
		return nil, storageErr("update link metadata", err)
	}
	if link == nil {
		return nil, notFoundErr("Link", linkID)
	}

	if _, err := s.execHook(tx,
		`UPDATE links SET link_metadata = ?, updated_at = datetime('now') WHERE id = ?`,
		encodeMetadata(linkMetadata), linkID,
	); err != nil {
		return nil, storageErr("update link metadata", err)
	}

	link, err = s.getLinkRow(tx, linkID)
	if err != nil {
		return nil, storageErr("update link metadata", err)
	}
	if err := s.commitHook(tx); err != nil {
		return nil, storageErr("update link metadata", err)
	}
	return link, nil
}

// reportScanLimit bounds how many links a type-scoped report considers.
const reportScanLimit = 10000

// GenerateLinkReport aggregates link statistics: totals, per-type counts,
// owner split, and the ten most linked targets. DocumentID scopes the
// report to one document's links (section-scoped ones included); LinkType
// scopes it to one type. DocumentID wins when both are set.
func (s *Store) GenerateLinkReport(opts ReportOptions) (*LinkReport, error) {
	var (
		links []Link
		err   error
	)
	switch {
	case opts.DocumentID != "":
		if err := validateID("Document", opts.DocumentID); err != nil {
			return nil, err
		}
		links, err = s.linkRows(s.db,
			`SELECT `+linkColumns+` FROM links WHERE document_id = ? ORDER BY rowid`, opts.DocumentID)
	case opts.LinkType != "":
		if err := validateLinkType(opts.LinkType); err != nil {
			return nil, err
		}
		links, err = s.linkRows(s.db,
			`SELECT `+linkColumns+` FROM links WHERE link_type = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
			opts.LinkType, reportScanLimit)
	default:
		links, err = s.linkRows(s.db, `SELECT `+linkColumns+` FROM links ORDER BY rowid`)
	}
	if err != nil {
		return nil, storageErr("generate link report", err)
	}

	report := &LinkReport{
		TotalLinks: len(links),
		ByType:     map[string]int{},
		TopTargets: []TargetCount{},
	}
	byTarget := map[string]int{}
	for _, l := range links {
		report.ByType[l.LinkType]++
		byTarget[l.LinkType+":"+l.LinkTarget]++
		if l.SectionID != nil {
			report.SectionLinks++
		} else {
			report.DocumentLinks++
		}
	}

	for target, count := range byTarget {
		report.TopTargets = append(report.TopTargets, TargetCount{Target: target, Count: count})
	}
	sort.Slice(report.TopTargets, func(i, j int) bool {
		if report.TopTargets[i].Count != report.TopTargets[j].Count {
			return report.TopTargets[i].Count > report.TopTargets[j].Count
		}
		return report.TopTargets[i].Target < report.TopTargets[j].Target
	})
	if len(report.TopTargets) > 10 {
		report.TopTargets = report.TopTargets[:10]
	}
	return report, nil
}
