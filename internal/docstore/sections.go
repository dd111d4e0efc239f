package docstore

import (
	"fmt"
	"strings"
)

const sectionColumns = "id, document_id, parent_section_id, heading, body, order_index, metadata, created_at, updated_at"

func (s *Store) getSectionRow(q queryer, id string) (*Section, error) {
	rows, err := s.queryItHook(q, `SELECT `+sectionColumns+` FROM sections WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var sec Section
	var meta string
	if err := rows.Scan(
		&sec.ID, &sec.DocumentID, &sec.ParentSectionID, &sec.Heading, &sec.Body,
		&sec.OrderIndex, &meta, &sec.CreatedAt, &sec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	sec.Metadata = decodeMetadata(meta)
	return &sec, nil
}

func (s *Store) sectionRows(q queryer, query string, args ...any) ([]*Section, error) {
	rows, err := s.queryItHook(q, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Section
	for rows.Next() {
		var sec Section
		var meta string
		if err := rows.Scan(
			&sec.ID, &sec.DocumentID, &sec.ParentSectionID, &sec.Heading, &sec.Body,
			&sec.OrderIndex, &meta, &sec.CreatedAt, &sec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		sec.Metadata = decodeMetadata(meta)
		out = append(out, &sec)
	}
	return out, rows.Err()
}

// ─── Section CRUD ────────────────────────────────────────────────────────────

// CreateSection creates a section under a document, optionally nested below
// a parent section of the same document. Without an explicit order index the
// section is appended after its current siblings.
func (s *Store) CreateSection(p CreateSectionParams) (*Section, error) {
	if err := validateHeading(p.Heading); err != nil {
		return nil, err
	}
	if err := validateID("Document", p.DocumentID); err != nil {
		return nil, err
	}
	if p.ParentSectionID != nil {
		if err := validateID("Section", *p.ParentSectionID); err != nil {
			return nil, err
		}
	}
	secID := p.SectionID
	if secID == "" {
		secID = newID()
	} else if err := validateID("Section", secID); err != nil {
		return nil, err
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, storageErr("create section", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := s.getDocumentRow(tx, p.DocumentID)
	if err != nil {
		return nil, storageErr("create section", err)
	}
	if doc == nil {
		return nil, notFoundErr("Document", p.DocumentID)
	}

	if p.ParentSectionID != nil {
		parent, err := s.getSectionRow(tx, *p.ParentSectionID)
		if err != nil {
			return nil, storageErr("create section", err)
		}
		if parent == nil {
			return nil, notFoundErr("Section", *p.ParentSectionID)
		}
		if parent.DocumentID != p.DocumentID {
			return nil, validationErr("parent_section_id", "Parent section must belong to the same document")
		}
	}

	existing, err := s.getSectionRow(tx, secID)
	if err != nil {
		return nil, storageErr("create section", err)
	}
	if existing != nil {
		return nil, duplicateErr("Section", "id", secID)
	}

	orderIndex := 0
	if p.OrderIndex != nil {
		orderIndex = *p.OrderIndex
	} else {
		orderIndex, err = s.nextOrderIndex(tx, p.DocumentID, p.ParentSectionID, "")
		if err != nil {
			return nil, storageErr("create section", err)
		}
	}

	if _, err := s.execHook(tx,
		`INSERT INTO sections (id, document_id, parent_section_id, heading, body, order_index, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		secID, p.DocumentID, p.ParentSectionID, p.Heading, p.Body, orderIndex, encodeMetadata(p.Metadata),
	); err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateErr("Section", "id", secID)
		}
		return nil, storageErr("create section", err)
	}

	sec, err := s.getSectionRow(tx, secID)
	if err != nil {
		return nil, storageErr("create section", err)
	}
	if err := s.commitHook(tx); err != nil {
		return nil, storageErr("create section", err)
	}
	return sec, nil
}

// GetSection returns a section by ID. includeChildren loads the whole
// subtree below it; includeLinks loads the section's own links.
func (s *Store) GetSection(id string, includeChildren, includeLinks bool) (*Section, error) {
	if err := validateID("Section", id); err != nil {
		return nil, err
	}

	sec, err := s.getSectionRow(s.db, id)
	if err != nil {
		return nil, storageErr("get section", err)
	}
	if sec == nil {
		return nil, notFoundErr("Section", id)
	}

	if includeChildren {
		if err := s.loadChildren(s.db, sec); err != nil {
			return nil, storageErr("get section", err)
		}
	}
	if includeLinks {
		links, err := s.linkRows(s.db,
			`SELECT `+linkColumns+` FROM links WHERE section_id = ? ORDER BY rowid`, id)
		if err != nil {
			return nil, storageErr("get section", err)
		}
		sec.Links = links
	}
	return sec, nil
}

// UpdateSection applies a partial update to heading, body, order index or
// metadata. Metadata, when given, replaces the stored metadata wholesale.
func (s *Store) UpdateSection(id string, p UpdateSectionParams) (*Section, error) {
	if err := validateID("Section", id); err != nil {
		return nil, err
	}
	if p.Heading != nil {
		if err := validateHeading(*p.Heading); err != nil {
			return nil, err
		}
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, storageErr("update section", err)
	}
	defer func() { _ = tx.Rollback() }()

	sec, err := s.getSectionRow(tx, id)
	if err != nil {
		return nil, storageErr("update section", err)
	}
	if sec == nil {
		return nil, notFoundErr("Section", id)
	}

	var sets []string
	var args []any
	if p.Heading != nil {
		sets = append(sets, "heading = ?")
		args = append(args, *p.Heading)
	}
	if p.Body != nil {
		sets = append(sets, "body = ?")
		args = append(args, *p.Body)
	}
	if p.OrderIndex != nil {
		sets = append(sets, "order_index = ?")
		args = append(args, *p.OrderIndex)
	}
	if p.Metadata != nil {
		sets = append(sets, "metadata = ?")
		args = append(args, encodeMetadata(p.Metadata))
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = datetime('now')")
		args = append(args, id)
		if _, err := s.execHook(tx,
			"UPDATE sections SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...,
		); err != nil {
			return nil, storageErr("update section", err)
		}
		sec, err = s.getSectionRow(tx, id)
		if err != nil {
			return nil, storageErr("update section", err)
		}
	}

	if err := s.commitHook(tx); err != nil {
		return nil, storageErr("update section", err)
	}
	return sec, nil
}

// DeleteSection removes a section and, through the foreign key cascade, its
// whole subtree and all owned links. Returns false when no such section
// exists.
func (s *Store) DeleteSection(id string) (bool, error) {
	if err := validateID("Section", id); err != nil {
		return false, err
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return false, storageErr("delete section", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := s.execHook(tx, `DELETE FROM sections WHERE id = ?`, id)
	if err != nil {
		return false, storageErr("delete section", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete section", err)
	}
	if err := s.commitHook(tx); err != nil {
		return false, storageErr("delete section", err)
	}
	return n > 0, nil
}

// SectionsByDocument returns a document's sections, as a nested tree by
// default or as a flat order_index-sorted list. The heading and metadata
// filters apply to the returned slice itself: in tree mode a filtered-out
// top-level section drops its whole subtree.
func (s *Store) SectionsByDocument(documentID string, opts ListSectionsOptions) ([]*Section, error) {
	if err := validateID("Document", documentID); err != nil {
		return nil, err
	}

	var (
		sections []*Section
		err      error
	)
	if opts.Flat {
		sections, err = s.sectionRows(s.db,
			`SELECT `+sectionColumns+` FROM sections WHERE document_id = ? ORDER BY order_index, rowid`, documentID)
	} else {
		sections, err = s.treeByDocument(s.db, documentID)
	}
	if err != nil {
		return nil, storageErr("get sections by document", err)
	}

	if opts.HeadingPattern != "" {
		pattern := strings.ToLower(opts.HeadingPattern)
		var filtered []*Section
		for _, sec := range sections {
			if strings.Contains(strings.ToLower(sec.Heading), pattern) {
				filtered = append(filtered, sec)
			}
		}
		sections = filtered
	}
	if len(opts.MetadataFilter) > 0 {
		var filtered []*Section
		for _, sec := range sections {
			if metadataMatches(sec.Metadata, opts.MetadataFilter) {
				filtered = append(filtered, sec)
			}
		}
		sections = filtered
	}
	return sections, nil
}

// SearchSections runs a full-text query over section headings and bodies,
// ranked by relevance. An optional document ID narrows the scope.
func (s *Store) SearchSections(query, documentID string, limit int) ([]*Section, error) {
	if strings.TrimSpace(query) == "" {
		return nil, validationErr("query", "Query must be a non-empty string")
	}
	if limit < 0 {
		return nil, validationErr("limit", "limit must be non-negative")
	}
	if s.cfg.MaxSearchResults > 0 && limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	sqlStr := `
		SELECT sec.id, sec.document_id, sec.parent_section_id, sec.heading, sec.body,
		       sec.order_index, sec.metadata, sec.created_at, sec.updated_at
		FROM sections_fts fts
		JOIN sections sec ON sec.rowid = fts.rowid
		WHERE sections_fts MATCH ?
	`
	args := []any{sanitizeFTS(query)}
	if documentID != "" {
		sqlStr += " AND sec.document_id = ?"
		args = append(args, documentID)
	}
	sqlStr += " ORDER BY fts.rank LIMIT ?"
	args = append(args, limit)

	sections, err := s.sectionRows(s.db, sqlStr, args...)
	if err != nil {
		return nil, storageErr("search sections", err)
	}
	return sections, nil
}

// ─── Tree engine ─────────────────────────────────────────────────────────────

// nextOrderIndex computes the insert position for a new sibling: one past
// the highest current order_index, or 0 for the first entry. excludeID
// leaves out the section being moved so it cannot push its own index up.
func (s *Store) nextOrderIndex(q queryer, documentID string, parentSectionID *string, excludeID string) (int, error) {
	sqlStr := `SELECT COALESCE(MAX(order_index) + 1, 0) FROM sections WHERE document_id = ?`
	args := []any{documentID}
	if parentSectionID != nil {
		sqlStr += ` AND parent_section_id = ?`
		args = append(args, *parentSectionID)
	} else {
		sqlStr += ` AND parent_section_id IS NULL`
	}
	if excludeID != "" {
		sqlStr += ` AND id != ?`
		args = append(args, excludeID)
	}

	rows, err := s.queryItHook(q, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	next := 0
	if rows.Next() {
		if err := rows.Scan(&next); err != nil {
			return 0, err
		}
	}
	return next, rows.Err()
}

// childrenOf returns the direct children of a section ordered by
// order_index, ties broken by insertion order.
func (s *Store) childrenOf(q queryer, parentID string) ([]*Section, error) {
	return s.sectionRows(q,
		`SELECT `+sectionColumns+` FROM sections WHERE parent_section_id = ? ORDER BY order_index, rowid`, parentID)
}

func (s *Store) topLevelSections(q queryer, documentID string) ([]*Section, error) {
	return s.sectionRows(q,
		`SELECT `+sectionColumns+` FROM sections WHERE document_id = ? AND parent_section_id IS NULL ORDER BY order_index, rowid`, documentID)
}

// loadChildren recursively fills sec.Children, one query per node.
func (s *Store) loadChildren(q queryer, sec *Section) error {
	children, err := s.childrenOf(q, sec.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := s.loadChildren(q, child); err != nil {
			return err
		}
	}
	if len(children) > 0 {
		sec.Children = children
	}
	return nil
}

// treeByDocument materializes the full nested section tree of a document.
func (s *Store) treeByDocument(q queryer, documentID string) ([]*Section, error) {
	top, err := s.topLevelSections(q, documentID)
	if err != nil {
		return nil, err
	}
	for _, sec := range top {
		if err := s.loadChildren(q, sec); err != nil {
			return nil, err
		}
	}
	return top, nil
}

// wouldCreateCycle reports whether re-parenting sectionID under newParentID
// would close a loop: the candidate parent is the section itself or one of
// its current descendants. A nil parent (top level) can never cycle.
func (s *Store) wouldCreateCycle(q queryer, sectionID string, newParentID *string) (bool, error) {
	if newParentID == nil {
		return false, nil
	}
	if *newParentID == sectionID {
		return true, nil
	}

	visited := map[string]bool{sectionID: true}
	queue := []string{sectionID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		children, err := s.childrenOf(q, current)
		if err != nil {
			return false, err
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			if child.ID == *newParentID {
				return true, nil
			}
			visited[child.ID] = true
			queue = append(queue, child.ID)
		}
	}
	return false, nil
}

// MoveSection re-parents a section within its document, or makes it
// top-level when newParentSectionID is nil. The section keeps its identity
// and its descendants travel with it. Without an explicit order index it is
// appended after its new siblings.
func (s *Store) MoveSection(sectionID string, newParentSectionID *string, orderIndex *int) (*Section, error) {
	if err := validateID("Section", sectionID); err != nil {
		return nil, err
	}
	if newParentSectionID != nil {
		if err := validateID("Section", *newParentSectionID); err != nil {
			return nil, err
		}
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, storageErr("move section", err)
	}
	defer func() { _ = tx.Rollback() }()

	cycle, err := s.wouldCreateCycle(tx, sectionID, newParentSectionID)
	if err != nil {
		return nil, storageErr("move section", err)
	}
	if cycle {
		return nil, validationErr("new_parent_section_id", "Cannot move section into its own subtree (would create cycle)")
	}

	sec, err := s.getSectionRow(tx, sectionID)
	if err != nil {
		return nil, storageErr("move section", err)
	}
	if sec == nil {
		return nil, notFoundErr("Section", sectionID)
	}

	if newParentSectionID != nil {
		parent, err := s.getSectionRow(tx, *newParentSectionID)
		if err != nil {
			return nil, storageErr("move section", err)
		}
		if parent == nil {
			return nil, notFoundErr("Section", *newParentSectionID)
		}
		if parent.DocumentID != sec.DocumentID {
			return nil, validationErr("new_parent_section_id", "New parent section must belong to the same document")
		}
	}

	idx := 0
	if orderIndex != nil {
		idx = *orderIndex
	} else {
		idx, err = s.nextOrderIndex(tx, sec.DocumentID, newParentSectionID, sectionID)
		if err != nil {
			return nil, storageErr("move section", err)
		}
	}

	if _, err := s.execHook(tx,
		`UPDATE sections SET parent_section_id = ?, order_index = ?, updated_at = datetime('now') WHERE id = ?`,
		newParentSectionID, idx, sectionID,
	); err != nil {
		return nil, storageErr("move section", err)
	}

	sec, err = s.getSectionRow(tx, sectionID)
	if err != nil {
		return nil, storageErr("move section", err)
	}
	if err := s.commitHook(tx); err != nil {
		return nil, storageErr("move section", err)
	}
	return sec, nil
}

// ReorderSections rewrites sibling ordering inside one parent scope: each
// listed section gets its 0-based list position as its order_index.
// Unlisted siblings keep their old indices, which may then collide with
// reassigned ones; collisions are tolerated and broken by insertion order
// on read.
func (s *Store) ReorderSections(parentSectionID *string, sectionOrder []string) ([]*Section, error) {
	if len(sectionOrder) == 0 {
		return nil, validationErr("section_order", "section_order must be a non-empty list")
	}
	if parentSectionID != nil {
		if err := validateID("Section", *parentSectionID); err != nil {
			return nil, err
		}
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, storageErr("reorder sections", err)
	}
	defer func() { _ = tx.Rollback() }()

	var documentID string
	if parentSectionID != nil {
		parent, err := s.getSectionRow(tx, *parentSectionID)
		if err != nil {
			return nil, storageErr("reorder sections", err)
		}
		if parent == nil {
			return nil, notFoundErr("Section", *parentSectionID)
		}
		documentID = parent.DocumentID
	} else {
		// Top-level scope: the first listed section determines the document.
		first, err := s.getSectionRow(tx, sectionOrder[0])
		if err != nil {
			return nil, storageErr("reorder sections", err)
		}
		if first == nil {
			return nil, notFoundErr("Section", sectionOrder[0])
		}
		documentID = first.DocumentID
	}

	for _, id := range sectionOrder {
		sec, err := s.getSectionRow(tx, id)
		if err != nil {
			return nil, storageErr("reorder sections", err)
		}
		if sec == nil {
			return nil, notFoundErr("Section", id)
		}
		if !sameParent(sec.ParentSectionID, parentSectionID) {
			if parentSectionID != nil {
				return nil, validationErr("section_order",
					fmt.Sprintf("Section %s does not belong to parent %s", id, *parentSectionID))
			}
			return nil, validationErr("section_order",
				fmt.Sprintf("Section %s is not a top-level section", id))
		}
		if sec.DocumentID != documentID {
			return nil, validationErr("section_order",
				fmt.Sprintf("Section %s does not belong to document %s", id, documentID))
		}
	}

	updated := make([]*Section, 0, len(sectionOrder))
	for i, id := range sectionOrder {
		if _, err := s.execHook(tx,
			`UPDATE sections SET order_index = ?, updated_at = datetime('now') WHERE id = ?`, i, id,
		); err != nil {
			return nil, storageErr("reorder sections", err)
		}
		sec, err := s.getSectionRow(tx, id)
		if err != nil {
			return nil, storageErr("reorder sections", err)
		}
		updated = append(updated, sec)
	}

	if err := s.commitHook(tx); err != nil {
		return nil, storageErr("reorder sections", err)
	}
	return updated, nil
}

// GetSectionPath walks parent pointers from a section up to its top-level
// ancestor and returns the chain root-first; the queried section is the
// last element. Top-level sections yield a single-element path.
func (s *Store) GetSectionPath(sectionID string) ([]*Section, error) {
	if err := validateID("Section", sectionID); err != nil {
		return nil, err
	}

	sec, err := s.getSectionRow(s.db, sectionID)
	if err != nil {
		return nil, storageErr("get section path", err)
	}
	if sec == nil {
		return nil, notFoundErr("Section", sectionID)
	}

	path := []*Section{sec}
	visited := map[string]bool{sec.ID: true}
	for sec.ParentSectionID != nil {
		parent, err := s.getSectionRow(s.db, *sec.ParentSectionID)
		if err != nil {
			return nil, storageErr("get section path", err)
		}
		if parent == nil || visited[parent.ID] {
			break
		}
		visited[parent.ID] = true
		path = append([]*Section{parent}, path...)
		sec = parent
	}
	return path, nil
}
