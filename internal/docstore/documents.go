package docstore

import (
	"database/sql"
	"strings"
)

func (s *Store) getDocumentRow(q queryer, id string) (*Document, error) {
	rows, err := s.queryItHook(q,
		`SELECT id, title, metadata, created_at, updated_at FROM documents WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var d Document
	var meta string
	if err := rows.Scan(&d.ID, &d.Title, &meta, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Metadata = decodeMetadata(meta)
	return &d, nil
}

// CreateDocument creates a document, optionally together with a first batch
// of sections. The whole operation runs in one transaction; a failing
// section rolls the document back too.
func (s *Store) CreateDocument(p CreateDocumentParams) (*Document, error) {
	if err := validateTitle(p.Title); err != nil {
		return nil, err
	}

	docID := p.DocumentID
	if docID == "" {
		docID = newID()
	} else if err := validateID("Document", docID); err != nil {
		return nil, err
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, storageErr("create document", err)
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := s.getDocumentRow(tx, docID)
	if err != nil {
		return nil, storageErr("create document", err)
	}
	if existing != nil {
		return nil, duplicateErr("Document", "id", docID)
	}

	if _, err := s.execHook(tx,
		`INSERT INTO documents (id, title, metadata) VALUES (?, ?, ?)`,
		docID, p.Title, encodeMetadata(p.Metadata),
	); err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateErr("Document", "id", docID)
		}
		return nil, storageErr("create document", err)
	}

	for _, init := range p.InitialSections {
		if err := s.insertInitialSection(tx, docID, init); err != nil {
			return nil, storageErr("create document", err)
		}
	}

	doc, err := s.getDocumentRow(tx, docID)
	if err != nil {
		return nil, storageErr("create document", err)
	}
	if err := s.commitHook(tx); err != nil {
		return nil, storageErr("create document", err)
	}
	return doc, nil
}

func (s *Store) insertInitialSection(tx *sql.Tx, docID string, init InitialSection) error {
	if init.Heading == nil {
		return validationErr("heading", "Section heading is required")
	}
	if init.Body == nil {
		return validationErr("body", "Section body is required")
	}
	if err := validateHeading(*init.Heading); err != nil {
		return err
	}

	secID := init.ID
	if secID == "" {
		secID = newID()
	} else if err := validateID("Section", secID); err != nil {
		return err
	}

	// Parents must already exist, so earlier entries of the same batch may
	// serve as parents for later ones.
	if init.ParentSectionID != nil {
		if err := validateID("Section", *init.ParentSectionID); err != nil {
			return err
		}
		parent, err := s.getSectionRow(tx, *init.ParentSectionID)
		if err != nil {
			return err
		}
		if parent == nil {
			return notFoundErr("Section", *init.ParentSectionID)
		}
		if parent.DocumentID != docID {
			return validationErr("parent_section_id", "Parent section must belong to the same document")
		}
	}

	orderIndex := 0
	if init.OrderIndex != nil {
		orderIndex = *init.OrderIndex
	} else {
		next, err := s.nextOrderIndex(tx, docID, init.ParentSectionID, "")
		if err != nil {
			return err
		}
		orderIndex = next
	}

	if _, err := s.execHook(tx,
		`INSERT INTO sections (id, document_id, parent_section_id, heading, body, order_index, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		secID, docID, init.ParentSectionID, *init.Heading, *init.Body, orderIndex, encodeMetadata(init.Metadata),
	); err != nil {
		if isUniqueViolation(err) {
			return duplicateErr("Section", "id", secID)
		}
		return err
	}
	return nil
}

// GetDocument returns a document by ID. includeSections loads the full
// section tree; includeLinks loads every link carrying the document's ID,
// section-scoped ones included.
func (s *Store) GetDocument(id string, includeSections, includeLinks bool) (*Document, error) {
	if err := validateID("Document", id); err != nil {
		return nil, err
	}

	doc, err := s.getDocumentRow(s.db, id)
	if err != nil {
		return nil, storageErr("get document", err)
	}
	if doc == nil {
		return nil, notFoundErr("Document", id)
	}

	if includeSections {
		tree, err := s.treeByDocument(s.db, id)
		if err != nil {
			return nil, storageErr("get document", err)
		}
		doc.Sections = tree
	}
	if includeLinks {
		links, err := s.linkRows(s.db,
			`SELECT `+linkColumns+` FROM links WHERE document_id = ? ORDER BY rowid`, id)
		if err != nil {
			return nil, storageErr("get document", err)
		}
		doc.Links = links
	}
	return doc, nil
}

// UpdateDocument applies a partial update. Metadata, when given, replaces
// the stored metadata wholesale.
func (s *Store) UpdateDocument(id string, p UpdateDocumentParams) (*Document, error) {
	if err := validateID("Document", id); err != nil {
		return nil, err
	}
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return nil, err
		}
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return nil, storageErr("update document", err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := s.getDocumentRow(tx, id)
	if err != nil {
		return nil, storageErr("update document", err)
	}
	if doc == nil {
		return nil, notFoundErr("Document", id)
	}

	var sets []string
	var args []any
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Metadata != nil {
		sets = append(sets, "metadata = ?")
		args = append(args, encodeMetadata(p.Metadata))
	}

	if len(sets) > 0 {
		sets = append(sets, "updated_at = datetime('now')")
		args = append(args, id)
		if _, err := s.execHook(tx,
			"UPDATE documents SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...,
		); err != nil {
			return nil, storageErr("update document", err)
		}
		doc, err = s.getDocumentRow(tx, id)
		if err != nil {
			return nil, storageErr("update document", err)
		}
	}

	if err := s.commitHook(tx); err != nil {
		return nil, storageErr("update document", err)
	}
	return doc, nil
}

// DeleteDocument removes a document and, through the foreign key cascade,
// all of its sections and links. Returns false when no such document exists.
func (s *Store) DeleteDocument(id string) (bool, error) {
	if err := validateID("Document", id); err != nil {
		return false, err
	}

	tx, err := s.beginTxHook()
	if err != nil {
		return false, storageErr("delete document", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := s.execHook(tx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return false, storageErr("delete document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("delete document", err)
	}
	if err := s.commitHook(tx); err != nil {
		return false, storageErr("delete document", err)
	}
	return n > 0, nil
}

// ListDocuments returns document summaries ordered by creation time, newest
// first. The metadata filter matches documents whose metadata contains every
// filter pair; it is applied after pagination, so a filtered page may come
// back shorter than the limit.
func (s *Store) ListDocuments(opts ListDocumentsOptions) ([]DocumentSummary, error) {
	if opts.Limit < 0 {
		return nil, validationErr("limit", "limit must be non-negative")
	}
	if opts.Offset < 0 {
		return nil, validationErr("offset", "offset must be non-negative")
	}

	sqlStr := `
		SELECT d.id, d.title, d.metadata, d.updated_at,
		       (SELECT COUNT(*) FROM sections sec WHERE sec.document_id = d.id)
		FROM documents d
	`
	var args []any
	if opts.TitlePattern != "" {
		sqlStr += ` WHERE d.title LIKE '%' || ? || '%'`
		args = append(args, opts.TitlePattern)
	}
	sqlStr += ` ORDER BY d.created_at DESC, d.rowid DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.queryItHook(s.db, sqlStr, args...)
	if err != nil {
		return nil, storageErr("list documents", err)
	}
	defer func() { _ = rows.Close() }()

	var out []DocumentSummary
	for rows.Next() {
		var sum DocumentSummary
		var meta string
		if err := rows.Scan(&sum.ID, &sum.Title, &meta, &sum.UpdatedAt, &sum.SectionCount); err != nil {
			return nil, storageErr("list documents", err)
		}
		if len(opts.MetadataFilter) > 0 && !metadataMatches(decodeMetadata(meta), opts.MetadataFilter) {
			continue
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list documents", err)
	}
	return out, nil
}
