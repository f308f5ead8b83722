package records

import (
	"errors"
	"fmt"
	"path/filepath"

	"facultyfolio/internal/jsonldb"
	"facultyfolio/internal/storage"
	"github.com/maruel/ksid"
)

// Repository persists the records of one kind, scoped to their owner.
// Every mutating operation filters on (id, ownerID); a mismatch is
// reported as ErrNotFound, same as a missing record.
type Repository struct {
	schema  *Schema
	table   *jsonldb.Table[*Record]
	byOwner *jsonldb.Index[ksid.ID, *Record]
}

// NewRepository opens (or creates) the kind's table under dbDir.
func NewRepository(schema *Schema, dbDir string) (*Repository, error) {
	table, err := jsonldb.NewTable[*Record](filepath.Join(dbDir, schema.Path+".jsonl"))
	if err != nil {
		return nil, fmt.Errorf("open %s table: %w", schema.Kind, err)
	}
	return &Repository{
		schema:  schema,
		table:   table,
		byOwner: jsonldb.NewIndex(table, func(r *Record) ksid.ID { return r.OwnerID }),
	}, nil
}

// List returns all records owned by owner, oldest first.
func (r *Repository) List(owner ksid.ID) []*Record {
	var out []*Record
	for rec := range r.byOwner.Iter(owner) {
		out = append(out, rec)
	}
	return out
}

// Get returns the record if it exists and is owned by owner.
func (r *Repository) Get(id, owner ksid.ID) (*Record, error) {
	rec := r.table.Get(id)
	if rec == nil || rec.OwnerID != owner {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Create persists a new record and returns it.
func (r *Repository) Create(owner ksid.ID, fields map[string]any, attachments []Attachment) (*Record, error) {
	rec := &Record{
		ID:          ksid.NewID(),
		OwnerID:     owner,
		Kind:        r.schema.Kind,
		Fields:      fields,
		Attachments: attachments,
		Created:     storage.Now(),
	}
	if err := r.table.Append(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Update replaces the record's fields and, when attachments is non-nil,
// its attachment list. It returns the updated record and the previous
// state (so the caller can release replaced blobs).
func (r *Repository) Update(id, owner ksid.ID, fields map[string]any, attachments []Attachment) (curr, prev *Record, err error) {
	prev, err = r.Get(id, owner)
	if err != nil {
		return nil, nil, err
	}
	curr = prev.Clone()
	curr.Fields = fields
	if attachments != nil {
		curr.Attachments = attachments
	}
	// The ownership check above and this write are not atomic; two
	// racing updates to the same record resolve as last-write-wins.
	if prev, err = r.table.Update(curr); err != nil {
		if errors.Is(err, jsonldb.ErrNotFound) {
			err = ErrNotFound
		}
		return nil, nil, err
	}
	return curr, prev, nil
}

// Delete removes the record and returns its last state.
func (r *Repository) Delete(id, owner ksid.ID) (*Record, error) {
	if _, err := r.Get(id, owner); err != nil {
		return nil, err
	}
	rec, err := r.table.Delete(id)
	if err != nil {
		if errors.Is(err, jsonldb.ErrNotFound) {
			err = ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// FindByAttachment returns the owner's record holding the given storage
// ref, with the matching attachment.
func (r *Repository) FindByAttachment(owner ksid.ID, ref string) (*Record, *Attachment, error) {
	for rec := range r.byOwner.Iter(owner) {
		if a := rec.Attachment(ref); a != nil {
			return rec, a, nil
		}
	}
	return nil, nil, ErrNotFound
}
