package records

import (
	"context"
	"io"
	"time"

	"github.com/maruel/ksid"
)

// Service ties one kind's schema, repository and the attachment
// coordinator together. All operations are owner-scoped.
type Service struct {
	schema *Schema
	repo   *Repository
	attach *Coordinator
	now    func() time.Time
}

// NewService returns the service for one record kind.
func NewService(schema *Schema, repo *Repository, attach *Coordinator) *Service {
	return &Service{schema: schema, repo: repo, attach: attach, now: time.Now}
}

// Schema returns the kind's schema.
func (s *Service) Schema() *Schema {
	return s.schema
}

// List returns all of the owner's records, oldest first.
func (s *Service) List(owner ksid.ID) []*Record {
	return s.repo.List(owner)
}

// Get returns one record.
func (s *Service) Get(id, owner ksid.ID) (*Record, error) {
	return s.repo.Get(id, owner)
}

// Create validates the input, stores the uploads and persists a new
// record. Validation runs before any blob work so a bad request never
// touches the blob store. At least one upload is mandatory: a record
// without evidence is not accepted.
func (s *Service) Create(ctx context.Context, owner ksid.ID, input map[string]string, uploads []Upload) (*Record, error) {
	fields, err := s.schema.Coerce(input, s.now)
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, &ValidationError{Fields: []string{"files"}, Reason: "at least one file is required"}
	}
	attachments, err := s.attach.PersistUploads(ctx, uploads)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.Create(owner, fields, attachments)
	if err != nil {
		// The record never existed; the blobs are unreachable.
		s.attach.Release(ctx, attachments)
		return nil, err
	}
	return rec, nil
}

// Update revalidates the full field set and replaces it. When uploads
// are present the attachment list is replaced and the previous blobs
// released after the record is committed; with no uploads the existing
// attachments are kept.
func (s *Service) Update(ctx context.Context, id, owner ksid.ID, input map[string]string, uploads []Upload) (*Record, error) {
	fields, err := s.schema.Coerce(input, s.now)
	if err != nil {
		return nil, err
	}
	// Ownership check before blob work, so uploads against someone
	// else's record are never stored.
	if _, err := s.repo.Get(id, owner); err != nil {
		return nil, err
	}
	var attachments []Attachment
	if len(uploads) != 0 {
		if attachments, err = s.attach.PersistUploads(ctx, uploads); err != nil {
			return nil, err
		}
	}
	curr, prev, err := s.repo.Update(id, owner, fields, attachments)
	if err != nil {
		s.attach.Release(ctx, attachments)
		return nil, err
	}
	if attachments != nil {
		s.attach.Release(ctx, prev.Attachments)
	}
	return curr, nil
}

// Delete removes the record, then releases its blobs best-effort.
func (s *Service) Delete(ctx context.Context, id, owner ksid.ID) error {
	rec, err := s.repo.Delete(id, owner)
	if err != nil {
		return err
	}
	s.attach.Release(ctx, rec.Attachments)
	return nil
}

// OpenAttachment locates the owner's attachment by storage ref and
// returns it with a reader over its content. The caller closes the
// reader.
func (s *Service) OpenAttachment(owner ksid.ID, ref string) (*Attachment, io.ReadCloser, error) {
	rec, _, err := s.repo.FindByAttachment(owner, ref)
	if err != nil {
		return nil, nil, err
	}
	return s.attach.OpenAttachment(rec, ref)
}
