package records

import (
	"errors"
	"maps"
	"slices"

	"facultyfolio/internal/storage"
	"github.com/maruel/ksid"
)

// Attachment is one stored file belonging to a record.
type Attachment struct {
	// StorageRef locates the blob in the blob store.
	StorageRef string `json:"storage_ref"`
	// Name is the file name the uploader supplied.
	Name string `json:"file_name"`
	// Size is the stored size in bytes.
	Size int64 `json:"size_bytes"`
}

// Record is one portfolio entry of a given kind.
type Record struct {
	ID      ksid.ID `json:"id"`
	OwnerID ksid.ID `json:"owner_id"`
	Kind    string  `json:"kind"`
	// Fields holds the kind-specific attributes after schema coercion.
	Fields map[string]any `json:"fields"`
	// Attachments preserves upload order.
	Attachments []Attachment `json:"attachments,omitempty"`
	Created     storage.Time `json:"created"`
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Fields = maps.Clone(r.Fields)
	c.Attachments = slices.Clone(r.Attachments)
	return &c
}

// GetID returns the record's primary key.
func (r *Record) GetID() ksid.ID {
	return r.ID
}

// Validate implements jsonldb row validation.
func (r *Record) Validate() error {
	if r.ID.IsZero() {
		return errors.New("record has no id")
	}
	if r.OwnerID.IsZero() {
		return errors.New("record has no owner")
	}
	if r.Kind == "" {
		return errors.New("record has no kind")
	}
	for i := range r.Attachments {
		a := &r.Attachments[i]
		if a.StorageRef == "" || a.Name == "" {
			return errors.New("record has an incomplete attachment")
		}
	}
	return nil
}

// Attachment returns the attachment with the given storage ref, or nil.
func (r *Record) Attachment(ref string) *Attachment {
	for i := range r.Attachments {
		if r.Attachments[i].StorageRef == ref {
			return &r.Attachments[i]
		}
	}
	return nil
}
