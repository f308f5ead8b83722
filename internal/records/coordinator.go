package records

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"

	"facultyfolio/internal/blobstore"
)

// allowedContentTypes is the upload allow-list: documents, images and
// audio evidence.
var allowedContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"image/jpeg":     true,
	"image/png":      true,
	"audio/mpeg":     true,
	"audio/wav":      true,
	"audio/ogg":      true,
	"audio/aac":      true,
	"audio/webm":     true,
	"audio/mp4":      true,
	"audio/x-m4a":    true,
	"audio/flac":     true,
	"audio/x-ms-wma": true,
}

// BlobStore is the blob persistence the coordinator drives. Satisfied by
// *blobstore.Store.
type BlobStore interface {
	Save(originalName string, r io.Reader) (ref string, size int64, err error)
	Open(ref string) (io.ReadCloser, error)
	Remove(ref string) error
}

// Upload is one inbound file, decoupled from the HTTP multipart layer so
// the coordinator can be exercised without a request.
type Upload struct {
	// Name is the client-supplied file name.
	Name string
	// ContentType is the declared media type, possibly with parameters.
	ContentType string
	// Size is the declared size in bytes.
	Size int64
	// Open yields the file content. May be called once.
	Open func() (io.ReadCloser, error)
}

// Coordinator moves uploads in and out of the blob store on behalf of
// record mutations.
type Coordinator struct {
	blobs    BlobStore
	maxBytes int64
	maxFiles int
}

// NewCoordinator returns a coordinator enforcing the per-file size limit
// and the per-record file count limit.
func NewCoordinator(blobs BlobStore, maxBytes int64, maxFiles int) *Coordinator {
	return &Coordinator{blobs: blobs, maxBytes: maxBytes, maxFiles: maxFiles}
}

// PersistUploads checks every upload against the allow-list and the size
// limit, then stores them all. Checks run over the whole batch before
// any blob is written, so a rejected batch leaves no blobs behind. A
// write failure mid-batch aborts and releases the blobs stored so far.
func (c *Coordinator) PersistUploads(ctx context.Context, uploads []Upload) ([]Attachment, error) {
	if len(uploads) > c.maxFiles {
		return nil, &ValidationError{Fields: []string{"files"}, Reason: fmt.Sprintf("at most %d files per record", c.maxFiles)}
	}
	for i := range uploads {
		u := &uploads[i]
		ct, _, err := mime.ParseMediaType(u.ContentType)
		if err != nil || !allowedContentTypes[ct] {
			return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupportedMediaType, u.Name, u.ContentType)
		}
		if u.Size > c.maxBytes {
			return nil, fmt.Errorf("%w: %s (%d bytes)", ErrPayloadTooLarge, u.Name, u.Size)
		}
	}
	attachments := make([]Attachment, 0, len(uploads))
	for i := range uploads {
		u := &uploads[i]
		if err := ctx.Err(); err != nil {
			c.Release(ctx, attachments)
			return nil, err
		}
		src, err := u.Open()
		if err != nil {
			c.Release(ctx, attachments)
			return nil, fmt.Errorf("failed to read upload %q: %w", u.Name, err)
		}
		ref, size, err := c.blobs.Save(u.Name, src)
		_ = src.Close()
		if err != nil {
			c.Release(ctx, attachments)
			return nil, fmt.Errorf("failed to store upload %q: %w", u.Name, err)
		}
		attachments = append(attachments, Attachment{StorageRef: ref, Name: u.Name, Size: size})
	}
	return attachments, nil
}

// Release removes the given blobs. Called after the owning record state
// is already committed, so failures are logged and swallowed; an
// orphaned blob costs disk space, not correctness.
func (c *Coordinator) Release(ctx context.Context, attachments []Attachment) {
	for i := range attachments {
		a := &attachments[i]
		if err := c.blobs.Remove(a.StorageRef); err != nil {
			slog.WarnContext(ctx, "Orphaned blob left behind", "ref", a.StorageRef, "err", err)
		}
	}
}

// OpenAttachment returns the record's attachment with the given storage
// ref and a reader over its content.
func (c *Coordinator) OpenAttachment(rec *Record, ref string) (*Attachment, io.ReadCloser, error) {
	a := rec.Attachment(ref)
	if a == nil {
		return nil, nil, ErrNotFound
	}
	src, err := c.blobs.Open(a.StorageRef)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) || errors.Is(err, blobstore.ErrInvalidRef) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return a, src, nil
}
