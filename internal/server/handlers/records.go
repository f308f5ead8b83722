// Handles the per-kind record endpoints: list, create, update, delete
// and attachment download.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"facultyfolio/internal/records"
	"facultyfolio/internal/server/bandwidth"
	"facultyfolio/internal/server/dto"
	"facultyfolio/internal/server/reqctx"
	"facultyfolio/internal/storage/identity"

	"github.com/maruel/ksid"
)

// multipartMemory is the in-memory threshold for multipart parsing;
// larger uploads spill to temp files.
const multipartMemory = 32 << 20

// RecordsHandler handles the record endpoints for every kind. The kind
// is a path wildcard resolved against the schema registry.
type RecordsHandler struct {
	svc      *Services
	cfg      *Config
	download *bandwidth.Limiter
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(svc *Services, cfg *Config) *RecordsHandler {
	return &RecordsHandler{
		svc:      svc,
		cfg:      cfg,
		download: bandwidth.NewLimiter(cfg.Quotas.DownloadBytesPerSecond),
	}
}

func (h *RecordsHandler) service(kind string) (*records.Service, error) {
	if svc := h.svc.Records.Service(kind); svc != nil {
		return svc, nil
	}
	return nil, dto.NotFound("resource")
}

// List returns all of the caller's records of one kind, oldest first.
func (h *RecordsHandler) List(ctx context.Context, user *identity.User, req *dto.ListRecordsRequest) (*dto.RecordListResponse, error) {
	svc, err := h.service(req.Kind)
	if err != nil {
		return nil, err
	}
	return &dto.RecordListResponse{Records: recordsToDTO(svc.List(user.ID))}, nil
}

// Delete removes one record and its stored files.
func (h *RecordsHandler) Delete(ctx context.Context, user *identity.User, req *dto.DeleteRecordRequest) (*dto.DeleteRecordResponse, error) {
	svc, err := h.service(req.Kind)
	if err != nil {
		return nil, err
	}
	id, err := ksid.Parse(req.ID)
	if err != nil {
		return nil, dto.NotFound("record")
	}
	if err := svc.Delete(ctx, id, user.ID); err != nil {
		return nil, toAPIError(err, h.cfg.Quotas.MaxUploadBytes)
	}
	return &dto.DeleteRecordResponse{Ok: true}, nil
}

// CreateHandler accepts a multipart form with the kind's fields plus one
// or more "files" parts and creates a record. Raw handler: multipart
// bodies don't fit the JSON wrapper.
func (h *RecordsHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	user := reqctx.User(r.Context())
	svc, err := h.service(r.PathValue("kind"))
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	fields, uploads, err := h.parseMultipart(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	rec, err := svc.Create(r.Context(), user.ID, fields, uploads)
	if err != nil {
		writeErrorResponse(w, toAPIError(err, h.cfg.Quotas.MaxUploadBytes))
		return
	}
	slog.InfoContext(r.Context(), "Record created", "kind", rec.Kind, "id", rec.ID, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, recordToDTO(rec))
}

// UpdateHandler replaces a record's fields and, when "files" parts are
// present, its attachments.
func (h *RecordsHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	user := reqctx.User(r.Context())
	svc, err := h.service(r.PathValue("kind"))
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	id, err := ksid.Parse(r.PathValue("id"))
	if err != nil {
		writeErrorResponse(w, dto.NotFound("record"))
		return
	}
	fields, uploads, err := h.parseMultipart(r)
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	rec, err := svc.Update(r.Context(), id, user.ID, fields, uploads)
	if err != nil {
		writeErrorResponse(w, toAPIError(err, h.cfg.Quotas.MaxUploadBytes))
		return
	}
	writeJSON(w, http.StatusOK, recordToDTO(rec))
}

// DownloadHandler streams one attachment back to its owner with a
// Content-Disposition header carrying the original file name.
func (h *RecordsHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	user := reqctx.User(r.Context())
	svc, err := h.service(r.PathValue("kind"))
	if err != nil {
		writeErrorResponse(w, err)
		return
	}
	a, src, err := svc.OpenAttachment(user.ID, r.PathValue("ref"))
	if err != nil {
		writeErrorResponse(w, toAPIError(err, h.cfg.Quotas.MaxUploadBytes))
		return
	}
	defer func() {
		_ = src.Close()
	}()

	// Always octet-stream so browsers download instead of rendering inline.
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Name}))
	if _, err := io.Copy(w, bandwidth.NewReader(src, h.download)); err != nil {
		// Headers are already out; nothing useful can be sent.
		slog.WarnContext(r.Context(), "Attachment stream interrupted", "ref", a.StorageRef, "err", err)
	}
}

// parseMultipart extracts field values and uploads from a multipart
// form. Repeated field values keep the first occurrence; file parts must
// be named "files".
func (h *RecordsHandler) parseMultipart(r *http.Request) (map[string]string, []records.Upload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, nil, dto.PayloadTooLarge(maxBytesErr.Limit)
		}
		return nil, nil, dto.BadRequest("Invalid multipart form")
	}
	fields := make(map[string]string, len(r.MultipartForm.Value))
	for k, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	files := r.MultipartForm.File["files"]
	uploads := make([]records.Upload, 0, len(files))
	for _, fh := range files {
		uploads = append(uploads, records.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return fields, uploads, nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
